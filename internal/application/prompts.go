// Package application contains use-case orchestration services.
package application

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ericfisherdev/quizforge/internal/domain/model"
	"github.com/ericfisherdev/quizforge/internal/domain/port/driven"
)

// maxPromptChars caps the amount of source text sent to the model. Longer
// documents are truncated at a line boundary where possible.
const maxPromptChars = 16000

const generationSystemPrompt = `You are an expert at creating multiple-choice questions (MCQs) for educational purposes. Return ONLY valid JSON. No extra text, no markdown, no code fences.`

const generationUserTemplate = `Requirements:
- Generate exactly %d MCQs for %s students in a %s tone.
- Use ONLY the provided text.
- Do not repeat questions.
- Use keys "1"..."%d" exactly.
- Each question must include options a/b/c/d.
- "correct" must be one of: "a", "b", "c", "d".
- The correct option must NOT always be the same letter; distribute answers across a/b/c/d.

Text:
%s

### RESPONSE_JSON (structure/template only; values are placeholders)
%s`

const evaluationSystemPrompt = `You are an expert in creating and evaluating multiple-choice questions (MCQs). Return ONLY valid JSON. No extra text, no markdown, no code fences.`

const evaluationUserTemplate = `You are evaluating a quiz for %s students.

Rules:
- complexity_analysis must be <= %d words.
- is_appropriate must be true or false (boolean).
- final_quiz must follow the exact quiz format shown in RESPONSE_JSON.
- If is_appropriate is true, final_quiz must be identical to the input quiz.
- If is_appropriate is false, revise ONLY the necessary questions (keep the same keys and structure).
- RESPONSE_JSON is a structure/template only; its values are placeholders.

Input Quiz (JSON):
%s

### RESPONSE_JSON (structure/template only; values are placeholders)
%s`

// GenerationPrompt builds the chat messages for the quiz generation pass.
func GenerationPrompt(text string, number int, subject string, tone model.Tone) []driven.ChatMessage {
	return []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: generationSystemPrompt},
		{Role: driven.RoleUser, Content: fmt.Sprintf(generationUserTemplate,
			number, subject, tone, number, truncateText(text, maxPromptChars), quizSkeleton(number),
		)},
	}
}

// EvaluationPrompt builds the chat messages for the quiz evaluation pass.
// quizJSON is the generated quiz in its wire format.
func EvaluationPrompt(subject, quizJSON string, number int) []driven.ChatMessage {
	return []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: evaluationSystemPrompt},
		{Role: driven.RoleUser, Content: fmt.Sprintf(evaluationUserTemplate,
			subject, model.MaxComplexityWords, quizJSON, evaluationSkeleton(number),
		)},
	}
}

// quizSkeleton renders the placeholder quiz structure the model is told to
// mirror, with keys "1"..."n".
func quizSkeleton(n int) string {
	var b strings.Builder
	b.WriteString("{")
	for i := 1; i <= n; i++ {
		if i > 1 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Quote(strconv.Itoa(i)))
		b.WriteString(`: {"mcq": "multiple choice question", "options": {"a": "choice here", "b": "choice here", "c": "choice here", "d": "choice here"}, "correct": "correct answer letter"}`)
	}
	b.WriteString("}")
	return b.String()
}

// evaluationSkeleton renders the placeholder evaluation structure.
func evaluationSkeleton(n int) string {
	return fmt.Sprintf(`{"complexity_analysis": "analysis in %d words or fewer", "is_appropriate": true, "final_quiz": %s}`,
		model.MaxComplexityWords, quizSkeleton(n))
}

// truncateText cuts text to at most limit bytes without splitting a UTF-8
// rune, preferring to break at the last newline inside the window.
func truncateText(text string, limit int) string {
	if len(text) <= limit {
		return text
	}

	end := limit
	for end > 0 && !utf8.RuneStart(text[end]) {
		end--
	}
	cut := text[:end]
	if idx := strings.LastIndexByte(cut, '\n'); idx > limit/2 {
		cut = cut[:idx]
	}
	return cut
}
