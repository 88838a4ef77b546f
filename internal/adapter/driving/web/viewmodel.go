package web

import (
	"html/template"
	"unicode/utf8"

	vm "github.com/ericfisherdev/quizforge/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/quizforge/internal/domain/model"
)

// previewChars caps the source document preview on the detail page.
const previewChars = 2000

const displayTimeFormat = "2006-01-02 15:04"

// toQuizCard converts a domain Quiz to its dashboard card view model.
func toQuizCard(quiz model.Quiz) vm.QuizCard {
	return vm.QuizCard{
		PublicID:      quiz.PublicID,
		Subject:       quiz.Subject,
		Tone:          string(quiz.Tone),
		NumQuestions:  quiz.NumQuestions,
		Status:        string(quiz.Status),
		StatusClass:   "status-" + string(quiz.Status),
		FailureReason: quiz.FailureReason,
		CreatedAt:     quiz.CreatedAt.UTC().Format(displayTimeFormat),
		DetailPath:    "/quizzes/" + quiz.PublicID,
	}
}

// toQuizRows converts the question list to detail table rows.
func toQuizRows(questions []model.Question) []vm.QuizRow {
	rows := make([]vm.QuizRow, 0, len(questions))
	for _, q := range questions {
		rows = append(rows, vm.QuizRow{
			Index:   q.Index,
			MCQ:     q.Prompt,
			ChoiceA: q.Options.A,
			ChoiceB: q.Options.B,
			ChoiceC: q.Options.C,
			ChoiceD: q.Options.D,
			Correct: string(q.Correct),
		})
	}
	return rows
}

// toDocumentView converts the source document, rendering a preview of its
// text. Markdown documents are rendered to sanitized HTML; everything else is
// shown preformatted.
func toDocumentView(doc model.Document) vm.Document {
	preview := doc.Text
	if len(preview) > previewChars {
		// Back up to a rune boundary so the cut never splits a UTF-8
		// sequence.
		end := previewChars
		for end > 0 && !utf8.RuneStart(preview[end]) {
			end--
		}
		preview = preview[:end] + "…"
	}

	var previewHTML template.HTML
	if doc.Kind == model.DocumentKindMarkdown {
		previewHTML = template.HTML(RenderMarkdown(preview))
	} else {
		previewHTML = template.HTML("<pre>" + template.HTMLEscapeString(preview) + "</pre>")
	}

	return vm.Document{
		Name:        doc.Name,
		Kind:        string(doc.Kind),
		Origin:      string(doc.Origin),
		Source:      doc.Source,
		CharCount:   doc.CharCount,
		PreviewHTML: previewHTML,
	}
}

// toEvaluationView converts the model's quiz review.
func toEvaluationView(eval model.Evaluation) vm.Evaluation {
	return vm.Evaluation{
		ComplexityAnalysis: eval.ComplexityAnalysis,
		IsAppropriate:      eval.IsAppropriate,
		Revised:            eval.Revised,
	}
}

// toUsageRows converts recorded usage to display rows.
func toUsageRows(runs []model.Usage) []vm.UsageRow {
	rows := make([]vm.UsageRow, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, vm.UsageRow{
			Model:            run.Model,
			PromptTokens:     run.PromptTokens,
			CompletionTokens: run.CompletionTokens,
			TotalTokens:      run.TotalTokens,
			CreatedAt:        run.CreatedAt.UTC().Format(displayTimeFormat),
		})
	}
	return rows
}
