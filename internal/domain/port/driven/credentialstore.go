package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/quizforge/internal/domain/model"
)

// ErrEncryptionKeyNotSet is returned by CredentialStore implementations when
// no encryption key was configured, so credentials cannot be stored or read.
var ErrEncryptionKeyNotSet = errors.New("credential encryption key not set")

// CredentialStore defines the driven port for encrypted secret persistence.
type CredentialStore interface {
	// Set stores or replaces the credential for the given service.
	Set(ctx context.Context, service, plaintext string) error
	// Get returns the plaintext credential for the given service, or
	// "", nil when none is stored.
	Get(ctx context.Context, service string) (string, error)
	// List returns all stored credentials with decrypted values.
	List(ctx context.Context) ([]model.Credential, error)
	// Delete removes the credential for the given service.
	Delete(ctx context.Context, service string) error
}
