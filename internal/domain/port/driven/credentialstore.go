package driven

import (
	"context"
	"errors"
)

// ErrEncryptionKeyNotSet is returned by CredentialStore writes when
// GHNOTIFY_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set GHNOTIFY_SECRET_KEY")

// CredentialStore defines the driven port for the encrypted GitHub token.
// The adapter layer is responsible for encryption/decryption; this interface
// operates on plaintext values at the domain boundary.
type CredentialStore interface {
	// GetToken returns the plaintext token, or "" when none is stored.
	// A token that cannot be decrypted is reported as "" as well.
	GetToken(ctx context.Context) (string, error)

	// SaveToken stores or replaces the token.
	SaveToken(ctx context.Context, token string) error

	// HasToken reports whether a token row exists, without decrypting it.
	HasToken(ctx context.Context) (bool, error)

	// DeleteToken removes the stored token.
	DeleteToken(ctx context.Context) error
}
