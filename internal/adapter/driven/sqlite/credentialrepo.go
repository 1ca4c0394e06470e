package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ericfisherdev/ghnotify/internal/domain/port/driven"
)

// githubService is the credentials row holding the GitHub token.
const githubService = "github"

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port.
// The token is encrypted with AES-256-GCM before write and decrypted after read.
type CredentialRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil when encryption is not configured.
}

// NewCredentialRepo creates a new CredentialRepo. key must be 32 bytes, or nil
// when no key is configured; writes then fail with ErrEncryptionKeyNotSet and
// reads report no token.
func NewCredentialRepo(db *DB, key []byte) *CredentialRepo {
	return &CredentialRepo{db: db, key: key}
}

// GetToken returns the stored token. A missing key, a missing row or a
// ciphertext that no longer decrypts all report "" so the agent shows the
// unconfigured state rather than failing every cycle.
func (r *CredentialRepo) GetToken(ctx context.Context) (string, error) {
	const query = `SELECT value FROM credentials WHERE service = ?`
	var encrypted string
	err := r.db.Reader.QueryRowContext(ctx, query, githubService).Scan(&encrypted)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get token: %w", err)
	}

	if r.key == nil {
		slog.Warn("stored token cannot be read", "error", driven.ErrEncryptionKeyNotSet)
		return "", nil
	}

	plaintext, err := r.decrypt(encrypted)
	if err != nil {
		slog.Warn("stored token cannot be decrypted, treating as unset", "error", err)
		return "", nil
	}
	return plaintext, nil
}

// SaveToken stores or replaces the token.
func (r *CredentialRepo) SaveToken(ctx context.Context, token string) error {
	encrypted, err := r.encrypt(token)
	if err != nil {
		return err
	}

	const query = `INSERT INTO credentials (service, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(service) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := r.db.Writer.ExecContext(ctx, query, githubService, encrypted); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// HasToken reports whether a token row exists, without decrypting it.
func (r *CredentialRepo) HasToken(ctx context.Context) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM credentials WHERE service = ?)`
	var exists bool
	if err := r.db.Reader.QueryRowContext(ctx, query, githubService).Scan(&exists); err != nil {
		return false, fmt.Errorf("check token: %w", err)
	}
	return exists, nil
}

// DeleteToken removes the stored token.
func (r *CredentialRepo) DeleteToken(ctx context.Context) error {
	const query = `DELETE FROM credentials WHERE service = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, githubService); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

func (r *CredentialRepo) gcm() (cipher.AEAD, error) {
	if r.key == nil {
		return nil, driven.ErrEncryptionKeyNotSet
	}

	block, err := aes.NewCipher(r.key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}

// encrypt returns base64(nonce || ciphertext || tag).
func (r *CredentialRepo) encrypt(plaintext string) (string, error) {
	gcm, err := r.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (r *CredentialRepo) decrypt(encoded string) (string, error) {
	gcm, err := r.gcm()
	if err != nil {
		return "", err
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}

	return string(plaintext), nil
}
