// Package secrets encrypts deploy-form secret values at rest using age.
// Drafts are written to disk server-side, so secret values never touch the
// filesystem in plaintext: the dashboard holds the recipient (public) key and
// encrypts on save, while only a process configured with the matching
// identity can read values back.
package secrets

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"filippo.io/age"
)

var (
	// ErrNoRecipient is returned when no recipient key is configured for encryption.
	ErrNoRecipient = errors.New("no recipient key configured for encryption")
	// ErrNoIdentity is returned when no identity key is configured for decryption.
	ErrNoIdentity = errors.New("no identity key configured for decryption")
	// ErrDecryptionFailed is returned when decryption fails.
	ErrDecryptionFailed = errors.New("decryption failed")
	// ErrEncryptionFailed is returned when encryption fails.
	ErrEncryptionFailed = errors.New("encryption failed")
	// ErrInvalidKey is returned when a key is invalid.
	ErrInvalidKey = errors.New("invalid key format")
)

// Service encrypts and decrypts secret values with an age X25519 key pair.
type Service struct {
	recipient *age.X25519Recipient
	identity  *age.X25519Identity
	logger    *slog.Logger
}

// Config holds the key material for the secrets service.
type Config struct {
	// RecipientKey is the age public key used for encryption.
	// Format: age1... (Bech32 encoded)
	RecipientKey string
	// IdentityKey is the age private key used for decryption.
	// Format: AGE-SECRET-KEY-1... (Bech32 encoded)
	IdentityKey string
}

// NewService creates a secrets service. Either key may be omitted; the
// service then only supports the corresponding half of the operation.
func NewService(cfg Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	svc := &Service{logger: logger}

	if cfg.RecipientKey != "" {
		recipient, err := age.ParseX25519Recipient(cfg.RecipientKey)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid recipient key: %v", ErrInvalidKey, err)
		}
		svc.recipient = recipient
	}

	if cfg.IdentityKey != "" {
		identity, err := age.ParseX25519Identity(cfg.IdentityKey)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid identity key: %v", ErrInvalidKey, err)
		}
		svc.identity = identity
	}

	return svc, nil
}

// Encrypt encrypts plaintext with the configured recipient key.
func (s *Service) Encrypt(plaintext []byte) ([]byte, error) {
	if s.recipient == nil {
		return nil, ErrNoRecipient
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, s.recipient)
	if err != nil {
		s.logger.Error("failed to create age encryptor", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	if _, err := w.Write(plaintext); err != nil {
		s.logger.Error("failed to write plaintext to encryptor", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	if err := w.Close(); err != nil {
		s.logger.Error("failed to close encryptor", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	return buf.Bytes(), nil
}

// Decrypt decrypts ciphertext with the configured identity key.
func (s *Service) Decrypt(ciphertext []byte) ([]byte, error) {
	if s.identity == nil {
		return nil, ErrNoIdentity
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), s.identity)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	return plaintext, nil
}

// CanEncrypt reports whether a recipient key is configured.
func (s *Service) CanEncrypt() bool {
	return s.recipient != nil
}

// CanDecrypt reports whether an identity key is configured.
func (s *Service) CanDecrypt() bool {
	return s.identity != nil
}

// GenerateKeyPair generates a fresh age key pair. The recipient key goes in
// the dashboard config; the identity key stays with whoever needs to read
// drafts back.
func GenerateKeyPair() (recipientKey, identityKey string, err error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate age key pair: %w", err)
	}

	return identity.Recipient().String(), identity.String(), nil
}
