package auth

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(expiry time.Duration) *Service {
	return NewService(&Config{
		JWTSecret:   []byte("test-secret-at-least-32-bytes-long!"),
		TokenExpiry: expiry,
	}, nil)
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestService(time.Hour)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("validate inverts generate", prop.ForAll(
		func(userID, email string) bool {
			token, err := svc.GenerateToken(userID, email)
			if err != nil {
				return false
			}
			session, err := svc.ValidateToken(token)
			if err != nil {
				return false
			}
			return session.UserID == userID && session.Email == email
		},
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.TestingRun(t)
}

func TestValidateRejectsForeignSignature(t *testing.T) {
	token, err := newTestService(time.Hour).GenerateToken("alice", "alice@acme.io")
	require.NoError(t, err)

	other := NewService(&Config{
		JWTSecret:   []byte("a-completely-different-secret-key!!"),
		TokenExpiry: time.Hour,
	}, nil)
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc := newTestService(-time.Minute)
	token, err := svc.GenerateToken("alice", "")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestGenerateRequiresUserID(t *testing.T) {
	_, err := newTestService(time.Hour).GenerateToken("", "")
	assert.ErrorIs(t, err, ErrMissingClaims)
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc123", "abc123"},
		{"bearer abc123", "abc123"},
		{"Bearer   abc123  ", "abc123"},
		{"Basic abc123", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ExtractBearerToken(tc.header), "header %q", tc.header)
	}
}
