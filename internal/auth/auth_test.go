package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!pass")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("s3cret!pass", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

func TestIsPasswordComplex(t *testing.T) {
	tests := []struct {
		password string
		want     bool
	}{
		{"abc123!x", true},
		{"abcdefgh", false},
		{"12345678", false},
		{"abc12345", false},
		{"a1!", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsPasswordComplex(tt.password), tt.password)
	}
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "Søren Kierkegaard", SanitizeName("  søren   Kierkegaard 42! "))
	assert.Equal(t, "O'Brien-Hansen", SanitizeName("o'Brien-Hansen"))
	assert.Equal(t, "", SanitizeName("1234"))
}

func TestValidatePhone(t *testing.T) {
	assert.True(t, ValidatePhone("+4520123456"))
	assert.False(t, ValidatePhone("20123456"))
	assert.False(t, ValidatePhone("+45 20 12 34 56"))
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour)
	token, err := issuer.IssueToken("acc-1", "ida@example.dk", "admin")
	require.NoError(t, err)

	claims, err := issuer.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.Subject)
	assert.Equal(t, "admin", claims.Role)

	other := NewTokenIssuer("other-secret", time.Hour)
	_, err = other.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenExpiry(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Minute)
	base := time.Now()
	issuer.now = func() time.Time { return base }
	token, err := issuer.IssueToken("acc-1", "ida@example.dk", "member")
	require.NoError(t, err)

	issuer.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err = issuer.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
