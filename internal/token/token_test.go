package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	signed, err := m.Issue(42, "alice", "user")
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := m.Verify(signed)
	require.NoError(t, err)
	require.Equal(t, 42, claims.UserID)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, "user", claims.Role)
}

func TestVerifyTamperedSignature(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	signed, err := m.Issue(1, "alice", "user")
	require.NoError(t, err)

	// Flip one character of the signature segment.
	i := strings.LastIndex(signed, ".") + 1
	altered := signed[:i] + flip(signed[i]) + signed[i+1:]

	_, err = m.Verify(altered)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyWrongSecret(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	other := NewManager("other-secret", time.Hour)

	signed, err := m.Issue(1, "alice", "user")
	require.NoError(t, err)

	_, err = other.Verify(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyExpired(t *testing.T) {
	m := NewManager("test-secret", time.Nanosecond)

	signed, err := m.Issue(1, "alice", "user")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, err = m.Verify(signed)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyMalformed(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	for _, raw := range []string{"", "garbage", "a.b.c"} {
		_, err := m.Verify(raw)
		require.ErrorIs(t, err, ErrInvalidToken, "input %q", raw)
	}
}

func flip(b byte) string {
	if b == 'A' {
		return "B"
	}
	return "A"
}
