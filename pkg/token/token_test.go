package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	iss, err := NewIssuer("secret", time.Hour)
	require.NoError(t, err)

	raw, err := iss.Issue("user-1")
	require.NoError(t, err)

	userID, err := iss.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestParseRejectsForeignAndExpiredTokens(t *testing.T) {
	a, err := NewIssuer("", time.Hour)
	require.NoError(t, err)
	b, err := NewIssuer("", time.Hour)
	require.NoError(t, err)

	raw, err := a.Issue("user-1")
	require.NoError(t, err)
	_, err = b.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	a.Now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = a.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = a.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
