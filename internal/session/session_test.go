package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	s, err := LoadAt(filepath.Join(t.TempDir(), "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	})

	signed, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	return signed
}

func TestLoginRoundTrip(t *testing.T) {
	s := testStore(t)

	in := Login{
		Token:       "tok-123",
		UserID:      "u-1",
		UserName:    "Alex",
		UserEmail:   "alex@example.com",
		WorkspaceID: "w-1",
	}
	require.NoError(t, s.SetLogin(in))

	out, err := s.Login()
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, "tok-123", s.Token())
}

func TestLogin_EmptyStore(t *testing.T) {
	s := testStore(t)

	out, err := s.Login()
	require.NoError(t, err)
	assert.Equal(t, Login{}, out)
	assert.Empty(t, s.Token())
}

func TestClear_RemovesAllLoginValues(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.SetLogin(Login{
		Token:       "tok",
		UserID:      "u",
		UserName:    "n",
		UserEmail:   "e",
		WorkspaceID: "w",
	}))
	require.NoError(t, s.Clear())

	out, err := s.Login()
	require.NoError(t, err)
	assert.Equal(t, Login{}, out, "logout clears every login value together")
}

func TestClear_KeepsRealtimePreference(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.SetRealtimeEnabled(false))
	require.NoError(t, s.SetLogin(Login{Token: "tok"}))
	require.NoError(t, s.Clear())

	assert.False(t, s.RealtimeEnabled())
}

func TestRealtimeEnabled_DefaultsTrue(t *testing.T) {
	s := testStore(t)
	assert.True(t, s.RealtimeEnabled())
}

func TestRealtimeEnabled_RoundTrip(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.SetRealtimeEnabled(false))
	assert.False(t, s.RealtimeEnabled())

	require.NoError(t, s.SetRealtimeEnabled(true))
	assert.True(t, s.RealtimeEnabled())
}

func TestTokenExpired(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{name: "empty token", token: "", want: true},
		{name: "garbage token", token: "not-a-jwt", want: true},
		{name: "valid for an hour", token: signedToken(t, time.Now().Add(time.Hour)), want: false},
		{name: "expired an hour ago", token: signedToken(t, time.Now().Add(-time.Hour)), want: true},
		{name: "expiring within slack", token: signedToken(t, time.Now().Add(10*time.Second)), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TokenExpired(tt.token))
		})
	}
}

func TestTokenExpired_NoExpClaim(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"})
	signed, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	assert.True(t, TokenExpired(signed), "a token without exp cannot be trusted as fresh")
}
