package web

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minasoft/clinic-server/internal/config"
)

func testServer(ttl time.Duration) *Server {
	return &Server{
		config: &config.Config{
			JWTSecret: "test-secret",
			TokenTTL:  ttl,
		},
	}
}

func TestTokenRoundTrip(t *testing.T) {
	s := testServer(time.Hour)

	token, err := s.issueToken("65f1a2b3c4d5e6f7a8b9c0d1", "jane.tan", 0)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := s.parseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "65f1a2b3c4d5e6f7a8b9c0d1", claims.UserID)
	assert.Equal(t, "jane.tan", claims.Username)
	assert.Equal(t, 0, claims.IsStaff)
}

func TestTokenStaffFlag(t *testing.T) {
	s := testServer(time.Hour)

	token, err := s.issueToken("65f1a2b3c4d5e6f7a8b9c0d2", "dr.lim", 1)
	require.NoError(t, err)

	claims, err := s.parseToken(token)
	require.NoError(t, err)
	assert.Equal(t, 1, claims.IsStaff)
}

func TestTokenExpired(t *testing.T) {
	s := testServer(-time.Minute)

	token, err := s.issueToken("65f1a2b3c4d5e6f7a8b9c0d3", "jane.tan", 0)
	require.NoError(t, err)

	_, err = s.parseToken(token)
	assert.Error(t, err)
}

func TestTokenWrongSecret(t *testing.T) {
	issuer := testServer(time.Hour)
	token, err := issuer.issueToken("65f1a2b3c4d5e6f7a8b9c0d4", "jane.tan", 0)
	require.NoError(t, err)

	verifier := testServer(time.Hour)
	verifier.config.JWTSecret = "different-secret"
	_, err = verifier.parseToken(token)
	assert.Error(t, err)
}

func TestTokenGarbage(t *testing.T) {
	s := testServer(time.Hour)
	_, err := s.parseToken("not-a-jwt")
	assert.Error(t, err)
}
