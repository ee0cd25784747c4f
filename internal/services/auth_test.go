package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupLoginAuthenticate(t *testing.T) {
	h := newHarness(t)

	signed, err := h.svc.Auth.Signup(h.ctx, SignupInput{Email: " Sam@Example.com ", Name: "Sam", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, "sam@example.com", signed.User.Email)

	_, err = h.svc.Auth.Signup(h.ctx, SignupInput{Email: "sam@example.com", Name: "Other", Password: "correct horse"})
	assert.Equal(t, KindConflict, KindOf(err))

	_, err = h.svc.Auth.Login(h.ctx, LoginInput{Email: "sam@example.com", Password: "wrong password"})
	assert.Equal(t, KindUnauthorized, KindOf(err))

	logged, err := h.svc.Auth.Login(h.ctx, LoginInput{Email: "SAM@example.com", Password: "correct horse"})
	require.NoError(t, err)

	id, err := h.svc.Auth.Authenticate(logged.Token)
	require.NoError(t, err)
	assert.Equal(t, signed.User.ID, id)

	me, err := h.svc.Auth.Me(h.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Sam", me.Name)
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Auth.Authenticate("not-a-token")
	assert.Equal(t, KindUnauthorized, KindOf(err))

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID:           "00000000-0000-0000-0000-000000000001",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	})
	token, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = h.svc.Auth.Authenticate(token)
	assert.Equal(t, KindUnauthorized, KindOf(err))

	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID:           "00000000-0000-0000-0000-000000000001",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	token, err = forged.SignedString([]byte("another-secret"))
	require.NoError(t, err)
	_, err = h.svc.Auth.Authenticate(token)
	assert.Equal(t, KindUnauthorized, KindOf(err))
}

func TestSignupValidation(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Auth.Signup(h.ctx, SignupInput{Email: "nope", Name: "Sam", Password: "correct horse"})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = h.svc.Auth.Signup(h.ctx, SignupInput{Email: "a@b.co", Name: "Sam", Password: "short"})
	assert.Equal(t, KindValidation, KindOf(err))
}
