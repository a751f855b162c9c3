package service_test

import (
	"errors"
	"testing"
	"time"

	"github.com/sophia-ai/capability-router/internal/domain"
	"github.com/sophia-ai/capability-router/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenAuthority_IssueAndValidate(t *testing.T) {
	auth := service.NewTokenAuthority("s3cret", time.Minute)

	token, err := auth.Issue("ops")
	require.NoError(t, err)

	claims, err := auth.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Sub)
	assert.Equal(t, "admin", claims.Type)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenAuthority_WrongSecret(t *testing.T) {
	token, err := service.NewTokenAuthority("one", time.Minute).Issue("ops")
	require.NoError(t, err)

	_, err = service.NewTokenAuthority("two", time.Minute).Validate(token)

	var unauthorized *domain.ErrUnauthorized
	assert.True(t, errors.As(err, &unauthorized))
}

func TestTokenAuthority_Expired(t *testing.T) {
	auth := service.NewTokenAuthority("s3cret", time.Millisecond)
	token, err := auth.Issue("ops")
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond)

	_, err = auth.Validate(token)
	assert.Error(t, err)
}

func TestTokenAuthority_RejectsOtherTokenTypes(t *testing.T) {
	claims := service.AdminClaims{
		Sub:  "ops",
		Type: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "capability-router",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	_, err = service.NewTokenAuthority("s3cret", time.Minute).Validate(token)
	assert.Error(t, err)
}

func TestTokenAuthority_Disabled(t *testing.T) {
	auth := service.NewTokenAuthority("", time.Minute)
	assert.False(t, auth.Enabled())

	_, err := auth.Issue("ops")
	var validation *domain.ErrValidation
	assert.True(t, errors.As(err, &validation))
}

func TestTokenAuthority_RequiresSubject(t *testing.T) {
	_, err := service.NewTokenAuthority("s3cret", time.Minute).Issue("")
	assert.Error(t, err)
}
