package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenRoundTrip(t *testing.T) {
	svc, err := NewTokenService(testSecret, "", time.Hour, zaptest.NewLogger(t))
	require.NoError(t, err)

	token, expiresAt, err := svc.Generate("dashboard")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "dashboard", claims.Name)
	assert.Equal(t, "dashboard", claims.Subject)
}

func TestTokenRejectsTamperingAndExpiry(t *testing.T) {
	svc, err := NewTokenService(testSecret, "", time.Hour, nil)
	require.NoError(t, err)
	token, _, err := svc.Generate("dashboard")
	require.NoError(t, err)

	other, err := NewTokenService(strings.Repeat("x", 40), "", time.Hour, nil)
	require.NoError(t, err)
	_, err = other.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Validate("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenServiceRejectsShortSecret(t *testing.T) {
	_, err := NewTokenService("short", "", time.Hour, nil)
	assert.Error(t, err)
}

func TestTokenServicePersistsGeneratedSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret")

	first, err := NewTokenService("", path, time.Hour, zaptest.NewLogger(t))
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	token, _, err := first.Generate("cli")
	require.NoError(t, err)

	second, err := NewTokenService("", path, time.Hour, zaptest.NewLogger(t))
	require.NoError(t, err)
	_, err = second.Validate(token)
	assert.NoError(t, err)
}
