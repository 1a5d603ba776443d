package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestKeys(t *testing.T) (string, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	privPem := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	require.NoError(t, os.WriteFile(privPath, privPem, 0o600))

	pubDer, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPem := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDer})
	require.NoError(t, os.WriteFile(pubPath, pubPem, 0o600))

	return privPath, pubPath
}

func TestGenerateAndVerifyTokenPair(t *testing.T) {
	privPath, pubPath := writeTestKeys(t)
	mgr, err := NewJWTManager(privPath, pubPath, "areas-bknd-test")
	require.NoError(t, err)

	sub := Subject{
		UserID:    "a9f6e3f0-0000-0000-0000-000000000001",
		Email:     "owner@example.com",
		CompanyID: "a9f6e3f0-0000-0000-0000-000000000002",
	}
	pair, err := mgr.GenerateTokenPair(sub, 15*time.Minute, 24*time.Hour, 3, "local", []string{"user"})
	require.NoError(t, err)

	claims, err := mgr.VerifyToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, sub.UserID, claims["sub"])
	assert.Equal(t, sub.Email, claims["email"])
	assert.Equal(t, sub.CompanyID, claims["company_id"])
	assert.Equal(t, "access", claims["typ"])
	assert.Equal(t, float64(3), claims["ver"])
	assert.Equal(t, "local", claims["auth_method"])

	refreshClaims, err := mgr.VerifyToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "refresh", refreshClaims["typ"])
	assert.NotEqual(t, claims["jti"], refreshClaims["jti"])
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	privPath, pubPath := writeTestKeys(t)
	mgr, err := NewJWTManager(privPath, pubPath, "areas-bknd-test")
	require.NoError(t, err)

	_, err = mgr.VerifyToken("not.a.token")
	assert.Error(t, err)
}

func TestHashTokenStable(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken("abc"), 64)
}
