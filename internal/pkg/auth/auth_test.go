package auth

import (
	"testing"
	"time"

	"github.com/ruralcare/medreserve/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Name = "MedReserve"
	cfg.JWT.Secret = "test-secret-that-is-long-enough-0123456789"
	cfg.JWT.AccessTokenExpiry = time.Hour
	cfg.Security.BcryptCost = 4
	return cfg
}

func TestAccessTokenRoundTrip(t *testing.T) {
	jwtManager := NewJWTManager(testConfig())

	token, err := jwtManager.GenerateAccessToken(42, "asha@example.com", "patient")
	require.NoError(t, err)

	claims, err := jwtManager.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "patient", claims.Role)
	assert.Equal(t, "user:42", claims.Subject)
}

func TestValidateTokenRejectsOtherSecret(t *testing.T) {
	token, err := NewJWTManager(testConfig()).GenerateAccessToken(1, "a@example.com", "admin")
	require.NoError(t, err)

	other := testConfig()
	other.JWT.Secret = "a-completely-different-secret-0123456789"
	_, err = NewJWTManager(other).ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	cfg := testConfig()
	cfg.JWT.AccessTokenExpiry = -time.Minute
	jwtManager := NewJWTManager(cfg)

	token, err := jwtManager.GenerateAccessToken(1, "a@example.com", "pharmacy")
	require.NoError(t, err)

	_, err = jwtManager.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc.def", ExtractTokenFromHeader("Bearer abc.def"))
	assert.Equal(t, "", ExtractTokenFromHeader("Basic abc"))
	assert.Equal(t, "", ExtractTokenFromHeader(""))
}

func TestHashAndVerifyPassword(t *testing.T) {
	pm := NewPasswordManager(testConfig())

	hash, err := pm.HashPassword("Rural#Care42")
	require.NoError(t, err)
	assert.NoError(t, pm.VerifyPassword("Rural#Care42", hash))
	assert.Error(t, pm.VerifyPassword("Rural#Care43", hash))
}

func TestValidatePassword(t *testing.T) {
	pm := NewPasswordManager(testConfig())

	tests := []struct {
		password string
		wantErr  string
	}{
		{"Sh0rt!", "at least 8"},
		{"nouppercase#42", "uppercase"},
		{"NOLOWERCASE#42", "lowercase"},
		{"NoNumbers#here", "number"},
		{"NoSpecial42here", "special"},
		{"Xabcq#4271", "sequential letters"},
		{"Qx#a9123zz", "sequential numbers"},
		{"Qx#a9aaa1z", "repeating"},
		{"MyPassword#9", "too common"},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			err := pm.ValidatePassword(tt.password)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	assert.NoError(t, pm.ValidatePassword("Rural#Care42"))
}
