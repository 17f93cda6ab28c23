package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civiclens/models"
)

func TestGenerateAndValidateToken(t *testing.T) {
	manager := NewJWTManager("test-secret-key", time.Hour, 24*time.Hour)
	user := &models.User{UserID: "user-1", Username: "asha", Role: models.RoleUser}

	token, err := manager.GenerateToken(user)
	require.NoError(t, err)

	claims, err := manager.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "asha", claims.Username)
	assert.Equal(t, models.RoleUser, claims.Role)
	assert.Equal(t, "civiclens-api", claims.Issuer)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	manager := NewJWTManager("test-secret-key", time.Hour, 24*time.Hour)
	other := NewJWTManager("another-secret", time.Hour, 24*time.Hour)
	user := &models.User{UserID: "user-1", Username: "asha", Role: models.RoleUser}

	token, err := manager.GenerateToken(user)
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateExpiredToken(t *testing.T) {
	manager := NewJWTManager("test-secret-key", -time.Minute, 24*time.Hour)
	user := &models.User{UserID: "user-1", Username: "asha", Role: models.RoleUser}

	token, err := manager.GenerateToken(user)
	require.NoError(t, err)

	_, err = manager.ValidateToken(token)
	assert.Error(t, err)
}

func TestExtractToken(t *testing.T) {
	token, err := ExtractToken("Bearer abc.def.ghi")
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	_, err = ExtractToken("")
	assert.Error(t, err)

	_, err = ExtractToken("Basic abc")
	assert.Error(t, err)
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("citizen12345")
	require.NoError(t, err)
	assert.NotEqual(t, "citizen12345", hash)

	require.NoError(t, CheckPassword("citizen12345", hash))
	assert.Error(t, CheckPassword("wrong-password", hash))
}

func TestHashPasswordTooShort(t *testing.T) {
	_, err := HashPassword("short")
	assert.Error(t, err)
}

func TestValidatePasswordStrength(t *testing.T) {
	assert.NoError(t, ValidatePasswordStrength("citizen12345"))
	assert.Error(t, ValidatePasswordStrength("short1"))
	assert.Error(t, ValidatePasswordStrength("onlyletters"))
	assert.Error(t, ValidatePasswordStrength("1234567890"))
}
