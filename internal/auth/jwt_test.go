package auth

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lokanta-backend/internal/models"
)

const testSecret = "test-secret-test-secret-test-secret!"

func TestGenerateTokenRoundTrip(t *testing.T) {
	branchID := uuid.New()
	user := &models.User{
		ID:       uuid.New(),
		BranchID: &branchID,
		Email:    "sube@lokanta.local",
		Role:     models.RoleBranchAdmin,
	}

	tokenStr, err := GenerateToken(testSecret, user)
	require.NoError(t, err)

	token, err := jwt.ParseWithClaims(tokenStr, &JWTCustomClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims, ok := token.Claims.(*JWTCustomClaims)
	require.True(t, ok)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, models.RoleBranchAdmin, claims.Role)
	require.NotNil(t, claims.BranchID)
	assert.Equal(t, branchID, *claims.BranchID)
}

func TestTokenRejectsWrongSecret(t *testing.T) {
	user := &models.User{ID: uuid.New(), Email: "a@b.c", Role: models.RoleSuperAdmin}

	tokenStr, err := GenerateToken(testSecret, user)
	require.NoError(t, err)

	_, err = jwt.ParseWithClaims(tokenStr, &JWTCustomClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte("başka bir secret, aynı uzunlukta olsun!"), nil
	})
	assert.Error(t, err)
}

func TestResolveScope(t *testing.T) {
	branchID := uuid.New()

	s := ResolveScope(models.RoleSuperAdmin, nil)
	assert.True(t, s.All)
	assert.True(t, s.CanAccessBranch(branchID))

	s = ResolveScope(models.RoleBranchAdmin, &branchID)
	assert.False(t, s.All)
	assert.True(t, s.CanAccessBranch(branchID))
	assert.False(t, s.CanAccessBranch(uuid.New()))

	// Şubesiz branch_admin hiçbir şubeye erişemez
	s = ResolveScope(models.RoleBranchAdmin, nil)
	assert.False(t, s.CanAccessBranch(branchID))

	s = ResolveScope("garson", &branchID)
	assert.False(t, s.CanAccessBranch(branchID))
}
