package integration

import (
	"net/http"
	"testing"

	"cvanalyzer_backend/internal/models"
	"cvanalyzer_backend/internal/services/dto"
	"cvanalyzer_backend/test/helpers"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthFlow_RegisterLoginMe(t *testing.T) {
	s := helpers.NewTestServer(t)

	registered := s.RegisterUser(t, "flow@test.com", "Sup3rSecret!")
	assert.NotEmpty(t, registered.AccessToken)

	w := s.SendRequest(t, http.MethodGet, "/api/v1/users/me", nil, registered.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)

	var me dto.UserResponse
	helpers.DecodeJSON(t, w, &me)
	assert.Equal(t, "flow@test.com", me.Email)
	require.NotNil(t, me.Profile)
	assert.Equal(t, int64(3), me.Profile.Credits) // signup bonus

	// A second login issues a separate session.
	w = s.SendRequest(t, http.MethodPost, "/api/v1/auth/login", gin.H{
		"email":    "flow@test.com",
		"password": "Sup3rSecret!",
	}, "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAuthFlow_MeRequiresToken(t *testing.T) {
	s := helpers.NewTestServer(t)

	w := s.SendRequest(t, http.MethodGet, "/api/v1/users/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.SendRequest(t, http.MethodGet, "/api/v1/users/me", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthFlow_RefreshRotation(t *testing.T) {
	s := helpers.NewTestServer(t)

	registered := s.RegisterUser(t, "rotate@test.com", "Sup3rSecret!")

	w := s.SendRequest(t, http.MethodPost, "/api/v1/auth/refresh", gin.H{
		"refresh_token": registered.RefreshToken,
	}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var refreshed dto.AuthResponse
	helpers.DecodeJSON(t, w, &refreshed)
	assert.NotEqual(t, registered.RefreshToken, refreshed.RefreshToken)

	// The old token was consumed by the rotation.
	w = s.SendRequest(t, http.MethodPost, "/api/v1/auth/refresh", gin.H{
		"refresh_token": registered.RefreshToken,
	}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthFlow_BlockedUserLockedOut(t *testing.T) {
	s := helpers.NewTestServer(t)

	registered := s.RegisterUser(t, "locked@test.com", "Sup3rSecret!")

	require.NoError(t, s.DB.Model(&models.User{}).
		Where("id = ?", registered.User.ID).
		Update("status", models.UserStatusBlocked).Error)

	// Existing access tokens stop working immediately.
	w := s.SendRequest(t, http.MethodGet, "/api/v1/users/me", nil, registered.AccessToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.SendRequest(t, http.MethodPost, "/api/v1/auth/login", gin.H{
		"email":    "locked@test.com",
		"password": "Sup3rSecret!",
	}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthFlow_ChangePassword(t *testing.T) {
	s := helpers.NewTestServer(t)

	registered := s.RegisterUser(t, "newpass@test.com", "Sup3rSecret!")

	w := s.SendRequest(t, http.MethodPost, "/api/v1/users/me/change-password", gin.H{
		"current_password": "Sup3rSecret!",
		"new_password":     "Ev3nBetter!!",
	}, registered.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.SendRequest(t, http.MethodPost, "/api/v1/auth/login", gin.H{
		"email":    "newpass@test.com",
		"password": "Ev3nBetter!!",
	}, "")
	assert.Equal(t, http.StatusOK, w.Code)
}
