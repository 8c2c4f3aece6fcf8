package admin

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noticeboard/config"
	"noticeboard/models"
)

func TestAPI_NotLoggedIn(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, "GET", "/admin/api/pages", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, decode(t, w, nil).Success)
}

func TestLogin_Success(t *testing.T) {
	env := setupTestEnv(t)
	cookies := env.login(t)

	w := env.request(t, "GET", "/admin/api/me", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)
	var user models.User
	decode(t, w, &user)
	assert.Equal(t, testEmail, user.Email)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestLogin_EmailIsCaseInsensitive(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, "POST", "/admin/login", gin.H{"email": " Admin@Example.com ", "password": testPassword}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name     string
		body     gin.H
		expected int
	}{
		{"wrong password", gin.H{"email": testEmail, "password": "nope"}, http.StatusUnauthorized},
		{"unknown user", gin.H{"email": "ghost@example.com", "password": testPassword}, http.StatusUnauthorized},
		{"missing password", gin.H{"email": testEmail}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.request(t, "POST", "/admin/login", tt.body, nil)
			assert.Equal(t, tt.expected, w.Code)
			assert.Empty(t, w.Result().Cookies())
		})
	}
}

func TestLogin_NotOnAdminList(t *testing.T) {
	env := setupTestEnv(t)
	createTestUser(t, env.db, "editor@example.com")

	w := env.request(t, "POST", "/admin/login", gin.H{"email": "editor@example.com", "password": testPassword}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLogin_OpenAdminList(t *testing.T) {
	env := setupTestEnv(t, func(o *Options) { o.Admin = config.AdminConfig{} })
	createTestUser(t, env.db, "editor@example.com")

	w := env.request(t, "POST", "/admin/login", gin.H{"email": "editor@example.com", "password": testPassword}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogout(t *testing.T) {
	env := setupTestEnv(t)
	cookies := env.login(t)

	w := env.request(t, "POST", "/admin/logout", nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, "GET", "/admin/api/me", nil, w.Result().Cookies())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSeedAdmin(t *testing.T) {
	db := setupTestDB(t)

	hash, err := hashPassword("first-password")
	require.NoError(t, err)
	require.NoError(t, SeedAdmin(db, "Owner@Example.com", hash))

	var user models.User
	require.NoError(t, db.Where("email = ?", "owner@example.com").First(&user).Error)
	assert.True(t, checkPasswordHash("first-password", user.PasswordHash))

	newHash, err := hashPassword("second-password")
	require.NoError(t, err)
	require.NoError(t, SeedAdmin(db, "owner@example.com", newHash))

	var count int64
	db.Model(&models.User{}).Count(&count)
	assert.Equal(t, int64(1), count)
	require.NoError(t, db.First(&user, user.ID).Error)
	assert.True(t, checkPasswordHash("second-password", user.PasswordHash))
}

func TestSeedAdmin_Skips(t *testing.T) {
	db := setupTestDB(t)

	assert.NoError(t, SeedAdmin(db, "", "hash"))
	assert.NoError(t, SeedAdmin(db, "owner@example.com", ""))
	assert.Error(t, SeedAdmin(db, "owner@example.com", "plain-text"))

	var count int64
	db.Model(&models.User{}).Count(&count)
	assert.Zero(t, count)
}

func TestPasswordHash(t *testing.T) {
	hash, err := hashPassword("secret")
	require.NoError(t, err)
	assert.NotEqual(t, "secret", hash)
	assert.True(t, checkPasswordHash("secret", hash))
	assert.False(t, checkPasswordHash("other", hash))
}
