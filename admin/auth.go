package admin

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"noticeboard/common"
	"noticeboard/models"
)

const sessionUserKey = "user_id"

type loginRequest struct {
	Email    string `json:"email" form:"email" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

func (a *AdminModule) requireAuth(c *gin.Context) {
	session := sessions.Default(c)
	userID := session.Get(sessionUserKey)
	if userID == nil {
		common.Fail(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	c.Set(sessionUserKey, userID)
	c.Next()
}

func (a *AdminModule) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBind(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, "Email and password are required")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	if err := a.db.Where("email = ?", email).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error().Err(err).Msg("failed to load user")
		}
		common.Fail(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if !checkPasswordHash(req.Password, user.PasswordHash) {
		common.Fail(c, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if !a.access.IsAdminEmail(user.Email) {
		log.Warn().Str("email", user.Email).Msg("login refused: not on the admin list")
		common.Fail(c, http.StatusForbidden, "Access denied")
		return
	}

	session := sessions.Default(c)
	session.Set(sessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		log.Error().Err(err).Msg("failed to save session")
		common.Fail(c, http.StatusInternalServerError, "Could not start session")
		return
	}

	log.Info().Str("email", user.Email).Msg("admin logged in")
	common.OK(c, http.StatusOK, "Logged in", user)
}

func (a *AdminModule) logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	common.OK(c, http.StatusOK, "Logged out", nil)
}

func (a *AdminModule) me(c *gin.Context) {
	var user models.User
	if err := a.db.First(&user, c.MustGet(sessionUserKey)).Error; err != nil {
		common.Fail(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	common.OK(c, http.StatusOK, "Current user", user)
}

// SeedAdmin makes sure a user with email exists and carries passwordHash.
// It is a no-op when either value is empty.
func SeedAdmin(db *gorm.DB, email, passwordHash string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || passwordHash == "" {
		return nil
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return errors.New("admin password hash is not a bcrypt hash")
	}

	var user models.User
	err := db.Where("email = ?", email).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		log.Info().Str("email", email).Msg("seeding admin user")
		return db.Create(&models.User{Email: email, PasswordHash: passwordHash}).Error
	case err != nil:
		return err
	case user.PasswordHash != passwordHash:
		return db.Model(&user).Update("password_hash", passwordHash).Error
	}
	return nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(bytes), err
}

func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
