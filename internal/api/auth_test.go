package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"marketplace_system/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func authRouter(conn *gorm.DB) *gin.Engine {
	r := gin.New()
	r.POST("/api/auth/register", RegisterHandler(conn))
	r.POST("/api/auth/login", LoginHandler(conn, testSecret))
	r.POST("/api/auth/refresh", RefreshHandler(conn, testSecret))
	return r
}

func TestRegisterAndLogin(t *testing.T) {
	conn := testDB(t)
	r := authRouter(conn)

	w := doJSON(t, r, http.MethodPost, "/api/auth/register", RegisterRequest{
		Email:    "New.Customer@Example.com",
		Password: "password123",
		Name:     "New Customer",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// The email is normalized and the role is fixed by the endpoint
	var user domain.User
	require.NoError(t, conn.Where("email = ?", "new.customer@example.com").First(&user).Error)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.NotEqual(t, "password123", user.Password)

	// Login with either email casing works
	w = doJSON(t, r, http.MethodPost, "/api/auth/login", LoginRequest{
		Email:    "NEW.CUSTOMER@example.com",
		Password: "password123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
		UserInfo     struct {
			ID    uint   `json:"id"`
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"userInfo"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, user.ID, resp.UserInfo.ID)
	assert.Equal(t, domain.RoleUser, resp.UserInfo.Role)

	// The refresh token can be exchanged for a fresh access token
	w = doJSON(t, r, http.MethodPost, "/api/auth/refresh", RefreshRequest{RefreshToken: resp.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "accessToken")
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	conn := testDB(t)
	r := authRouter(conn)

	body := RegisterRequest{Email: "dup@example.com", Password: "password123", Name: "Dup"}
	w := doJSON(t, r, http.MethodPost, "/api/auth/register", body)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/auth/register", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	conn := testDB(t)
	r := authRouter(conn)

	w := doJSON(t, r, http.MethodPost, "/api/auth/register", RegisterRequest{
		Email: "user@example.com", Password: "password123", Name: "User",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/auth/login", LoginRequest{
		Email: "user@example.com", Password: "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshRejectsRevokedToken(t *testing.T) {
	conn := testDB(t)
	r := authRouter(conn)

	w := doJSON(t, r, http.MethodPost, "/api/auth/register", RegisterRequest{
		Email: "gone@example.com", Password: "password123", Name: "Gone",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(t, r, http.MethodPost, "/api/auth/login", LoginRequest{
		Email: "gone@example.com", Password: "password123",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	// Revoke the stored tokens, as logout does
	require.NoError(t, conn.Where("1 = 1").Delete(&domain.Token{}).Error)

	// The token still verifies cryptographically but is no longer on record
	w = doJSON(t, r, http.MethodPost, "/api/auth/refresh", RefreshRequest{RefreshToken: resp.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
