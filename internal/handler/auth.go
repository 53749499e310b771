package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/flicky/go-storefront-api/internal/dto"
	"github.com/flicky/go-storefront-api/internal/middleware"
)

type AuthHandler struct {
	auth          AuthService
	log           *zap.Logger
	tokenTTL      time.Duration
	secureCookies bool
}

func NewAuthHandler(auth AuthService, tokenTTL time.Duration, secureCookies bool, log *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, log: log, tokenTTL: tokenTTL, secureCookies: secureCookies}
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Please fill in all required fields")
		return
	}

	resp, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err, "Error creating user")
		return
	}

	h.setSession(c, resp.Token, int(h.tokenTTL.Seconds()))
	resp.Message = "User created successfully"
	c.JSON(http.StatusCreated, resp)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Email and password are required")
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err, "Error logging in")
		return
	}

	h.setSession(c, resp.Token, int(h.tokenTTL.Seconds()))
	resp.Message = "Login successful"
	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	h.setSession(c, "", -1)
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Logged out"})
}

func (h *AuthHandler) setSession(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.TokenCookie, token, maxAge, "/", "", h.secureCookies, true)
}
