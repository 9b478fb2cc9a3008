package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/timetable-server/internal/auth"
	"github.com/vovakirdan/timetable-server/internal/auth/provider"
)

// AuthHandlers provides HTTP handlers for signup and login.
type AuthHandlers struct {
	authService *auth.Service
	log         *zerolog.Logger
}

// NewAuthHandlers creates a new auth handlers instance.
func NewAuthHandlers(authService *auth.Service, logger *zerolog.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		log:         logger,
	}
}

// SignupRequest represents the signup request body.
type SignupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// PasswordLoginRequest represents the password login request body.
type PasswordLoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ProviderLoginRequest carries the external authorization code.
type ProviderLoginRequest struct {
	Code        string `json:"code" binding:"required,notblank"`
	RedirectURI string `json:"redirect_uri" binding:"required"`
}

// TokenResponse represents the authentication response body.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func bearer(token string) TokenResponse {
	return TokenResponse{AccessToken: token, TokenType: "bearer"}
}

// Signup handles password account creation.
// POST /api/v1/users/signup
func (h *AuthHandlers) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid signup request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: bindingMessage(err)})
		return
	}

	token, err := h.authService.Signup(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			c.JSON(http.StatusConflict, ErrorResponse{Error: "user already exists"})
		case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrInvalidPassword):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		default:
			h.log.Error().Err(err).Msg("failed to sign up user")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	h.log.Info().Msg("user signed up")
	c.JSON(http.StatusCreated, bearer(token))
}

// LoginPassword handles email/password login.
// POST /api/v1/users/login/password
func (h *AuthHandlers) LoginPassword(c *gin.Context) {
	var req PasswordLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid login request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: bindingMessage(err)})
		return
	}

	token, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "incorrect email or password"})
			return
		}
		h.log.Error().Err(err).Msg("failed to login user")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, bearer(token))
}

// LoginProvider exchanges an external authorization code for a local token,
// creating the account on first login.
// POST /api/v1/users/login
func (h *AuthHandlers) LoginProvider(c *gin.Context) {
	var req ProviderLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid provider login request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: bindingMessage(err)})
		return
	}

	token, err := h.authService.LoginWithProvider(c.Request.Context(), req.Code, req.RedirectURI)
	if err != nil {
		switch {
		case errors.Is(err, provider.ErrInvalidCode):
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
		case errors.Is(err, provider.ErrProfile):
			h.log.Error().Err(err).Msg("provider profile lookup failed")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "could not read login provider profile"})
		default:
			h.log.Error().Err(err).Msg("provider login failed")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "could not reach login provider"})
		}
		return
	}

	c.JSON(http.StatusOK, bearer(token))
}
