package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/user/domain"
	"github.com/Puzz-patch/party-puzzle-palooza-sub000/pkg/logger"
	"github.com/gin-gonic/gin"
)

// Handler serves account routes.
type Handler struct {
	svc domain.UserUseCase
}

func NewHandler(svc domain.UserUseCase) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the account routes on router.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/register", h.Register)
	router.POST("/login", h.Login)
	router.POST("/refresh", h.Refresh)
	router.POST("/logout", h.Logout)
}

type registerRequest struct {
	Username    string `json:"username" binding:"required"`
	Password    string `json:"password" binding:"required,min=6"`
	DisplayName string `json:"display_name"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type tokenResponse struct {
	UserID       int64  `json:"user_id"`
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at"`
}

func toTokenResponse(p *domain.TokenPair) tokenResponse {
	return tokenResponse{
		UserID:       p.UserID,
		Token:        p.Token,
		RefreshToken: p.RefreshToken,
		ExpiresAt:    p.ExpiresAt.Format(time.RFC3339),
	}
}

func (h *Handler) Register(c *gin.Context) {
	ctx := c.Request.Context()

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn(ctx).Err(err).Msg("Register: invalid request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := h.svc.Register(ctx, req.Username, req.Password, req.DisplayName)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, domain.ErrUsernameTaken) {
			status = http.StatusConflict
		}
		logger.Warn(ctx).Err(err).Str("username", req.Username).Msg("Register: failed")
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_id": userID, "success": true})
}

func (h *Handler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pair, err := h.svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, domain.ErrAccountInactive) {
			status = http.StatusForbidden
		} else if !errors.Is(err, domain.ErrInvalidCredentials) {
			status = http.StatusInternalServerError
		}
		logger.Warn(ctx).Err(err).Str("username", req.Username).Msg("Login: failed")
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, toTokenResponse(pair))
}

func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pair, err := h.svc.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		logger.Warn(c.Request.Context()).Err(err).Msg("Refresh: failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, toTokenResponse(pair))
}

func (h *Handler) Logout(c *gin.Context) {
	token := BearerToken(c.Request)
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing token"})
		return
	}

	if err := h.svc.Logout(c.Request.Context(), token); err != nil {
		logger.Error(c.Request.Context()).Err(err).Msg("Logout: failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// BearerToken reads the token from the Authorization header, falling back to
// the token query parameter used by websocket clients.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return strings.TrimSpace(h)
	}
	return r.URL.Query().Get("token")
}
