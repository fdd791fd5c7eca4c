// Package http exposes the party game over a gin REST API.
package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/singleflight"

	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/party_game/domain"
	"github.com/Puzz-patch/party-puzzle-palooza-sub000/pkg/logger"
)

// PlayerResolver returns the authenticated player of a request.
type PlayerResolver func(c *gin.Context) int64

// Handler serves the game and ledger routes.
type Handler struct {
	svc    domain.PartyGameUseCase
	player PlayerResolver
	reads  singleflight.Group
}

func NewHandler(svc domain.PartyGameUseCase, player PlayerResolver) *Handler {
	return &Handler{svc: svc, player: player}
}

// RegisterRoutes mounts /games and /ledger under router. Every route expects
// an authenticated player.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	games := router.Group("/games")
	games.POST("", h.CreateGame)
	games.GET("/:gameId", h.GetGameState)
	games.POST("/:gameId/join", h.JoinGame)
	games.POST("/:gameId/questions", h.SubmitQuestion)
	games.POST("/:gameId/transition", h.TransitionGame)
	games.GET("/:gameId/transitions", h.AvailableTransitions)
	games.POST("/:gameId/draw", h.DrawNextQuestion)
	games.POST("/:gameId/finale", h.FinalizeGame)
	games.POST("/:gameId/reset", h.ResetGame)

	rounds := games.Group("/:gameId/rounds/:roundId")
	rounds.POST("/flag", h.FlagRound)
	rounds.POST("/target", h.SetTarget)
	rounds.POST("/advance", h.AdvanceRoundPhase)
	rounds.POST("/wager", h.TakeWager)
	rounds.POST("/action", h.PerformAction)

	ledger := router.Group("/ledger")
	ledger.GET("/balance", h.GetBalance)
	ledger.GET("/transactions", h.ListTransactions)
	ledger.GET("/audit", h.AuditLedger)
}

type createGameRequest struct {
	RoundsPerGame int  `json:"roundsPerGame"`
	TimePerRound  int  `json:"timePerRound"`
	ChillMode     bool `json:"chillMode"`
}

type joinRequest struct {
	Spectator bool `json:"spectator"`
}

type questionRequest struct {
	Question string `json:"question" binding:"required"`
	Answer   string `json:"answer"`
}

type transitionRequest struct {
	Target  string `json:"targetState" binding:"required"`
	RoundID string `json:"roundId"`
}

type targetRequest struct {
	TargetPlayerID int64 `json:"targetPlayerId" binding:"required"`
}

type wagerRequest struct {
	Answer string `json:"answer"`
	Bet    *int64 `json:"bet"`
}

type actionRequest struct {
	Action         string `json:"action" binding:"required"`
	TargetPlayerID *int64 `json:"targetPlayerId"`
}

func (h *Handler) CreateGame(c *gin.Context) {
	var req createGameRequest
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}
	game, err := h.svc.CreateGame(c.Request.Context(), domain.CreateGameInput{
		HostID:        h.player(c),
		RoundsPerGame: req.RoundsPerGame,
		TimePerRound:  req.TimePerRound,
		ChillMode:     req.ChillMode,
	})
	respond(c, http.StatusCreated, game, err)
}

// GetGameState coalesces concurrent reads of the same game.
func (h *Handler) GetGameState(c *gin.Context) {
	gameID := c.Param("gameId")
	ctx := c.Request.Context()

	if ok, err := h.svc.CanWatch(ctx, gameID, h.player(c)); err != nil || !ok {
		if err == nil {
			err = domain.ErrPlayerNotInGame
		}
		respond(c, http.StatusOK, nil, err)
		return
	}

	v, err, _ := h.reads.Do(gameID, func() (interface{}, error) {
		// shared across waiters
		return h.svc.GetGameState(context.WithoutCancel(ctx), gameID)
	})
	respond(c, http.StatusOK, v, err)
}

func (h *Handler) JoinGame(c *gin.Context) {
	var req joinRequest
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}
	p, err := h.svc.JoinGame(c.Request.Context(), c.Param("gameId"), h.player(c), req.Spectator)
	respond(c, http.StatusOK, p, err)
}

func (h *Handler) SubmitQuestion(c *gin.Context) {
	var req questionRequest
	if !bind(c, &req) {
		return
	}
	round, err := h.svc.SubmitQuestion(c.Request.Context(), c.Param("gameId"), h.player(c), req.Question, req.Answer)
	respond(c, http.StatusCreated, round, err)
}

func (h *Handler) FlagRound(c *gin.Context) {
	err := h.svc.FlagRound(c.Request.Context(), c.Param("gameId"), c.Param("roundId"), h.player(c))
	respond(c, http.StatusOK, gin.H{"roundId": c.Param("roundId"), "flagged": true}, err)
}

func (h *Handler) TransitionGame(c *gin.Context) {
	var req transitionRequest
	if !bind(c, &req) {
		return
	}
	target, err := domain.ParseGameState(req.Target)
	if err != nil {
		respond(c, http.StatusOK, nil, err)
		return
	}
	if !h.requireHost(c) {
		return
	}
	res, err := h.svc.TransitionGame(c.Request.Context(), c.Param("gameId"), target, req.RoundID)
	respond(c, http.StatusOK, res, err)
}

func (h *Handler) AvailableTransitions(c *gin.Context) {
	states, err := h.svc.AvailableTransitions(c.Request.Context(), c.Param("gameId"), c.Query("roundId"))
	respond(c, http.StatusOK, gin.H{"availableTransitions": states}, err)
}

func (h *Handler) DrawNextQuestion(c *gin.Context) {
	if !h.requireHost(c) {
		return
	}
	res, err := h.svc.DrawNextQuestion(c.Request.Context(), c.Param("gameId"))
	respond(c, http.StatusOK, res, err)
}

func (h *Handler) SetTarget(c *gin.Context) {
	var req targetRequest
	if !bind(c, &req) {
		return
	}
	round, err := h.svc.SetTarget(c.Request.Context(), c.Param("gameId"), c.Param("roundId"), h.player(c), req.TargetPlayerID)
	respond(c, http.StatusOK, round, err)
}

func (h *Handler) AdvanceRoundPhase(c *gin.Context) {
	round, err := h.svc.AdvanceRoundPhase(c.Request.Context(), c.Param("gameId"), c.Param("roundId"), h.player(c))
	respond(c, http.StatusOK, round, err)
}

func (h *Handler) TakeWager(c *gin.Context) {
	var req wagerRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.svc.TakeWager(c.Request.Context(), c.Param("gameId"), c.Param("roundId"), h.player(c), req.Answer, req.Bet)
	respond(c, http.StatusOK, res, err)
}

func (h *Handler) PerformAction(c *gin.Context) {
	var req actionRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.svc.PerformAction(c.Request.Context(), c.Param("gameId"), c.Param("roundId"), h.player(c),
		domain.ActionType(req.Action), req.TargetPlayerID)
	respond(c, http.StatusOK, res, err)
}

func (h *Handler) FinalizeGame(c *gin.Context) {
	if !h.requireHost(c) {
		return
	}
	res, err := h.svc.FinalizeGame(c.Request.Context(), c.Param("gameId"))
	respond(c, http.StatusOK, res, err)
}

func (h *Handler) ResetGame(c *gin.Context) {
	game, err := h.svc.ResetGame(c.Request.Context(), c.Param("gameId"), h.player(c))
	respond(c, http.StatusOK, game, err)
}

func (h *Handler) GetBalance(c *gin.Context) {
	bal, err := h.svc.GetBalance(c.Request.Context(), h.player(c))
	respond(c, http.StatusOK, bal, err)
}

func (h *Handler) ListTransactions(c *gin.Context) {
	txs, err := h.svc.ListTransactions(c.Request.Context(), h.player(c))
	respond(c, http.StatusOK, gin.H{"transactions": txs}, err)
}

func (h *Handler) AuditLedger(c *gin.Context) {
	audits, err := h.svc.AuditLedger(c.Request.Context())
	respond(c, http.StatusOK, gin.H{"audits": audits}, err)
}

func (h *Handler) requireHost(c *gin.Context) bool {
	if err := h.svc.AuthorizeHost(c.Request.Context(), c.Param("gameId"), h.player(c)); err != nil {
		respond(c, http.StatusOK, nil, err)
		return false
	}
	return true
}

func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": domain.ErrInvalidArgument.Code})
		return false
	}
	return true
}

func respond(c *gin.Context, status int, body interface{}, err error) {
	if err == nil {
		c.JSON(status, body)
		return
	}

	code := StatusFor(err)
	var de *domain.Error
	if !errors.As(err, &de) {
		logger.Error(c.Request.Context()).Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(code, gin.H{"error": "internal error", "code": "INTERNAL_ERROR"})
		return
	}

	logger.Warn(c.Request.Context()).Err(err).Str("path", c.FullPath()).Msg("request rejected")
	c.JSON(code, gin.H{"error": de.Error(), "code": de.Code, "metadata": de.Metadata})
}

// StatusFor maps a domain error to its HTTP status.
func StatusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindInvalidArgument:
		return http.StatusBadRequest
	case domain.KindFailedPrecondition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
