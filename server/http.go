package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	contractx "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/contract"
	"github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/orchestrator"
	statex "github.com/tanpawarit/Vittam-Loan-Sales-Agent/agent/state"
)

// Conversations is the slice of the orchestrator the HTTP layer depends on.
type Conversations interface {
	HandleMessage(ctx context.Context, sessionID, text string) (contractx.TurnResult, error)
	StartSession(ctx context.Context) (contractx.TurnResult, error)
	History(ctx context.Context, sessionID string) ([]statex.StoredMessage, error)
	EndSession(ctx context.Context, sessionID string) error
}

type Handler struct {
	conversations Conversations
}

func NewHandler(conversations Conversations) *Handler {
	return &Handler{conversations: conversations}
}

// New builds the echo server with all routes registered.
func New(conversations Conversations) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	h := NewHandler(conversations)
	h.Register(e)
	return e
}

func (h *Handler) Register(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.POST("/session", h.StartSession)
	e.POST("/chat", h.Chat)
	e.GET("/session/:id/history", h.History)
	e.DELETE("/session/:id", h.EndSession)
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type chatResponse struct {
	SessionID string                          `json:"session_id"`
	Message   string                          `json:"message"`
	Inputs    []contractx.DocumentRequirement `json:"inputs,omitempty"`
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
	Greeting  string `json:"greeting"`
}

type historyResponse struct {
	SessionID string                 `json:"session_id"`
	Messages  []statex.StoredMessage `json:"messages"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) StartSession(c echo.Context) error {
	res, err := h.conversations.StartSession(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, sessionResponse{
		SessionID: res.SessionID,
		Greeting:  res.Message,
	})
}

func (h *Handler) Chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request body"})
	}

	res, err := h.conversations.HandleMessage(c.Request().Context(), req.SessionID, req.Message)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, chatResponse{
		SessionID: res.SessionID,
		Message:   res.Message,
		Inputs:    res.Inputs,
	})
}

func (h *Handler) History(c echo.Context) error {
	sessionID := c.Param("id")
	messages, err := h.conversations.History(c.Request().Context(), sessionID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, historyResponse{
		SessionID: sessionID,
		Messages:  messages,
	})
}

func (h *Handler) EndSession(c echo.Context) error {
	if err := h.conversations.EndSession(c.Request().Context(), c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ended"})
}

func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, orchestrator.ErrInvalidMessage):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "message must not be empty"})
	case errors.Is(err, orchestrator.ErrSessionNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: "session not found"})
	case errors.Is(err, orchestrator.ErrInactiveSession):
		return c.JSON(http.StatusGone, errorResponse{Error: "session has ended"})
	default:
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
