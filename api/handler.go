// Package api provides the HTTP handlers for the conversation service.
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lsvinicius/mental-health/command"
	"github.com/lsvinicius/mental-health/domain"
	"github.com/lsvinicius/mental-health/query"
	"github.com/lsvinicius/mental-health/store"
)

// Handler handles HTTP requests.
type Handler struct {
	store    store.Store
	commands *command.ConversationCommandHandler
	queries  *query.ConversationQueryHandler
}

// NewHandler creates a new handler.
func NewHandler(s store.Store, commands *command.ConversationCommandHandler, queries *query.ConversationQueryHandler) *Handler {
	return &Handler{
		store:    s,
		commands: commands,
		queries:  queries,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	v1 := e.Group("/api/v1")

	v1.POST("/users", h.CreateUser)
	v1.GET("/users/:user_id", h.GetUser)

	v1.POST("/conversations", h.StartConversation)
	v1.POST("/conversations/:conversation_id/messages", h.SendMessage)
	v1.DELETE("/conversations/:conversation_id", h.DeleteConversation)
	v1.GET("/conversations/:conversation_id", h.GetConversation)
	v1.GET("/conversations/:conversation_id/risk-analyses", h.ListRiskAnalyses)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// domainError maps a domain sentinel to its HTTP response.
func domainError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrOwnershipViolation):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidTransition):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrConcurrencyConflict), errors.Is(err, domain.ErrAlreadyExists):
		status = http.StatusConflict
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}
