package api

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
)

// StartConversationRequest is the request to start a conversation.
type StartConversationRequest struct {
	UserID string `json:"user_id"`
}

// SendMessageRequest is the request to append a message.
type SendMessageRequest struct {
	Text   string `json:"text"`
	Sender string `json:"sender"`
}

// DeleteConversationRequest is the request to delete a conversation.
type DeleteConversationRequest struct {
	UserID string `json:"user_id"`
}

// StartConversation starts a new conversation.
// POST /api/v1/conversations
func (h *Handler) StartConversation(c echo.Context) error {
	ctx := c.Request().Context()

	var req StartConversationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.UserID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id is required"})
	}

	user, err := h.store.GetUser(ctx, req.UserID)
	if err != nil {
		log.Printf("ERROR: failed to get user: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get user"})
	}
	if user == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "user not found"})
	}

	conversationID, err := h.commands.StartConversation(ctx, req.UserID)
	if err != nil {
		log.Printf("ERROR: failed to start conversation: %v", err)
		return domainError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]string{
		"conversation_id": conversationID,
	})
}

// SendMessage appends a message to a conversation.
// POST /api/v1/conversations/:conversation_id/messages
func (h *Handler) SendMessage(c echo.Context) error {
	ctx := c.Request().Context()
	conversationID := c.Param("conversation_id")

	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Text == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "text is required"})
	}
	if req.Sender == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "sender is required"})
	}

	messageID, err := h.commands.SendMessage(ctx, conversationID, req.Text, req.Sender)
	if err != nil {
		log.Printf("WARN: failed to send message to conversation %s: %v", conversationID, err)
		return domainError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]string{
		"message_id": messageID,
	})
}

// DeleteConversation marks a conversation as deleted.
// DELETE /api/v1/conversations/:conversation_id
func (h *Handler) DeleteConversation(c echo.Context) error {
	ctx := c.Request().Context()
	conversationID := c.Param("conversation_id")

	var req DeleteConversationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.UserID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id is required"})
	}

	if err := h.commands.DeleteConversation(ctx, req.UserID, conversationID); err != nil {
		log.Printf("WARN: failed to delete conversation %s: %v", conversationID, err)
		return domainError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"conversation_id": conversationID,
	})
}

// GetConversation gets a conversation with its messages.
// GET /api/v1/conversations/:conversation_id
func (h *Handler) GetConversation(c echo.Context) error {
	ctx := c.Request().Context()
	conversationID := c.Param("conversation_id")

	view, err := h.queries.GetConversation(ctx, conversationID)
	if err != nil {
		return domainError(c, err)
	}

	return c.JSON(http.StatusOK, view)
}

// ListRiskAnalyses lists the risk analyses of a conversation.
// GET /api/v1/conversations/:conversation_id/risk-analyses?risky_only=true
func (h *Handler) ListRiskAnalyses(c echo.Context) error {
	ctx := c.Request().Context()
	conversationID := c.Param("conversation_id")
	riskyOnly := c.QueryParam("risky_only") == "true"

	analyses, err := h.queries.ListRiskAnalyses(ctx, conversationID, riskyOnly)
	if err != nil {
		log.Printf("ERROR: failed to list risk analyses: %v", err)
		return domainError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"risk_analyses": analyses,
	})
}
