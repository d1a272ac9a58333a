package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lsvinicius/mental-health/domain"
)

// CreateUserRequest is the request to register a user.
type CreateUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// CreateUser registers a new user.
// POST /api/v1/users
func (h *Handler) CreateUser(c echo.Context) error {
	ctx := c.Request().Context()

	var req CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Email == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "email is required"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "name is required"})
	}

	user := &domain.User{
		ID:        uuid.New().String(),
		Email:     req.Email,
		Name:      req.Name,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return domainError(c, err)
		}
		log.Printf("ERROR: failed to create user: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create user"})
	}

	return c.JSON(http.StatusCreated, user)
}

// GetUser gets a user by ID.
// GET /api/v1/users/:user_id
func (h *Handler) GetUser(c echo.Context) error {
	ctx := c.Request().Context()
	userID := c.Param("user_id")

	user, err := h.store.GetUser(ctx, userID)
	if err != nil {
		log.Printf("ERROR: failed to get user: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get user"})
	}
	if user == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "user not found"})
	}

	return c.JSON(http.StatusOK, user)
}
