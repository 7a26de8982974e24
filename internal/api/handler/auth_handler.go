package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sentrydesk/access-system/internal/api/metrics"
	"github.com/sentrydesk/access-system/internal/core/domain"
	"github.com/sentrydesk/access-system/internal/core/ports"
)

type AuthHandler struct {
	sessions ports.SessionManager
}

// NewAuthHandler wires the handler. A nil manager is a programming error and
// panics rather than failing per-request.
func NewAuthHandler(sessions ports.SessionManager) *AuthHandler {
	if sessions == nil {
		panic("handler: NewAuthHandler called with nil session manager")
	}
	return &AuthHandler{sessions: sessions}
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"     validate:"required,oneof=admin employee guard"`
}

type signupRequest struct {
	Email      string `json:"email"      validate:"required,email"`
	Password   string `json:"password"   validate:"required,min=8"`
	Name       string `json:"name"       validate:"required"`
	Role       string `json:"role"       validate:"required,oneof=admin employee guard"`
	Department string `json:"department"`
}

type sessionResponse struct {
	User            *domain.SessionUser `json:"user"`
	IsAuthenticated bool                `json:"is_authenticated"`
	IsLoading       bool                `json:"is_loading"`
}

func (h *AuthHandler) snapshot() sessionResponse {
	state := h.sessions.Snapshot()
	metrics.SessionActive.Set(boolToGauge(state.IsAuthenticated))
	return sessionResponse{
		User:            state.CurrentUser,
		IsAuthenticated: state.IsAuthenticated,
		IsLoading:       state.IsLoading,
	}
}

// Login authenticates for the requested role.
//
// @Summary      Login with email, password, and role
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  sessionResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	role := domain.Role(req.Role)
	if err := h.sessions.Login(c.Request().Context(), req.Email, req.Password, role); err != nil {
		status, result := loginFailure(err)
		metrics.LoginsTotal.WithLabelValues(req.Role, result).Inc()
		return c.JSON(status, map[string]string{"error": err.Error()})
	}

	metrics.LoginsTotal.WithLabelValues(req.Role, "success").Inc()
	return c.JSON(http.StatusOK, h.snapshot())
}

// Signup registers a new user with a linked profile.
//
// @Summary      Sign up a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "Signup details"
// @Success      201   {object}  sessionResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	in := ports.SignupInput{
		Email:      req.Email,
		Password:   req.Password,
		Name:       req.Name,
		Role:       domain.Role(req.Role),
		Department: req.Department,
	}
	if err := h.sessions.Signup(c.Request().Context(), in); err != nil {
		status := http.StatusInternalServerError
		result := "error"
		switch {
		case errors.Is(err, domain.ErrEmailTaken):
			status, result = http.StatusConflict, "conflict"
		case errors.Is(err, domain.ErrInvalidCredentials):
			status = http.StatusBadRequest
		}
		metrics.SignupsTotal.WithLabelValues(result).Inc()
		return c.JSON(status, map[string]string{"error": err.Error()})
	}

	metrics.SignupsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusCreated, h.snapshot())
}

// Logout ends the current session. Always succeeds.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      204
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	h.sessions.Logout(c.Request().Context())
	metrics.SessionActive.Set(0)
	return c.NoContent(http.StatusNoContent)
}

// Session returns the derived session state.
//
// @Summary      Current session state
// @Tags         auth
// @Produce      json
// @Success      200  {object}  sessionResponse
// @Router       /auth/session [get]
func (h *AuthHandler) Session(c echo.Context) error {
	return c.JSON(http.StatusOK, h.snapshot())
}

// Account reflects the validated provider-token claims back to the caller.
//
// @Summary      Introspect the provider access token
// @Tags         auth
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /auth/account [get]
func (h *AuthHandler) Account(c echo.Context) error {
	accountID, email, err := ctxAccount(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{
		"account_id": accountID,
		"email":      email,
	})
}

func loginFailure(err error) (status int, result string) {
	switch {
	case errors.Is(err, domain.ErrRoleMismatch):
		return http.StatusForbidden, "role_mismatch"
	case errors.Is(err, domain.ErrLockedOut):
		return http.StatusTooManyRequests, "locked_out"
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrProfileNotFound):
		return http.StatusUnauthorized, "rejected"
	default:
		return http.StatusInternalServerError, "error"
	}
}

func boolToGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
