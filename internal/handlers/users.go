package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ChangeEmail switches the acting user onto a new, unverified email and
// ends their session: the new address must be confirmed before any
// further authenticated action.
func (h *AuthHandler) ChangeEmail(c echo.Context) error {
	actorID, _, err := actor(c)
	if err != nil {
		return err
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}
	if !validEmail(req.Email) {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed email address")
	}

	user, err := h.Svc.ChangeEmail(c.Request().Context(), actorID, req.Email)
	if err != nil {
		return httpError(err)
	}

	c.SetCookie(clearCookie(h.Secure))
	return c.JSON(http.StatusOK, user)
}
