package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mbelozerov/storefront/internal/service"
	"github.com/mbelozerov/storefront/internal/tokens"
)

type AuthHandler struct {
	Svc    *service.AuthService
	Secure bool
}

func (h *AuthHandler) Signup(c echo.Context) error {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name, email and password are required")
	}
	if !validEmail(req.Email) {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed email address")
	}

	user, err := h.Svc.Signup(c.Request().Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	token, user, err := h.Svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return httpError(err)
	}

	c.SetCookie(CreateCookie(token, true, h.Secure, time.Now().Add(tokens.TTL)))
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) Verify(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	token, user, err := h.Svc.Verify(c.Request().Context(), req.Email, req.Code)
	if err != nil {
		// The verify form reports a bad email the same way as a bad
		// code, both are user input on the same page.
		if errors.Is(err, service.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return httpError(err)
	}

	// Readable cookie: the page needs the token right after verifying.
	c.SetCookie(CreateCookie(token, false, h.Secure, time.Now().Add(tokens.TTL)))
	return c.JSON(http.StatusOK, user)
}

// Logout deletes an account. Without a user_id in the body the acting
// user deletes themself; admins may pass another user's id.
func (h *AuthHandler) Logout(c echo.Context) error {
	actorID, actorRole, err := actor(c)
	if err != nil {
		return err
	}

	var req struct {
		UserID *uint `json:"user_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	targetID := actorID
	if req.UserID != nil {
		targetID = *req.UserID
	}

	user, err := h.Svc.DeleteAccount(c.Request().Context(), actorID, actorRole, targetID)
	if err != nil {
		return httpError(err)
	}

	if targetID == actorID {
		c.SetCookie(clearCookie(h.Secure))
	}
	return c.JSON(http.StatusOK, user)
}
