package handlers

import (
	"errors"
	"net/http"
	"net/mail"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mbelozerov/storefront/internal/gate"
	"github.com/mbelozerov/storefront/internal/models"
	"github.com/mbelozerov/storefront/internal/service"
	"github.com/mbelozerov/storefront/internal/tokens"
)

func CreateCookie(value string, httpOnly, secure bool, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     gate.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: httpOnly,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func clearCookie(secure bool) *http.Cookie {
	return CreateCookie("", true, secure, time.Now().Add(-1*time.Hour))
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func actor(c echo.Context) (uint, models.Role, error) {
	id, ok := c.Get(gate.CtxUserID).(uint)
	if !ok {
		return 0, "", echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}
	roleStr, _ := c.Get(gate.CtxRole).(string)
	role, err := models.ParseRole(roleStr)
	if err != nil {
		return 0, "", echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	return id, role, nil
}

func httpError(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrNotVerified),
		errors.Is(err, tokens.ErrInvalidToken),
		errors.Is(err, tokens.ErrExpiredToken):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrDuplicateEmail),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrSameEmail),
		errors.Is(err, service.ErrCodeMismatch),
		errors.Is(err, service.ErrCodeExpired),
		errors.Is(err, service.ErrAlreadyVerified),
		errors.Is(err, service.ErrUnknownRole):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}
