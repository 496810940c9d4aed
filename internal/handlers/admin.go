package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/mbelozerov/storefront/internal/audit"
	"github.com/mbelozerov/storefront/internal/util"
)

type AdminHandler struct {
	Auth  *AuthHandler
	Audit *audit.Indexer
}

func (h *AdminHandler) ListUsers(c echo.Context) error {
	users, err := h.Auth.Svc.ListUsers(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *AdminHandler) ChangeRole(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	user, err := h.Auth.Svc.ChangeRole(c.Request().Context(), uint(id), req.Role)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// Analytics searches the auth event audit index for the admin dashboard.
func (h *AdminHandler) Analytics(c echo.Context) error {
	query := c.QueryParam("q")
	from, size := util.Pagination(c.QueryParam("page"), c.QueryParam("size"))

	total, events, err := h.Audit.Search(c.Request().Context(), query, from, size)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "audit search unavailable")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"total":  total,
		"events": events,
	})
}
