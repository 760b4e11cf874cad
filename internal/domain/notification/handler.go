package notification

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/priorauth/priorauth/internal/platform/auth"
	"github.com/priorauth/priorauth/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	authed := api.Group("", auth.RequireRole("admin", "staff", "member"))
	authed.GET("/notifications", h.ListNotifications)
	authed.GET("/notifications/unread-count", h.UnreadCount)
	authed.POST("/notifications/:id/read", h.MarkRead)
	authed.POST("/notifications/read-all", h.MarkAllRead)
}

func (h *Handler) ListNotifications(c echo.Context) error {
	recipientID := auth.UserIDFromContext(c.Request().Context())
	pg := pagination.FromContext(c)

	items, total, err := h.svc.List(c.Request().Context(), recipientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UnreadCount(c echo.Context) error {
	recipientID := auth.UserIDFromContext(c.Request().Context())

	count, err := h.svc.UnreadCount(c.Request().Context(), recipientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int{"unread": count})
}

func (h *Handler) MarkRead(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	recipientID := auth.UserIDFromContext(c.Request().Context())

	if err := h.svc.MarkRead(c.Request().Context(), id, recipientID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) MarkAllRead(c echo.Context) error {
	recipientID := auth.UserIDFromContext(c.Request().Context())

	if err := h.svc.MarkAllRead(c.Request().Context(), recipientID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
