package namechange

import (
	"errors"
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
	members := api.Group("", auth.RequireRole("member", "staff"))
	members.POST("/name-changes", h.Create)
	members.GET("/name-changes/:id", h.Get)

	admin := api.Group("", auth.RequireRole("admin"))
	admin.GET("/name-changes", h.List)
	admin.POST("/name-changes/:id/approve", h.Approve)
	admin.POST("/name-changes/:id/deny", h.Deny)
}

type createBody struct {
	MemberID       uuid.UUID `json:"member_id"`
	RequestedFirst string    `json:"requested_first"`
	RequestedLast  string    `json:"requested_last"`
}

func (h *Handler) Create(c echo.Context) error {
	var body createBody
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if body.MemberID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "member_id is required")
	}

	req, err := h.svc.Create(c.Request().Context(), body.MemberID, body.RequestedFirst, body.RequestedLast)
	if err != nil {
		switch {
		case errors.Is(err, ErrPendingExists):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.JSON(http.StatusCreated, req)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	req, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, req)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Approve(c echo.Context) error {
	return h.review(c, func(id uuid.UUID, reviewer string, _ string) (*NameChangeRequest, error) {
		return h.svc.Approve(c.Request().Context(), id, reviewer)
	})
}

type denyBody struct {
	Reason string `json:"reason"`
}

func (h *Handler) Deny(c echo.Context) error {
	return h.review(c, func(id uuid.UUID, reviewer string, reason string) (*NameChangeRequest, error) {
		return h.svc.Deny(c.Request().Context(), id, reviewer, reason)
	})
}

func (h *Handler) review(c echo.Context, fn func(id uuid.UUID, reviewer, reason string) (*NameChangeRequest, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var body denyBody
	_ = c.Bind(&body)

	reviewer := auth.UserIDFromContext(c.Request().Context())
	req, err := fn(id, reviewer, body.Reason)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrNotPending):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		default:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	return c.JSON(http.StatusOK, req)
}
