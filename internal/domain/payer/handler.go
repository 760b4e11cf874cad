package payer

import (
	"errors"
	"net/http"
	"strconv"

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
	staff := api.Group("", auth.RequireRole("staff"))
	staff.GET("/payers", h.ListPayers)
	staff.GET("/payers/:id", h.GetPayer)
	staff.GET("/payers/:id/snippets", h.ListSnippets)

	admin := api.Group("", auth.RequireRole("admin"))
	admin.POST("/payers", h.CreatePayer)
	admin.PUT("/payers/:id", h.UpdatePayer)
	admin.POST("/payers/:id/ingest", h.IngestPolicy)
}

func (h *Handler) CreatePayer(c echo.Context) error {
	var p Payer
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreatePayer(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPayer(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.GetPayer(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "payer not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdatePayer(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var p Payer
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = id
	if err := h.svc.UpdatePayer(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPayers(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPayers(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) IngestPolicy(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	modality := c.QueryParam("modality")
	if modality == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "modality is required")
	}

	count, err := h.svc.IngestPolicy(c.Request().Context(), id, modality)
	if err != nil {
		if errors.Is(err, ErrIngestionDisabled) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int{"snippets": count})
}

func (h *Handler) ListSnippets(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	items, err := h.svc.ListSnippets(c.Request().Context(), id, c.QueryParam("modality"), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*PolicySnippet{}
	}
	return c.JSON(http.StatusOK, items)
}
