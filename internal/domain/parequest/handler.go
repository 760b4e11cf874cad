package parequest

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/priorauth/priorauth/internal/platform/auth"
	"github.com/priorauth/priorauth/internal/platform/llm"
	"github.com/priorauth/priorauth/internal/platform/ocr"
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
	staff.POST("/requests", h.CreateRequest)
	staff.GET("/requests", h.ListRequests)
	staff.GET("/requests/:id", h.GetRequest)
	staff.DELETE("/requests/:id", h.DeleteRequest)
	staff.GET("/requests/:id/history", h.ListHistory)

	staff.POST("/requests/:id/checklist", h.AddChecklistItem)
	staff.POST("/checklist/:itemId/attach", h.AttachEvidence)
	staff.POST("/checklist/:itemId/waive", h.WaiveItem)

	staff.POST("/requests/:id/submit", h.Submit)
	staff.POST("/requests/:id/appeal", h.Appeal)

	staff.GET("/requests/:id/summaries", h.ListSummaries)
	staff.POST("/requests/:id/summaries/generate", h.GenerateSummary)

	admin := api.Group("", auth.RequireRole("admin"))
	admin.POST("/requests/:id/approve", h.Approve)
	admin.POST("/requests/:id/deny", h.Deny)
	admin.POST("/requests/:id/request-info", h.RequestInfo)
	admin.POST("/ocr/sweep", h.RunOCRSweep)
}

// requestDetail is the composite payload for GET /requests/:id.
type requestDetail struct {
	Request        *PaRequest       `json:"request"`
	Checklist      []*ChecklistItem `json:"checklist"`
	CurrentSummary *Summary         `json:"current_summary,omitempty"`
}

// mapError translates service errors to HTTP status codes.
func mapError(err error) error {
	var incomplete *IncompleteChecklistError
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.As(err, &incomplete):
		ids := make([]string, len(incomplete.Items))
		names := make([]string, len(incomplete.Items))
		for i, item := range incomplete.Items {
			ids[i] = item.ID.String()
			names[i] = item.Name
		}
		return echo.NewHTTPError(http.StatusUnprocessableEntity, map[string]interface{}{
			"error":      "checklist incomplete",
			"item_ids":   ids,
			"item_names": names,
		})
	case errors.Is(err, ErrMissingSummary):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrChecklistNotEmpty):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, llm.ErrDisabled):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, ocr.ErrNotImplemented):
		return echo.NewHTTPError(http.StatusNotImplemented, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) CreateRequest(c echo.Context) error {
	var r PaRequest
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r.CreatedBy = auth.UserIDFromContext(c.Request().Context())
	if err := h.svc.CreateRequest(c.Request().Context(), &r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) GetRequest(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ctx := c.Request().Context()

	req, err := h.svc.GetRequest(ctx, id)
	if err != nil {
		return mapError(err)
	}
	items, err := h.svc.ListChecklist(ctx, id)
	if err != nil {
		return mapError(err)
	}
	summaries, err := h.svc.ListSummaries(ctx, id)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, requestDetail{
		Request:        req,
		Checklist:      items,
		CurrentSummary: CurrentSummary(summaries),
	})
}

func (h *Handler) ListRequests(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListRequests(c.Request().Context(), c.QueryParam("status"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) DeleteRequest(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteRequest(c.Request().Context(), id); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListHistory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.ListHistory(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	if items == nil {
		items = []*StatusHistory{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) AddChecklistItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var item ChecklistItem
	if err := c.Bind(&item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	item.RequestID = id
	if err := h.svc.AddChecklistItem(c.Request().Context(), &item); err != nil {
		if errors.Is(err, ErrNotFound) {
			return mapError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *Handler) AttachEvidence(c echo.Context) error {
	itemID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to open uploaded file")
	}
	defer src.Close()

	meta, err := h.svc.AttachEvidence(c.Request().Context(), itemID,
		file.Filename, file.Header.Get("Content-Type"),
		auth.UserIDFromContext(c.Request().Context()), src)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return mapError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, meta)
}

func (h *Handler) WaiveItem(c echo.Context) error {
	itemID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}
	if err := h.svc.WaiveItem(c.Request().Context(), itemID); err != nil {
		return mapError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- transitions --

type transitionBody struct {
	Reason string `json:"reason"`
}

func (h *Handler) Submit(c echo.Context) error {
	return h.doTransition(c, func(c echo.Context, id uuid.UUID, actor, _ string) (*PaRequest, error) {
		return h.svc.Submit(c.Request().Context(), id, actor)
	})
}

func (h *Handler) Approve(c echo.Context) error {
	return h.doTransition(c, func(c echo.Context, id uuid.UUID, actor, reason string) (*PaRequest, error) {
		return h.svc.Approve(c.Request().Context(), id, actor, reason)
	})
}

func (h *Handler) Deny(c echo.Context) error {
	return h.doTransition(c, func(c echo.Context, id uuid.UUID, actor, reason string) (*PaRequest, error) {
		return h.svc.Deny(c.Request().Context(), id, actor, reason)
	})
}

func (h *Handler) RequestInfo(c echo.Context) error {
	return h.doTransition(c, func(c echo.Context, id uuid.UUID, actor, reason string) (*PaRequest, error) {
		return h.svc.RequestInfo(c.Request().Context(), id, actor, reason)
	})
}

func (h *Handler) Appeal(c echo.Context) error {
	return h.doTransition(c, func(c echo.Context, id uuid.UUID, actor, reason string) (*PaRequest, error) {
		return h.svc.Appeal(c.Request().Context(), id, actor, reason)
	})
}

func (h *Handler) doTransition(c echo.Context, fn func(c echo.Context, id uuid.UUID, actor, reason string) (*PaRequest, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var body transitionBody
	_ = c.Bind(&body)

	actor := auth.UserIDFromContext(c.Request().Context())
	req, err := fn(c, id, actor, body.Reason)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, req)
}

// -- summaries --

func (h *Handler) ListSummaries(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.ListSummaries(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	if items == nil {
		items = []*Summary{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GenerateSummary(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	summary, err := h.svc.GenerateSummary(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, summary)
}

// -- ocr --

func (h *Handler) RunOCRSweep(c echo.Context) error {
	result, err := h.svc.RunOCRSweep(c.Request().Context())
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, result)
}
