package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/priorauth/priorauth/internal/platform/auth"
)

// defaultWindowDays is the dashboard's default lookback window.
const defaultWindowDays = 90

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := api.Group("", auth.RequireRole("staff"))
	staff.GET("/metrics/dashboard", h.Dashboard)
}

func (h *Handler) Dashboard(c echo.Context) error {
	windowDays := defaultWindowDays
	if raw := c.QueryParam("window_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "window_days must be a positive integer")
		}
		windowDays = n
	}

	now := time.Now().UTC()
	snapshots, err := h.repo.Snapshots(c.Request().Context(), now, windowDays)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, Compute(snapshots, now))
}
