package http

import (
	"net/http"
	"time"

	"github.com/mathieupelo/sentiment-reddit/internal/signal/service"
	"github.com/mathieupelo/sentiment-reddit/pkg/logger"
	"github.com/mathieupelo/sentiment-reddit/pkg/utils"

	"github.com/labstack/echo/v4"
)

// SignalHandler handles HTTP requests for sentiment signals.
type SignalHandler struct {
	queryService service.QueryService
	logger       *logger.Logger
}

// NewSignalHandler creates a new SignalHandler.
func NewSignalHandler(queryService service.QueryService, log *logger.Logger) *SignalHandler {
	return &SignalHandler{queryService: queryService, logger: log}
}

// RegisterRoutes registers the signal routes to the Echo group.
func (h *SignalHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/signals", h.GetSignals)
	g.GET("/tickers", h.GetTickers)
}

// GetSignals returns stored signals for a date range, optionally filtered
// by ticker. Query params: start_date, end_date (YYYY-MM-DD), ticker.
func (h *SignalHandler) GetSignals(c echo.Context) error {
	startDate, err := utils.ParseDate(c.QueryParam("start_date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid start_date, expected YYYY-MM-DD"})
	}
	endDate, err := utils.ParseDate(c.QueryParam("end_date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid end_date, expected YYYY-MM-DD"})
	}

	signals, err := h.queryService.GetSignals(c.Request().Context(), startDate, endDate, c.QueryParam("ticker"))
	if err != nil {
		h.logger.Error("Failed to get signals", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, signals)
}

// GetTickers returns all active ticker profiles.
func (h *SignalHandler) GetTickers(c echo.Context) error {
	tickers, err := h.queryService.GetTickers(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to get tickers", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, tickers)
}

// Health reports service liveness.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "time": time.Now().UTC()})
}
