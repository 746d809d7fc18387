package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stockpulse/stockpulse/internal/domain/dto"
	"github.com/stockpulse/stockpulse/internal/service"
)

const dateLayout = "2006-01-02"

// Handler provides HTTP handlers for the stored daily bars.
//
// Responsibilities:
//   - Validate incoming query parameters
//   - Call the service layer
//   - Translate domain models into response DTOs with appropriate status codes
type Handler struct {
	svc service.BarsService
}

// NewHandler constructs a new Handler instance.
func NewHandler(svc service.BarsService) *Handler {
	return &Handler{svc: svc}
}

// GetBars handles GET /api/v1/bars requests.
//
// GetBars godoc
// @Summary      List stored daily bars for a symbol
// @Description  Returns the stored bars for the given symbol, most recent first, optionally bounded by an inclusive date range
// @Tags         bars
// @Produce      json
// @Param        symbol  query     string  true   "Ticker symbol" example(AAPL)
// @Param        start   query     string  false  "Start date in YYYY-MM-DD" example(2024-01-02)
// @Param        end     query     string  false  "End date in YYYY-MM-DD" example(2024-01-31)
// @Success      200     {object}  dto.BarsResponse   "Success"
// @Failure      400     {object}  dto.ErrorResponse  "Bad Request"
// @Failure      404     {object}  dto.ErrorResponse  "Not Found"
// @Failure      500     {object}  dto.ErrorResponse  "Internal Error"
// @Router       /api/v1/bars [get]
func (h *Handler) GetBars(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("symbol is required", nil))
		return
	}

	start, ok := parseDateParam(c, "start")
	if !ok {
		return
	}
	end, ok := parseDateParam(c, "end")
	if !ok {
		return
	}

	bars, err := h.svc.GetBars(c.Request.Context(), symbol, start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to fetch bars", err))
		return
	}
	if len(bars) == 0 {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("no data found", nil))
		return
	}

	c.JSON(http.StatusOK, dto.NewBarsResponse(symbol, bars))
}

// GetLatestBar handles GET /api/v1/bars/latest requests.
//
// GetLatestBar godoc
// @Summary      Get the most recent stored bar for a symbol
// @Tags         bars
// @Produce      json
// @Param        symbol  query     string  true  "Ticker symbol" example(AAPL)
// @Success      200     {object}  dto.BarResponse    "Success"
// @Failure      400     {object}  dto.ErrorResponse  "Bad Request"
// @Failure      404     {object}  dto.ErrorResponse  "Not Found"
// @Failure      500     {object}  dto.ErrorResponse  "Internal Error"
// @Router       /api/v1/bars/latest [get]
func (h *Handler) GetLatestBar(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Query("symbol")))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("symbol is required", nil))
		return
	}

	bar, err := h.svc.GetLatestBar(c.Request.Context(), symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("failed to fetch latest bar", err))
		return
	}
	if bar == nil {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse("no data found", nil))
		return
	}

	c.JSON(http.StatusOK, dto.NewBarResponse(*bar))
}

// parseDateParam reads an optional YYYY-MM-DD query parameter. On a format
// error it writes the 400 response and reports !ok.
func parseDateParam(c *gin.Context, name string) (*time.Time, bool) {
	s := c.Query(name)
	if s == "" {
		return nil, true
	}
	parsed, err := time.Parse(dateLayout, s)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid "+name+" format, expected YYYY-MM-DD", err))
		return nil, false
	}
	return &parsed, true
}
