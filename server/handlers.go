package server

import (
	"errors"
	"net/http"
	"slices"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/spektr-org/crimescope/engine"
	"github.com/spektr-org/crimescope/store"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// ReportResponse pairs a report with its metric tiles.
type ReportResponse struct {
	Report *engine.Report   `json:"report"`
	Text   *engine.TextData `json:"text"`
}

// PointsResponse lists the mappable incidents of a selection.
type PointsResponse struct {
	Selection engine.Selection `json:"selection"`
	Points    []engine.Point   `json:"points"`
	Bounds    *Bounds          `json:"bounds,omitempty"`
}

// Bounds is the bounding box of a point set.
type Bounds struct {
	MinLatitude  float64 `json:"minLatitude"`
	MinLongitude float64 `json:"minLongitude"`
	MaxLatitude  float64 `json:"maxLatitude"`
	MaxLongitude float64 `json:"maxLongitude"`
}

func (s *Server) handleHealth(c *gin.Context) {
	st := s.store.Status()
	if !st.Loaded {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "loading", "lastError": st.LastError})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "generation": st.Generation})
}

func (s *Server) handleReport(c *gin.Context) {
	sel, ok := s.bindSelection(c)
	if !ok {
		return
	}
	report, err := s.store.Report(c.Request.Context(), sel)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ReportResponse{Report: report, Text: engine.BuildText(report)})
}

func (s *Server) handleSelections(c *gin.Context) {
	dom, err := s.store.Selections()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dom)
}

func (s *Server) handleRecords(c *gin.Context) {
	sel, ok := s.bindSelection(c)
	if !ok {
		return
	}
	limit := s.tableLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.abort(c, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	view, err := s.store.View(sel)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, engine.BuildRecordTable(sel.Label(), view, limit))
}

func (s *Server) handleCharts(c *gin.Context) {
	sel, ok := s.bindSelection(c)
	if !ok {
		return
	}
	report, err := s.store.Report(c.Request.Context(), sel)
	if err != nil {
		s.fail(c, err)
		return
	}

	kind := c.Query("kind")
	if kind == "" {
		c.JSON(http.StatusOK, engine.BuildCharts(report))
		return
	}
	if !slices.Contains(engine.ChartKinds, kind) {
		s.abort(c, http.StatusBadRequest, "unknown chart kind "+strconv.Quote(kind))
		return
	}
	chart := engine.BuildChart(report, kind)
	if chart == nil {
		c.JSON(http.StatusOK, []engine.ChartConfig{})
		return
	}
	c.JSON(http.StatusOK, []engine.ChartConfig{*chart})
}

func (s *Server) handlePoints(c *gin.Context) {
	sel, ok := s.bindSelection(c)
	if !ok {
		return
	}
	report, err := s.store.Report(c.Request.Context(), sel)
	if err != nil {
		s.fail(c, err)
		return
	}

	resp := PointsResponse{Selection: sel, Points: report.GeolocatablePoints}
	if minLat, minLon, maxLat, maxLon, ok := engine.Bounds(report.GeolocatablePoints); ok {
		resp.Bounds = &Bounds{MinLatitude: minLat, MinLongitude: minLon, MaxLatitude: maxLat, MaxLongitude: maxLon}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Status())
}

func (s *Server) handleReload(c *gin.Context) {
	if _, err := s.store.Reload(c.Request.Context()); err != nil {
		s.abort(c, http.StatusInternalServerError, "reload failed: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, s.store.Status())
}

// bindSelection reads type, year and block. It writes a 400 and returns
// false on a malformed year.
func (s *Server) bindSelection(c *gin.Context) (engine.Selection, bool) {
	sel, err := engine.ParseSelection(c.Query("type"), c.Query("year"), c.Query("block"))
	if err != nil {
		s.abort(c, http.StatusBadRequest, err.Error())
		return engine.Selection{}, false
	}
	return sel, true
}

func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidPredicate):
		s.abort(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNoSnapshot):
		s.abort(c, http.StatusServiceUnavailable, err.Error())
	default:
		s.abort(c, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) abort(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, ErrorResponse{Error: msg, RequestID: GetRequestID(c)})
}
