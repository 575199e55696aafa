package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/raglabs/pipeline-dashboard/internal/fetcher"
	"github.com/raglabs/pipeline-dashboard/internal/models"
	"github.com/raglabs/pipeline-dashboard/internal/runlog"
)

// LogsHandler serves the run-log view: the paged query over the current
// snapshot plus on-demand refresh.
type LogsHandler struct {
	fetcher  *fetcher.Fetcher
	engine   *runlog.Engine
	pageSize int
	logger   *slog.Logger
}

// NewLogsHandler creates a logs handler. pageSize is the page size used when
// the request does not carry one.
func NewLogsHandler(f *fetcher.Fetcher, engine *runlog.Engine, pageSize int, logger *slog.Logger) *LogsHandler {
	if pageSize < 1 {
		pageSize = runlog.DefaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LogsHandler{fetcher: f, engine: engine, pageSize: pageSize, logger: logger}
}

// LogsResponse is the paged run-log payload.
type LogsResponse struct {
	Records    []models.Run  `json:"records"`
	TotalItems int           `json:"total_items"`
	TotalPages int           `json:"total_pages"`
	Page       int           `json:"page"`
	State      fetcher.State `json:"state"`
}

// queryParams parses the view parameters from the request. Unknown sort
// fields and malformed numbers fall back to defaults rather than erroring:
// the view always renders.
func (h *LogsHandler) queryParams(r *http.Request) runlog.Params {
	q := r.URL.Query()

	p := runlog.Params{
		Filter:   q.Get("filter"),
		SortDir:  runlog.ParseSortDirection(q.Get("sort_dir")),
		PageSize: h.pageSize,
	}
	if field, ok := runlog.ParseSortField(q.Get("sort_field")); ok {
		p.SortField = field
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		p.Page = page
	}
	if size, err := strconv.Atoi(q.Get("page_size")); err == nil && size > 0 {
		p.PageSize = size
	}
	return p
}

// Get handles GET /api/logs.
func (h *LogsHandler) Get(w http.ResponseWriter, r *http.Request) {
	snapshot, version := h.fetcher.Snapshot()
	result := h.engine.Page(snapshot, version, h.queryParams(r))

	WriteJSON(w, http.StatusOK, LogsResponse{
		Records:    result.Records,
		TotalItems: result.TotalItems,
		TotalPages: result.TotalPages,
		Page:       result.Page,
		State:      h.fetcher.State(),
	})
}

// Refresh handles POST /api/logs/refresh. The refetch runs synchronously so
// the client's follow-up read sees fresh data; a failure still returns the
// state rather than an error, matching the view's keep-last-snapshot rule.
func (h *LogsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.fetcher.Refetch(r.Context()); err != nil {
		h.logger.Warn("manual refresh failed", "error", err)
	}
	WriteJSON(w, http.StatusOK, h.fetcher.State())
}
