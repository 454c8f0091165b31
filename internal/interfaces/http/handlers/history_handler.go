package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	domainDiff "github.com/turtacn/ContextDiff/internal/domain/diff"
	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContextDiff/pkg/errors"
)

// ReportLinker issues download links for archived comparison reports.
type ReportLinker interface {
	ReportURL(ctx context.Context, id string, createdAt time.Time) (string, error)
}

// HistoryHandler serves recorded comparisons.
type HistoryHandler struct {
	repo    domainDiff.HistoryRepository
	reports ReportLinker
	logger  logging.Logger
}

// NewHistoryHandler creates a HistoryHandler. reports may be nil when no
// archive is configured.
func NewHistoryHandler(repo domainDiff.HistoryRepository, reports ReportLinker, logger logging.Logger) *HistoryHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &HistoryHandler{repo: repo, reports: reports, logger: logger}
}

// ListComparisonsResponse is the body of GET /v1/comparisons.
type ListComparisonsResponse struct {
	Items  []*domainDiff.ComparisonRecord `json:"items"`
	Limit  int                            `json:"limit"`
	Offset int                            `json:"offset"`
}

// List handles GET /v1/comparisons. Filters: since and until (RFC 3339),
// unsafe (bool), limit and offset.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := parseHistoryQuery(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	records, err := h.repo.List(r.Context(), q)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	for _, rec := range records {
		rec.Result = nil
	}
	writeJSON(w, http.StatusOK, ListComparisonsResponse{Items: records, Limit: q.Limit, Offset: q.Offset})
}

// Get handles GET /v1/comparisons/{id}.
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.repo.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ReportResponse is the body of GET /v1/comparisons/{id}/report.
type ReportResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Report handles GET /v1/comparisons/{id}/report and returns a time-limited
// download link for the archived report.
func (h *HistoryHandler) Report(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		writeError(w, r, h.logger, errors.New(errors.ErrCodeNotFound, "report archive is not enabled"))
		return
	}
	rec, err := h.repo.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	url, err := h.reports.ReportURL(r.Context(), rec.ID, rec.CreatedAt)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ReportResponse{ID: rec.ID, URL: url})
}

func parseHistoryQuery(r *http.Request) (domainDiff.HistoryQuery, error) {
	var q domainDiff.HistoryQuery
	values := r.URL.Query()

	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"since", &q.Since}, {"until", &q.Until}} {
		v := values.Get(p.name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return q, errors.InvalidParam(p.name + " must be an RFC 3339 timestamp").WithDetail("got " + strconv.Quote(v))
		}
		*p.dst = t
	}

	if v := values.Get("unsafe"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return q, errors.InvalidParam("unsafe must be a boolean").WithDetail("got " + strconv.Quote(v))
		}
		q.Unsafe = b
	}

	var err error
	if q.Limit, err = parseIntQuery(r, "limit", 50); err != nil {
		return q, err
	}
	if q.Offset, err = parseIntQuery(r, "offset", 0); err != nil {
		return q, err
	}
	switch {
	case q.Limit == 0:
		q.Limit = 50
	case q.Limit > 500:
		q.Limit = 500
	}
	return q, nil
}

//Personal.AI order the ending
