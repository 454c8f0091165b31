package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	appDiff "github.com/turtacn/ContextDiff/internal/application/diff"
	domainDiff "github.com/turtacn/ContextDiff/internal/domain/diff"
	"github.com/turtacn/ContextDiff/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/ContextDiff/pkg/errors"
	"github.com/turtacn/ContextDiff/pkg/textnorm"
)

// Response headers describing how a comparison was served.
const (
	HeaderCache          = "X-Cache"
	HeaderCacheSource    = "X-Cache-Source"
	HeaderChunked        = "X-Chunked"
	HeaderProcessingTime = "X-Processing-Time-Ms"
	HeaderComparisonID   = "X-Comparison-ID"
)

// DefaultMaxBodySize bounds the compare request body.
const DefaultMaxBodySize int64 = 1 << 20

// DiffHandler serves comparisons and verdict cache administration.
type DiffHandler struct {
	service     appDiff.Service
	logger      logging.Logger
	maxBodySize int64
}

// NewDiffHandler creates a DiffHandler. maxBodySize <= 0 selects
// DefaultMaxBodySize.
func NewDiffHandler(service appDiff.Service, logger logging.Logger, maxBodySize int64) *DiffHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}
	return &DiffHandler{service: service, logger: logger, maxBodySize: maxBodySize}
}

// CompareRequest is the body of POST /v1/compare. premium_mode is accepted
// as an alias of use_premium.
type CompareRequest struct {
	OriginalText  string `json:"original_text"`
	GeneratedText string `json:"generated_text"`
	Sensitivity   string `json:"sensitivity"`
	UsePremium    *bool  `json:"use_premium,omitempty"`
	PremiumMode   *bool  `json:"premium_mode,omitempty"`
}

func (r CompareRequest) premium() bool {
	if r.UsePremium != nil {
		return *r.UsePremium
	}
	return r.PremiumMode != nil && *r.PremiumMode
}

// Compare handles POST /v1/compare. Both texts are sanitized before they
// reach the engine, so returned offsets index the sanitized texts.
func (h *DiffHandler) Compare(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var body CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, h.logger, apperrors.Newf(apperrors.ErrCodeTextTooLong,
				"request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, r, h.logger, apperrors.InvalidParam("request body must be a JSON object").WithDetail(err.Error()))
		return
	}

	req := domainDiff.ComparisonRequest{
		OriginalText:  textnorm.Sanitize(body.OriginalText),
		GeneratedText: textnorm.Sanitize(body.GeneratedText),
		Sensitivity:   domainDiff.Sensitivity(body.Sensitivity),
		UsePremium:    body.premium(),
	}

	out, err := h.service.Compare(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	hdr := w.Header()
	hdr.Set(HeaderComparisonID, out.ID)
	if out.Cached {
		hdr.Set(HeaderCache, "HIT")
		hdr.Set(HeaderCacheSource, string(out.CacheSource))
	} else {
		hdr.Set(HeaderCache, "MISS")
	}
	hdr.Set(HeaderChunked, strconv.FormatBool(out.Chunked))
	hdr.Set(HeaderProcessingTime, strconv.FormatInt(out.Duration.Milliseconds(), 10))
	writeJSON(w, http.StatusOK, out.Result)
}

// CacheStats handles GET /v1/cache/stats.
func (h *DiffHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.CacheStats())
}

// ClearCacheResponse is the body of DELETE /v1/cache.
type ClearCacheResponse struct {
	Cleared int64 `json:"cleared"`
}

// ClearCache handles DELETE /v1/cache.
func (h *DiffHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.ClearCache(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ClearCacheResponse{Cleared: n})
}

//Personal.AI order the ending
