package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"cultura/internal/bootstrap/logging"
	"cultura/internal/errs"
	"cultura/internal/ports"
	"cultura/internal/usecase/catalog"
)

const dateLayout = "2006-01-02"

// CatalogService is the read side the API serves.
type CatalogService interface {
	ListEvents(ctx context.Context, filter ports.EventFilter, page int, pageSize int) (catalog.Page, error)
	GetEvent(ctx context.Context, id uint64) (ports.EventView, error)
	Search(ctx context.Context, query string, limit int) ([]ports.EventView, error)
	Categories(ctx context.Context) ([]ports.CategoryView, error)
	Cities(ctx context.Context) ([]ports.CityView, error)
	Stats(ctx context.Context) (ports.CatalogStats, error)
}

type Deps struct {
	Catalog CatalogService
	// Ready probes the relational store for /health.
	Ready func(ctx context.Context) error
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

type handler struct {
	catalog CatalogService
	ready   func(ctx context.Context) error
	now     func() time.Time
}

type healthResponse struct {
	Status    string    `json:"status"`
	Database  bool      `json:"database"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewHandler builds the read API router.
func NewHandler(ctx context.Context, deps Deps) http.Handler {
	h := &handler{
		catalog: deps.Catalog,
		ready:   deps.Ready,
		now:     func() time.Time { return time.Now().UTC() },
	}
	logCtx := logging.WithComponent(ctx, "transport.httpapi")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logCtx))

	r.Get("/health", h.handleHealth)
	r.Get("/events", h.handleListEvents)
	r.Get("/events/{id}", h.handleGetEvent)
	r.Get("/search", h.handleSearch)
	r.Get("/categories", h.handleCategories)
	r.Get("/cities", h.handleCities)
	r.Get("/stats", h.handleStats)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}
	return r
}

func requestLogger(ctx context.Context) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logging.Debug(ctx, "request served",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("elapsed", time.Since(started)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "healthy", Database: true, Timestamp: h.now()}
	if h.ready == nil || h.ready(r.Context()) != nil {
		resp.Status = "degraded"
		resp.Database = false
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pageSize, err := intParam(q, "page_size", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter, err := parseFilter(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := h.catalog.ListEvents(r.Context(), filter, page, pageSize)
	if err != nil {
		h.fail(w, r, err, "list events")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "event id must be a positive integer")
		return
	}
	view, err := h.catalog.GetEvent(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "get event")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	results, err := h.catalog.Search(r.Context(), q.Get("q"), limit)
	if err != nil {
		h.fail(w, r, err, "search events")
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	out, err := h.catalog.Categories(r.Context())
	if err != nil {
		h.fail(w, r, err, "list categories")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) handleCities(w http.ResponseWriter, r *http.Request) {
	out, err := h.catalog.Cities(r.Context())
	if err != nil {
		h.fail(w, r, err, "list cities")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) handleStats(w http.ResponseWriter, r *http.Request) {
	out, err := h.catalog.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err, "catalog stats")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// fail maps service errors onto status codes. Unexpected errors are logged and
// answered with a generic message.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, err error, action string) {
	switch {
	case errors.Is(err, catalog.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ports.ErrEventNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	default:
		ctx := logging.WithComponent(r.Context(), "transport.httpapi")
		logging.Error(ctx, action+" failed",
			slog.String("path", r.URL.Path),
			slog.Any("err", errs.Loggable(err)),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func parseFilter(q url.Values) (ports.EventFilter, error) {
	filter := ports.EventFilter{
		Category:       q.Get("category"),
		City:           q.Get("city"),
		Arrondissement: q.Get("arrondissement"),
		Season:         q.Get("season"),
	}

	var err error
	if filter.IsFree, err = boolParam(q, "is_free"); err != nil {
		return ports.EventFilter{}, err
	}
	if filter.IsWeekend, err = boolParam(q, "is_weekend"); err != nil {
		return ports.EventFilter{}, err
	}
	if filter.DateFrom, err = dateParam(q, "date_from"); err != nil {
		return ports.EventFilter{}, err
	}
	if filter.DateTo, err = dateParam(q, "date_to"); err != nil {
		return ports.EventFilter{}, err
	}
	if filter.DateFrom != "" && filter.DateTo != "" && filter.DateFrom > filter.DateTo {
		return ports.EventFilter{}, errors.New("date_from must not be after date_to")
	}
	return filter, nil
}

func intParam(q url.Values, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errs.Wrapf(err, "%s must be an integer", key)
	}
	return n, nil
}

func boolParam(q url.Values, key string) (*bool, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errs.Wrapf(err, "%s must be a boolean", key)
	}
	return &v, nil
}

func dateParam(q url.Values, key string) (string, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return "", nil
	}
	if _, err := time.Parse(dateLayout, raw); err != nil {
		return "", errs.Wrapf(err, "%s must be YYYY-MM-DD", key)
	}
	return raw, nil
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}
