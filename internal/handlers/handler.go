package handlers

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"uplink-status-monitor/internal/snapshot"
	"uplink-status-monitor/internal/zabbix"
)

//go:embed templates/*.html
var templateFS embed.FS

// Cycler runs refresh cycles on demand.
type Cycler interface {
	RunCycle(ctx context.Context) (snapshot.Snapshot, error)
	Groups(ctx context.Context) ([]zabbix.Group, error)
}

// Snapshots is the read side of the snapshot cache.
type Snapshots interface {
	Get() snapshot.Snapshot
	Exposition() []byte
	LastError() *snapshot.CycleError
}

type Handler struct {
	cycler Cycler
	store  Snapshots
	log    *zap.Logger
	page   *template.Template
}

func New(cycler Cycler, store Snapshots, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	page := template.Must(template.New("index.html").Funcs(template.FuncMap{
		"value": formatValue,
		"time":  func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
	}).ParseFS(templateFS, "templates/index.html"))

	return &Handler{
		cycler: cycler,
		store:  store,
		log:    logger.Named("http"),
		page:   page,
	}
}

// Routes returns the HTTP surface of the monitor.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Healthz)
	r.Get("/", h.Dashboard)
	r.Get("/metrics", h.Metrics)
	r.Get("/status", h.Status)
	r.Get("/api/query", h.Query)
	r.Get("/groups", h.Groups)
	return r
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"ok":true}`))
}

// Metrics serves the exposition of the last good cycle. It never fails; before
// the first cycle the body is empty.
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", snapshot.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.store.Exposition())
}

type statusResponse struct {
	snapshot.Snapshot
	LastError *snapshot.CycleError `json:"last_error,omitempty"`
}

func newStatus(snap snapshot.Snapshot, lastErr *snapshot.CycleError) statusResponse {
	if snap.Records == nil {
		snap.Records = []snapshot.Record{}
	}
	return statusResponse{Snapshot: snap, LastError: lastErr}
}

// Status returns the cached snapshot.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, newStatus(h.store.Get(), h.store.LastError()))
}

// Query runs a cycle now and returns its snapshot.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	snap, err := h.cycler.RunCycle(r.Context())
	if err != nil {
		h.writeError(w, http.StatusBadGateway, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newStatus(snap, nil))
}

// Groups lists the host groups of the monitoring system.
func (h *Handler) Groups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.cycler.Groups(r.Context())
	if err != nil {
		h.writeError(w, http.StatusBadGateway, err)
		return
	}
	if groups == nil {
		groups = []zabbix.Group{}
	}
	h.writeJSON(w, http.StatusOK, groups)
}

type dashboard struct {
	Snapshot snapshot.Snapshot
	Error    string
	ErrorAt  time.Time
}

// Dashboard renders the host table. With refresh=1 the table comes from a
// cycle run for this request; if that fails the table is empty.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	var data dashboard

	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		snap, err := h.cycler.RunCycle(r.Context())
		if err != nil {
			status = http.StatusInternalServerError
			data.Error = err.Error()
			data.ErrorAt = time.Now()
		} else {
			data.Snapshot = snap
		}
	} else {
		data.Snapshot = h.store.Get()
		if e := h.store.LastError(); e != nil {
			data.Error = e.Message
			data.ErrorAt = e.At
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.page.Execute(w, data); err != nil {
		h.log.Error("render dashboard", zap.Error(err))
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.log.Warn("request failed", zap.Int("status", status), zap.Error(err))
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func formatValue(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// requestLogger logs one line per request, like middleware.Logger but through zap.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("took", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
