package main

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"shift_handover/internal/board"
	"shift_handover/internal/store"
)

type server struct {
	store     store.Store
	hub       *board.Hub
	sum       board.Summarizer
	aiEnabled bool
	sessions  *sessions.CookieStore
	upgrader  websocket.Upgrader
	staticDir string
	log       *zap.Logger
	now       func() time.Time
}

type enabler interface {
	Enabled() bool
}

// newServer wires the handlers. sum may be nil, in which case generated
// summaries are refused.
func newServer(st store.Store, sum board.Summarizer, cs *sessions.CookieStore, staticDir string, log *zap.Logger) *server {
	opts := []board.Option{board.WithLogger(log)}
	aiEnabled := false
	if sum != nil {
		opts = append(opts, board.WithSummarizer(sum))
		if e, ok := sum.(enabler); ok {
			aiEnabled = e.Enabled()
		} else {
			aiEnabled = true
		}
	}
	return &server{
		store:     st,
		hub:       board.NewHub(st, opts...),
		sum:       sum,
		aiEnabled: aiEnabled,
		sessions:  cs,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		staticDir: staticDir,
		log:       log,
		now:       time.Now,
	}
}

func (s *server) routes() http.Handler {
	r := mux.NewRouter()

	// Static files
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir(s.staticDir))))

	r.HandleFunc("/", s.homeHandler).Methods("GET")
	r.HandleFunc("/healthz", s.healthHandler).Methods("GET")

	// Shift
	r.HandleFunc("/api/shift", s.getShiftHandler).Methods("GET")
	r.HandleFunc("/api/shift", s.switchShiftHandler).Methods("PUT")
	r.HandleFunc("/api/shift/controllers", s.updateControllersHandler).Methods("PUT")
	r.HandleFunc("/api/shift/notes", s.updateNotesHandler).Methods("PUT")

	// Faults
	r.HandleFunc("/api/faults", s.getFaultsHandler).Methods("GET")
	r.HandleFunc("/api/faults", s.createFaultHandler).Methods("POST")
	r.HandleFunc("/api/faults/{id}/treatment", s.updateTreatmentHandler).Methods("PUT")
	r.HandleFunc("/api/faults/{id}/downtime", s.updateDowntimeHandler).Methods("PUT")
	r.HandleFunc("/api/faults/{id}/toggle", s.toggleFaultHandler).Methods("POST")
	r.HandleFunc("/api/faults/{id}", s.deleteFaultHandler).Methods("DELETE")

	// Planned works
	r.HandleFunc("/api/planned", s.getPlannedHandler).Methods("GET")
	r.HandleFunc("/api/planned", s.createPlannedHandler).Methods("POST")
	r.HandleFunc("/api/planned/{id}", s.deletePlannedHandler).Methods("DELETE")

	// Summary
	r.HandleFunc("/api/summary", s.summaryHandler).Methods("GET")
	r.HandleFunc("/api/summary/whatsapp", s.whatsAppHandler).Methods("GET")
	r.HandleFunc("/api/summary/ai", s.aiSummaryHandler).Methods("POST")

	r.HandleFunc("/api/live", s.liveHandler).Methods("GET")

	r.Use(s.logRequests)
	return r
}

func (s *server) homeHandler(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(s.staticDir, "index.html"))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Hijack lets the websocket upgrade through the recorder.
func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(started)),
		}
		if rec.status >= http.StatusInternalServerError {
			s.log.Warn("request failed", fields...)
			return
		}
		s.log.Debug("request", fields...)
	})
}
