package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"shift_handover/internal/assistant"
	"shift_handover/internal/board"
	"shift_handover/internal/shift"
	"shift_handover/internal/store"
	"shift_handover/internal/summary"
)

const acquireTimeout = 10 * time.Second

// acquire returns the board of the request's shift. On failure the error has
// already been written and the last result is false.
func (s *server) acquire(w http.ResponseWriter, r *http.Request) (*board.Board, func(), bool) {
	ctx, cancel := context.WithTimeout(r.Context(), acquireTimeout)
	defer cancel()
	b, release, err := s.hub.Acquire(ctx, s.currentShift(r))
	if err != nil {
		s.log.Error("load shift", zap.Error(err))
		http.Error(w, "Record store unavailable", http.StatusServiceUnavailable)
		return nil, nil, false
	}
	return b, release, true
}

// writeError maps board and store errors to status codes.
func (s *server) writeError(w http.ResponseWriter, err error) {
	var verr *shift.ValidationError
	switch {
	case errors.As(err, &verr):
		http.Error(w, verr.Message, http.StatusBadRequest)
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, board.ErrConfirmationRequired):
		http.Error(w, board.DeleteFaultPrompt, http.StatusPreconditionRequired)
	case errors.Is(err, board.ErrNothingToSummarize):
		http.Error(w, "Nothing to summarize", http.StatusUnprocessableEntity)
	case errors.Is(err, board.ErrNoSummarizer), errors.Is(err, assistant.ErrMissingAPIKey):
		http.Error(w, assistant.MissingKeyNotice, http.StatusServiceUnavailable)
	case errors.Is(err, board.ErrStale):
		http.Error(w, "Shift changed", http.StatusConflict)
	default:
		http.Error(w, "Database error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Store: s.store.Mode(), AI: s.aiEnabled})
}

// Shift handlers
func (s *server) getShiftHandler(w http.ResponseWriter, r *http.Request) {
	b, release, ok := s.acquire(w, r)
	if !ok {
		return
	}
	defer release()
	writeJSON(w, http.StatusOK, b.State())
}

func (s *server) switchShiftHandler(w http.ResponseWriter, r *http.Request) {
	var req ShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Date) == "" {
		http.Error(w, "Date is required", http.StatusBadRequest)
		return
	}
	t, err := shift.ParseType(req.Type)
	if err != nil {
		http.Error(w, "Invalid shift type", http.StatusBadRequest)
		return
	}

	info := shift.Info{Date: strings.TrimSpace(req.Date), Type: t}
	if err := s.rememberShift(w, r, info); err != nil {
		s.log.Error("save session", zap.Error(err))
		http.Error(w, "Session error", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), acquireTimeout)
	defer cancel()
	b, release, err := s.hub.Acquire(ctx, info)
	if err != nil {
		s.log.Error("load shift", zap.String("shift", info.Key()), zap.Error(err))
		http.Error(w, "Record store unavailable", http.StatusServiceUnavailable)
		return
	}
	defer release()
	writeJSON(w, http.StatusOK, b.State())
}

func (s *server) updateControllersHandler(w http.ResponseWriter, r *http.Request) {
	var req ControllersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	b, release, ok := s.acquire(w, r)
	if !ok {
		return
	}
	defer release()

	if err := b.SetControllers(r.Context(), req.Controllers); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) updateNotesHandler(w http.ResponseWriter, r *http.Request) {
	var req NotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	b, release, ok := s.acquire(w, r)
	if !ok {
		return
	}
	defer release()

	if err := b.SetNotes(r.Context(), req.Notes); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Fault handlers
func (s *server) getFaultsHandler(w http.ResponseWriter, r *http.Request) {
	b, release, ok := s.acquire(w, r)
	if !ok {
		return
	}
	defer release()
	writeJSON(w, http.StatusOK, b.State().Faults)
}

func (s *server) createFaultHandler(w http.ResponseWriter, r *http.Request) {
	var req shift.NewFault
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	b, release, ok := s.acquire(w, r)
	if !ok {
		return
	}
	defer release()

	f, err := b.AddFault(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (s *server) updateTreatmentHandler(w http.ResponseWriter, r *http.Request) {
	var req TreatmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	b, release, ok := s.acquire(w, r)
	if !ok {
		return
	}
	defer release()

	if err := b.UpdateTreatment(r.Context(), mux.Vars(r)["id"], req.Treatment); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) updateDowntimeHandler(w http.ResponseWriter, r *http.Request) {
	var req DowntimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	b, release, ok := s.acquire(w, r)
	if !ok {
		return
	}
	defer release()

	if err := b.UpdateDowntime(r.Context(), mux.Vars(r)["id"], req.Downtime); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) toggleFaultHandler(w http.ResponseWriter, r *http.Request) {
	b, release, ok := s.acquire(w, r)
	if !ok {
		return
	}
	defer release()

	id := mux.Vars(r)["id"]
	status, err := b.ToggleStatus(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{ID: id, Status: status})
}

// deleteFaultHandler needs ?confirm=true; without it the client gets 428 and
// the question to put to the operator.
func (s *server) deleteFaultHandler(w http.ResponseWriter, r *http.Request) {
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	b, release, ok := s.acquire(w, r)
	if !ok {
		return
	}
	defer release()

	if err := b.DeleteFault(r.Context(), mux.Vars(r)["id"], confirmed); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Planned work handlers
func (s *server) getPlannedHandler(w http.ResponseWriter, r *http.Request) {
	b, release, ok := s.acquire(w, r)
	if !ok {
		return
	}
	defer release()
	writeJSON(w, http.StatusOK, b.State().Planned)
}

func (s *server) createPlannedHandler(w http.ResponseWriter, r *http.Request) {
	var req PlannedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	b, release, ok := s.acquire(w, r)
	if !ok {
		return
	}
	defer release()

	p, err := b.AddPlanned(r.Context(), req.Description)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if p.ID == "" {
		// blank description, ignored
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *server) deletePlannedHandler(w http.ResponseWriter, r *http.Request) {
	b, release, ok := s.acquire(w, r)
	if !ok {
		return
	}
	defer release()

	if err := b.DeletePlanned(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Summary handlers
func (s *server) summaryHandler(w http.ResponseWriter, r *http.Request) {
	b, release, ok := s.acquire(w, r)
	if !ok {
		return
	}
	defer release()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(b.Summary(summary.ParseMode(r.URL.Query().Get("mode")))))
}

func (s *server) whatsAppHandler(w http.ResponseWriter, r *http.Request) {
	b, release, ok := s.acquire(w, r)
	if !ok {
		return
	}
	defer release()

	text := b.Summary(summary.WhatsApp)
	writeJSON(w, http.StatusOK, WhatsAppResponse{Text: text, Link: summary.WhatsAppLink(text)})
}

// aiSummaryHandler replaces the shift notes with a generated narrative. The
// notes are untouched when generation fails.
func (s *server) aiSummaryHandler(w http.ResponseWriter, r *http.Request) {
	b, release, ok := s.acquire(w, r)
	if !ok {
		return
	}
	defer release()

	notes, err := b.GenerateNotes(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, NotesResponse{Notes: notes})
	case errors.Is(err, board.ErrNothingToSummarize),
		errors.Is(err, board.ErrNoSummarizer),
		errors.Is(err, assistant.ErrMissingAPIKey),
		errors.Is(err, board.ErrStale):
		s.writeError(w, err)
	case notes != "":
		// generated, but saving the notes failed
		s.writeError(w, err)
	default:
		http.Error(w, "AI summary failed", http.StatusBadGateway)
	}
}
