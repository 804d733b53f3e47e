package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jaminalder/atetria/internal/app"
	"github.com/jaminalder/atetria/internal/domain"
)

// maxCommandBody caps the JSON body of a command request.
const maxCommandBody = 1 << 10

type handlers struct {
	svc      *app.Service
	log      *zap.Logger
	upgrader websocket.Upgrader
}

type commandRequest struct {
	Command string `json:"command"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps service and engine errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, app.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnknownCommand):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrGameOver):
		return http.StatusConflict
	case errors.Is(err, app.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.CreateGame()
	if err != nil {
		h.log.Error("create game", zap.Error(err))
		writeError(w, statusFor(err), "failed to create game")
		return
	}
	w.Header().Set("Location", "/games/"+snap.ID)
	writeJSON(w, http.StatusCreated, snap)
}

func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.svc.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, app.ErrNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *handlers) remove(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(chi.URLParam(r, "id")); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) command(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req commandRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxCommandBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	cmd, err := domain.ParseCommand(req.Command)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	snap, err := h.svc.Command(id, cmd)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

var heartbeatInterval = 15 * time.Second

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.svc.Get(id); !ok {
		writeError(w, http.StatusNotFound, app.ErrNotFound.Error())
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	// Non-EventSource requests only get the headers.
	if r.Header.Get("Accept") != "text/event-stream" {
		w.WriteHeader(http.StatusOK)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	ctx := r.Context()
	ch, unsub := h.svc.Subscribe(ctx, id)
	defer unsub()
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	// Subscribed first, so nothing between this snapshot and the stream is lost.
	if snap, ok := h.svc.Get(id); ok {
		initial, _ := json.Marshal(snap)
		writeEvent(w, app.UpdateBoard, initial)
	}
	flusher.Flush()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			flusher.Flush()
		case u, ok := <-ch:
			if !ok {
				return
			}
			writeEvent(w, u.Kind, u.Data)
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, kind app.UpdateKind, data []byte) {
	_, _ = fmt.Fprintf(w, "event: %s\n", kind)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}
