package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	actionx "github.com/tanpawarit/slide-copilot/agent/action"
	contractx "github.com/tanpawarit/slide-copilot/agent/contract"
)

const maxBodyBytes = 1 << 20

type HandlerOption func(*handlerOptions)

type handlerOptions struct {
	metrics http.Handler
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) HandlerOption {
	return func(o *handlerOptions) {
		o.metrics = h
	}
}

type server struct {
	sessions *Manager
}

type navigateRequest struct {
	Delta int `json:"delta"`
}

type navigateResponse struct {
	Current int `json:"current"`
}

type actionRequest struct {
	Arguments map[string]any `json:"arguments"`
}

// NewHandler exposes the session manager over HTTP.
func NewHandler(sessions *Manager, opts ...HandlerOption) http.Handler {
	o := handlerOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	s := &server{sessions: sessions}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if o.metrics != nil {
		r.Method(http.MethodGet, "/metrics", o.metrics)
	}

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.closeSession)
			r.Get("/actions", s.listActions)
			r.Get("/tools", s.listTools)
			r.Post("/actions/{name}", s.invokeAction)
			r.Get("/context", s.getContext)
			r.Post("/navigate", s.navigate)
			r.Post("/generate", s.startGenerate)
			r.Get("/generate", s.generateStatus)
			r.Post("/generate/ack", s.acknowledgeGenerate)
		})
	})

	return r
}

func (s *server) createSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *server) closeSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Close(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) listActions(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Descriptors())
}

func (s *server) listTools(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.ToolInfos())
}

func (s *server) invokeAction(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var body actionRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	name := chi.URLParam(r, "name")
	out, err := sess.Invoke(r.Context(), contractx.ActionCall{Name: name, Arguments: body.Arguments})
	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
		logFailure(r, status, err)
	}
	writeJSON(w, status, actionx.ResultOf(name, out, err))
}

func (s *server) getContext(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Context())
}

func (s *server) navigate(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	var body navigateRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	current, err := sess.Navigate(r.Context(), body.Delta)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, navigateResponse{Current: current})
}

func (s *server) startGenerate(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	st, err := sess.Generate(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, st)
}

// generateStatus reports the task status. With ?wait=<duration> it blocks
// until the run finishes or the duration elapses.
func (s *server) generateStatus(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	raw := r.URL.Query().Get("wait")
	if raw == "" {
		writeJSON(w, http.StatusOK, sess.Task().Status())
		return
	}

	wait, err := time.ParseDuration(raw)
	if err != nil {
		if secs, convErr := strconv.Atoi(raw); convErr == nil {
			wait, err = time.Duration(secs)*time.Second, nil
		}
	}
	if err != nil {
		writeError(w, r, errors.Join(contractx.ErrValidation, err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), wait)
	defer cancel()
	st, _ := sess.Task().Wait(ctx)
	writeJSON(w, http.StatusOK, st)
}

func (s *server) acknowledgeGenerate(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Task().Acknowledge())
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return errors.Join(contractx.ErrValidation, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	logFailure(r, status, err)
	writeJSON(w, status, newErrorResponse(err))
}

func logFailure(r *http.Request, status int, err error) {
	level := zerolog.WarnLevel
	if status >= http.StatusInternalServerError {
		level = zerolog.ErrorLevel
	}
	hlog.FromRequest(r).WithLevel(level).
		Err(err).
		Int("status", status).
		Str("path", r.URL.Path).
		Msg("request failed")
}
