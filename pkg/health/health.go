// Package health provides HTTP probes for a host process running a
// listening session.
//
// The package exposes three endpoints:
//
//   - /healthz: liveness probe; always returns 200 OK.
//   - /readyz: readiness probe; returns 200 only when all registered
//     [Checker] functions pass.
//   - /statusz: the listening state of the session, when one is attached
//     with [WithSession].
//   - /metrics: the handler passed to [WithMetricsHandler], if any.
//
// Responses are JSON objects. Probe responses carry a top-level "status"
// field ("ok" or "fail") and a "checks" map with the result of each checker.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/MrWong99/listenkit/pkg/session"
)

const checkTimeout = 5 * time.Second

var (
	// ErrRecognitionUnsupported is reported when the session has no
	// recognizer.
	ErrRecognitionUnsupported = errors.New("speech recognition is not supported")

	// ErrMicrophoneUnavailable is reported after the microphone was denied.
	ErrMicrophoneUnavailable = errors.New("microphone is not available")
)

// Checker is a named readiness check. Check returns nil when the dependency
// is healthy.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

type result struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

type status struct {
	Recognition         bool   `json:"recognition"`
	ContinuousSupported bool   `json:"continuous_supported"`
	Listening           bool   `json:"listening"`
	MicrophoneAvailable bool   `json:"microphone_available"`
	Continuous          bool   `json:"continuous"`
	Language            string `json:"language,omitempty"`
	Transcript          string `json:"transcript"`
}

// Option configures a [Handler].
type Option func(*Handler)

// WithSession attaches orch: its checks are appended to the readiness
// checkers and /statusz reports its state.
func WithSession(orch *session.Orchestrator) Option {
	return func(h *Handler) {
		h.orch = orch
		h.checkers = append(h.checkers, SessionCheckers(orch)...)
	}
}

// WithCheckers appends readiness checkers.
func WithCheckers(checkers ...Checker) Option {
	return func(h *Handler) {
		h.checkers = append(h.checkers, checkers...)
	}
}

// WithMetricsHandler serves m on GET /metrics. Pass the MetricsHandler of
// an observe.Telemetry.
func WithMetricsHandler(m http.Handler) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// Handler serves the probe endpoints. The checker list is fixed at
// construction time.
type Handler struct {
	checkers []Checker
	orch     *session.Orchestrator
	metrics  http.Handler
}

// New creates a [Handler].
func New(opts ...Option) *Handler {
	h := &Handler{}
	for _, o := range opts {
		o(h)
	}
	return h
}

// SessionCheckers returns the readiness checks for orch: "recognition"
// fails with [ErrRecognitionUnsupported] and "microphone" fails with
// [ErrMicrophoneUnavailable].
func SessionCheckers(orch *session.Orchestrator) []Checker {
	return []Checker{
		{Name: "recognition", Check: func(context.Context) error {
			if !orch.SupportsRecognition() {
				return ErrRecognitionUnsupported
			}
			return nil
		}},
		{Name: "microphone", Check: func(context.Context) error {
			if !orch.State().MicrophoneAvailable {
				return ErrMicrophoneUnavailable
			}
			return nil
		}},
	}
}

// Healthz always returns 200 OK.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: "ok"})
}

// Readyz returns 200 only when every checker passes, 503 otherwise. Each
// checker runs with a deadline derived from the request context.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.checkers))
	allOK := true

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			checks[c.Name] = "fail: " + err.Error()
			allOK = false
		} else {
			checks[c.Name] = "ok"
		}
	}

	res := result{Status: "ok", Checks: checks}
	code := http.StatusOK
	if !allOK {
		res.Status = "fail"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, res)
}

// Statusz reports the attached session's state. Without a session it
// returns 404.
func (h *Handler) Statusz(w http.ResponseWriter, _ *http.Request) {
	if h.orch == nil {
		writeJSON(w, http.StatusNotFound, result{Status: "fail"})
		return
	}
	st := h.orch.State()
	writeJSON(w, http.StatusOK, status{
		Recognition:         h.orch.SupportsRecognition(),
		ContinuousSupported: h.orch.SupportsContinuousListening(),
		Listening:           st.Listening,
		MicrophoneAvailable: st.MicrophoneAvailable,
		Continuous:          st.Continuous,
		Language:            st.Language,
		Transcript:          h.orch.Snapshot().Transcript(),
	})
}

// Register adds the probe routes to mux, each wrapped by mw when it is not
// nil.
func (h *Handler) Register(mux *http.ServeMux, mw func(http.Handler) http.Handler) {
	wrap := func(f http.HandlerFunc) http.Handler {
		if mw == nil {
			return f
		}
		return mw(f)
	}
	mux.Handle("GET /healthz", wrap(h.Healthz))
	mux.Handle("GET /readyz", wrap(h.Readyz))
	mux.Handle("GET /statusz", wrap(h.Statusz))
	if h.metrics != nil {
		mux.Handle("GET /metrics", wrap(h.metrics.ServeHTTP))
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
