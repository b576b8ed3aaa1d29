package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rigdev/pulse/internal/compare"
	"github.com/rigdev/pulse/internal/dashboard"
	"github.com/rigdev/pulse/internal/daterange"
	"github.com/rigdev/pulse/internal/metrics"
	"github.com/sirupsen/logrus"
)

// DefaultPollInterval is how often the event stream checks for new data.
const DefaultPollInterval = 5 * time.Second

// Option configures the handler.
type Option func(*options)

type options struct {
	pollInterval time.Duration
}

// WithPollInterval sets the event stream poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) { o.pollInterval = d }
}

// NewHandler creates an http.Handler that serves the dashboard API.
func NewHandler(svc *dashboard.Service, log logrus.FieldLogger, opts ...Option) http.Handler {
	o := options{pollInterval: DefaultPollInterval}
	for _, opt := range opts {
		opt(&o)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/presets", handleGetPresets(svc))
		r.Get("/teams", handleGetTeams(svc))
		r.Get("/teams/{team}/range", handleGetRange(svc))
		r.Put("/teams/{team}/range", handlePutRange(svc))
		r.Get("/teams/{team}/dashboard", handleGetDashboard(svc))
		r.Get("/teams/{team}/events", handleSSE(svc, log, o.pollInterval))
		r.Post("/compare", handleCompare(svc))
		r.Get("/classify", handleClassify(svc))
	})

	return r
}

type presetItem struct {
	Preset daterange.Preset `json:"preset"`
	Window daterange.Window `json:"window"`
}

func handleGetPresets(svc *dashboard.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := svc.Now()
		if v := r.URL.Query().Get("now"); v != "" {
			t, err := daterange.ParseTime(v)
			if err != nil {
				writeError(w, &daterange.ValidationError{Field: "now", Reason: err.Error()})
				return
			}
			now = t
		}

		items := make([]presetItem, 0, len(daterange.Presets()))
		for _, p := range daterange.Presets() {
			win, err := daterange.Resolve(p, now)
			if err != nil {
				writeError(w, err)
				return
			}
			items = append(items, presetItem{Preset: p, Window: win})
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func handleGetTeams(svc *dashboard.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Teams())
	}
}

func handleGetRange(svc *dashboard.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := svc.Range(chi.URLParam(r, "team"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

// rangeRequest accepts RFC 3339 timestamps or plain dates.
type rangeRequest struct {
	Preset string `json:"preset"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

func handlePutRange(svc *dashboard.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rangeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		sel, err := selectionFrom(req.Preset, req.Start, req.End)
		if err != nil {
			writeError(w, err)
			return
		}
		state, err := svc.SetRange(chi.URLParam(r, "team"), *sel)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func handleGetDashboard(svc *dashboard.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sel, err := selectionFromQuery(r)
		if err != nil {
			writeError(w, err)
			return
		}
		d, err := svc.Build(chi.URLParam(r, "team"), sel)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

type compareRequest struct {
	Current         *float64 `json:"current"`
	Previous        *float64 `json:"previous"`
	DifferenceBased bool     `json:"difference_based"`
}

func handleCompare(svc *dashboard.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req compareRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		if req.Current == nil || req.Previous == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "current and previous are required"})
			return
		}
		cmp, err := svc.Comparator().Compare(*req.Current, *req.Previous,
			compare.Options{DifferenceBased: req.DifferenceBased})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cmp)
	}
}

type classifyResponse struct {
	Family  metrics.Family   `json:"family"`
	Value   *float64         `json:"value"`
	Tier    metrics.Tier     `json:"tier"`
	Cadence *metrics.Cadence `json:"cadence,omitempty"`
}

func handleClassify(svc *dashboard.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		family, err := metrics.ParseFamily(q.Get("family"))
		if err != nil {
			writeError(w, err)
			return
		}

		// A missing value means the family has no data.
		var value *float64
		if raw := q.Get("value"); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				writeError(w, &metrics.ValidationError{Field: "value", Reason: "must be a number"})
				return
			}
			value = &v
		}

		tier, err := svc.Classifier().Classify(family, value)
		if err != nil {
			writeError(w, err)
			return
		}
		resp := classifyResponse{Family: family, Value: value, Tier: tier}
		if family == metrics.DeploymentFrequency && value != nil {
			c := metrics.CadenceOf(*value)
			resp.Cadence = &c
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// handleSSE streams the team's dashboard and pushes it again whenever it
// changes.
func handleSSE(svc *dashboard.Service, log logrus.FieldLogger, interval time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		team := chi.URLParam(r, "team")
		sel, err := selectionFromQuery(r)
		if err != nil {
			writeError(w, err)
			return
		}
		d, err := svc.Build(team, sel)
		if err != nil {
			writeError(w, err)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		prevJSON := sendSSEEvent(w, flusher, log, "dashboard", d)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				d, err := svc.Build(team, sel)
				if err != nil {
					log.WithError(err).WithField("team", team).Warn("web: SSE rebuild failed")
					continue
				}
				cur, err := json.Marshal(d)
				if err != nil {
					log.WithError(err).Error("web: SSE marshal failed")
					continue
				}
				if string(cur) != prevJSON {
					prevJSON = sendSSEEvent(w, flusher, log, "dashboard", d)
				}
			}
		}
	}
}

// sendSSEEvent writes one frame and returns the payload it sent.
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, log logrus.FieldLogger, event string, data any) string {
	payload, err := json.Marshal(data)
	if err != nil {
		log.WithError(err).Error("web: SSE marshal failed")
		return ""
	}
	// SSE clients may disconnect between frames; write errors are ignored.
	_, _ = w.Write([]byte("event: " + event + "\ndata: "))
	_, _ = w.Write(payload)
	_, _ = w.Write([]byte("\n\n"))
	flusher.Flush()
	return string(payload)
}

// selectionFromQuery reads ?preset= or ?start=&end=. No parameters means
// the stored selection.
func selectionFromQuery(r *http.Request) (*daterange.Selection, error) {
	q := r.URL.Query()
	if q.Get("preset") == "" && q.Get("start") == "" && q.Get("end") == "" {
		return nil, nil
	}
	return selectionFrom(q.Get("preset"), q.Get("start"), q.Get("end"))
}

func selectionFrom(preset, start, end string) (*daterange.Selection, error) {
	sel, err := daterange.ParseSelection(preset, start, end)
	if err != nil {
		return nil, err
	}
	return &sel, nil
}

// writeError maps domain errors onto status codes.
func writeError(w http.ResponseWriter, err error) {
	var (
		rangeErr   *daterange.ValidationError
		metricErr  *metrics.ValidationError
		compareErr *compare.ValidationError
	)
	switch {
	case errors.Is(err, dashboard.ErrUnknownTeam):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &rangeErr), errors.As(err, &metricErr), errors.As(err, &compareErr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("web: JSON encode error")
	}
}
