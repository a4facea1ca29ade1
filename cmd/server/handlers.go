package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"affect-lab/internal/domain"
	"affect-lab/internal/labels"
	"affect-lab/internal/lookup"
	"affect-lab/internal/observability"
	"affect-lab/internal/prediction"
	"affect-lab/internal/storage"
)

const (
	defaultLabelLimit = 20
	maxLabelLimit     = 500
)

// routes returns the HTTP handler for all endpoints.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/api/emotions", s.handleEmotions)
	mux.HandleFunc("/api/predict", s.handlePredict)
	mux.Handle("/ws/predictions", s.broadcaster)

	return mux
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status         string             `json:"status"`
	Uptime         string             `json:"uptime"`
	Timezone       string             `json:"timezone"`
	LastRefresh    time.Time          `json:"last_refresh,omitempty"`
	RefreshRuns    int                `json:"refresh_runs"`
	RefreshRunning bool               `json:"refresh_running"`
	AlignedRecords int                `json:"aligned_records"`
	LatestRecord   time.Time          `json:"latest_record,omitempty"`
	WSClients      int                `json:"ws_clients"`
	LastPrediction *domain.Prediction `json:"last_prediction,omitempty"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	clients := s.broadcaster.ClientCount()

	s.mu.Lock()
	resp := StatusResponse{
		Status:         "running",
		Uptime:         time.Since(s.started).Round(time.Second).String(),
		Timezone:       s.loc.String(),
		LastRefresh:    s.lastRefresh,
		RefreshRuns:    s.refreshRuns,
		RefreshRunning: s.refreshRunning,
		AlignedRecords: len(s.batch),
		LatestRecord:   s.latestRecord,
		WSClients:      clients,
		LastPrediction: s.lastPrediction,
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// labelRequest is the body of POST /api/emotions.
type labelRequest struct {
	Timestamp string   `json:"timestamp"` // local wall clock, default now
	Emotion   string   `json:"emotion"`
	Valence   *float64 `json:"valence"`
	Arousal   *float64 `json:"arousal"`
	Source    string   `json:"source"` // app | manual, default manual
}

// labelResponse is a stored label as returned by the API.
type labelResponse struct {
	Timestamp   string   `json:"timestamp"`
	TimestampMs int64    `json:"timestamp_ms"`
	Emotion     string   `json:"emotion"`
	Valence     *float64 `json:"valence"`
	Arousal     *float64 `json:"arousal"`
	Source      string   `json:"source"`
}

func (s *Server) toLabelResponse(l *domain.EmotionLabel) labelResponse {
	return labelResponse{
		Timestamp:   time.UnixMilli(l.TimestampMs).In(s.loc).Format(time.DateTime),
		TimestampMs: l.TimestampMs,
		Emotion:     l.Emotion,
		Valence:     l.Valence,
		Arousal:     l.Arousal,
		Source:      l.Source.String(),
	}
}

func (s *Server) handleEmotions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListEmotions(w, r)
	case http.MethodPost:
		s.handleCreateEmotion(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleCreateEmotion records a label. Manual labels snap to the even
// minute and take their valence/arousal from the emotion when not given.
func (s *Server) handleCreateEmotion(w http.ResponseWriter, r *http.Request) {
	var req labelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	label, err := s.labelFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.stores.Labels.Insert(r.Context(), label); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			writeError(w, http.StatusConflict, "label already recorded")
			return
		}
		s.logger.Printf("Failed to store label: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to store label")
		return
	}
	observability.RecordLabel(label.Source.String())

	writeJSON(w, http.StatusCreated, s.toLabelResponse(label))
}

func (s *Server) labelFromRequest(req labelRequest) (*domain.EmotionLabel, error) {
	source := domain.LabelSourceManual
	if req.Source != "" {
		source = domain.LabelSource(strings.ToLower(req.Source))
		if !source.IsValid() {
			return nil, errors.New("source must be app or manual")
		}
	}

	emotion := strings.TrimSpace(req.Emotion)
	if emotion == "" {
		return nil, errors.New("emotion is required")
	}

	ts := s.now().In(s.loc)
	if req.Timestamp != "" {
		var err error
		ts, err = labels.ParseLocal(req.Timestamp, s.loc)
		if err != nil {
			return nil, err
		}
	}
	if source == domain.LabelSourceManual {
		ts = labels.RoundDownEvenMinute(ts)
	} else {
		ts = ts.Truncate(time.Minute)
	}

	label := &domain.EmotionLabel{
		TimestampMs: ts.UnixMilli(),
		Valence:     req.Valence,
		Arousal:     req.Arousal,
		Emotion:     emotion,
		Source:      source,
		CreatedAt:   s.now().UnixMilli(),
	}
	if label.Valence == nil || label.Arousal == nil {
		v, a, _ := labels.ValenceArousalFor(emotion)
		if label.Valence == nil {
			label.Valence = domain.Float(v)
		}
		if label.Arousal == nil {
			label.Arousal = domain.Float(a)
		}
	}
	return label, nil
}

// handleListEmotions returns the newest labels, newest first.
func (s *Server) handleListEmotions(w http.ResponseWriter, r *http.Request) {
	limit := defaultLabelLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxLabelLimit)
	}

	recent, err := s.stores.Labels.GetRecent(r.Context(), limit)
	if err != nil {
		s.logger.Printf("Failed to list labels: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list labels")
		return
	}

	resp := make([]labelResponse, 0, len(recent))
	for _, l := range recent {
		resp = append(resp, s.toLabelResponse(l))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePredict predicts at ?timestamp= (RFC3339 or local), default now.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	target := s.now()
	if v := r.URL.Query().Get("timestamp"); v != "" {
		var err error
		target, err = lookup.ParseTimeIn(v, s.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	p, err := s.predictor.Predict(r.Context(), target)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, p)
	case errors.Is(err, prediction.ErrNotReady):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, lookup.ErrNotFound),
		errors.Is(err, lookup.ErrNoData),
		errors.Is(err, lookup.ErrInsufficientHistory):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Printf("Prediction failed: %v", err)
		writeError(w, http.StatusInternalServerError, "prediction failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
