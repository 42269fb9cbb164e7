package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/VanshJP/SpeakUp-App-sub001/internal/app"
	"github.com/VanshJP/SpeakUp-App-sub001/internal/drill"
	"github.com/VanshJP/SpeakUp-App-sub001/internal/ledger"
	"github.com/VanshJP/SpeakUp-App-sub001/internal/live"
	"github.com/VanshJP/SpeakUp-App-sub001/internal/score"
	"github.com/VanshJP/SpeakUp-App-sub001/pkg/store"
)

// maxAudioChunk bounds one uploaded PCM chunk.
const maxAudioChunk = 1 << 20

// errorBody is the uniform JSON error response.
type errorBody struct {
	Error string `json:"error"`
}

// startSessionRequest is the body of POST /v1/sessions.
type startSessionRequest struct {
	PromptID string `json:"prompt_id"`

	// DrillMode turns the session into a drill; empty starts free-form.
	DrillMode string `json:"drill_mode"`

	// MarkersSeconds are the prompted pause timestamps for pause practice.
	MarkersSeconds []float64 `json:"markers_seconds"`
}

// sessionInfoResponse mirrors app.SessionInfo on the wire.
type sessionInfoResponse struct {
	SessionID string    `json:"session_id"`
	StartedAt time.Time `json:"started_at"`
	PromptID  string    `json:"prompt_id,omitempty"`
	DrillMode string    `json:"drill_mode,omitempty"`
}

// scoreResponse mirrors score.SpeechScore on the wire.
type scoreResponse struct {
	Overall      int `json:"overall"`
	Clarity      int `json:"clarity"`
	Pace         int `json:"pace"`
	FillerUsage  int `json:"filler_usage"`
	PauseQuality int `json:"pause_quality"`

	WordsPerMinute   float64  `json:"words_per_minute"`
	TotalFillerCount int      `json:"total_filler_count"`
	TotalWords       int      `json:"total_words"`
	PauseCount       int      `json:"pause_count"`
	Flags            []string `json:"flags,omitempty"`
}

// drillResultResponse mirrors drill.Result on the wire.
type drillResultResponse struct {
	Mode    string `json:"mode"`
	Score   int    `json:"score"`
	Passed  bool   `json:"passed"`
	Details string `json:"details"`
}

// outcomeResponse is the body of a successful stop.
type outcomeResponse struct {
	RecordingID string               `json:"recording_id"`
	Score       scoreResponse        `json:"score"`
	Drill       *drillResultResponse `json:"drill,omitempty"`
}

// liveResponse is the body of GET /v1/sessions/current/live.
type liveResponse struct {
	ElapsedSeconds    float64 `json:"elapsed_seconds"`
	WordsPerMinute    float64 `json:"words_per_minute"`
	FillerCount       int     `json:"filler_count"`
	TotalWords        int     `json:"total_words"`
	IsSpeaking        bool    `json:"is_speaking"`
	LastDecibels      float64 `json:"last_decibels"`
	PauseCount        int     `json:"pause_count"`
	PauseTotalSeconds float64 `json:"pause_total_seconds"`

	Drill *app.DrillStatus `json:"drill,omitempty"`
}

// createGoalRequest is the body of POST /v1/goals.
type createGoalRequest struct {
	Type     string     `json:"type"`
	Target   float64    `json:"target"`
	Deadline *time.Time `json:"deadline,omitempty"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return
	}

	mode := drill.Mode(req.DrillMode)
	if req.DrillMode != "" && !mode.IsValid() {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "unknown drill mode " + strconv.Quote(req.DrillMode)})
		return
	}
	markers := make([]time.Duration, 0, len(req.MarkersSeconds))
	for _, m := range req.MarkersSeconds {
		markers = append(markers, time.Duration(m*float64(time.Second)))
	}

	info, err := s.app.Sessions().Start(r.Context(), app.StartOptions{
		PromptID:  req.PromptID,
		DrillMode: mode,
		Markers:   markers,
	})
	switch {
	case errors.Is(err, app.ErrSessionActive):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
		return
	case err != nil:
		writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, sessionInfoResponse{
		SessionID: info.SessionID,
		StartedAt: info.StartedAt,
		PromptID:  info.PromptID,
		DrillMode: string(info.DrillMode),
	})
}

func (s *Server) handleStopSession(w http.ResponseWriter, r *http.Request) {
	out, err := s.app.Sessions().Stop(r.Context())
	if errors.Is(err, app.ErrNoSession) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
		return
	}
	body := outcomeResponse{
		RecordingID: out.Recording.ID,
		Score:       toScoreResponse(out.Score),
		Drill:       toDrillResponse(out.Drill),
	}
	if err != nil {
		// The score was computed but could not be persisted. Hand the
		// outcome back anyway so the client can retry or display it.
		writeJSON(w, http.StatusInternalServerError, struct {
			errorBody
			Outcome outcomeResponse `json:"outcome"`
		}{errorBody{Error: err.Error()}, body})
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleCancelSession(w http.ResponseWriter, r *http.Request) {
	err := s.app.Sessions().Cancel(r.Context())
	if errors.Is(err, app.ErrNoSession) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSessionAudio(w http.ResponseWriter, r *http.Request) {
	chunk, err := io.ReadAll(io.LimitReader(r.Body, maxAudioChunk))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "read audio chunk: " + err.Error()})
		return
	}
	if err := s.app.Sessions().SendAudio(chunk); err != nil {
		if errors.Is(err, app.ErrNoSession) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.app.Sessions().Live()
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no active session"})
		return
	}
	body := toLiveResponse(snap)
	if ds, ok := s.app.Sessions().Drill(); ok {
		body.Drill = &ds
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	summary, err := s.app.Ledger().Progress(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleRecordings(w http.ResponseWriter, r *http.Request) {
	f, err := recordingFilterFromQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	recs, err := s.app.Store().ListRecordings(r.Context(), f)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req createGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return
	}
	g, err := s.app.Ledger().CreateGoal(r.Context(), ledger.GoalTemplate{
		Type:     store.GoalType(req.Type),
		Target:   req.Target,
		Deadline: req.Deadline,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ledger.ErrInvalidGoal) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	goals, err := s.app.Store().ListGoals(r.Context(), activeOnly)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	achievements, err := s.app.Store().ListAchievements(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, achievements)
}

func (s *Server) handleUnlocks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Ledger().PendingUnlocks())
}

func (s *Server) handleAcknowledgeUnlocks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Ledger().AcknowledgeUnlocks())
}

// ── Helpers ──────────────────────────────────────────────────────────────────

// recordingFilterFromQuery parses the ListRecordings query parameters.
func recordingFilterFromQuery(r *http.Request) (store.RecordingFilter, error) {
	q := r.URL.Query()
	f := store.RecordingFilter{
		DrillsOnly:  q.Get("drills_only") == "true",
		NewestFirst: q.Get("newest_first") == "true",
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, errors.New("limit must be a non-negative integer")
		}
		f.Limit = n
	}
	if v := q.Get("min_overall"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 100 {
			return f, errors.New("min_overall must be an integer in [0,100]")
		}
		f.MinOverall = n
	}
	if v := q.Get("after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, errors.New("after must be an RFC3339 timestamp")
		}
		f.After = t
	}
	if v := q.Get("before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, errors.New("before must be an RFC3339 timestamp")
		}
		f.Before = t
	}
	return f, nil
}

func toScoreResponse(sc score.SpeechScore) scoreResponse {
	flags := make([]string, 0, len(sc.Flags))
	for _, f := range sc.Flags {
		flags = append(flags, string(f))
	}
	return scoreResponse{
		Overall:          sc.Overall,
		Clarity:          sc.Clarity,
		Pace:             sc.Pace,
		FillerUsage:      sc.FillerUsage,
		PauseQuality:     sc.PauseQuality,
		WordsPerMinute:   sc.WordsPerMinute,
		TotalFillerCount: sc.TotalFillerCount,
		TotalWords:       sc.TotalWords,
		PauseCount:       sc.PauseCount,
		Flags:            flags,
	}
}

func toDrillResponse(res *drill.Result) *drillResultResponse {
	if res == nil {
		return nil
	}
	return &drillResultResponse{
		Mode:    string(res.Mode),
		Score:   res.Score,
		Passed:  res.Passed,
		Details: res.Details,
	}
}

func toLiveResponse(snap *live.Snapshot) liveResponse {
	return liveResponse{
		ElapsedSeconds:    snap.Elapsed.Seconds(),
		WordsPerMinute:    snap.WordsPerMinute,
		FillerCount:       snap.FillerCount,
		TotalWords:        snap.TotalWords,
		IsSpeaking:        snap.IsSpeaking,
		LastDecibels:      snap.LastDecibels,
		PauseCount:        snap.PauseCount,
		PauseTotalSeconds: snap.PauseTotal.Seconds(),
	}
}

// writeJSON encodes v with the given status code. On encoding failure the
// status line has already been sent, so the error is only logged by the
// middleware's status recorder.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
