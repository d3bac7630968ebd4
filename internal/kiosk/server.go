// Package kiosk exposes the booth to the browser front-end: a JSON API for
// the capture and presentation screens plus a websocket event feed.
package kiosk

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"era-photobooth/internal/booth"
	"era-photobooth/internal/compositor"
	"era-photobooth/internal/demographics"
	"era-photobooth/internal/session"
	"era-photobooth/internal/theme"
)

const maxUploadBytes = 25 << 20

// Booth is the orchestrator surface the kiosk drives; *booth.Booth.
type Booth interface {
	Themes() []theme.Theme
	Snapshot() session.State
	SelectTheme(id string) (session.State, error)
	Capture(ctx context.Context, image []byte, known *demographics.Result) (booth.Outcome, error)
	Restart() session.State
	Retouch(key uint64, png []byte) (*compositor.Artifact, error)
}

type Uploader interface {
	Upload(ctx context.Context, art *compositor.Artifact, era, prompt string) (string, error)
}

type Publisher interface {
	Publish(art *compositor.Artifact, era string) error
}

type Options struct {
	Booth Booth
	Hub   *Hub
	// Uploader and Channel are optional share targets.
	Uploader Uploader
	Channel  Publisher
	// OperatorSecret enables the operator routes when non-empty.
	OperatorSecret string
	// BaseContext bounds background captures; they outlive the request.
	BaseContext context.Context
	Logger      *slog.Logger
}

type Server struct {
	booth    Booth
	hub      *Hub
	uploader Uploader
	channel  Publisher
	secret   []byte
	baseCtx  context.Context
	logger   *slog.Logger

	captures sync.WaitGroup
}

type apiError struct {
	Error string `json:"error"`
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	baseCtx := opts.BaseContext
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Server{
		booth:    opts.Booth,
		hub:      opts.Hub,
		uploader: opts.Uploader,
		channel:  opts.Channel,
		secret:   []byte(opts.OperatorSecret),
		baseCtx:  baseCtx,
		logger:   logger,
	}
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/themes", s.handleThemes).Methods(http.MethodGet)
	api.HandleFunc("/session", s.handleSession).Methods(http.MethodGet)
	api.HandleFunc("/session/theme", s.handleSelectTheme).Methods(http.MethodPost)
	api.HandleFunc("/session/capture", s.handleCapture).Methods(http.MethodPost)
	api.HandleFunc("/session/artifact", s.handleArtifact).Methods(http.MethodGet)
	api.HandleFunc("/session/retouch", s.handleRetouch).Methods(http.MethodPost)
	api.HandleFunc("/session/share", s.handleShare).Methods(http.MethodPost)

	if len(s.secret) > 0 {
		op := api.PathPrefix("/operator").Subrouter()
		op.Use(func(next http.Handler) http.Handler { return requireOperator(s.secret, next) })
		op.HandleFunc("/restart", s.handleRestart).Methods(http.MethodPost)
	}

	if s.hub != nil {
		r.HandleFunc("/ws", s.hub.ServeWS)
	}

	return withLogging(r, s.logger)
}

// Wait blocks until background captures have finished.
func (s *Server) Wait() {
	s.captures.Wait()
}

func (s *Server) handleThemes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"themes": s.booth.Themes()})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newSessionView(s.booth.Snapshot()))
}

func (s *Server) handleSelectTheme(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ThemeID string `json:"theme_id"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid json body"})
		return
	}

	st, err := s.booth.SelectTheme(strings.TrimSpace(req.ThemeID))
	if err != nil {
		writeBoothError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(st))
}

// handleCapture accepts the guest photo. By default the attempt sequence runs
// in the background and progress arrives over /ws; wait=true blocks until the
// outcome is known.
func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid multipart form"})
		return
	}

	image, err := readFormFile(r, "image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}
	known, err := parseDemographics(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}

	if parseBool(r.FormValue("wait")) {
		out, err := s.booth.Capture(r.Context(), image, known)
		if err != nil {
			writeBoothError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newOutcomeView(out))
		return
	}

	cur := s.booth.Snapshot()
	switch {
	case cur.ThemeID == "":
		writeBoothError(w, booth.ErrNoTheme)
		return
	case cur.Phase == session.PhaseAttempting:
		writeBoothError(w, booth.ErrBusy)
		return
	}

	s.captures.Add(1)
	go func() {
		defer s.captures.Done()
		out, err := s.booth.Capture(s.baseCtx, image, known)
		if err != nil {
			s.logger.Warn("capture rejected", "session_key", cur.Key, "err", err)
			return
		}
		s.logger.Info("capture finished", "session_key", out.SessionKey, "status", out.Status, "attempts", out.Attempts)
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{"session_key": cur.Key})
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	st := s.booth.Snapshot()
	if st.Artifact == nil {
		writeBoothError(w, booth.ErrNoArtifact)
		return
	}
	w.Header().Set("content-type", "image/png")
	w.Header().Set("cache-control", "no-store")
	w.Header().Set("content-disposition", `inline; filename="result-`+st.Artifact.ID+`.png"`)
	_, _ = w.Write(st.Artifact.PNG)
}

func (s *Server) handleRetouch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid multipart form"})
		return
	}
	key, err := strconv.ParseUint(strings.TrimSpace(r.FormValue("session_key")), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid session_key"})
		return
	}
	data, err := readFormFile(r, "image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}

	art, err := s.booth.Retouch(key, data)
	switch {
	case errors.Is(err, booth.ErrStaleSession), errors.Is(err, booth.ErrNoArtifact):
		writeBoothError(w, err)
		return
	case err != nil:
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"artifact_id": art.ID})
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	st := s.booth.Snapshot()
	if st.Artifact == nil {
		writeBoothError(w, booth.ErrNoArtifact)
		return
	}
	if s.uploader == nil && s.channel == nil {
		writeJSON(w, http.StatusServiceUnavailable, apiError{Error: "sharing is not configured"})
		return
	}

	era := st.ThemeID
	for _, t := range s.booth.Themes() {
		if t.ID == st.ThemeID {
			era = t.Name
		}
	}

	resp := shareResponse{ArtifactID: st.Artifact.ID}
	if s.uploader != nil {
		link, err := s.uploader.Upload(r.Context(), st.Artifact, era, st.Prompt)
		if err != nil {
			s.logger.Error("share upload failed", "artifact", st.Artifact.ID, "err", err)
			writeJSON(w, http.StatusBadGateway, apiError{Error: "upload failed"})
			return
		}
		resp.URL = link
	}
	if s.channel != nil {
		if err := s.channel.Publish(st.Artifact, era); err != nil {
			s.logger.Warn("channel publish failed", "artifact", st.Artifact.ID, "err", err)
		} else {
			resp.Channel = true
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newSessionView(s.booth.Restart()))
}

type shareResponse struct {
	ArtifactID string `json:"artifact_id"`
	URL        string `json:"url,omitempty"`
	Channel    bool   `json:"channel"`
}

type sessionView struct {
	SessionKey   uint64               `json:"session_key"`
	Phase        session.Phase        `json:"phase"`
	ThemeID      string               `json:"theme_id,omitempty"`
	Attempt      int                  `json:"attempt"`
	Prompt       string               `json:"prompt,omitempty"`
	Demographics *demographics.Result `json:"demographics,omitempty"`
	ArtifactID   string               `json:"artifact_id,omitempty"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

func newSessionView(st session.State) sessionView {
	v := sessionView{
		SessionKey:   st.Key,
		Phase:        st.Phase,
		ThemeID:      st.ThemeID,
		Attempt:      st.Attempt,
		Prompt:       st.Prompt,
		Demographics: st.Demographics,
		UpdatedAt:    st.UpdatedAt,
	}
	if st.Artifact != nil {
		v.ArtifactID = st.Artifact.ID
	}
	return v
}

type outcomeView struct {
	Status       booth.OutcomeStatus  `json:"status"`
	SessionKey   uint64               `json:"session_key"`
	Attempts     int                  `json:"attempts"`
	ArtifactID   string               `json:"artifact_id,omitempty"`
	Prompt       string               `json:"prompt,omitempty"`
	Demographics *demographics.Result `json:"demographics,omitempty"`
	Error        string               `json:"error,omitempty"`
}

func newOutcomeView(out booth.Outcome) outcomeView {
	v := outcomeView{
		Status:       out.Status,
		SessionKey:   out.SessionKey,
		Attempts:     out.Attempts,
		Prompt:       out.Prompt,
		Demographics: out.Demographics,
	}
	if out.Artifact != nil {
		v.ArtifactID = out.Artifact.ID
	}
	if out.Err != nil {
		v.Error = out.Err.Error()
	}
	return v
}

func readFormFile(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, errors.New("missing " + field)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.New("failed to read " + field)
	}
	if len(data) == 0 {
		return nil, errors.New(field + " is empty")
	}
	return data, nil
}

// parseDemographics reads the optional client-side head count. It returns nil
// when no count field is present.
func parseDemographics(r *http.Request) (*demographics.Result, error) {
	fields := []string{"male", "female", "child", "total"}
	values := make(map[string]int, len(fields))
	for _, f := range fields {
		raw := strings.TrimSpace(r.FormValue(f))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, errors.New("invalid " + f + " count")
		}
		values[f] = n
	}
	if len(values) == 0 {
		return nil, nil
	}

	d := demographics.Result{Male: values["male"], Female: values["female"], Child: values["child"]}
	if total, ok := values["total"]; ok {
		d.Total = total
	} else {
		d.Total = d.Male + d.Female + d.Child
	}
	return &d, nil
}

func writeBoothError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, booth.ErrUnknownTheme), errors.Is(err, booth.ErrNoArtifact):
		status = http.StatusNotFound
	case errors.Is(err, booth.ErrBusy), errors.Is(err, booth.ErrNoTheme), errors.Is(err, booth.ErrStaleSession):
		status = http.StatusConflict
	case errors.Is(err, booth.ErrEmptyCapture):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, apiError{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseBool(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func withLogging(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("http", "method", r.Method, "path", r.URL.Path, "dur_ms", time.Since(start).Milliseconds())
	})
}
