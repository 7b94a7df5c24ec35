package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/smart-resume/internal/extract"
	"github.com/spigell/smart-resume/internal/logger"
	"github.com/spigell/smart-resume/internal/service"
)

const (
	msgNoFile          = "No file uploaded"
	msgMissingDocument = "Upload CV and update JD first."
	msgEmptyMessage    = "Empty message"
)

type historyItem struct {
	ID           string `json:"_id"`
	MatchScore   *int   `json:"match_score"`
	JDPreview    string `json:"jd_preview"`
	Report       string `json:"report"`
	AnalysisTime string `json:"analysis_time"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := webFS.ReadFile("web/index.html")
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "message": "smart-resume is running"})
}

func (s *Server) handleResumeUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		writeError(w, http.StatusBadRequest, msgNoFile)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	text, err := extract.FromUpload(header.Filename, data)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	stats, err := s.assistant.ReplaceResume(r.Context(), text)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "stats": stats})
}

func (s *Server) handleJobDescriptionUpdate(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
	}
	// a body that is not JSON counts as empty text
	_ = json.NewDecoder(r.Body).Decode(&payload)

	stats, err := s.assistant.ReplaceJobDescription(r.Context(), strings.TrimSpace(payload.Text))
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "stats": stats})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	entry, err := s.assistant.Analyze(r.Context())
	if errors.Is(err, service.ErrMissingDocuments) {
		writeError(w, http.StatusBadRequest, msgMissingDocument)
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "report": entry.Report})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	logs, err := s.assistant.History(r.Context(), historyLimit)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	items := make([]historyItem, 0, len(logs))
	for _, l := range logs {
		item := historyItem{
			ID:         l.ID,
			MatchScore: l.MatchScore,
			JDPreview:  l.JDPreview,
			Report:     l.Report,
		}
		if !l.AnalysisTime.IsZero() {
			item.AnalysisTime = l.AnalysisTime.UTC().Format(time.RFC3339)
		}
		items = append(items, item)
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "items": items})
}

func (s *Server) handleHistoryClear(w http.ResponseWriter, r *http.Request) {
	if _, err := s.assistant.ClearHistory(r.Context()); err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(r.Body).Decode(&payload)

	reply, err := s.assistant.Chat(r.Context(), payload.Message)
	if errors.Is(err, service.ErrEmptyMessage) {
		writeError(w, http.StatusBadRequest, msgEmptyMessage)
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "reply": reply})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed",
		zap.String("path", r.URL.Path),
		zap.String(logger.FieldRequestID, requestIDFrom(r.Context())),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
