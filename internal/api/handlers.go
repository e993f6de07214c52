package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/yangwenmai/cloudpoem/internal/engine"
	"github.com/yangwenmai/cloudpoem/internal/model"
)

// ---------------------------------------------------------------------------
// POST /api/generate-poetry
// ---------------------------------------------------------------------------

type poetryRequest struct {
	Mood string `json:"mood" validate:"required,max=500"`
}

type poetryResponse struct {
	Success bool     `json:"success"`
	Poetry  string   `json:"poetry"`
	Words   []string `json:"words"`
	Mood    string   `json:"mood"`
}

func (s *Server) handleGeneratePoetry(w http.ResponseWriter, r *http.Request) {
	var req poetryRequest
	if !s.decode(w, r, &req) {
		return
	}
	req.Mood = strings.TrimSpace(req.Mood)
	if err := s.validate.Struct(req); err != nil {
		writeStructError(w, err)
		return
	}

	out, err := s.studio.GeneratePoetry(r.Context(), req.Mood)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, poetryResponse{
		Success: true,
		Poetry:  out.Poetry,
		Words:   out.Words,
		Mood:    out.Mood,
	})
}

// ---------------------------------------------------------------------------
// POST /api/generate-image
// ---------------------------------------------------------------------------

type imageRequest struct {
	Prompt string `json:"prompt" validate:"required_without=Poetry,excluded_with=Poetry,max=10000"`
	Poetry string `json:"poetry" validate:"max=5000"`
}

type imageResponse struct {
	Success           bool   `json:"success"`
	ImageURL          string `json:"imageUrl"`
	Prompt            string `json:"prompt"`
	Provider          string `json:"provider"`
	TranslationSource string `json:"translationSource,omitempty"`
}

func (s *Server) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if !s.decode(w, r, &req) {
		return
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	req.Poetry = strings.TrimSpace(req.Poetry)
	if err := s.validate.Struct(req); err != nil {
		writeStructError(w, err)
		return
	}

	out, err := s.studio.GenerateImage(r.Context(), engine.ImageRequest{Prompt: req.Prompt, Poetry: req.Poetry})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, imageResponse{
		Success:           true,
		ImageURL:          out.Image.Locator(),
		Prompt:            out.Prompt,
		Provider:          out.Provider,
		TranslationSource: out.TranslationSource,
	})
}

// ---------------------------------------------------------------------------
// POST /api/speech-to-text
// ---------------------------------------------------------------------------

func (s *Server) handleSpeechToText(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAudioBody); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
				Error: "音频文件过大", Code: codeValidation,
			})
			return
		}
		writeValidation(w, "audio", "expected multipart/form-data")
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeValidation(w, "audio", "missing multipart field audio")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		writeValidation(w, "audio", "read audio")
		return
	}

	text, err := s.studio.Transcribe(r.Context(), header.Filename, audio)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "text": text})
}

// ---------------------------------------------------------------------------
// GET /api/generations
// ---------------------------------------------------------------------------

func (s *Server) handleListGenerations(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "generation journal disabled", Code: codeNotFound})
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeValidation(w, "limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	gens, err := s.journal.ListRecent(r.Context(), limit)
	if err != nil {
		s.logger.Error("list generations failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "读取生成记录失败", Code: "UnknownError"})
		return
	}
	if gens == nil {
		gens = []model.Generation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"generations": gens})
}

// ---------------------------------------------------------------------------
// GET /health
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.studio.Status()
	if st.ImageProviders == nil {
		st.ImageProviders = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"llm":             st.LLM,
		"transcription":   st.Transcription,
		"image_providers": st.ImageProviders,
	})
}

// decode reads a JSON body, writing a 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "请求体过大", Code: codeValidation})
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "请求格式无效", Details: "invalid JSON body", Code: codeValidation})
		return false
	}
	return true
}
