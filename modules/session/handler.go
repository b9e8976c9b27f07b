package session

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"face-fusion-server/modules/common/gemini"
	"face-fusion-server/modules/common/model"
	"face-fusion-server/modules/common/utils"
	"face-fusion-server/modules/fusion"
)

// Handler - 세션 REST + WebSocket 엔드포인트
type Handler struct {
	manager        *Manager
	hub            *Hub
	maxUploadBytes int64
	log            zerolog.Logger
}

// NewHandler - 핸들러 생성
func NewHandler(manager *Manager, hub *Hub, maxUploadBytes int64, log zerolog.Logger) *Handler {
	return &Handler{
		manager:        manager,
		hub:            hub,
		maxUploadBytes: maxUploadBytes,
		log:            log.With().Str("component", "session_handler").Logger(),
	}
}

// RegisterRoutes - 라우터에 세션 엔드포인트 등록
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/sessions", h.CreateSession).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/sessions/{sessionId}", h.GetSession).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/sessions/{sessionId}", h.DeleteSession).Methods("DELETE", "OPTIONS")
	r.HandleFunc("/api/sessions/{sessionId}/language", h.SetLanguage).Methods("PUT", "OPTIONS")
	r.HandleFunc("/api/sessions/{sessionId}/assets/{role}", h.UploadAsset).Methods("PUT", "POST", "OPTIONS")
	r.HandleFunc("/api/sessions/{sessionId}/assets/{role}", h.RemoveAsset).Methods("DELETE", "OPTIONS")
	r.HandleFunc("/api/sessions/{sessionId}/analyze", h.Analyze).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/sessions/{sessionId}/prompt", h.EditPrompt).Methods("PUT", "OPTIONS")
	r.HandleFunc("/api/sessions/{sessionId}/generate", h.Generate).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/sessions/{sessionId}/download", h.Download).Methods("GET", "OPTIONS")
	r.HandleFunc("/ws", h.WebSocket)
	h.log.Info().Msg("✅ Session routes registered: /api/sessions, /ws")
}

// writeJSON - 상태 코드 + JSON 본문
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// errorResponse - 에러를 HTTP 상태와 분류로 변환
func errorResponse(err error) (int, map[string]string) {
	body := map[string]string{"error": err.Error()}

	var (
		ingestion  *utils.IngestionFailedError
		analysis   *fusion.AnalysisFailedError
		generation *fusion.GenerationFailedError
		blocked    *fusion.GenerationBlockedError
		refusal    *fusion.RefusalTextError
		maxBytes   *http.MaxBytesError
	)

	switch {
	case errors.Is(err, ErrSessionNotFound):
		body["kind"] = "session_not_found"
		return http.StatusNotFound, body
	case errors.Is(err, ErrNoImage):
		body["kind"] = "no_image"
		return http.StatusNotFound, body
	case errors.Is(err, model.ErrUnknownRole):
		body["kind"] = "unknown_role"
		return http.StatusBadRequest, body
	case errors.Is(err, ErrBusy):
		body["kind"] = "busy"
		return http.StatusConflict, body
	case errors.Is(err, ErrRequirementsNotMet):
		body["kind"] = "requirements_not_met"
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &maxBytes):
		body["kind"] = "too_large"
		return http.StatusRequestEntityTooLarge, body
	case errors.As(err, &ingestion):
		body["kind"] = "ingestion_failed"
		return http.StatusBadRequest, body
	case errors.As(err, &blocked):
		body["kind"] = "generation_blocked"
		body["reason"] = string(blocked.Kind)
		body["finishReason"] = blocked.FinishReason
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &refusal):
		body["kind"] = "generation_refusal_text"
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, fusion.ErrGenerationEmpty):
		body["kind"] = "generation_empty"
		return http.StatusUnprocessableEntity, body
	case errors.As(err, &analysis), errors.As(err, &generation):
		body["kind"] = "upstream_failed"
		if errors.As(err, &analysis) {
			body["kind"] = "analysis_failed"
		}
		if gemini.IsRateLimited(err) {
			return http.StatusTooManyRequests, body
		}
		return http.StatusBadGateway, body
	}
	body["kind"] = "internal"
	return http.StatusInternalServerError, body
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Int("status", status).Msg("❌ Request failed")
	}
	writeJSON(w, status, body)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg, "kind": "bad_request"})
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	s, err := h.manager.Get(mux.Vars(r)["sessionId"])
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	return s, true
}

// CreateSession - POST /api/sessions {language?}
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Language string `json:"language"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			badRequest(w, "Invalid request format")
			return
		}
	}

	var lang model.Language
	if req.Language != "" {
		parsed, err := model.ParseLanguage(req.Language)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		lang = parsed
	}

	s := h.manager.Create(lang)
	writeJSON(w, http.StatusCreated, s.Snapshot())
}

// GetSession - GET /api/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// DeleteSession - DELETE /api/sessions/{id}
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Delete(mux.Vars(r)["sessionId"]); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// SetLanguage - PUT /api/sessions/{id}/language {language}
func (h *Handler) SetLanguage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Language string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid request format")
		return
	}
	lang, err := model.ParseLanguage(req.Language)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.SetLanguage(lang); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// UploadAsset - PUT /api/sessions/{id}/assets/{role}
// multipart "file" 필드 또는 JSON {dataUrl}
func (h *Handler) UploadAsset(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	role, err := model.ParseAssetRole(mux.Vars(r)["role"])
	if err != nil {
		h.writeError(w, err)
		return
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+(1<<20))
		if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
			h.writeError(w, uploadError(err))
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			badRequest(w, "Missing file field")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
		if err != nil {
			h.writeError(w, &utils.IngestionFailedError{Reason: "failed to read file", Err: err})
			return
		}
		if int64(len(data)) > h.maxUploadBytes {
			h.writeError(w, &http.MaxBytesError{Limit: h.maxUploadBytes})
			return
		}
		if _, err := s.UploadAsset(role, data, header.Header.Get("Content-Type")); err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.Snapshot())
		return
	}

	// base64 는 원본보다 약 4/3 크다
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes*4/3+4096)
	var req struct {
		DataURL string `json:"dataUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, uploadError(err))
		return
	}
	if req.DataURL == "" {
		badRequest(w, "Missing required field: dataUrl")
		return
	}
	if _, err := s.UploadDataURL(role, req.DataURL); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// uploadError - 크기 초과는 그대로, 나머지는 ingestion 실패
func uploadError(err error) error {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return err
	}
	return &utils.IngestionFailedError{Reason: "failed to read file", Err: err}
}

// RemoveAsset - DELETE /api/sessions/{id}/assets/{role}
func (h *Handler) RemoveAsset(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	role, err := model.ParseAssetRole(mux.Vars(r)["role"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := s.RemoveAsset(role); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// Analyze - POST /api/sessions/{id}/analyze
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	prompt, err := s.Analyze(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"prompt": prompt})
}

// EditPrompt - PUT /api/sessions/{id}/prompt {prompt}
func (h *Handler) EditPrompt(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Prompt *string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Prompt == nil {
		badRequest(w, "Missing required field: prompt")
		return
	}
	if err := s.EditPrompt(*req.Prompt); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// Generate - POST /api/sessions/{id}/generate {aspectRatio?}
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req struct {
		AspectRatio string `json:"aspectRatio"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			badRequest(w, "Invalid request format")
			return
		}
	}
	// 비어 있으면 세션 기본값, "auto" 는 참조 이미지에서 계산
	var ratio model.AspectRatio
	if strings.TrimSpace(req.AspectRatio) != "" {
		parsed, err := model.ParseAspectRatio(req.AspectRatio)
		if err != nil {
			badRequest(w, err.Error())
			return
		}
		ratio = parsed
	}

	img, err := s.Generate(r.Context(), ratio)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"mimeType":    img.MIMEType,
		"aspectRatio": string(img.AspectRatio),
		"dataUrl":     utils.EncodeDataURL(img.MIMEType, img.Data),
	})
}

// Download - GET /api/sessions/{id}/download
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	d, err := s.Download()
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", d.MIMEType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+d.FileName+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(d.Data)
}

// WebSocket - GET /ws?session={id}
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	if id == "" {
		badRequest(w, "Missing session parameter")
		return
	}
	s, err := h.manager.Get(id)
	switch {
	case err == nil:
		snap := s.Snapshot()
		h.hub.Serve(w, r, id, &snap)
	case errors.Is(err, ErrSessionNotFound) && h.hub.Relayed():
		// 다른 인스턴스의 세션 - relay 로 들어오는 스냅샷만 전달
		h.log.Debug().Str("session", id).Msg("Subscribing to remote session")
		h.hub.Serve(w, r, id, nil)
	default:
		h.writeError(w, err)
	}
}
