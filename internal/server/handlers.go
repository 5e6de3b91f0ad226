package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shouni/gemini-image-editor/pkg/adapters"
	"github.com/shouni/gemini-image-editor/pkg/domain"
)

// StatusResponse は /api/status の応答です。
type StatusResponse struct {
	Remaining int        `json:"remaining"`
	Limit     int        `json:"limit"`
	ResetAt   *time.Time `json:"reset_at,omitempty"`
	Countdown string     `json:"countdown,omitempty"`
	InFlight  bool       `json:"in_flight"`
	Images    int        `json:"images"`
}

// ImageInfo はステージ中の画像の概要です。
type ImageInfo struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Size     int    `json:"size"`
}

// GenerateRequest は /api/generate のリクエストです。
type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

// GenerateResponse は /api/generate の応答です。
type GenerateResponse struct {
	Image    string `json:"image"`
	MimeType string `json:"mime_type"`
}

// ErrorResponse はエラー応答です。
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.ctrl.Status(r.Context())
	resp := StatusResponse{
		Remaining: st.Remaining,
		Limit:     st.Limit,
		Countdown: st.Countdown,
		InFlight:  st.InFlight,
		Images:    st.Images,
	}
	if !st.ResetAt.IsZero() {
		resetAt := st.ResetAt.UTC()
		resp.ResetAt = &resetAt
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.imageInfos())
}

func (s *Server) handleAddImages(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(adapters.MaxImageBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("multipart フォームを解析できません: %v", err))
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "files フィールドに画像がありません")
		return
	}

	imgs := make([]domain.UploadedImage, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("%s を開けません", fh.Filename))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", fmt.Sprintf("%s を読み込めません", fh.Filename))
			return
		}
		img, err := s.loader.FromBytes(r.Context(), fh.Filename, data)
		if err != nil {
			s.respondErr(w, r, err)
			return
		}
		imgs = append(imgs, img)
	}

	if err := s.ctrl.AddImages(imgs...); err != nil {
		s.respondErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.imageInfos())
}

func (s *Server) handleClearImages(w http.ResponseWriter, r *http.Request) {
	s.ctrl.ClearImages()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveImage(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "index は整数で指定してください")
		return
	}
	if err := s.ctrl.RemoveImage(index); err != nil {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.imageInfos())
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "JSON を解析できません")
		return
	}

	start := time.Now()
	result, err := s.ctrl.Generate(r.Context(), req.Prompt)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		var vErr *domain.ValidationError
		if errors.As(err, &vErr) {
			s.metrics.observe(resultRejected, elapsed)
		} else {
			s.metrics.observe(resultError, elapsed)
		}
		s.respondErr(w, r, err)
		return
	}
	s.metrics.observe(resultSuccess, elapsed)

	mimeType := result.MimeType
	if mimeType == "" {
		mimeType = domain.DefaultMimeType
	}
	writeJSON(w, http.StatusOK, GenerateResponse{
		Image:    result.DataURI(),
		MimeType: mimeType,
	})
}

func (s *Server) imageInfos() []ImageInfo {
	imgs := s.ctrl.Images()
	infos := make([]ImageInfo, len(imgs))
	for i, img := range imgs {
		infos[i] = ImageInfo{Index: i, Name: img.Name, MimeType: img.MimeType, Size: len(img.Data)}
	}
	return infos
}

// respondErr はエラーの種類に応じてステータスコードを決めて応答します。
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		status := http.StatusBadRequest
		switch vErr.Code {
		case domain.CodeLimitReached:
			status = http.StatusTooManyRequests
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(vErr.Wait.Seconds()))))
		case domain.CodeBusy:
			status = http.StatusConflict
		}
		writeError(w, status, string(vErr.Code), vErr.Message)
		return
	}

	var gErr *domain.GenerationError
	if errors.As(err, &gErr) {
		writeError(w, http.StatusBadGateway, "generation_failed", gErr.Error())
		return
	}

	slog.ErrorContext(r.Context(), "リクエストの処理に失敗しました", "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "internal", "内部エラーが発生しました")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
