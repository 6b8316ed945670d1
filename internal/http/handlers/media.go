package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type presignRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
}

// PresignMedia hands out an upload URL for a bundle logo image.
func (h *Handler) PresignMedia(w http.ResponseWriter, r *http.Request) {
	var req presignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if req.FileName == "" || req.ContentType == "" || req.SizeBytes == 0 {
		writeError(w, http.StatusBadRequest, "missing fields")
		return
	}
	if req.SizeBytes > 2*1024*1024 {
		writeError(w, http.StatusBadRequest, "file too large")
		return
	}

	allowed := map[string]struct{}{
		"image/jpeg": {},
		"image/png":  {},
		"image/webp": {},
	}
	if _, ok := allowed[strings.ToLower(req.ContentType)]; !ok {
		writeError(w, http.StatusBadRequest, "invalid content type")
		return
	}

	if h.s3 == nil {
		writeError(w, http.StatusInternalServerError, "media not configured")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	uploadURL, fileURL, err := h.s3.PresignPutObject(ctx, req.FileName, req.ContentType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "presign failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"uploadUrl": uploadURL,
		"fileUrl":   fileURL,
	})
}

// BundleMedia streams a bundle logo from storage.
func (h *Handler) BundleMedia(w http.ResponseWriter, r *http.Request) {
	if h.s3 == nil {
		writeError(w, http.StatusNotFound, "media not configured")
		return
	}
	key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if key == "" {
		writeError(w, http.StatusBadRequest, "missing key")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()
	obj, err := h.s3.GetObject(ctx, "bundles/"+key)
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	defer obj.Body.Close()

	if obj.ContentType != nil {
		w.Header().Set("Content-Type", *obj.ContentType)
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, obj.Body)
}
