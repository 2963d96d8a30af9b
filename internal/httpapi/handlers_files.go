package httpapi

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/MrEthical07/gatekeeper"
	"github.com/MrEthical07/gatekeeper/filestore"
	"github.com/MrEthical07/gatekeeper/middleware"
)

// AccountFilesDir is the file-root directory holding one subdirectory per
// account id. Callers without the admin role may only grant links inside
// their own subdirectory.
const AccountFilesDir = "accounts"

type grantRequest struct {
	FilePath   string `json:"file_path"`
	FileType   string `json:"file_type"`
	TTLSeconds int64  `json:"ttl_seconds"`
}

type grantResponse struct {
	*gatekeeper.DownloadLink
	URL string `json:"url"`
}

func (h *Handler) grantDownload(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := decodeBody(r, &req); err != nil || req.TTLSeconds < 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}

	filePath, err := h.grantablePath(r, req.FilePath)
	if err != nil {
		h.writeMappedError(r.Context(), w, "grant_download", err)
		return
	}

	link, err := h.engine.GrantDownload(r.Context(), filePath, req.FileType, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		h.writeMappedError(r.Context(), w, "grant_download", err)
		return
	}
	writeSuccess(w, http.StatusCreated, grantResponse{
		DownloadLink: link,
		URL:          "/files/" + link.Token,
	})
}

// grantablePath cleans requested and checks the caller may hand it out.
func (h *Handler) grantablePath(r *http.Request, requested string) (string, error) {
	clean, err := filestore.CleanPath(requested)
	if err != nil {
		return "", fmt.Errorf("%w: %v", gatekeeper.ErrInvalidInput, err)
	}
	who, ok := middleware.AuthResultFromContext(r.Context())
	if !ok || who.AccountID == "" {
		return "", gatekeeper.ErrTokenMissing
	}
	if h.opts.AdminRole != "" && who.Role == h.opts.AdminRole {
		return clean, nil
	}
	if !strings.HasPrefix(clean, path.Join(AccountFilesDir, who.AccountID)+"/") {
		return "", gatekeeper.ErrForbidden
	}
	return clean, nil
}

func (h *Handler) validateDownload(w http.ResponseWriter, r *http.Request) {
	target, err := h.engine.ValidateDownload(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.writeMappedError(r.Context(), w, "validate_download", err)
		return
	}
	writeSuccess(w, http.StatusOK, target)
}

// download streams the file behind a signed link. ?name= picks the presented
// filename only; the file itself is always located from the link.
func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	dl, err := h.engine.OpenDownload(r.Context(), chi.URLParam(r, "token"), r.URL.Query().Get("name"))
	if err != nil {
		h.writeMappedError(r.Context(), w, "download", err)
		return
	}
	defer dl.Body.Close()

	contentType := dl.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": dl.Filename}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "private, no-store")
	if dl.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(dl.Size, 10))
	}
	if !dl.ModTime.IsZero() {
		w.Header().Set("Last-Modified", dl.ModTime.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, dl.Body); err != nil {
		h.logger.Warn("download stream interrupted",
			zap.String("request_id", requestIDFromContext(r.Context())),
			zap.Error(err),
		)
	}
}
