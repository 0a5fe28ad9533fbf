package handlers

import (
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/shkkonda/eml-viewer/internal/parser"
)

// sanitizeFilename removes dangerous characters from attachment filenames
func sanitizeFilename(filename string) string {
	// Remove path separators
	filename = filepath.Base(filename)

	// Remove any control characters and quotes
	cleaned := strings.Map(func(r rune) rune {
		if r < 32 || r == 127 || r == '"' || r == '\'' {
			return -1 // Remove character
		}
		return r
	}, filename)

	// Limit length
	if len(cleaned) > 255 {
		cleaned = cleaned[:255]
	}

	// Fallback if empty
	if cleaned == "" {
		cleaned = "download.bin"
	}

	return cleaned
}

// DownloadAttachment streams one attachment. The message is re-fetched
// from the blob store and re-parsed; nothing is cached between requests.
// Query parameters: key (blob key) and idx (attachment position).
func (h *Handlers) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" || strings.ToLower(filepath.Ext(key)) != ".eml" {
		http.Error(w, "Invalid message key", http.StatusBadRequest)
		return
	}

	idx, err := strconv.Atoi(r.URL.Query().Get("idx"))
	if err != nil || idx < 0 {
		http.Error(w, "Invalid attachment index", http.StatusBadRequest)
		return
	}

	raw, err := h.store.Get(r.Context(), h.cfg.Bucket, key)
	if err != nil {
		h.logger.Error("failed to fetch message", zap.String("key", key), zap.Error(err))
		http.Error(w, "Message not found", http.StatusNotFound)
		return
	}

	parsed, err := parser.Parse(raw)
	if err != nil {
		h.logger.Error("failed to parse message", zap.String("key", key), zap.Error(err))
		http.Error(w, "Failed to parse message", http.StatusInternalServerError)
		return
	}

	if idx >= len(parsed.Attachments) {
		http.Error(w, "Attachment not found", http.StatusNotFound)
		return
	}
	att := parsed.Attachments[idx]

	safeFilename := sanitizeFilename(att.Filename)

	contentType := att.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{
			"filename": safeFilename,
		}))
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(att.Content)))
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if _, err := w.Write(att.Content); err != nil {
		h.logger.Warn("failed to write attachment", zap.String("key", key), zap.Error(err))
	}
}
