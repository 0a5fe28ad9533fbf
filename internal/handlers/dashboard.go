package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/shkkonda/eml-viewer/internal/auth"
)

// Index renders the message overview table from the latest snapshot.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.FromContext(r.Context())

	snap := h.currentSnapshot()

	data := map[string]interface{}{
		"PageTitle": "Email Overview - EML Viewer",
		"Bucket":    h.cfg.Bucket,
		"KeyPrefix": h.cfg.KeyPrefix,
		"Workers":   h.cfg.Workers,
		"Snapshot":  snap,
	}
	if sess != nil {
		data["Username"] = sess.Username
	}

	// A nil snapshot means no run has completed yet; a snapshot with
	// zero keys or zero parsed messages renders the empty state. Both
	// are "no data", not errors.

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		h.logger.Error("template error", zap.Error(err))
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}
