package handlers

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shkkonda/eml-viewer/internal/auth"
	"github.com/shkkonda/eml-viewer/internal/blobstore"
	"github.com/shkkonda/eml-viewer/internal/config"
	"github.com/shkkonda/eml-viewer/internal/pipeline"
)

// Snapshot is the rendered outcome of one pipeline run. The dashboard
// always serves the latest completed snapshot; nothing is persisted.
type Snapshot struct {
	Rows             []pipeline.Row
	SlotLabels       []string
	TotalMessages    int
	TotalAttachments int
	MaxAttachments   int
	TotalKeys        int
	RefreshedAt      time.Time
}

// Handlers holds all HTTP handlers and their dependencies
type Handlers struct {
	store     blobstore.Store
	cfg       *config.Config
	sessions  *auth.SessionStore
	creds     auth.Credentials
	logger    *zap.Logger
	templates *template.Template

	snapMu   sync.RWMutex
	snapshot *Snapshot

	refresh *refreshState
}

// New creates a new Handlers instance
func New(store blobstore.Store, cfg *config.Config, sessions *auth.SessionStore, logger *zap.Logger) *Handlers {
	return &Handlers{
		store:    store,
		cfg:      cfg,
		sessions: sessions,
		creds:    auth.Credentials{Username: cfg.Username, Password: cfg.Password},
		logger:   logger,
		refresh:  newRefreshState(),
	}
}

// Sessions exposes the session store for router middleware wiring.
func (h *Handlers) Sessions() *auth.SessionStore {
	return h.sessions
}

// LoadTemplates loads HTML templates from embedded filesystem
func (h *Handlers) LoadTemplates(embeddedFiles embed.FS) error {
	tmpl, err := template.ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return err
	}
	h.templates = tmpl
	return nil
}

// RunPipeline lists message keys, fans out fetch+parse across the
// worker pool, and installs the sorted outcome as the new snapshot.
// onProgress may be nil.
func (h *Handlers) RunPipeline(ctx context.Context, onProgress pipeline.ProgressFunc) (*Snapshot, error) {
	keys, err := h.store.List(ctx, h.cfg.Bucket, h.cfg.KeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list message files: %w", err)
	}
	keys = blobstore.FilterMessageKeys(keys)

	p := pipeline.New(h.store, h.cfg.Bucket, h.cfg.Workers, h.logger)
	result := p.Run(ctx, keys, onProgress)

	pipeline.SortByDate(result.Messages)

	snap := &Snapshot{
		Rows:             pipeline.BuildRows(result.Messages, result.MaxAttachments),
		SlotLabels:       slotLabels(result.MaxAttachments),
		TotalMessages:    len(result.Messages),
		TotalAttachments: pipeline.TotalAttachments(result.Messages),
		MaxAttachments:   result.MaxAttachments,
		TotalKeys:        len(keys),
		RefreshedAt:      time.Now(),
	}

	h.snapMu.Lock()
	h.snapshot = snap
	h.snapMu.Unlock()

	h.logger.Info("pipeline run complete",
		zap.Int("keys", len(keys)),
		zap.Int("parsed", snap.TotalMessages),
		zap.Int("max_attachments", snap.MaxAttachments))

	return snap, nil
}

// currentSnapshot returns the latest completed snapshot, or nil if no
// run has finished yet.
func (h *Handlers) currentSnapshot() *Snapshot {
	h.snapMu.RLock()
	defer h.snapMu.RUnlock()
	return h.snapshot
}

// slotLabels builds the Attachment_1..N column headers.
func slotLabels(n int) []string {
	labels := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		labels = append(labels, fmt.Sprintf("Attachment_%d", i))
	}
	return labels
}
