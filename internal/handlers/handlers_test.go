package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shkkonda/eml-viewer/internal/auth"
	"github.com/shkkonda/eml-viewer/internal/blobstore"
	"github.com/shkkonda/eml-viewer/internal/config"
	"github.com/shkkonda/eml-viewer/web"
)

const testBucket = "mail-archive"

// setupTestHandlers creates a handlers instance backed by an in-memory
// blob store with loaded templates.
func setupTestHandlers(t *testing.T) (*Handlers, *blobstore.MemoryStore) {
	t.Helper()

	store := blobstore.NewMemoryStore()
	cfg := &config.Config{
		Host:     "localhost",
		Port:     "8080",
		Bucket:   testBucket,
		Workers:  2,
		Username: "admin",
		Password: "secret",
	}

	h := New(store, cfg, auth.NewSessionStore(), zap.NewNop())
	err := h.LoadTemplates(web.Assets)
	require.NoError(t, err, "Failed to load templates for testing")

	return h, store
}

// putTestMessage stores a well-formed message with one attachment.
func putTestMessage(store *blobstore.MemoryStore, key, subject, date string) {
	msg := strings.Join([]string{
		"From: sender@example.com",
		"To: recipient@example.com",
		"Subject: " + subject,
		"Date: " + date,
		"MIME-Version: 1.0",
		`Content-Type: multipart/mixed; boundary="BOUNDARY"`,
		"",
		"--BOUNDARY",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"Body of " + subject,
		"--BOUNDARY",
		"Content-Type: text/csv",
		`Content-Disposition: attachment; filename="report.csv"`,
		"",
		"a,b,c",
		"--BOUNDARY--",
	}, "\r\n") + "\r\n"
	store.Put(testBucket, key, []byte(msg))
}

func TestTemplatesLoadWithoutErrors(t *testing.T) {
	h, _ := setupTestHandlers(t)

	require.NotNil(t, h.templates, "Templates should be initialized")
	assert.NotNil(t, h.templates.Lookup("index.html"))
	assert.NotNil(t, h.templates.Lookup("login.html"))
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	h, _ := setupTestHandlers(t)

	form := url.Values{"username": {"admin"}, "password": {"wrong"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	h.HandleLogin(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid username or password")
}

func TestHandleLogin_ValidCredentials(t *testing.T) {
	h, _ := setupTestHandlers(t)

	form := url.Values{"username": {"admin"}, "password": {"secret"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	h.HandleLogin(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie, "Login must set the session cookie")

	_, ok := h.sessions.Get(sessionCookie.Value)
	assert.True(t, ok, "Cookie token must map to a stored session")
}

func TestLogout_EndsSession(t *testing.T) {
	h, _ := setupTestHandlers(t)
	sess := h.sessions.Create("admin")

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: sess.Token})
	rec := httptest.NewRecorder()

	h.Logout(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	_, ok := h.sessions.Get(sess.Token)
	assert.False(t, ok, "Logout must remove the session")
}

func TestIndex_NoSnapshot(t *testing.T) {
	h, _ := setupTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	h.Index(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No data loaded yet")
}

func TestIndex_WithSnapshot(t *testing.T) {
	h, store := setupTestHandlers(t)
	putTestMessage(store, "inbox/a.eml", "Quarterly Report", "Mon, 02 Jan 2023 15:04:05 +0000")
	putTestMessage(store, "inbox/b.eml", "Weekly Summary", "Tue, 03 Jan 2023 09:00:00 +0000")
	store.Put(testBucket, "inbox/notes.txt", []byte("not a message"))

	snap, err := h.RunPipeline(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.TotalMessages, "Non-.eml keys are filtered out")
	assert.Equal(t, 1, snap.MaxAttachments)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithSession(req.Context(), &auth.Session{Username: "admin"}))
	rec := httptest.NewRecorder()

	h.Index(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, "Quarterly Report")
	assert.Contains(t, body, "Weekly Summary")
	assert.Contains(t, body, "Attachment_1", "Attachment slot column header should render")
	assert.Contains(t, body, "/attachments/download?key=", "Attachment cells link to the download route")

	// Newest first: Weekly Summary (Jan 3) before Quarterly Report (Jan 2).
	assert.Less(t, strings.Index(body, "Weekly Summary"), strings.Index(body, "Quarterly Report"))
}

func TestIndex_EmptyBucket(t *testing.T) {
	h, _ := setupTestHandlers(t)

	_, err := h.RunPipeline(context.Background(), nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	h.Index(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No EML files found",
		"Zero keys is a distinct no-data state, not an error")
}

func TestDownloadAttachment(t *testing.T) {
	h, store := setupTestHandlers(t)
	putTestMessage(store, "inbox/a.eml", "With Attachment", "Mon, 02 Jan 2023 15:04:05 +0000")

	req := httptest.NewRequest(http.MethodGet, "/attachments/download?key="+url.QueryEscape("inbox/a.eml")+"&idx=0", nil)
	rec := httptest.NewRecorder()

	h.DownloadAttachment(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a,b,c", rec.Body.String(), "Attachment bytes must round-trip unchanged")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "report.csv")
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
}

func TestDownloadAttachment_Errors(t *testing.T) {
	h, store := setupTestHandlers(t)
	putTestMessage(store, "inbox/a.eml", "With Attachment", "Mon, 02 Jan 2023 15:04:05 +0000")

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"missing key", "/attachments/download?idx=0", http.StatusBadRequest},
		{"non-eml key", "/attachments/download?key=secret.txt&idx=0", http.StatusBadRequest},
		{"bad index", "/attachments/download?key=inbox%2Fa.eml&idx=nope", http.StatusBadRequest},
		{"negative index", "/attachments/download?key=inbox%2Fa.eml&idx=-1", http.StatusBadRequest},
		{"index out of range", "/attachments/download?key=inbox%2Fa.eml&idx=5", http.StatusNotFound},
		{"unknown message", "/attachments/download?key=inbox%2Fmissing.eml&idx=0", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			rec := httptest.NewRecorder()

			h.DownloadAttachment(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRefresh_RunsInBackground(t *testing.T) {
	h, store := setupTestHandlers(t)
	for i := 0; i < 5; i++ {
		putTestMessage(store, fmt.Sprintf("inbox/m%d.eml", i), fmt.Sprintf("Message %d", i),
			"Mon, 02 Jan 2023 15:04:05 +0000")
	}

	req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
	rec := httptest.NewRecorder()

	h.Refresh(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		snap := h.currentSnapshot()
		return snap != nil && snap.TotalMessages == 5
	}, 5*time.Second, 10*time.Millisecond, "Background refresh should install a snapshot")
}

func TestRefresh_ConflictWhileRunning(t *testing.T) {
	h, _ := setupTestHandlers(t)

	h.refresh.mu.Lock()
	h.refresh.isRunning = true
	h.refresh.mu.Unlock()

	req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
	rec := httptest.NewRecorder()

	h.Refresh(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}
