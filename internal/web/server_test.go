package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/richway/internal/config"
	"github.com/JonMunkholm/richway/internal/core"
	"github.com/JonMunkholm/richway/internal/mailer"
	"github.com/JonMunkholm/richway/internal/store"
)

var userIDPattern = regexp.MustCompile(`^RW[0-9]{4}$`)

// ============================================================================
// Test fixtures
// ============================================================================

// stubStore is an in-memory store without a List method.
type stubStore struct {
	mu         sync.Mutex
	records    []core.Record
	appendErr  error
	exportErr  error
	bestEffort bool
}

func (s *stubStore) Append(_ context.Context, rec core.Record) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *stubStore) Export(context.Context) ([]byte, error) {
	if s.exportErr != nil {
		return nil, s.exportErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return store.WriteWorkbook(s.records)
}

func (s *stubStore) Backend() string             { return "stub" }
func (s *stubStore) Close(context.Context) error { return nil }
func (s *stubStore) BestEffort() bool            { return s.bestEffort }

// listStore adds List, which mounts the admin surface.
type listStore struct {
	stubStore
	listErr error
}

func (s *listStore) List(context.Context) ([]core.Record, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Record(nil), s.records...), nil
}

type recordingSender struct {
	sent chan core.Message
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: make(chan core.Message, 64)}
}

func (r *recordingSender) Send(_ context.Context, msg core.Message) error {
	r.sent <- msg
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           5000,
			ReadTimeout:    5 * time.Second,
			IdleTimeout:    5 * time.Second,
			RequestTimeout: 5 * time.Second,
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, st core.Store, sender core.Sender) *Server {
	t.Helper()
	tasks := core.NewDispatcher(2, time.Second)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		tasks.WaitForDrain(ctx)
	})
	svc := core.NewSubmissionService(st, sender, mailer.Compose, tasks)
	return NewServer(cfg, st, svc)
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func exportedRows(t *testing.T, st core.Store) [][]string {
	t.Helper()
	data, err := st.Export(context.Background())
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	return rows
}

func newFileStore(t *testing.T) *store.FileSheet {
	t.Helper()
	fs, err := store.NewFileSheet(filepath.Join(t.TempDir(), "data", "formData.xlsx"))
	require.NoError(t, err)
	return fs
}

// ============================================================================
// POST /submit
// ============================================================================

func TestSubmit_StoresAndWelcomes(t *testing.T) {
	fs := newFileStore(t)
	sender := newRecordingSender()
	srv := newTestServer(t, testConfig(), fs, sender)

	rec := do(srv, http.MethodPost, "/submit", `{"name":"Asha","email":"a@x.com","phone":"1","city":"Pune"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Asha", body["name"])
	userID, _ := body["userId"].(string)
	assert.Regexp(t, userIDPattern, userID)

	rows := exportedRows(t, fs)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Asha", "a@x.com", "1", "Pune", userID}, rows[1][:5])

	select {
	case msg := <-sender.sent:
		assert.Equal(t, "a@x.com", msg.To)
		assert.Contains(t, msg.HTML, "#"+userID)
	case <-time.After(2 * time.Second):
		t.Fatal("welcome email was not sent")
	}
}

func TestSubmit_StoreErrorIsReturnedRaw(t *testing.T) {
	st := &stubStore{appendErr: errors.New("EACCES: permission denied, open 'data/formData.xlsx'")}
	srv := newTestServer(t, testConfig(), st, newRecordingSender())

	rec := do(srv, http.MethodPost, "/submit", `{"name":"Asha","email":"a@x.com","phone":"1","city":"Pune"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]any{
		"success": false,
		"error":   "EACCES: permission denied, open 'data/formData.xlsx'",
	}, decode(t, rec))
}

func TestSubmit_RemoteSheetFailureStillSucceeds(t *testing.T) {
	sender := newRecordingSender()
	srv := newTestServer(t, testConfig(), &store.RemoteSheet{}, sender)

	rec := do(srv, http.MethodPost, "/submit", `{"name":"Asha","email":"a@x.com","phone":"1","city":"Pune"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Regexp(t, userIDPattern, body["userId"])

	select {
	case <-sender.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("welcome email was not sent after an unstored submission")
	}
}

func TestSubmit_EmptyFields(t *testing.T) {
	fs := newFileStore(t)
	srv := newTestServer(t, testConfig(), fs, newRecordingSender())

	rec := do(srv, http.MethodPost, "/submit", `{"name":"","email":"","phone":"","city":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["success"])

	rows := exportedRows(t, fs)
	require.Len(t, rows, 2)
	assert.Regexp(t, userIDPattern, rows[1][4])
	for _, cell := range rows[1][:4] {
		assert.Empty(t, cell)
	}
}

func TestSubmit_NonStringFieldsAreStoredAsText(t *testing.T) {
	fs := newFileStore(t)
	srv := newTestServer(t, testConfig(), fs, newRecordingSender())

	rec := do(srv, http.MethodPost, "/submit", `{"name":"Asha","email":"a@x.com","phone":9876543210,"city":null}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode(t, rec)["success"])

	rows := exportedRows(t, fs)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Asha", "a@x.com", "9876543210", ""}, rows[1][:4])
}

func TestSubmit_FileStoreRejectsControlCharacters(t *testing.T) {
	fs := newFileStore(t)
	srv := newTestServer(t, testConfig(), fs, newRecordingSender())

	rec := do(srv, http.MethodPost, "/submit", `{"name":"A\u0001sha","email":"a@x.com"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "cell A2")

	assert.Len(t, exportedRows(t, fs), 1)
}

func TestSubmit_EmptyBody(t *testing.T) {
	st := &stubStore{}
	srv := newTestServer(t, testConfig(), st, newRecordingSender())

	rec := do(srv, http.MethodPost, "/submit", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, st.records, 1)
	assert.Empty(t, st.records[0].Name)
}

func TestSubmit_MalformedJSON(t *testing.T) {
	st := &stubStore{}
	srv := newTestServer(t, testConfig(), st, newRecordingSender())

	rec := do(srv, http.MethodPost, "/submit", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, decode(t, rec)["success"])
	assert.Empty(t, st.records)
}

func TestSubmit_ResubmissionCreatesNewRecord(t *testing.T) {
	st := &stubStore{}
	srv := newTestServer(t, testConfig(), st, newRecordingSender())

	for i := 0; i < 2; i++ {
		rec := do(srv, http.MethodPost, "/submit", `{"name":"Asha","email":"a@x.com","phone":"1","city":"Pune"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Len(t, st.records, 2)
}

// TestSubmit_ConcurrentFileAppendsMayLoseRecords shows that parallel
// submissions to the file store are not serialized: every request succeeds,
// yet fewer rows than requests can end up in the file.
func TestSubmit_ConcurrentFileAppendsMayLoseRecords(t *testing.T) {
	fs := newFileStore(t)
	srv := newTestServer(t, testConfig(), fs, newRecordingSender())
	const n = 10

	var wg sync.WaitGroup
	codes := make(chan int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := do(srv, http.MethodPost, "/submit", `{"name":"Asha","email":"a@x.com","phone":"1","city":"Pune"}`)
			codes <- rec.Code
		}()
	}
	wg.Wait()
	close(codes)

	for code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}

	stored := len(exportedRows(t, fs)) - 1
	assert.GreaterOrEqual(t, stored, 1)
	assert.LessOrEqual(t, stored, n)
	t.Logf("%d of %d concurrent submissions survived", stored, n)
}

func TestSubmit_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1}
	srv := newTestServer(t, cfg, &stubStore{}, newRecordingSender())

	assert.Equal(t, http.StatusOK, do(srv, http.MethodPost, "/submit", `{}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(srv, http.MethodPost, "/submit", `{}`).Code)
	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/healthz", "").Code, "only /submit is limited")
}

// ============================================================================
// Admin
// ============================================================================

func TestAdmin_NotMountedForStoresWithoutList(t *testing.T) {
	srv := newTestServer(t, testConfig(), newFileStore(t), newRecordingSender())
	assert.False(t, srv.AdminEnabled())

	rec := do(srv, http.MethodGet, "/api/admin/data", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", decode(t, rec)["error"])

	rec = do(srv, http.MethodGet, "/api/admin/download", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdmin_Data(t *testing.T) {
	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	st := &listStore{stubStore: stubStore{records: []core.Record{
		{Name: "Asha", UserID: "RW4821", Time: base},
		{Name: "Ravi", UserID: "RW1000", Time: base.Add(time.Hour)},
	}}}
	srv := newTestServer(t, testConfig(), st, newRecordingSender())
	require.True(t, srv.AdminEnabled())

	rec := do(srv, http.MethodGet, "/api/admin/data", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []core.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Ravi", got[0].Name)
	assert.Equal(t, "Asha", got[1].Name)
	assert.True(t, got[0].Time.Equal(base.Add(time.Hour)))
}

func TestAdmin_DataEmptyIsArray(t *testing.T) {
	srv := newTestServer(t, testConfig(), &listStore{}, newRecordingSender())

	rec := do(srv, http.MethodGet, "/api/admin/data", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestAdmin_DataError(t *testing.T) {
	srv := newTestServer(t, testConfig(), &listStore{listErr: errors.New("server selection timeout")}, newRecordingSender())

	rec := do(srv, http.MethodGet, "/api/admin/data", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "server selection timeout", decode(t, rec)["error"])
}

func TestAdmin_Download(t *testing.T) {
	st := &listStore{stubStore: stubStore{records: []core.Record{{Name: "Asha", Email: "a@x.com", Phone: "1", City: "Pune", UserID: "RW4821"}}}}
	srv := newTestServer(t, testConfig(), st, newRecordingSender())

	rec := do(srv, http.MethodGet, "/api/admin/download", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, core.XLSXContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="RichWay_Members.xlsx"`, rec.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	assert.Equal(t, core.ExportColumns, rows[0])
	assert.Equal(t, []string{"Asha", "a@x.com", "1", "Pune", "RW4821"}, rows[1])
}

func TestAdmin_DownloadErrorIsPlainText(t *testing.T) {
	st := &listStore{stubStore: stubStore{exportErr: errors.New("cursor killed")}}
	srv := newTestServer(t, testConfig(), st, newRecordingSender())

	rec := do(srv, http.MethodGet, "/api/admin/download", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))
	assert.Equal(t, "Error generating Excel file\n", rec.Body.String())
}

func TestAdmin_APIKeyGuard(t *testing.T) {
	cfg := testConfig()
	cfg.Admin = config.AdminConfig{RequireAPIKey: true, APIKeys: []string{"secret"}}
	srv := newTestServer(t, cfg, &listStore{}, newRecordingSender())

	assert.Equal(t, http.StatusUnauthorized, do(srv, http.MethodGet, "/api/admin/data", "").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/data", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdmin_Page(t *testing.T) {
	srv := newTestServer(t, testConfig(), &listStore{}, newRecordingSender())

	rec := do(srv, http.MethodGet, "/admin", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Registered Members")
}

// ============================================================================
// Static pages, health, metrics
// ============================================================================

func TestStatic_FallbackToIndex(t *testing.T) {
	srv := newTestServer(t, testConfig(), &stubStore{}, newRecordingSender())

	for _, path := range []string{"/", "/join", "/deep/link/here", "/admin"} {
		t.Run(path, func(t *testing.T) {
			rec := do(srv, http.MethodGet, path, "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
			assert.Contains(t, rec.Body.String(), "Join RICH WAY")
		})
	}
}

func TestStatic_ServesAsset(t *testing.T) {
	srv := newTestServer(t, testConfig(), &stubStore{}, newRecordingSender())

	rec := do(srv, http.MethodGet, "/admin.html", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Registered Members")
}

func TestStatic_UnknownAPIPathIsJSON404(t *testing.T) {
	srv := newTestServer(t, testConfig(), &stubStore{}, newRecordingSender())

	rec := do(srv, http.MethodGet, "/api/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, testConfig(), &stubStore{}, newRecordingSender())

	rec := do(srv, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","store":"stub"}`, rec.Body.String())
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t, testConfig(), &stubStore{}, newRecordingSender())
	require.Equal(t, http.StatusOK, do(srv, http.MethodPost, "/submit", `{}`).Code)

	rec := do(srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "richway_submissions_total")
	assert.Contains(t, rec.Body.String(), `route="/submit"`)
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, testConfig(), &stubStore{}, newRecordingSender())

	rec := do(srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}
