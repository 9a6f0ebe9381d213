package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/webkeep/cache"
	"github.com/use-agent/webkeep/config"
	"github.com/use-agent/webkeep/models"
	"github.com/use-agent/webkeep/webhook"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type call struct{ url, dest string }

type fakeArchiver struct {
	mu    sync.Mutex
	calls []call
	fail  map[string]error
}

func (a *fakeArchiver) Execute(_ context.Context, u, dest string) (models.ExtractionResult, error) {
	a.mu.Lock()
	a.calls = append(a.calls, call{u, dest})
	a.mu.Unlock()

	if err := a.fail[u]; err != nil {
		return models.ExtractionResult{}, err
	}
	return models.ExtractionResult{
		Document:         "# Page\n\nSome words here.\n",
		ImageFilenames:   []string{"images/img_001.jpg"},
		Destination:      "/data/" + dest,
		DocumentPath:     "/data/" + dest + "/page.md",
		DiscoveredImages: 2,
	}, nil
}

func (a *fakeArchiver) lastCall() call {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[len(a.calls)-1]
}

type fakeDestinations struct {
	names []string
	base  string
}

func (d fakeDestinations) ListDestinations() ([]string, error) { return d.names, nil }
func (d fakeDestinations) BaseDir() string                     { return d.base }

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Mode = "test"
	cfg.Auth.APIKeys = []string{"k1"}
	cfg.RateLimit.RequestsPerSecond = 1000
	cfg.RateLimit.Burst = 1000
	return cfg
}

type testServer struct {
	router   http.Handler
	archiver *fakeArchiver
	jobs     *cache.Cache[*models.BatchJob]
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	ar := &fakeArchiver{fail: map[string]error{
		"https://down.example/": models.NewArchiveError(models.ErrCodeFetchFailed, "GET https://down.example/: status 503", nil),
	}}
	jobs := cache.New[*models.BatchJob](cfg.Batch.MaxJobs, cfg.Batch.JobTTL)
	t.Cleanup(jobs.Stop)

	svc := Services{
		Archiver:     ar,
		Destinations: fakeDestinations{names: []string{"recipes", "skincare"}, base: t.TempDir()},
		Jobs:         jobs,
		Notifier:     webhook.New([]time.Duration{0}),
	}
	return &testServer{router: NewRouter(svc, cfg, time.Now()), archiver: ar, jobs: jobs}
}

func (s *testServer) do(method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

var jsonAuth = map[string]string{"Content-Type": "application/json", "X-API-Key": "k1"}

// ---------------------------------------------------------------------------
// Public endpoints
// ---------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := s.do(http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Empty(t, resp.BaseDirError)
}

func TestHealthDegraded(t *testing.T) {
	cfg := testConfig()
	svc := Services{
		Archiver:     &fakeArchiver{},
		Destinations: fakeDestinations{base: filepath.Join(t.TempDir(), "gone")},
		Jobs:         cache.New[*models.BatchJob](1, time.Minute),
	}
	t.Cleanup(svc.Jobs.Stop)
	r := NewRouter(svc, cfg, time.Now())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.NotEmpty(t, resp.BaseDirError)
}

func TestDestinations(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := s.do(http.MethodGet, "/api/v1/destinations", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"destinations":["recipes","skincare"]}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

// ---------------------------------------------------------------------------
// Archive API
// ---------------------------------------------------------------------------

func TestArchive(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := s.do(http.MethodPost, "/api/v1/archive",
		`{"url":"https://shop.example/p/1","destination":"recipes"}`, jsonAuth)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.ArchiveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "https://shop.example/p/1", resp.URL)
	assert.Equal(t, "/data/recipes/page.md", resp.DocumentPath)
	assert.Equal(t, []string{"images/img_001.jpg"}, resp.Images)
	assert.Equal(t, 2, resp.Discovered)
	assert.Positive(t, resp.Tokens.DocumentEstimate)
	assert.Nil(t, resp.Error)

	assert.Equal(t, call{"https://shop.example/p/1", "recipes"}, s.archiver.lastCall())
}

func TestArchiveErrors(t *testing.T) {
	s := newTestServer(t, testConfig())

	tests := []struct {
		name     string
		body     string
		header   map[string]string
		wantCode int
		wantErr  string
	}{
		{"missing key", `{"url":"https://a.example/"}`, map[string]string{"Content-Type": "application/json"}, http.StatusUnauthorized, models.ErrCodeUnauthorized},
		{"wrong key", `{"url":"https://a.example/"}`, map[string]string{"Content-Type": "application/json", "Authorization": "Bearer nope"}, http.StatusUnauthorized, models.ErrCodeUnauthorized},
		{"bad json", `{"url":`, jsonAuth, http.StatusBadRequest, models.ErrCodeInvalidInput},
		{"not a url", `{"url":"shop"}`, jsonAuth, http.StatusBadRequest, models.ErrCodeInvalidInput},
		{"fetch failed", `{"url":"https://down.example/"}`, jsonAuth, http.StatusBadGateway, models.ErrCodeFetchFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, "/api/v1/archive", tt.body, tt.header)
			require.Equal(t, tt.wantCode, w.Code, w.Body.String())

			var resp models.ArchiveResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantErr, resp.Error.Code)
		})
	}
}

func TestArchiveBearerToken(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := s.do(http.MethodPost, "/api/v1/archive", `{"url":"https://a.example/"}`,
		map[string]string{"Content-Type": "application/json", "Authorization": "Bearer k1"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.RequestsPerSecond = 0.001
	cfg.RateLimit.Burst = 1
	s := newTestServer(t, cfg)

	body := `{"url":"https://a.example/"}`
	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/v1/archive", body, jsonAuth).Code)

	w := s.do(http.MethodPost, "/api/v1/archive", body, jsonAuth)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), models.ErrCodeRateLimited)
}

// ---------------------------------------------------------------------------
// Form UI
// ---------------------------------------------------------------------------

func postForm(s *testServer, values url.Values) *httptest.ResponseRecorder {
	return s.do(http.MethodPost, "/extract", values.Encode(),
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
}

func TestIndexForm(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := s.do(http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `<option value="recipes">recipes</option>`)
	assert.Contains(t, body, `<option value="exports" selected>exports</option>`)
	assert.Contains(t, body, `name="new_destination"`)
}

func TestExtractForm(t *testing.T) {
	s := newTestServer(t, testConfig())

	tests := []struct {
		name     string
		values   url.Values
		wantDest string
	}{
		{"new destination wins", url.Values{"url": {"https://a.example/"}, "destination": {"recipes"}, "new_destination": {"skincare"}}, "skincare"},
		{"selected destination", url.Values{"url": {"https://a.example/"}, "destination": {"recipes"}}, "recipes"},
		{"default", url.Values{"url": {"https://a.example/"}}, models.DefaultDestination},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postForm(s, tt.values)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.wantDest, s.archiver.lastCall().dest)
			assert.Contains(t, w.Body.String(), "/data/"+tt.wantDest+"/page.md")
			assert.Contains(t, w.Body.String(), "images/img_001.jpg")
		})
	}
}

func TestExtractFormErrors(t *testing.T) {
	s := newTestServer(t, testConfig())

	w := postForm(s, url.Values{"destination": {"recipes"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "a URL is required")

	w = postForm(s, url.Values{"url": {"https://down.example/"}})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "status 503")
}

// ---------------------------------------------------------------------------
// Batch
// ---------------------------------------------------------------------------

func TestBatchArchive(t *testing.T) {
	hooks := make(chan *http.Request, 1)
	bodies := make(chan []byte, 1)
	hookSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		hooks <- r
		bodies <- b
	}))
	defer hookSrv.Close()

	s := newTestServer(t, testConfig())

	reqBody := `{"urls":["https://a.example/","https://down.example/"],"destination":"recipes",` +
		`"webhook_url":"` + hookSrv.URL + `","webhook_secret":"s"}`
	w := s.do(http.MethodPost, "/api/v1/batch/archive", reqBody, jsonAuth)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var started models.BatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &started))
	assert.Equal(t, 2, started.Total)
	assert.Equal(t, models.BatchProcessing, started.Status)
	require.NotEmpty(t, started.ID)

	var status models.BatchStatusResponse
	require.Eventually(t, func() bool {
		w := s.do(http.MethodGet, "/api/v1/batch/"+started.ID, "", jsonAuth)
		if w.Code != http.StatusOK {
			return false
		}
		_ = json.Unmarshal(w.Body.Bytes(), &status)
		return status.Status != models.BatchProcessing
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, models.BatchPartial, status.Status)
	assert.Equal(t, 2, status.Completed)
	require.Len(t, status.Results, 2)
	assert.True(t, status.Results[0].Success)
	assert.False(t, status.Results[1].Success)
	assert.Equal(t, models.ErrCodeFetchFailed, status.Results[1].Error.Code)
	assert.Equal(t, "/data/recipes/https---a-example", status.Results[0].Destination)

	s.archiver.mu.Lock()
	dests := make([]string, 0, len(s.archiver.calls))
	for _, c := range s.archiver.calls {
		dests = append(dests, c.dest)
	}
	s.archiver.mu.Unlock()
	assert.ElementsMatch(t, []string{"recipes/https---a-example", "recipes/https---down-example"}, dests)

	select {
	case r := <-hooks:
		body := <-bodies
		assert.Equal(t, webhook.Sign("s", body), r.Header.Get(webhook.SignatureHeader))
		assert.Contains(t, string(body), started.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("webhook not delivered")
	}
}

func TestBatchValidation(t *testing.T) {
	cfg := testConfig()
	cfg.Batch.MaxURLs = 1
	s := newTestServer(t, cfg)

	w := s.do(http.MethodPost, "/api/v1/batch/archive", `{"urls":[]}`, jsonAuth)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/v1/batch/archive",
		`{"urls":["https://a.example/","https://b.example/"]}`, jsonAuth)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "maximum 1 URLs per batch")

	w = s.do(http.MethodGet, "/api/v1/batch/does-not-exist", "", jsonAuth)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
