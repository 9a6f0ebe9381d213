package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/webkeep/models"
)

func callTool(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/archive", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "k" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(models.ArchiveResponse{Error: &models.ErrorDetail{Code: models.ErrCodeUnauthorized, Message: "invalid API key"}})
			return
		}
		var req models.ArchiveRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.URL == "https://down.example/" {
			w.WriteHeader(http.StatusBadGateway)
			json.NewEncoder(w).Encode(models.ArchiveResponse{Error: &models.ErrorDetail{Code: models.ErrCodeFetchFailed, Message: "status 503"}})
			return
		}
		json.NewEncoder(w).Encode(models.ArchiveResponse{
			Success:      true,
			URL:          req.URL,
			DocumentPath: "/data/" + req.Destination + "/page.md",
			Document:     "# Page\n",
			Images:       []string{"images/img_001.jpg"},
			Discovered:   1,
			Tokens:       models.TokenInfo{DocumentEstimate: 2},
		})
	})
	mux.HandleFunc("GET /api/v1/destinations", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.DestinationsResponse{Destinations: []string{"recipes", "skincare"}})
	})
	mux.HandleFunc("POST /api/v1/batch/archive", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(models.BatchResponse{ID: "job-1", Status: models.BatchProcessing, Total: 2})
	})
	mux.HandleFunc("GET /api/v1/batch/job-1", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 2 {
			json.NewEncoder(w).Encode(models.BatchStatusResponse{ID: "job-1", Status: models.BatchProcessing, Total: 2})
			return
		}
		json.NewEncoder(w).Encode(models.BatchStatusResponse{
			ID: "job-1", Status: models.BatchPartial, Completed: 2, Total: 2,
			Results: []*models.ArchiveResponse{
				{Success: true, URL: "https://a.example/", DocumentPath: "/data/x/a.md", Images: []string{}},
				{URL: "https://b.example/", Error: &models.ErrorDetail{Code: models.ErrCodeFetchFailed, Message: "timed out"}},
			},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestArchiveURLTool(t *testing.T) {
	srv := fakeAPI(t)

	text, isErr := callTool(t, handleArchiveURL(srv.URL, "k"), map[string]any{"url": "https://a.example/", "destination": "recipes"})
	assert.False(t, isErr)
	assert.Contains(t, text, "Saved: /data/recipes/page.md")
	assert.Contains(t, text, "Images: 1 of 1 saved")
	assert.Contains(t, text, "# Page")

	text, isErr = callTool(t, handleArchiveURL(srv.URL, "k"), map[string]any{"url": "https://down.example/"})
	assert.True(t, isErr)
	assert.Equal(t, "[FETCH_FAILED] status 503", text)

	text, isErr = callTool(t, handleArchiveURL(srv.URL, "wrong"), map[string]any{"url": "https://a.example/"})
	assert.True(t, isErr)
	assert.Contains(t, text, "UNAUTHORIZED")

	_, isErr = callTool(t, handleArchiveURL(srv.URL, "k"), map[string]any{})
	assert.True(t, isErr)
}

func TestListDestinationsTool(t *testing.T) {
	srv := fakeAPI(t)

	text, isErr := callTool(t, handleListDestinations(srv.URL, "k"), nil)
	assert.False(t, isErr)
	assert.Equal(t, "recipes\nskincare", text)
}

func TestBatchArchiveTool(t *testing.T) {
	old := pollInterval
	pollInterval = 5 * time.Millisecond
	t.Cleanup(func() { pollInterval = old })

	srv := fakeAPI(t)

	text, isErr := callTool(t, handleBatchArchive(srv.URL, "k"), map[string]any{
		"urls": []any{"https://a.example/", "https://b.example/"},
	})
	assert.False(t, isErr)
	assert.Contains(t, text, "Batch job-1: partial (2/2 completed)")
	assert.Contains(t, text, "[1] https://a.example/ -> /data/x/a.md (0 images)")
	assert.Contains(t, text, "[2] https://b.example/ FAILED: [FETCH_FAILED] timed out")
}
