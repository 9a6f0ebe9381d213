// Command webkeep-mcp exposes a running webkeep server to MCP clients over
// stdio. Every tool is a thin call to the HTTP API.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/webkeep/models"
)

// pollInterval is how often batch_archive checks job status.
var pollInterval = 2 * time.Second

func main() {
	apiURL := os.Getenv("WEBKEEP_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("WEBKEEP_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "WEBKEEP_API_KEY is required")
		os.Exit(1)
	}

	if err := server.ServeStdio(newServer(apiURL, apiKey)); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func newServer(apiURL, apiKey string) *server.MCPServer {
	s := server.NewMCPServer(
		"webkeep",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	archiveURLTool := mcp.NewTool("archive_url",
		mcp.WithDescription("Archive a web page: save its readable content as Markdown plus local JPEG copies of its images under a destination directory. Returns the saved path and the Markdown."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the page to archive"),
		),
		mcp.WithString("destination",
			mcp.Description("Destination directory name (default: a timestamped export directory)"),
		),
	)
	s.AddTool(archiveURLTool, handleArchiveURL(apiURL, apiKey))

	listDestinationsTool := mcp.NewTool("list_destinations",
		mcp.WithDescription("List the destination directories that already exist on the webkeep server."),
	)
	s.AddTool(listDestinationsTool, handleListDestinations(apiURL, apiKey))

	batchArchiveTool := mcp.NewTool("batch_archive",
		mcp.WithDescription("Archive several pages into one destination and wait for the job to finish."),
		mcp.WithArray("urls",
			mcp.Required(),
			mcp.Description("List of URLs to archive"),
		),
		mcp.WithString("destination",
			mcp.Description("Destination directory shared by every page"),
		),
	)
	s.AddTool(batchArchiveTool, handleBatchArchive(apiURL, apiKey))

	return s
}

// apiPost sends a POST request to the webkeep API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return apiDo(client, req, apiKey)
}

// apiGet sends a GET request to the webkeep API and returns the response body.
func apiGet(ctx context.Context, client *http.Client, apiURL, apiKey, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return apiDo(client, req, apiKey)
}

func apiDo(client *http.Client, req *http.Request, apiKey string) ([]byte, error) {
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// errorText formats an API error detail for the tool result.
func errorText(fallback string, d *models.ErrorDetail) string {
	if d == nil {
		return fallback
	}
	return fmt.Sprintf("[%s] %s", d.Code, d.Message)
}

func handleArchiveURL(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 300 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/archive", models.ArchiveRequest{
			URL:         url,
			Destination: request.GetString("destination", ""),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp models.ArchiveResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !resp.Success {
			return mcp.NewToolResultError(errorText("archive failed", resp.Error)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Saved: %s\nImages: %d of %d saved\n", resp.DocumentPath, len(resp.Images), resp.Discovered)
		for _, img := range resp.Images {
			fmt.Fprintf(&sb, "  %s\n", img)
		}
		fmt.Fprintf(&sb, "Tokens: %d\n\n%s", resp.Tokens.DocumentEstimate, resp.Document)
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleListDestinations(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		respBody, err := apiGet(ctx, client, apiURL, apiKey, "/api/v1/destinations")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp models.DestinationsResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if len(resp.Destinations) == 0 {
			return mcp.NewToolResultText("No destinations yet."), nil
		}
		return mcp.NewToolResultText(strings.Join(resp.Destinations, "\n")), nil
	}
}

func handleBatchArchive(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 60 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		urls, err := request.RequireStringSlice("urls")
		if err != nil {
			return mcp.NewToolResultError("urls is required and must be an array of strings"), nil
		}

		// POST to create batch job.
		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/batch/archive", models.BatchRequest{
			URLs:        urls,
			Destination: request.GetString("destination", ""),
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("batch request failed: %v", err)), nil
		}

		var started models.BatchResponse
		if err := json.Unmarshal(respBody, &started); err != nil || started.ID == "" {
			return mcp.NewToolResultError("batch job creation failed: " + string(respBody)), nil
		}

		// Poll for completion.
		status, err := pollJobCompletion(ctx, client, apiURL, apiKey, "/api/v1/batch/"+started.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling batch job failed: %v", err)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Batch %s: %s (%d/%d completed)\n\n", status.ID, status.Status, status.Completed, status.Total)
		for i, r := range status.Results {
			if r.Success {
				fmt.Fprintf(&sb, "[%d] %s -> %s (%d images)\n", i+1, r.URL, r.DocumentPath, len(r.Images))
				continue
			}
			fmt.Fprintf(&sb, "[%d] %s FAILED: %s\n", i+1, r.URL, errorText("unknown error", r.Error))
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// pollJobCompletion polls a job endpoint until its status is no longer
// "processing" or ctx is cancelled.
func pollJobCompletion(ctx context.Context, client *http.Client, apiURL, apiKey, endpoint string) (*models.BatchStatusResponse, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			body, err := apiGet(ctx, client, apiURL, apiKey, endpoint)
			if err != nil {
				return nil, err
			}

			var status models.BatchStatusResponse
			if err := json.Unmarshal(body, &status); err != nil {
				return nil, fmt.Errorf("parse poll status: %w", err)
			}
			if status.Status != models.BatchProcessing {
				return &status, nil
			}
		}
	}
}
