// Command benchmark archives a fixed set of pages through a running
// webkeep server several times and reports latency and image yield.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/use-agent/webkeep/models"
)

// CLI flags
var (
	apiURL = flag.String("api-url", "http://localhost:8080", "webkeep API base URL")
	apiKey = flag.String("api-key", "", "API key for authenticated requests")
	runs   = flag.Int("runs", 3, "Number of runs per URL for averaging")
	dest   = flag.String("dest", "benchmark", "Destination the pages are archived into")
	output = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// Pages covering the shapes the extractor handles.
var testURLs = []struct {
	Label string
	URL   string
}{
	{"Static", "https://example.com"},
	{"Article", "https://go.dev/blog/go1.21"},
	{"Docs", "https://go.dev/doc/effective_go"},
	{"Gallery", "https://commons.wikimedia.org/wiki/Main_Page"},
}

type runResult struct {
	Run        int    `json:"run"`
	TotalMs    int64  `json:"total_ms"`
	Tokens     int    `json:"tokens"`
	Saved      int    `json:"images_saved"`
	Discovered int    `json:"images_discovered"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

type urlAverages struct {
	TotalMs    float64 `json:"total_ms"`
	Tokens     float64 `json:"tokens"`
	ImageYield float64 `json:"image_yield"` // saved / discovered, 0..1
}

type urlResult struct {
	URL      string       `json:"url"`
	Label    string       `json:"label"`
	Runs     []runResult  `json:"runs"`
	Averages *urlAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp  string      `json:"timestamp"`
	APIURL     string      `json:"api_url"`
	RunsPerURL int         `json:"runs_per_url"`
	Results    []urlResult `json:"results"`
}

func main() {
	flag.Parse()

	fmt.Println("=== webkeep benchmark ===")
	fmt.Printf("API URL:   %s\n", *apiURL)
	fmt.Printf("Runs/URL:  %d\n", *runs)
	fmt.Printf("Output:    %s\n", *output)
	fmt.Println()

	client := &http.Client{Timeout: 5 * time.Minute}
	if err := checkAPI(client, *apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		fmt.Fprintf(os.Stderr, "Make sure webkeep is running (webkeep serve)\n")
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		APIURL:     *apiURL,
		RunsPerURL: *runs,
	}

	for _, t := range testURLs {
		fmt.Printf("Benchmarking [%s] %s ...\n", t.Label, t.URL)
		ur := urlResult{URL: t.URL, Label: t.Label}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := archiveOnce(client, *apiURL, *apiKey, t.URL, *dest)
			rr.Run = i
			if rr.Success {
				fmt.Printf("OK  %dms  %d/%d images\n", rr.TotalMs, rr.Saved, rr.Discovered)
			} else {
				fmt.Printf("FAILED: %s\n", rr.Error)
			}
			ur.Runs = append(ur.Runs, rr)
		}

		ur.Averages = computeAverages(ur.Runs)
		report.Results = append(report.Results, ur)
		fmt.Println()
	}

	printTable(os.Stdout, report.Results)

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func checkAPI(client *http.Client, baseURL string) error {
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// archiveOnce posts one archive request and records what came back.
func archiveOnce(client *http.Client, baseURL, key, pageURL, destination string) runResult {
	var rr runResult

	body, err := json.Marshal(models.ArchiveRequest{URL: pageURL, Destination: destination})
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/v1/archive", bytes.NewReader(body))
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()

	var ar models.ArchiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}

	rr.Success = ar.Success
	rr.TotalMs = ar.Timing.TotalMs
	rr.Tokens = ar.Tokens.DocumentEstimate
	rr.Saved = len(ar.Images)
	rr.Discovered = ar.Discovered
	if ar.Error != nil {
		rr.Error = fmt.Sprintf("[%s] %s", ar.Error.Code, ar.Error.Message)
	}
	return rr
}

// computeAverages averages successful runs; nil when none succeeded.
func computeAverages(runs []runResult) *urlAverages {
	var (
		n                      int
		avg                    urlAverages
		saved, discovered, tot float64
	)
	for _, r := range runs {
		if !r.Success {
			continue
		}
		n++
		tot += float64(r.TotalMs)
		avg.Tokens += float64(r.Tokens)
		saved += float64(r.Saved)
		discovered += float64(r.Discovered)
	}
	if n == 0 {
		return nil
	}

	avg.TotalMs = tot / float64(n)
	avg.Tokens /= float64(n)
	if discovered > 0 {
		avg.ImageYield = saved / discovered
	}
	return &avg
}

func printTable(out io.Writer, results []urlResult) {
	fmt.Fprintln(out, strings.Repeat("─", 72))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "URL\tAvg Latency\tTokens\tImage Yield\n")

	for _, r := range results {
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\tFAILED\t-\t-\n", truncateURL(r.URL, 40))
			continue
		}
		fmt.Fprintf(w, "%s\t%dms\t%d\t%.0f%%\n",
			truncateURL(r.URL, 40),
			int64(r.Averages.TotalMs),
			int(r.Averages.Tokens),
			r.Averages.ImageYield*100,
		)
	}

	w.Flush()
	fmt.Fprintln(out, strings.Repeat("─", 72))
}

func truncateURL(u string, n int) string {
	if len(u) <= n {
		return u
	}
	return u[:n-3] + "..."
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
