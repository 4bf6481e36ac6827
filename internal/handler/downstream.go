package handler

// DOWNSTREAM HANDLERS:
// Scrape, monitor and summarize are fronts for services that do not exist
// yet. Each validates its input and answers with a fixed placeholder
// payload; none of them does network or storage work.

import (
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/kastor/polyglot-gateway/internal/apperror"
)

// MockS3URL is the placeholder object location returned by the scrape mock.
const MockS3URL = "s3://kastor-scraped-content/mock-file.txt"

// summaryPreviewRunes is how much of the input the summarize mock echoes back.
const summaryPreviewRunes = 200

// =========================================================================
// SCRAPE
// =========================================================================

// ScrapeHandler serves POST /api/scrape.
type ScrapeHandler struct {
	logger *slog.Logger
}

func NewScrapeHandler(logger *slog.Logger) *ScrapeHandler {
	return &ScrapeHandler{logger: logger}
}

type scrapeRequest struct {
	URL string `json:"url"`
}

type scrapeResponse struct {
	Content string `json:"content"`
	S3URL   string `json:"s3_url"`
}

// HandleScrape returns mock content for the requested url.
//
// REQUEST BODY: {"url": "https://example.com"}
func (h *ScrapeHandler) HandleScrape(w http.ResponseWriter, r *http.Request) {
	const fallback = "Failed to scrape URL"

	var req scrapeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err, fallback)
		return
	}

	if strings.TrimSpace(req.URL) == "" {
		writeError(w, h.logger, apperror.ValidationFailed("url", "URL is required"), fallback)
		return
	}

	// The url is echoed exactly as sent.
	writeJSON(w, http.StatusOK, scrapeResponse{
		Content: "Mock scraped content from " + req.URL +
			". This would be extracted by Python script with BeautifulSoup and saved to AWS S3.",
		S3URL: MockS3URL,
	})
}

// =========================================================================
// MONITOR
// =========================================================================

// MonitorHandler serves POST /api/monitor.
type MonitorHandler struct {
	logger *slog.Logger
}

func NewMonitorHandler(logger *slog.Logger) *MonitorHandler {
	return &MonitorHandler{logger: logger}
}

type monitorRequest struct {
	// URLs is newline separated.
	URLs string `json:"urls"`
}

type monitorResult struct {
	URL        string `json:"url"`
	Status     int    `json:"status"`
	StatusText string `json:"statusText"`
}

type monitorResponse struct {
	Results []monitorResult `json:"results"`
}

// HandleMonitor reports every listed url as up. Only a missing or empty
// urls field is rejected; input made of blank lines yields no results.
//
// REQUEST BODY: {"urls": "https://a.example\nhttps://b.example"}
func (h *MonitorHandler) HandleMonitor(w http.ResponseWriter, r *http.Request) {
	const fallback = "Failed to monitor URLs"

	var req monitorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err, fallback)
		return
	}

	if req.URLs == "" {
		writeError(w, h.logger, apperror.ValidationFailed("urls", "URLs are required"), fallback)
		return
	}

	urls := splitLines(req.URLs)
	results := make([]monitorResult, 0, len(urls))
	for _, u := range urls {
		results = append(results, monitorResult{
			URL:        u,
			Status:     http.StatusOK,
			StatusText: "OK (Mock)",
		})
	}
	writeJSON(w, http.StatusOK, monitorResponse{Results: results})
}

// splitLines splits on newlines, trims each entry and drops blanks.
func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// =========================================================================
// SUMMARIZE
// =========================================================================

// SummarizeHandler serves POST /api/summarize.
type SummarizeHandler struct {
	logger *slog.Logger
}

func NewSummarizeHandler(logger *slog.Logger) *SummarizeHandler {
	return &SummarizeHandler{logger: logger}
}

type summarizeRequest struct {
	Text string `json:"text"`
}

type summarizeResponse struct {
	Summary        string `json:"summary"`
	OriginalLength int    `json:"original_length"`
}

// HandleSummarize echoes a preview of the text behind a mock prefix.
//
// REQUEST BODY: {"text": "..."}
func (h *SummarizeHandler) HandleSummarize(w http.ResponseWriter, r *http.Request) {
	const fallback = "Failed to summarize text"

	var req summarizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err, fallback)
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeError(w, h.logger, apperror.ValidationFailed("text", "text is required"), fallback)
		return
	}

	writeJSON(w, http.StatusOK, summarizeResponse{
		Summary:        "Mock summary: " + preview(text, summaryPreviewRunes),
		OriginalLength: utf8.RuneCountInString(text),
	})
}

// preview returns the first n runes of s, with "..." appended when cut.
func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
