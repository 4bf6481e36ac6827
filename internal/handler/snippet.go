package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/kastor/polyglot-gateway/internal/model"
)

// createdAtLayout is ISO-8601 in UTC with millisecond precision,
// e.g. 2025-03-14T15:09:26.535Z.
const createdAtLayout = "2006-01-02T15:04:05.000Z"

// SnippetStore is the repository surface the snippet routes need.
// *repository.Snippets implements it.
type SnippetStore interface {
	Create(ctx context.Context, title, code string) (string, error)
	List(ctx context.Context) ([]model.Snippet, error)
}

// SnippetHandler serves /api/snippets.
type SnippetHandler struct {
	store  SnippetStore
	logger *slog.Logger
}

// NewSnippetHandler creates a new SnippetHandler.
func NewSnippetHandler(store SnippetStore, logger *slog.Logger) *SnippetHandler {
	return &SnippetHandler{store: store, logger: logger}
}

// createSnippetRequest is the POST body. Absent fields decode to "" and
// fail the repository's non-empty check.
type createSnippetRequest struct {
	Title string `json:"title"`
	Code  string `json:"code"`
}

type createSnippetResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

type snippetResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Code      string `json:"code"`
	CreatedAt string `json:"createdAt"`
}

func toSnippetResponse(s model.Snippet) snippetResponse {
	return snippetResponse{
		ID:        s.ID,
		Title:     s.Title,
		Code:      s.Code,
		CreatedAt: s.CreatedAt.UTC().Format(createdAtLayout),
	}
}

// HandleList returns all snippets, newest first.
//
// HTTP: GET /api/snippets
//
//	[{"id":"...","title":"hello","code":"print(1)","createdAt":"2025-03-14T15:09:26.535Z"}]
func (h *SnippetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	snippets, err := h.store.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err, "Failed to fetch snippets")
		return
	}

	out := make([]snippetResponse, 0, len(snippets))
	for _, s := range snippets {
		out = append(out, toSnippetResponse(s))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleCreate saves a new snippet.
//
// HTTP: POST /api/snippets
// REQUEST BODY: {"title": "hello", "code": "print(1)"}
// RESPONSE: {"success": true, "id": "..."}
func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createSnippetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err, "Failed to save snippet")
		return
	}

	id, err := h.store.Create(r.Context(), req.Title, req.Code)
	if err != nil {
		writeError(w, h.logger, err, "Failed to save snippet")
		return
	}

	writeJSON(w, http.StatusOK, createSnippetResponse{Success: true, ID: id})
}
