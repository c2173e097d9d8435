package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/obsidianstack/rateboost/pkg/types"
)

// Source provides the current attach-manager snapshot.
type Source interface {
	Snapshot() types.Snapshot
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	src Source
	mux *http.ServeMux
}

// New creates a Handler wired to src and registers all routes.
func New(src Source) http.Handler {
	h := &Handler{src: src, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/attachments", h.listAttachments)
	h.mux.HandleFunc("/api/v1/attachments/", h.getAttachment) // subtree, extracts {id}

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	snap := h.src.Snapshot()
	resp := HealthResponse{State: "idle", AttachmentCount: len(snap.Attachments)}
	for _, a := range snap.Attachments {
		for _, hs := range a.Handles {
			resp.HandleCount++
			switch hs.State {
			case types.HandleStable:
				resp.StableCount++
			case types.HandleInert:
				resp.InertCount++
			}
		}
	}
	if resp.HandleCount > resp.InertCount {
		resp.State = "active"
	}
	jsonResp(w, http.StatusOK, resp)
}

// listAttachments returns GET /api/v1/attachments.
func (h *Handler) listAttachments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.src.Snapshot().Attachments)
}

// getAttachment returns GET /api/v1/attachments/{id}.
func (h *Handler) getAttachment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/attachments/")
	if id == "" {
		h.listAttachments(w, r)
		return
	}

	for _, a := range h.src.Snapshot().Attachments {
		if a.ID == id {
			jsonResp(w, http.StatusOK, a)
			return
		}
	}
	jsonErr(w, http.StatusNotFound, "attachment not found")
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
