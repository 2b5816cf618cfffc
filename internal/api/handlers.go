package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/chico-rentals/rental-cli/internal/apn"
	"github.com/chico-rentals/rental-cli/internal/importer"
	"github.com/chico-rentals/rental-cli/internal/model"
	"github.com/chico-rentals/rental-cli/internal/source"
)

const (
	maxBodyBytes  = 8 << 20
	maxBatchItems = 20000
)

type handlers struct {
	deps Deps
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) enrich(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "identifier is required")
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Enricher.Enrich(r.Context(), id))
}

func (h *handlers) getProperty(w http.ResponseWriter, r *http.Request) {
	if h.deps.Properties == nil {
		writeError(w, http.StatusServiceUnavailable, "property store not configured")
		return
	}
	key := apn.Normalize(chi.URLParam(r, "apn"))
	p, err := h.deps.Properties.Get(r.Context(), key)
	if err != nil {
		zap.L().Error("api: get property", zap.String("apn", key), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "property lookup failed")
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "property not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handlers) countProperties(w http.ResponseWriter, r *http.Request) {
	if h.deps.Properties == nil {
		writeError(w, http.StatusServiceUnavailable, "property store not configured")
		return
	}
	n, err := h.deps.Properties.Count(r.Context())
	if err != nil {
		zap.L().Error("api: count properties", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "property count failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

type importRequest struct {
	Identifiers []string `json:"identifiers"`
	ChunkSize   int      `json:"chunk_size"`
}

type listingImportRequest struct {
	Listings  []model.Listing `json:"listings"`
	Providers []string        `json:"providers"`
	ChunkSize int             `json:"chunk_size"`
}

func (h *handlers) importIdentifiers(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ids, stats := source.Dedupe(trimAll(req.Identifiers))
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "identifiers is required")
		return
	}
	if len(ids) > maxBatchItems {
		writeError(w, http.StatusRequestEntityTooLarge, "too many identifiers")
		return
	}

	opts := h.deps.ImportOptions
	if req.ChunkSize > 0 {
		opts.ChunkSize = req.ChunkSize
	}
	zap.L().Info("api: import requested", zap.Int("identifiers", stats.Unique), zap.Int("duplicates", stats.Duplicates))
	h.streamImport(w, r, importer.IdentifierBatch(ids), opts)
}

func (h *handlers) importListings(w http.ResponseWriter, r *http.Request) {
	var req listingImportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	listings, err := source.FilterListings(req.Listings, req.Providers)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(listings) == 0 {
		writeError(w, http.StatusBadRequest, "listings is required")
		return
	}
	if len(listings) > maxBatchItems {
		writeError(w, http.StatusRequestEntityTooLarge, "too many listings")
		return
	}

	opts := h.deps.ListingImportOptions
	if req.ChunkSize > 0 {
		opts.ChunkSize = req.ChunkSize
	}
	h.streamImport(w, r, importer.ListingBatch(listings), opts)
}

// streamEvent is one NDJSON line of an import response.
type streamEvent struct {
	Type     string                   `json:"type"`
	Progress *importer.Progress       `json:"progress,omitempty"`
	Result   *model.BatchImportResult `json:"result,omitempty"`
}

// streamImport runs the import on the request goroutine, writing one
// progress line per chunk and a final result line. A client disconnect
// cancels the request context and so the import.
func (h *handlers) streamImport(w http.ResponseWriter, r *http.Request, batch importer.Batch, opts importer.Options) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	flusher, _ := w.(http.Flusher)
	emit := func(ev streamEvent) {
		if err := enc.Encode(ev); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}

	opts.OnProgress = importer.Tee(opts.OnProgress, func(p importer.Progress) {
		emit(streamEvent{Type: "progress", Progress: &p})
	})

	res := h.deps.Importer.Import(r.Context(), batch, opts)
	emit(streamEvent{Type: "result", Result: &res})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
