package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/ledtorch/deejiar/internal/mapdata"
)

// MapHandler serves the GeoJSON tilesets and the store search.
type MapHandler struct {
	store  *mapdata.Store
	logger *slog.Logger
}

// NewMapHandler creates a handler.
func NewMapHandler(store *mapdata.Store, logger *slog.Logger) *MapHandler {
	return &MapHandler{store: store, logger: logger}
}

// GetFile serves one tileset file verbatim.
func (h *MapHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")

	data, err := h.store.File(name)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Search runs the brute-force store search.
func (h *MapHandler) Search(w http.ResponseWriter, r *http.Request) {
	meta, err := h.store.Meta()
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	query := r.URL.Query()
	params := mapdata.SearchParams{
		Query: strings.TrimSpace(query.Get("q")),
		Type:  strings.TrimSpace(query.Get("type")),
		Tags:  query["tags"],
	}

	if rawLimit := strings.TrimSpace(query.Get("limit")); rawLimit != "" {
		limit, err := strconv.Atoi(rawLimit)
		if err != nil || limit <= 0 || limit > 100 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		params.Limit = limit
	}

	result := mapdata.Search(meta, params)
	writeJSON(w, http.StatusOK, map[string]any{
		"results": result.Results,
		"count":   result.Count,
		"total":   result.Total,
		"query":   params.Query,
		"filters": map[string]any{
			"type":  params.Type,
			"tags":  params.Tags,
			"limit": params.Limit,
		},
	})
}

// Suggestions returns autocomplete titles for a partial query.
func (h *MapHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	meta, err := h.store.Meta()
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	suggestions := mapdata.Suggestions(meta, query)
	writeJSON(w, http.StatusOK, map[string]any{
		"suggestions": suggestions,
		"count":       len(suggestions),
		"query":       query,
	})
}

// Types enumerates store types for filter dropdowns.
func (h *MapHandler) Types(w http.ResponseWriter, r *http.Request) {
	meta, err := h.store.Meta()
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	types := mapdata.Types(meta)
	writeJSON(w, http.StatusOK, map[string]any{"types": types, "count": len(types)})
}

// Tags enumerates store tags for filter options.
func (h *MapHandler) Tags(w http.ResponseWriter, r *http.Request) {
	meta, err := h.store.Meta()
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	tags := mapdata.Tags(meta)
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags, "count": len(tags)})
}

func (h *MapHandler) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mapdata.ErrInvalidName):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, mapdata.ErrNotFound):
		writeError(w, http.StatusNotFound, "file not found")
	default:
		h.logger.Error("map data error", "error", err)
		writeError(w, http.StatusInternalServerError, "map data unavailable")
	}
}
