package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"census/internal/census"
	"census/internal/formatter"
	"census/internal/models"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Fetcher runs Census API requests
type Fetcher interface {
	GetDecennialData(ctx context.Context, req models.DecennialRequest) (*models.Table, error)
	FetchTable(ctx context.Context, req models.TableRequest) (*models.Table, error)
}

// TableWriter stores a table in a named collection
type TableWriter interface {
	WriteTable(ctx context.Context, name string, table *models.Table) (int, error)
}

// ExportStore reads and removes exported collections
type ExportStore interface {
	ListExports() ([]string, error)
	LoadExport(name string, geoid *int64) ([]map[string]any, error)
	DeleteExports() ([]string, error)
}

type CensusHandler struct {
	fetcher Fetcher
	writer  TableWriter
	store   ExportStore
	logger  *zap.Logger
}

func NewCensusHandler(fetcher Fetcher, writer TableWriter, store ExportStore, logger *zap.Logger) *CensusHandler {
	return &CensusHandler{
		fetcher: fetcher,
		writer:  writer,
		store:   store,
		logger:  logger,
	}
}

func (h *CensusHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Post("/api/decennial", h.HandleDecennial)
	r.Post("/api/decennial/export", h.HandleExportDecennial)
	r.Post("/api/table", h.HandleTable)
	r.Get("/api/exports", h.HandleListExports)
	r.Get("/api/exports/{collection}", h.HandleGetExport)
	r.Post("/api/exports/cleanup", h.HandleCleanupExports)
}

func (h *CensusHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *CensusHandler) HandleDecennial(w http.ResponseWriter, r *http.Request) {
	var req models.DecennialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", "")
		return
	}

	table, err := h.fetcher.GetDecennialData(r.Context(), req)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, table)
}

func (h *CensusHandler) HandleTable(w http.ResponseWriter, r *http.Request) {
	var req models.TableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", "")
		return
	}

	table, err := h.fetcher.FetchTable(r.Context(), req)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, table)
}

func (h *CensusHandler) HandleExportDecennial(w http.ResponseWriter, r *http.Request) {
	var req models.DecennialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", "")
		return
	}

	table, err := h.fetcher.GetDecennialData(r.Context(), req)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}

	name := formatter.CollectionName(req)
	rows, err := h.writer.WriteTable(r.Context(), name, table)
	if err != nil {
		h.logger.Error("Export failed", zap.String("collection", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Error exporting table", "")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"collection": name,
		"rows":       rows,
	})
}

func (h *CensusHandler) HandleListExports(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.ListExports()
	if err != nil {
		h.logger.Error("Listing exports failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Error listing exports", "")
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"collections": names})
}

func (h *CensusHandler) HandleGetExport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")
	if name == "" {
		writeError(w, http.StatusBadRequest, "Collection is required", "")
		return
	}

	var geoid *int64
	if v := r.URL.Query().Get("geoid"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid geoid", "")
			return
		}
		geoid = &id
	}

	rows, err := h.store.LoadExport(name, geoid)
	if err != nil {
		h.logger.Warn("Loading export failed", zap.String("collection", name), zap.Error(err))
		writeError(w, http.StatusNotFound, "Export not found", "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total":   len(rows),
		"results": rows,
	})
}

func (h *CensusHandler) HandleCleanupExports(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.store.DeleteExports()
	if err != nil {
		h.logger.Error("Cleanup failed", zap.Strings("deleted", deleted), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Error deleting exports", "")
		return
	}
	if deleted == nil {
		deleted = []string{}
	}

	h.logger.Info("Cleanup completed", zap.Int("deleted", len(deleted)))
	writeJSON(w, http.StatusOK, map[string]any{
		"deleted": deleted,
		"message": "Export cleanup completed successfully",
	})
}

// writePipelineError maps census error kinds to HTTP statuses
func (h *CensusHandler) writePipelineError(w http.ResponseWriter, err error) {
	var stage string
	var stageErr *census.StageError
	if errors.As(err, &stageErr) {
		stage = stageErr.Stage
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, census.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, census.ErrAPI),
		errors.Is(err, census.ErrTransport),
		errors.Is(err, census.ErrMalformedResponse),
		errors.Is(err, census.ErrInvalidData):
		status = http.StatusBadGateway
	}

	h.logger.Warn("Census request failed",
		zap.String("stage", stage),
		zap.Int("status", status),
		zap.Error(err))
	writeError(w, status, err.Error(), stage)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg, stage string) {
	body := map[string]string{"error": msg}
	if stage != "" {
		body["stage"] = stage
	}
	writeJSON(w, status, body)
}
