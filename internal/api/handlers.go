package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/crimelens/crimelens-engine/internal/accounts"
	"github.com/crimelens/crimelens-engine/internal/hotspot"
	"github.com/crimelens/crimelens-engine/internal/loader"
	"github.com/crimelens/crimelens-engine/internal/models"
	"github.com/crimelens/crimelens-engine/internal/regions"
	"github.com/crimelens/crimelens-engine/internal/services"
	"github.com/crimelens/crimelens-engine/internal/session"
	"github.com/crimelens/crimelens-engine/internal/trend"
	"github.com/crimelens/crimelens-engine/internal/utils"
)

// SessionHeader carries the session ID on authenticated requests.
const SessionHeader = "X-Session-ID"

// Handlers holds the HTTP endpoint implementations.
type Handlers struct {
	logger    *slog.Logger
	service   *services.AnalysisService
	accounts  *accounts.Store
	regions   *regions.Directory
	maxUpload int64
}

// NewHandlers constructs the endpoint set.
func NewHandlers(logger *slog.Logger, service *services.AnalysisService, store *accounts.Store, directory *regions.Directory, maxUpload int64) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUpload <= 0 {
		maxUpload = 32 << 20
	}
	return &Handlers{
		logger:    logger,
		service:   service,
		accounts:  store,
		regions:   directory,
		maxUpload: maxUpload,
	}
}

// Register mounts all routes onto the router.
func (h *Handlers) Register(router *mux.Router) {
	router.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/auth/signup", h.SignUp).Methods(http.MethodPost)
	v1.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
	v1.HandleFunc("/auth/logout", h.Logout).Methods(http.MethodPost)
	v1.HandleFunc("/auth/activity", h.Activity).Methods(http.MethodGet)

	v1.HandleFunc("/datasets", h.UploadDataset).Methods(http.MethodPost)
	v1.HandleFunc("/datasets/categories", h.Categories).Methods(http.MethodGet)
	v1.HandleFunc("/filter", h.SetFilter).Methods(http.MethodPost)

	v1.HandleFunc("/hotspots", h.DetectHotspots).Methods(http.MethodPost)
	v1.HandleFunc("/hotspots/summary", h.HotspotSummary).Methods(http.MethodGet)
	v1.HandleFunc("/hotspots/{label}/series", h.ClusterSeries).Methods(http.MethodGet)
	v1.HandleFunc("/hotspots/{label}/forecast", h.ForecastCluster).Methods(http.MethodPost)

	v1.HandleFunc("/export/csv", h.ExportCSV).Methods(http.MethodGet)
	v1.HandleFunc("/export/report", h.ExportReport).Methods(http.MethodGet)

	v1.HandleFunc("/regions/{id}", h.Region).Methods(http.MethodGet)
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SignUp registers a new user account.
func (h *Handlers) SignUp(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.accounts.SignUp(r.Context(), creds.Username, creds.Password); err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"username": creds.Username})
}

// Login verifies credentials and opens a working session.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var creds models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.accounts.Authenticate(r.Context(), creds.Username, creds.Password); err != nil {
		h.writeServiceError(w, err)
		return
	}

	state := h.service.Sessions().Create(creds.Username)
	if err := h.accounts.LogActivity(r.Context(), creds.Username, "login", ""); err != nil {
		h.logger.Warn("activity log write failed", slog.Any("error", err))
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"session_id": state.ID,
		"username":   state.Username,
	})
}

// Logout closes the current session.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(SessionHeader)
	if id == "" {
		writeError(w, http.StatusUnauthorized, "missing "+SessionHeader+" header")
		return
	}
	h.service.Sessions().Delete(id)
	w.WriteHeader(http.StatusNoContent)
}

// Activity returns the caller's recent activity log entries.
func (h *Handlers) Activity(w http.ResponseWriter, r *http.Request) {
	state, ok := h.session(w, r)
	if !ok {
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := h.accounts.RecentActivity(r.Context(), state.Username, limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// UploadDataset accepts a multipart CSV or XLSX upload.
func (h *Handlers) UploadDataset(w http.ResponseWriter, r *http.Request) {
	state, ok := h.session(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	dataset, err := h.service.LoadDataset(r.Context(), state.ID, header.Filename, file)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	start, end := dataset.DateRange()
	writeJSON(w, http.StatusCreated, map[string]any{
		"name":         dataset.Name,
		"hash":         dataset.Hash,
		"observations": len(dataset.Observations),
		"dropped":      dataset.Dropped,
		"range_start":  start.Format("2006-01-02"),
		"range_end":    end.Format("2006-01-02"),
		"categories":   models.Categories(dataset.Observations),
	})
}

// Categories lists the distinct crime categories of the loaded dataset.
func (h *Handlers) Categories(w http.ResponseWriter, r *http.Request) {
	state, ok := h.session(w, r)
	if !ok {
		return
	}

	categories, err := h.service.Categories(state.ID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

// SetFilter installs a category/date filter over the loaded dataset.
func (h *Handlers) SetFilter(w http.ResponseWriter, r *http.Request) {
	state, ok := h.session(w, r)
	if !ok {
		return
	}

	var req models.FilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	filter := models.Filter{Categories: req.Categories}
	if req.Start != "" {
		day, err := utils.ParseDay(req.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start must be an ISO day (2006-01-02)")
			return
		}
		filter.Start = day
	}
	if req.End != "" {
		day, err := utils.ParseDay(req.End)
		if err != nil {
			writeError(w, http.StatusBadRequest, "end must be an ISO day (2006-01-02)")
			return
		}
		filter.End = day
	}
	if !filter.Start.IsZero() && !filter.End.IsZero() && filter.End.Before(filter.Start) {
		writeError(w, http.StatusBadRequest, "end must not be before start")
		return
	}

	matched, err := h.service.SetFilter(r.Context(), state.ID, filter)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matched": matched})
}

// DetectHotspots runs clustering over the current selection.
func (h *Handlers) DetectHotspots(w http.ResponseWriter, r *http.Request) {
	state, ok := h.session(w, r)
	if !ok {
		return
	}

	var req models.DetectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	opts := hotspot.Options{
		Algorithm:    req.Algorithm,
		RadiusKm:     req.RadiusKm,
		MinNeighbors: req.MinNeighbors,
		K:            req.K,
	}
	assignment, summaries, err := h.service.DetectHotspots(r.Context(), state.ID, opts)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"algorithm": assignment.Algorithm,
		"clusters":  summaries,
		"noise":     assignment.NoiseCount(),
		"labels":    assignment.Labels,
	})
}

// HotspotSummary returns the per-cluster summaries of the stored clustering.
func (h *Handlers) HotspotSummary(w http.ResponseWriter, r *http.Request) {
	state, ok := h.session(w, r)
	if !ok {
		return
	}

	summaries, err := h.service.Summaries(state.ID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"clusters": summaries})
}

// ClusterSeries returns a cluster's zero-filled daily incident series.
func (h *Handlers) ClusterSeries(w http.ResponseWriter, r *http.Request) {
	state, ok := h.session(w, r)
	if !ok {
		return
	}
	label, ok := h.clusterLabel(w, r)
	if !ok {
		return
	}

	series, err := h.service.SeriesForCluster(state.ID, label)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"label":  label,
		"series": series,
		"total":  series.Total(),
	})
}

// ForecastCluster fits a seasonal model to a cluster's series.
func (h *Handlers) ForecastCluster(w http.ResponseWriter, r *http.Request) {
	state, ok := h.session(w, r)
	if !ok {
		return
	}
	label, ok := h.clusterLabel(w, r)
	if !ok {
		return
	}

	var req models.ForecastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.ForecastCluster(r.Context(), state.ID, label, req.HorizonDays)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ExportCSV streams the stored clustering as a labeled CSV file.
func (h *Handlers) ExportCSV(w http.ResponseWriter, r *http.Request) {
	state, ok := h.session(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="hotspots.csv"`)
	if err := h.service.ExportCSV(r.Context(), state.ID, w); err != nil {
		w.Header().Del("Content-Disposition")
		h.writeServiceError(w, err)
	}
}

// ExportReport streams the PDF analysis report.
func (h *Handlers) ExportReport(w http.ResponseWriter, r *http.Request) {
	state, ok := h.session(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="crime-report.pdf"`)
	if err := h.service.BuildReport(r.Context(), state.ID, w); err != nil {
		w.Header().Del("Content-Disposition")
		h.writeServiceError(w, err)
	}
}

// Region returns the emergency contacts for a region.
func (h *Handlers) Region(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	region, ok := h.regions.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown region: "+id)
		return
	}
	writeJSON(w, http.StatusOK, region)
}

func (h *Handlers) session(w http.ResponseWriter, r *http.Request) (*session.State, bool) {
	id := r.Header.Get(SessionHeader)
	if id == "" {
		writeError(w, http.StatusUnauthorized, "missing "+SessionHeader+" header")
		return nil, false
	}
	state, err := h.service.Sessions().Get(id)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unknown or expired session")
		return nil, false
	}
	return state, true
}

func (h *Handlers) clusterLabel(w http.ResponseWriter, r *http.Request) (int, bool) {
	label, err := strconv.Atoi(mux.Vars(r)["label"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "cluster label must be an integer")
		return 0, false
	}
	return label, true
}

func (h *Handlers) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusUnauthorized, "unknown or expired session")
	case errors.Is(err, accounts.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid username or password")
	case errors.Is(err, accounts.ErrUserExists):
		writeError(w, http.StatusConflict, "username already taken")
	case errors.Is(err, services.ErrNoDataset),
		errors.Is(err, services.ErrNoClustering):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, hotspot.ErrInvalidParameter),
		errors.Is(err, hotspot.ErrInvalidInput),
		errors.Is(err, trend.ErrInvalidLabel),
		errors.Is(err, services.ErrHorizonTooLarge),
		errors.Is(err, loader.ErrMissingColumns),
		errors.Is(err, loader.ErrEmptyDataset),
		errors.Is(err, loader.ErrUnsupportedFormat):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, trend.ErrEmptyCluster):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("request failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
