/*
handlers.go - HTTP API handlers for the prize engine

PURPOSE:
  Exposes prize queries via REST API. Handles HTTP request/response and
  JSON serialization; every number comes from the prize package.

ENDPOINTS:
  Agents:
    POST   /api/agents/lookup               Find agent codes by name + branch
    GET    /api/agents/{code}/prizes        All scheme results for an agent
    GET    /api/agents/{code}/band          Near-miss band (?folder=tier|bridge)

  Managers:
    GET    /api/managers/{code}/downline    Agents under the manager
    GET    /api/managers/{code}/near-miss   Downline grouped by band (?folder=)
    GET    /api/managers/{code}/roster      Configured roster view

  Admin (password protected, see admin.go):
    /api/admin/...

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Registry: Current configuration snapshot
  - Engine: Evaluation over uploaded tables
  - Tables: Table store for uploads
  - Factory: JSON to Scheme conversion

  Every query takes one snapshot at the start and uses it throughout, so an
  admin edit landing mid-request never mixes two configurations.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input (bad folder, bad tiers, bad conditions, bad upload)
  - 401: Missing or wrong admin password
  - 404: No data for the agent, unknown scheme or table
  - 500: Store failures

SEE ALSO:
  - dto.go: Request/response data structures
  - admin.go: Configuration and table management
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/meritzGA/meritz-prize/factory"
	"github.com/meritzGA/meritz-prize/prize"
	"github.com/meritzGA/meritz-prize/store/sqlite"
	"github.com/meritzGA/meritz-prize/tabular"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// HistorySource lists stored configuration versions.
type HistorySource interface {
	ConfigHistory(ctx context.Context, limit int) ([]sqlite.ConfigCommit, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Registry *prize.Registry
	Engine   *prize.Engine
	Tables   prize.TableStore
	Factory  *factory.SchemeFactory

	// History is optional; without it the history endpoint returns an empty list.
	History HistorySource

	// Resetter is optional; without it demo scenarios cannot be loaded.
	Resetter Resetter

	log           *zap.Logger
	adminPassword string
}

// NewHandler creates a handler. An empty adminPassword disables admin routes.
func NewHandler(reg *prize.Registry, engine *prize.Engine, tables prize.TableStore, log *zap.Logger, adminPassword string) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Registry:      reg,
		Engine:        engine,
		Tables:        tables,
		Factory:       factory.NewSchemeFactory(),
		log:           log,
		adminPassword: adminPassword,
	}
}

// =============================================================================
// HEALTH
// =============================================================================

// Health reports liveness and the configuration version being served.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	st := h.Registry.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": st.Version,
		"schemes": st.Schemes,
	})
}

// =============================================================================
// AGENT HANDLERS
// =============================================================================

// LookupAgent finds agent codes by name and branch code.
func (h *Handler) LookupAgent(w http.ResponseWriter, r *http.Request) {
	var req LookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}
	if req.Branch == "" {
		req.Branch = prize.AnyBranch
	}

	codes, err := h.Engine.FindAgentCodes(r.Context(), h.Registry.Current(), req.Name, req.Branch)
	if err != nil {
		h.fail(w, r, "Failed to look up agent", err)
		return
	}
	if len(codes) == 0 {
		writeError(w, http.StatusNotFound, "No agent matches that name and branch", nil)
		return
	}
	writeJSON(w, http.StatusOK, LookupDTO{
		Codes:               codes,
		NeedsDisambiguation: len(codes) > 1,
	})
}

// GetPrizes returns every scheme result for an agent.
func (h *Handler) GetPrizes(w http.ResponseWriter, r *http.Request) {
	snap := h.Registry.Current()
	bundle, err := h.Engine.EvaluateAgent(r.Context(), snap, chi.URLParam(r, "code"))
	if err != nil {
		h.fail(w, r, "Failed to evaluate agent", err)
		return
	}
	if !bundle.Matched() {
		writeError(w, http.StatusNotFound, "No data for this agent", nil)
		return
	}
	writeJSON(w, http.StatusOK, toBundleDTO(bundle, snap.Version))
}

// GetBand places an agent in a near-miss band.
func (h *Handler) GetBand(w http.ResponseWriter, r *http.Request) {
	folder, err := folderParam(r)
	if err != nil {
		h.fail(w, r, "Invalid folder", err)
		return
	}

	p, ok, err := h.Engine.Classify(r.Context(), h.Registry.Current(), chi.URLParam(r, "code"), folder)
	if err != nil {
		h.fail(w, r, "Failed to classify agent", err)
		return
	}
	dto := PlacementDTO{
		AgentCode: prize.Normalize(chi.URLParam(r, "code")),
		Folder:    string(folder),
		Placed:    ok,
	}
	if ok {
		dto.Band = p.Band.Label
		dto.Lower = f64(p.Band.Lower)
		dto.Upper = f64(p.Band.Upper)
		dto.Value = f64(p.Value)
		dto.Scheme = p.Result.SchemeName
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// MANAGER HANDLERS
// =============================================================================

// GetDownline lists the agents under a manager.
func (h *Handler) GetDownline(w http.ResponseWriter, r *http.Request) {
	d, err := h.Engine.Downline(r.Context(), h.Registry.Current(), chi.URLParam(r, "code"))
	if err != nil {
		h.fail(w, r, "Failed to list downline", err)
		return
	}

	dto := DownlineDTO{
		ManagerCode:    d.ManagerCode,
		Agents:         make([]AgentDTO, len(d.Agents)),
		RelaxedMatches: d.RelaxedMatches,
	}
	for i, a := range d.Agents {
		dto.Agents[i] = toAgentDTO(a)
	}
	writeJSON(w, http.StatusOK, dto)
}

// GetNearMiss groups a manager's downline by near-miss band.
func (h *Handler) GetNearMiss(w http.ResponseWriter, r *http.Request) {
	folder, err := folderParam(r)
	if err != nil {
		h.fail(w, r, "Invalid folder", err)
		return
	}

	report, err := h.Engine.NearMiss(r.Context(), h.Registry.Current(), chi.URLParam(r, "code"), folder)
	if err != nil {
		h.fail(w, r, "Failed to build near-miss report", err)
		return
	}
	writeJSON(w, http.StatusOK, toNearMissDTO(report))
}

// GetRoster returns the configured roster for a manager.
func (h *Handler) GetRoster(w http.ResponseWriter, r *http.Request) {
	report, err := h.Engine.Roster(r.Context(), h.Registry.Current(), chi.URLParam(r, "code"))
	if err != nil {
		h.fail(w, r, "Failed to build roster", err)
		return
	}
	writeJSON(w, http.StatusOK, toRosterDTO(report))
}

// =============================================================================
// HELPERS
// =============================================================================

// folderParam reads ?folder=, defaulting to the tier folder.
func folderParam(r *http.Request) (prize.Folder, error) {
	v := r.URL.Query().Get("folder")
	if v == "" {
		return prize.FolderTier, nil
	}
	return prize.ParseFolder(v)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, prize.ErrUnauthorized):
		return http.StatusUnauthorized
	case prize.IsNotFound(err):
		return http.StatusNotFound
	case prize.IsClientError(err),
		errors.Is(err, tabular.ErrUnsupportedFormat),
		errors.Is(err, tabular.ErrEmpty):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with the status it maps to. Server errors are logged.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error(message, zap.Error(err), zap.String("path", r.URL.Path))
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
