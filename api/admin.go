/*
admin.go - Configuration and table management endpoints

PURPOSE:
  Administrators edit schemes, upload performance tables and commit the
  configuration. Edits publish a new in-memory snapshot immediately; nothing
  reaches the store until POST /commit, except deleting all periodic schemes,
  which commits at once.

ENDPOINTS (all under /api/admin, password protected):
  POST   /login                 Check the password
  GET    /status                Version, committed version, dirty flag
  GET    /config                Current configuration document
  PUT    /config                Replace the configuration (uncommitted)
  POST   /commit                Persist the current configuration
  GET    /history               Stored configuration versions
  GET    /review                Schemes that queries will skip or read as zero

  POST   /schemes               Add a scheme with defaults {kind, file}
  DELETE /schemes               Delete every periodic scheme (commits)
  PUT    /schemes/{id}          Replace one scheme
  DELETE /schemes/{id}          Delete one scheme
  PUT    /schemes/{id}/tiers    Replace tiers from "threshold,rate" lines
  PUT    /roster                Replace the roster configuration

  GET    /tables                List uploaded tables
  POST   /tables                Upload a CSV/TSV (multipart field "file")
  DELETE /tables                Delete every table
  DELETE /tables/{name}         Delete one table

SEE ALSO:
  - handlers.go: Query endpoints and error mapping
  - factory/scheme.go: Configuration JSON format
*/
package api

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/meritzGA/meritz-prize/factory"
	"github.com/meritzGA/meritz-prize/prize"
	"github.com/meritzGA/meritz-prize/tabular"
)

// maxUploadSize bounds multipart uploads held in memory.
const maxUploadSize = 32 << 20

// =============================================================================
// AUTHENTICATION
// =============================================================================

// RequireAdmin rejects requests without the admin password, given as
// X-Admin-Password or "Authorization: Bearer <password>".
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h.checkAdmin(r); err != nil {
			h.log.Warn("admin access denied",
				zap.String("path", r.URL.Path),
				zap.String("remote", r.RemoteAddr))
			writeError(w, http.StatusUnauthorized, "Admin access denied", err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) checkAdmin(r *http.Request) error {
	if h.adminPassword == "" {
		return fmt.Errorf("%w: admin password is not configured", prize.ErrUnauthorized)
	}
	got := r.Header.Get("X-Admin-Password")
	if got == "" {
		got, _ = strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if subtle.ConstantTimeCompare([]byte(got), []byte(h.adminPassword)) != 1 {
		return prize.ErrUnauthorized
	}
	return nil
}

// Login succeeds when RequireAdmin let the request through.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// GetStatus reports configuration versions.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toStatusDTO(h.Registry.Status()))
}

// GetConfig returns the current configuration document.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Factory.ToJSON(h.Registry.Current().Config))
}

// PutConfig replaces the whole configuration without committing it.
func (h *Handler) PutConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body", err)
		return
	}
	cfg, err := h.Factory.ParseConfig(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid configuration", err)
		return
	}
	if _, err := h.Registry.Update(func(c *prize.Config) error {
		*c = cfg
		return nil
	}); err != nil {
		h.fail(w, r, "Failed to update configuration", err)
		return
	}
	writeJSON(w, http.StatusOK, toStatusDTO(h.Registry.Status()))
}

// Commit persists the current configuration.
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Registry.Commit(r.Context()); err != nil {
		h.fail(w, r, "Failed to commit configuration", err)
		return
	}
	writeJSON(w, http.StatusOK, toStatusDTO(h.Registry.Status()))
}

// GetHistory lists stored configuration versions, newest first.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	dtos := []CommitDTO{}
	if h.History == nil {
		writeJSON(w, http.StatusOK, dtos)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	commits, err := h.History.ConfigHistory(r.Context(), limit)
	if err != nil {
		h.fail(w, r, "Failed to list configuration history", err)
		return
	}
	for _, c := range commits {
		dtos = append(dtos, CommitDTO{Version: c.Version, Schemes: c.SchemeCount, CreatedAt: c.CreatedAt})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetReview lists configuration problems.
func (h *Handler) GetReview(w http.ResponseWriter, r *http.Request) {
	issues, err := h.Engine.Review(r.Context(), h.Registry.Current())
	if err != nil {
		h.fail(w, r, "Failed to review configuration", err)
		return
	}
	dtos := make([]IssueDTO, len(issues))
	for i, is := range issues {
		dtos[i] = IssueDTO{
			SchemeID:   is.SchemeID,
			SchemeName: is.SchemeName,
			Field:      is.Field,
			Severity:   string(is.Severity),
			Message:    is.Message,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// SCHEMES
// =============================================================================

// CreateScheme appends a scheme of the requested kind with default settings.
func (h *Handler) CreateScheme(w http.ResponseWriter, r *http.Request) {
	var req NewSchemeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	kind, err := factory.ParseKind("", req.Kind)
	if err != nil {
		h.fail(w, r, "Invalid scheme kind", err)
		return
	}

	var created prize.Scheme
	_, err = h.Registry.Update(func(c *prize.Config) error {
		number := 1
		for _, s := range c.Schemes {
			if (s.Kind() == prize.KindPassthrough) == (kind == prize.KindPassthrough) {
				number++
			}
		}
		s, err := h.Factory.NewScheme(kind, req.File, number)
		if err != nil {
			return err
		}
		c.Schemes = append(c.Schemes, s)
		created = s
		return nil
	})
	if err != nil {
		h.fail(w, r, "Failed to create scheme", err)
		return
	}
	writeJSON(w, http.StatusCreated, factory.SchemeToJSON(created))
}

// UpdateScheme replaces one scheme. The id in the path wins over the body.
func (h *Handler) UpdateScheme(w http.ResponseWriter, r *http.Request) {
	var sj factory.SchemeJSON
	if err := json.NewDecoder(r.Body).Decode(&sj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	sj.ID = chi.URLParam(r, "id")

	s, err := h.Factory.SchemeFromJSON(sj)
	if err != nil {
		h.fail(w, r, "Invalid scheme", err)
		return
	}
	if _, err := h.Registry.Update(func(c *prize.Config) error {
		i, err := schemeIndex(c, s.ID)
		if err != nil {
			return err
		}
		c.Schemes[i] = s
		return nil
	}); err != nil {
		h.fail(w, r, "Failed to update scheme", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.SchemeToJSON(s))
}

// DeleteScheme removes one scheme.
func (h *Handler) DeleteScheme(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Registry.Update(func(c *prize.Config) error {
		i, err := schemeIndex(c, id)
		if err != nil {
			return err
		}
		c.Schemes = append(c.Schemes[:i], c.Schemes[i+1:]...)
		return nil
	}); err != nil {
		h.fail(w, r, "Failed to delete scheme", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeletePeriodicSchemes removes every periodic scheme and commits at once.
func (h *Handler) DeletePeriodicSchemes(w http.ResponseWriter, r *http.Request) {
	removed := 0
	_, err := h.Registry.UpdateAndCommit(r.Context(), func(c *prize.Config) error {
		kept := c.Schemes[:0]
		for _, s := range c.Schemes {
			if s.Category() == prize.CategoryPeriodic {
				removed++
				continue
			}
			kept = append(kept, s)
		}
		c.Schemes = kept
		return nil
	})
	if err != nil {
		h.fail(w, r, "Failed to delete schemes", err)
		return
	}
	h.log.Info("periodic schemes deleted", zap.Int("removed", removed))
	writeJSON(w, http.StatusOK, map[string]any{
		"removed": removed,
		"status":  toStatusDTO(h.Registry.Status()),
	})
}

// PutTiers replaces a scheme's tiers from "threshold,rate" lines.
func (h *Handler) PutTiers(w http.ResponseWriter, r *http.Request) {
	var req TierTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	id := chi.URLParam(r, "id")
	tiers, err := factory.ParseTierText(req.Text)
	if err != nil {
		h.fail(w, r, "Invalid tiers", &prize.SchemeError{SchemeID: id, Field: "tiers", Err: err})
		return
	}

	var updated prize.Scheme
	if _, err := h.Registry.Update(func(c *prize.Config) error {
		i, err := schemeIndex(c, id)
		if err != nil {
			return err
		}
		if c.Schemes[i].Kind() == prize.KindPassthrough {
			return &prize.SchemeError{
				SchemeID: id,
				Field:    "tiers",
				Err:      fmt.Errorf("%w: cumulative schemes have no tiers", prize.ErrInvalidScheme),
			}
		}
		c.Schemes[i].Tiers = tiers
		updated = c.Schemes[i]
		return nil
	}); err != nil {
		h.fail(w, r, "Failed to update tiers", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.SchemeToJSON(updated))
}

// PutRoster replaces the roster configuration.
func (h *Handler) PutRoster(w http.ResponseWriter, r *http.Request) {
	var rj factory.RosterJSON
	if err := json.NewDecoder(r.Body).Decode(&rj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	rc, err := factory.RosterFromJSON(rj)
	if err != nil {
		h.fail(w, r, "Invalid roster", err)
		return
	}
	if _, err := h.Registry.Update(func(c *prize.Config) error {
		c.Roster = rc
		return nil
	}); err != nil {
		h.fail(w, r, "Failed to update roster", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.RosterToJSON(rc))
}

func schemeIndex(c *prize.Config, id string) (int, error) {
	for i, s := range c.Schemes {
		if s.ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", prize.ErrSchemeNotFound, id)
}

// =============================================================================
// TABLES
// =============================================================================

// ListTables summarizes uploaded tables.
func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	infos, err := h.Tables.ListTables(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list tables", err)
		return
	}
	dtos := make([]TableDTO, len(infos))
	for i, info := range infos {
		dtos[i] = toTableDTO(info)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// UploadTable stores an uploaded CSV/TSV, replacing a table of the same name.
func (h *Handler) UploadTable(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload", err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file", err)
		return
	}
	defer file.Close()

	t, err := tabular.Read(header.Filename, file)
	if err != nil {
		h.fail(w, r, "Failed to read table", err)
		return
	}
	if err := h.Tables.SaveTable(r.Context(), t); err != nil {
		h.fail(w, r, "Failed to save table", err)
		return
	}
	h.log.Info("table uploaded",
		zap.String("table", t.Name),
		zap.Int("rows", len(t.Rows)),
		zap.Int("columns", len(t.Columns)))
	writeJSON(w, http.StatusCreated, toTableDTO(t.Info()))
}

// DeleteTable removes one table.
func (h *Handler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	if err := h.Tables.DeleteTable(r.Context(), chi.URLParam(r, "name")); err != nil {
		h.fail(w, r, "Failed to delete table", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAllTables removes every table.
func (h *Handler) DeleteAllTables(w http.ResponseWriter, r *http.Request) {
	infos, err := h.Tables.ListTables(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list tables", err)
		return
	}
	for _, info := range infos {
		if err := h.Tables.DeleteTable(r.Context(), info.Name); err != nil {
			h.fail(w, r, "Failed to delete table", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": len(infos)})
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toStatusDTO(st prize.Status) StatusDTO {
	return StatusDTO{
		Version:          st.Version,
		CommittedVersion: st.CommittedVersion,
		Dirty:            st.Dirty,
		Schemes:          st.Schemes,
	}
}

func toTableDTO(info prize.TableInfo) TableDTO {
	return TableDTO{
		Name:       info.Name,
		Columns:    info.Columns,
		Rows:       info.Rows,
		UploadedAt: info.UploadedAt,
	}
}
