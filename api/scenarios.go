/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Populates the store with a realistic month of performance data and a
  matching configuration so the frontend can be tried without real exports.

AVAILABLE SCENARIOS:
  weekly-basic:  One weekly tier scheme, two managers
  bridge:        Confirmed and conditional bridge schemes
  full-month:    Weekly + bridge + cumulative schemes and a manager roster

HOW SCENARIOS WORK:
  1. Reset the store (tables and configuration history)
  2. Parse the scenario's CSV files with the upload reader
  3. Parse the scenario's configuration document with the factory
  4. Commit the configuration

USAGE VIA API:
  GET  /api/admin/scenarios
  POST /api/admin/scenarios/load
  {"scenario_id": "full-month"}

NOTE:
  Scenarios wipe every table and configuration version. Only use in
  development/demo environments.

SEE ALSO:
  - admin.go: Table and configuration endpoints
  - factory/scheme.go: Configuration document format
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/meritzGA/meritz-prize/prize"
	"github.com/meritzGA/meritz-prize/tabular"
)

// Resetter wipes every table and configuration version.
type Resetter interface {
	Reset(ctx context.Context) error
}

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

type scenario struct {
	ScenarioDTO
	files  map[string]string
	config string
}

// =============================================================================
// SCENARIO DATA
// =============================================================================

const weeklyCSV = `사번,성명,지점,대리점,매니저코드,실적
1001,김철수,11지점,한빛,M100,"250,000"
1002,이영희,1지점,한빛,M100,90000
1003,박민수,1지점,새솔,M100,480000
1004,김철수,2지점,새솔,M200,510000
1005,최지우,2지점,새솔,M200,
1006,정하늘,3지점,푸른,M200,"130,000"
`

const bridgeCSV = `사번,성명,지점,대리점,매니저코드,전월실적,당월실적
1001,김철수,11지점,한빛,M100,320000,150000
1002,이영희,1지점,한빛,M100,120000,40000
1003,박민수,1지점,새솔,M100,90000,210000
1004,김철수,2지점,새솔,M200,550000,220000
`

const cumulativeCSV = `사번,누계실적,누계시상
1001,1250000,350000
1003,2100000,720000
1004,980000,0
`

const managerCSV = `지원매니저코드,사번,성명,월실적,신계약건수,비고
M100,1001,김철수,"250,000",3,
M100,1002,이영희,90000,0,신규
M100,1003,박민수,480000,5,
M200,1004,김철수,510000,6,
M200,1006,정하늘,130000,1,복귀
`

const weeklyScheme = `{
      "id": "weekly",
      "name": "3월 2주차 구간 시책",
      "desc": "주차 실적 구간별 시상",
      "type": "구간 시책",
      "file": "weekly.csv",
      "col_code": "사번",
      "col_name": "성명",
      "col_branch": "지점",
      "col_agency": "대리점",
      "col_manager": "매니저코드",
      "col_val": "실적",
      "tiers": [[100000, 100], [200000, 200], [300000, 200], [500000, 300]]
    }`

const bridgeSchemes = `{
      "id": "bridge-confirmed",
      "name": "3월 브릿지 (확정)",
      "type": "브릿지 시책 (1기간: 시상 확정)",
      "file": "bridge.csv",
      "col_code": "사번",
      "col_name": "성명",
      "col_branch": "지점",
      "col_agency": "대리점",
      "col_manager": "매니저코드",
      "col_val_prev": "전월실적",
      "col_val_curr": "당월실적",
      "curr_req": 100000,
      "tiers": [[100000, 100], [300000, 200], [500000, 300]]
    },
    {
      "id": "bridge-next",
      "name": "4월 브릿지 (차월 조건)",
      "type": "브릿지 시책 (2기간: 차월 달성 조건)",
      "file": "bridge.csv",
      "col_code": "사번",
      "col_name": "성명",
      "col_manager": "매니저코드",
      "col_val_curr": "당월실적",
      "curr_req": 100000,
      "tiers": [[100000, 100], [200000, 200]]
    }`

const cumulativeScheme = `{
      "id": "cumulative",
      "name": "3월 누계",
      "category": "cumulative",
      "type": "누계",
      "file": "cumulative.csv",
      "col_code": "사번",
      "col_val": "누계실적",
      "col_prize": "누계시상"
    }`

const rosterDoc = `{
    "file": "manager.csv",
    "col_manager": "지원매니저코드",
    "base_cols": ["사번", "성명"],
    "cols": [
      {"col": "월실적", "type": "number", "condition": ">= 100000"},
      {"col": "비고", "type": "text"}
    ],
    "goals": [{"col": "월실적", "targets": [300000, 500000]}],
    "tags": [{"col": "신계약건수", "condition": ">= 5", "name": "우수"}]
  }`

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "weekly-basic",
			Name:        "Weekly Tiers",
			Description: "One weekly tier scheme across two managers",
		},
		files:  map[string]string{"weekly.csv": weeklyCSV},
		config: `{"schemes": [` + weeklyScheme + `]}`,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "bridge",
			Name:        "Bridge Schemes",
			Description: "Confirmed and next-month conditional bridge schemes",
		},
		files:  map[string]string{"bridge.csv": bridgeCSV},
		config: `{"schemes": [` + bridgeSchemes + `]}`,
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "full-month",
			Name:        "Full Month",
			Description: "Weekly, bridge and cumulative schemes with a manager roster",
		},
		files: map[string]string{
			"weekly.csv":     weeklyCSV,
			"bridge.csv":     bridgeCSV,
			"cumulative.csv": cumulativeCSV,
			"manager.csv":    managerCSV,
		},
		config: `{"schemes": [` + weeklyScheme + `,` + bridgeSchemes + `,` + cumulativeScheme + `], "roster": ` + rosterDoc + `}`,
	},
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns the available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, sc := range scenarios {
		dtos[i] = sc.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, dtos)
}

// LoadScenario wipes the store and loads a demo scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	if h.Resetter == nil {
		writeError(w, http.StatusNotImplemented, "Scenarios are not available on this store", nil)
		return
	}

	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return
	}
	sc, ok := findScenario(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}

	if err := h.loadScenario(r.Context(), sc); err != nil {
		h.fail(w, r, "Failed to load scenario", err)
		return
	}
	h.log.Info("scenario loaded", zap.String("scenario", sc.ID))
	writeJSON(w, http.StatusOK, map[string]any{
		"scenario": sc.ScenarioDTO,
		"status":   toStatusDTO(h.Registry.Status()),
	})
}

func findScenario(id string) (scenario, bool) {
	for _, sc := range scenarios {
		if sc.ID == id {
			return sc, true
		}
	}
	return scenario{}, false
}

func (h *Handler) loadScenario(ctx context.Context, sc scenario) error {
	cfg, err := h.Factory.ParseConfig([]byte(sc.config))
	if err != nil {
		return fmt.Errorf("scenario %s: %w", sc.ID, err)
	}

	tables := make([]*prize.Table, 0, len(sc.files))
	for name, content := range sc.files {
		t, err := tabular.Read(name, strings.NewReader(content))
		if err != nil {
			return fmt.Errorf("scenario %s: %w", sc.ID, err)
		}
		tables = append(tables, t)
	}

	if err := h.Resetter.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset store: %w", err)
	}
	for _, t := range tables {
		if err := h.Tables.SaveTable(ctx, t); err != nil {
			return err
		}
	}
	_, err = h.Registry.UpdateAndCommit(ctx, func(c *prize.Config) error {
		*c = cfg
		return nil
	})
	return err
}
