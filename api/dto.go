/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Amounts are
  decimal.Decimal inside the engine and float64 here; conversion happens
  once, in the to*DTO helpers.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Agent:
    LookupRequest, LookupDTO, BundleDTO, ResultDTO, PlacementDTO

  Manager:
    DownlineDTO, NearMissDTO, RosterDTO

  Admin:
    StatusDTO, NewSchemeRequest, TierTextRequest, IssueDTO, TableDTO, CommitDTO
    (schemes and roster use factory.SchemeJSON / factory.RosterJSON)

SEE ALSO:
  - handlers.go, admin.go: Use these types
  - factory/scheme.go: SchemeJSON, RosterJSON
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meritzGA/meritz-prize/prize"
)

// =============================================================================
// AGENT
// =============================================================================

// LookupRequest identifies an agent by name and branch code.
type LookupRequest struct {
	Name   string `json:"name"`
	Branch string `json:"branch"`
}

// LookupDTO lists the agent codes a lookup matched.
type LookupDTO struct {
	Codes               []string `json:"codes"`
	NeedsDisambiguation bool     `json:"needs_disambiguation"`
}

// ResultDTO is one scheme's result for an agent.
type ResultDTO struct {
	SchemeID         string   `json:"scheme_id"`
	Name             string   `json:"name"`
	Description      string   `json:"desc,omitempty"`
	Category         string   `json:"category"`
	Kind             string   `json:"kind"`
	Value            float64  `json:"value"`
	PriorValue       *float64 `json:"prior_value,omitempty"`
	CurrentValue     *float64 `json:"current_value,omitempty"`
	Tier             float64  `json:"tier"`
	Achieved         bool     `json:"achieved"`
	Rate             float64  `json:"rate"`
	Requirement      *float64 `json:"requirement,omitempty"`
	NextTier         *float64 `json:"next_tier,omitempty"`
	Shortfall        float64  `json:"shortfall"`
	CurrentShortfall float64  `json:"current_shortfall,omitempty"`
	Prize            float64  `json:"prize"`
	Projected        bool     `json:"projected,omitempty"`
}

// BundleDTO is every result for one agent.
type BundleDTO struct {
	AgentCode  string      `json:"agent_code"`
	Results    []ResultDTO `json:"results"`
	Total      float64     `json:"total"`
	Periodic   float64     `json:"periodic_total"`
	Cumulative float64     `json:"cumulative_total"`
	Version    int64       `json:"config_version"`
}

// PlacementDTO is the near-miss band an agent falls into.
type PlacementDTO struct {
	AgentCode string  `json:"agent_code"`
	Folder    string  `json:"folder"`
	Band      string  `json:"band,omitempty"`
	Lower     float64 `json:"lower"`
	Upper     float64 `json:"upper"`
	Value     float64 `json:"value"`
	Scheme    string  `json:"scheme,omitempty"`
	Placed    bool    `json:"placed"`
}

// =============================================================================
// MANAGER
// =============================================================================

// AgentDTO is one downline member.
type AgentDTO struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Agency string `json:"agency"`
}

// DownlineDTO lists a manager's agents.
type DownlineDTO struct {
	ManagerCode    string     `json:"manager_code"`
	Agents         []AgentDTO `json:"agents"`
	RelaxedMatches int        `json:"relaxed_matches"`
}

// NearMissMemberDTO is one agent in a band.
type NearMissMemberDTO struct {
	AgentDTO
	Value     float64 `json:"value"`
	Scheme    string  `json:"scheme"`
	Shortfall float64 `json:"shortfall"`
}

// NearMissGroupDTO is one band.
type NearMissGroupDTO struct {
	Band    string              `json:"band"`
	Lower   float64             `json:"lower"`
	Upper   float64             `json:"upper"`
	Count   int                 `json:"count"`
	Members []NearMissMemberDTO `json:"members"`
}

// NearMissDTO groups a manager's downline by band.
type NearMissDTO struct {
	ManagerCode    string             `json:"manager_code"`
	Folder         string             `json:"folder"`
	Agents         int                `json:"agents"`
	Groups         []NearMissGroupDTO `json:"groups"`
	RelaxedMatches int                `json:"relaxed_matches"`
}

// GoalDTO is a roster row's progress toward one goal.
type GoalDTO struct {
	Column    string   `json:"column"`
	Value     float64  `json:"value"`
	Next      *float64 `json:"next,omitempty"`
	Label     string   `json:"label"`
	Shortfall float64  `json:"shortfall"`
}

// RosterRowDTO is one roster row.
type RosterRowDTO struct {
	Cells map[string]any `json:"cells"`
	Goals []GoalDTO      `json:"goals,omitempty"`
	Tags  string         `json:"tags,omitempty"`
}

// RosterDTO is a manager's roster.
type RosterDTO struct {
	ManagerCode    string         `json:"manager_code"`
	Columns        []string       `json:"columns"`
	Rows           []RosterRowDTO `json:"rows"`
	Matched        int            `json:"matched"`
	RelaxedMatches int            `json:"relaxed_matches"`
}

// =============================================================================
// ADMIN
// =============================================================================

// StatusDTO reports configuration versions.
type StatusDTO struct {
	Version          int64 `json:"version"`
	CommittedVersion int64 `json:"committed_version"`
	Dirty            bool  `json:"dirty"`
	Schemes          int   `json:"schemes"`
}

// NewSchemeRequest adds a scheme with default settings.
type NewSchemeRequest struct {
	Kind string `json:"kind"`
	File string `json:"file"`
}

// TierTextRequest replaces a scheme's tiers from "threshold,rate" lines.
type TierTextRequest struct {
	Text string `json:"text"`
}

// IssueDTO is one configuration review finding.
type IssueDTO struct {
	SchemeID   string `json:"scheme_id"`
	SchemeName string `json:"scheme_name"`
	Field      string `json:"field"`
	Severity   string `json:"severity"`
	Message    string `json:"message"`
}

// TableDTO summarizes an uploaded table.
type TableDTO struct {
	Name       string    `json:"name"`
	Columns    []string  `json:"columns"`
	Rows       int       `json:"rows"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// CommitDTO is one stored configuration version.
type CommitDTO struct {
	Version   int64     `json:"version"`
	Schemes   int       `json:"schemes"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrorResponse is returned for all errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func f64(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func f64p(d decimal.Decimal) *float64 {
	v := d.InexactFloat64()
	return &v
}

func toResultDTO(r prize.Result) ResultDTO {
	dto := ResultDTO{
		SchemeID:         r.SchemeID,
		Name:             r.SchemeName,
		Description:      r.Description,
		Category:         string(r.Category),
		Kind:             string(r.Kind),
		Value:            f64(r.Value),
		Tier:             f64(r.Tier.Threshold),
		Achieved:         r.Achieved,
		Rate:             f64(r.Rate),
		Shortfall:        f64(r.Shortfall),
		CurrentShortfall: f64(r.CurrentShortfall),
		Prize:            f64(r.Prize),
		Projected:        r.Projected,
	}
	if r.Kind.IsBridge() {
		dto.CurrentValue = f64p(r.CurrentValue)
		dto.Requirement = f64p(r.Requirement)
	}
	if r.Kind == prize.KindBridgeConfirmed {
		dto.PriorValue = f64p(r.PriorValue)
	}
	if r.HasNext {
		dto.NextTier = f64p(r.NextTier)
	}
	return dto
}

func toBundleDTO(b *prize.Bundle, version int64) BundleDTO {
	dto := BundleDTO{
		AgentCode:  b.AgentCode,
		Results:    make([]ResultDTO, len(b.Results)),
		Total:      f64(b.Total),
		Periodic:   f64(b.Subtotals.Periodic),
		Cumulative: f64(b.Subtotals.Cumulative),
		Version:    version,
	}
	for i, r := range b.Results {
		dto.Results[i] = toResultDTO(r)
	}
	return dto
}

func toAgentDTO(a prize.Agent) AgentDTO {
	return AgentDTO{Code: a.Code, Name: a.Name, Agency: a.Agency}
}

func toNearMissDTO(r *prize.NearMissReport) NearMissDTO {
	dto := NearMissDTO{
		ManagerCode:    r.ManagerCode,
		Folder:         string(r.Folder),
		Agents:         r.Agents,
		Groups:         make([]NearMissGroupDTO, len(r.Groups)),
		RelaxedMatches: r.RelaxedMatches,
	}
	for i, g := range r.Groups {
		gd := NearMissGroupDTO{
			Band:    g.Band.Label,
			Lower:   f64(g.Band.Lower),
			Upper:   f64(g.Band.Upper),
			Count:   len(g.Members),
			Members: make([]NearMissMemberDTO, len(g.Members)),
		}
		for j, m := range g.Members {
			gd.Members[j] = NearMissMemberDTO{
				AgentDTO:  toAgentDTO(m.Agent),
				Value:     f64(m.Value),
				Scheme:    m.SchemeName,
				Shortfall: f64(m.Shortfall),
			}
		}
		dto.Groups[i] = gd
	}
	return dto
}

func toRosterDTO(r *prize.RosterReport) RosterDTO {
	dto := RosterDTO{
		ManagerCode:    r.ManagerCode,
		Columns:        r.Columns,
		Rows:           make([]RosterRowDTO, len(r.Rows)),
		Matched:        r.Matched,
		RelaxedMatches: r.RelaxedMatches,
	}
	for i, row := range r.Rows {
		cells := make(map[string]any, len(row.Cells))
		for k, v := range row.Cells {
			if d, ok := v.(decimal.Decimal); ok {
				cells[k] = f64(d)
				continue
			}
			cells[k] = v
		}
		rd := RosterRowDTO{Cells: cells, Tags: row.TagText()}
		for _, g := range row.Goals {
			gd := GoalDTO{Column: g.Column, Value: f64(g.Value), Label: g.Label, Shortfall: f64(g.Shortfall)}
			if g.HasNext {
				gd.Next = f64p(g.Next)
			}
			rd.Goals = append(rd.Goals, gd)
		}
		dto.Rows[i] = rd
	}
	return dto
}
