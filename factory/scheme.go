/*
Package factory provides JSON to Go scheme conversion.

PURPOSE:
  Converts the JSON configuration document into prize.Config and back. The
  document is what the admin screens edit and what the config store
  persists, so it keeps the key names of earlier saved configurations and
  still reads them.

JSON SCHEMA:
  {
    "schemes": [
      {
        "id": "0b5c...",
        "name": "3월 2주차 구간 시책",
        "desc": "3/8 ~ 3/14",
        "category": "weekly",
        "type": "flat_tier",
        "file": "weekly.csv",
        "col_code": "설계사코드",
        "col_name": "설계사명",
        "col_branch": "지사명",
        "col_agency": "대리점명",
        "col_manager": "지원매니저코드",
        "col_val": "실적",
        "col_val_prev": "",
        "col_val_curr": "",
        "col_prize": "",
        "curr_req": 100000,
        "tiers": [[500000, 300], [300000, 200], [200000, 200], [100000, 100]]
      }
    ],
    "roster": {
      "file": "manager.csv",
      "col_manager": "지원매니저코드",
      "base_cols": ["설계사명", "설계사코드"],
      "cols": [{"col": "실적", "type": "number", "condition": "> 0"}],
      "goals": [{"col": "실적", "targets": [100000, 200000, 300000]}],
      "tags": [{"col": "실적", "condition": ">= 500000", "name": "우수"}]
    }
  }

  A bare JSON array of schemes (the earliest saved format) is accepted too.

TYPE LABELS:
  "type" takes a kind name (flat_tier, bridge_confirmed, bridge_conditional,
  passthrough) or one of the labels older configurations were saved with:
    "구간 시책"                          -> flat_tier
    "브릿지 시책 (1기간: 시상 확정)"      -> bridge_confirmed
    "브릿지 시책 (2기간: 차월 달성 조건)" -> bridge_conditional
    "누계"                               -> passthrough
  An absent type is flat_tier. category "cumulative" always means
  passthrough; an absent category is "weekly". Any other label is rejected.

SEE ALSO:
  - prize/rule.go: The Rule variants built here
  - store/sqlite/sqlite.go: Persists the encoded document
*/
package factory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meritzGA/meritz-prize/prize"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ConfigJSON is the whole configuration document.
type ConfigJSON struct {
	Schemes []SchemeJSON `json:"schemes"`
	Roster  *RosterJSON  `json:"roster,omitempty"`
}

// SchemeJSON is the JSON representation of a scheme.
type SchemeJSON struct {
	ID         string       `json:"id,omitempty"`
	Name       string       `json:"name"`
	Desc       string       `json:"desc,omitempty"`
	Category   string       `json:"category,omitempty"`
	Type       string       `json:"type,omitempty"`
	File       string       `json:"file"`
	ColCode    string       `json:"col_code"`
	ColName    string       `json:"col_name,omitempty"`
	ColBranch  string       `json:"col_branch,omitempty"`
	ColAgency  string       `json:"col_agency,omitempty"`
	ColManager string       `json:"col_manager,omitempty"`
	ColVal     string       `json:"col_val,omitempty"`
	ColValPrev string       `json:"col_val_prev,omitempty"`
	ColValCurr string       `json:"col_val_curr,omitempty"`
	ColPrize   string       `json:"col_prize,omitempty"`
	CurrReq    *float64     `json:"curr_req,omitempty"`
	Tiers      [][2]float64 `json:"tiers,omitempty"`
}

// RosterJSON configures the manager roster view.
type RosterJSON struct {
	File       string             `json:"file"`
	ColManager string             `json:"col_manager"`
	BaseCols   []string           `json:"base_cols,omitempty"`
	Cols       []RosterColumnJSON `json:"cols,omitempty"`
	Goals      []GoalJSON         `json:"goals,omitempty"`
	Tags       []TagJSON          `json:"tags,omitempty"`
}

// RosterColumnJSON is an extra roster column. Type is "number" or "text"
// ("숫자" / "텍스트" in older documents).
type RosterColumnJSON struct {
	Col       string `json:"col"`
	Type      string `json:"type,omitempty"`
	Condition string `json:"condition,omitempty"`
}

type GoalJSON struct {
	Col     string    `json:"col"`
	Targets []float64 `json:"targets"`
}

type TagJSON struct {
	Col       string `json:"col"`
	Condition string `json:"condition"`
	Name      string `json:"name"`
}

// Legacy type labels.
const (
	LabelFlatTier          = "구간 시책"
	LabelBridgeConfirmed   = "브릿지 시책 (1기간: 시상 확정)"
	LabelBridgeConditional = "브릿지 시책 (2기간: 차월 달성 조건)"
	LabelCumulative        = "누계"
)

// =============================================================================
// SCHEME FACTORY
// =============================================================================

// SchemeFactory converts JSON schemes to Go structs.
type SchemeFactory struct {
	newID func() string
}

// NewSchemeFactory creates a factory that assigns random UUIDs to schemes
// saved without an id.
func NewSchemeFactory() *SchemeFactory {
	return &SchemeFactory{newID: func() string { return uuid.NewString() }}
}

// ParseConfig decodes a configuration document. Empty input is an empty config.
func (f *SchemeFactory) ParseConfig(data []byte) (prize.Config, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return prize.Config{}, nil
	}

	var cj ConfigJSON
	if data[0] == '[' {
		if err := json.Unmarshal(data, &cj.Schemes); err != nil {
			return prize.Config{}, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else if err := json.Unmarshal(data, &cj); err != nil {
		return prize.Config{}, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return f.FromJSON(cj)
}

// FromJSON converts a ConfigJSON to prize.Config.
func (f *SchemeFactory) FromJSON(cj ConfigJSON) (prize.Config, error) {
	var cfg prize.Config
	for i, sj := range cj.Schemes {
		s, err := f.SchemeFromJSON(sj)
		if err != nil {
			return prize.Config{}, fmt.Errorf("scheme %d: %w", i, err)
		}
		cfg.Schemes = append(cfg.Schemes, s)
	}
	if cj.Roster != nil {
		r, err := RosterFromJSON(*cj.Roster)
		if err != nil {
			return prize.Config{}, err
		}
		cfg.Roster = r
	}
	return cfg, nil
}

// SchemeFromJSON converts one SchemeJSON to a prize.Scheme.
func (f *SchemeFactory) SchemeFromJSON(sj SchemeJSON) (prize.Scheme, error) {
	id := sj.ID
	if id == "" {
		id = f.newID()
	}

	kind, err := ParseKind(sj.Category, sj.Type)
	if err != nil {
		return prize.Scheme{}, &prize.SchemeError{SchemeID: id, Field: "type", Err: err}
	}

	requirement := prize.DefaultRequirement
	if sj.CurrReq != nil {
		requirement = decimal.NewFromFloat(*sj.CurrReq)
	}

	var rule prize.Rule
	switch kind {
	case prize.KindFlatTier:
		rule = prize.FlatTier{ValueColumn: sj.ColVal}
	case prize.KindBridgeConfirmed:
		rule = prize.BridgeConfirmed{PriorColumn: sj.ColValPrev, CurrentColumn: sj.ColValCurr, Requirement: requirement}
	case prize.KindBridgeConditional:
		rule = prize.BridgeConditional{CurrentColumn: sj.ColValCurr, Requirement: requirement}
	case prize.KindPassthrough:
		rule = prize.Passthrough{ValueColumn: sj.ColVal, PrizeColumn: sj.ColPrize}
	}

	var tiers prize.TierTable
	if kind != prize.KindPassthrough {
		list := make([]prize.Tier, 0, len(sj.Tiers))
		for _, t := range sj.Tiers {
			list = append(list, prize.NewTier(t[0], t[1]))
		}
		tiers, err = prize.NewTierTable(list...)
		if err != nil {
			return prize.Scheme{}, &prize.SchemeError{SchemeID: id, Field: "tiers", Err: err}
		}
	}

	return prize.Scheme{
		ID:          id,
		Name:        strings.TrimSpace(sj.Name),
		Description: sj.Desc,
		SourceTable: sj.File,
		Columns: prize.Columns{
			AgentCode:   sj.ColCode,
			AgentName:   sj.ColName,
			Branch:      sj.ColBranch,
			Agency:      sj.ColAgency,
			ManagerCode: sj.ColManager,
		},
		Rule:  rule,
		Tiers: tiers,
	}, nil
}

// ParseKind resolves a category and type label to a kind.
func ParseKind(category, label string) (prize.Kind, error) {
	switch strings.TrimSpace(category) {
	case "", string(prize.CategoryPeriodic):
	case string(prize.CategoryCumulative):
		return prize.KindPassthrough, nil
	default:
		return "", fmt.Errorf("%w: category %q", prize.ErrUnknownKind, category)
	}

	switch strings.TrimSpace(label) {
	case "", LabelFlatTier, string(prize.KindFlatTier):
		return prize.KindFlatTier, nil
	case LabelBridgeConfirmed, string(prize.KindBridgeConfirmed):
		return prize.KindBridgeConfirmed, nil
	case LabelBridgeConditional, string(prize.KindBridgeConditional):
		return prize.KindBridgeConditional, nil
	case LabelCumulative, string(prize.KindPassthrough):
		return prize.KindPassthrough, nil
	default:
		return "", fmt.Errorf("%w: %q", prize.ErrUnknownKind, label)
	}
}

// RosterFromJSON converts the roster section, parsing every condition.
func RosterFromJSON(rj RosterJSON) (prize.RosterConfig, error) {
	rc := prize.RosterConfig{
		SourceTable:   rj.File,
		ManagerColumn: rj.ColManager,
		BaseColumns:   append([]string(nil), rj.BaseCols...),
	}

	for _, c := range rj.Cols {
		col := prize.RosterColumn{Column: c.Col, Numeric: isNumericType(c.Type)}
		if col.Numeric && strings.TrimSpace(c.Condition) != "" {
			cond, err := prize.ParseCondition(c.Condition)
			if err != nil {
				return prize.RosterConfig{}, fmt.Errorf("roster column %q: %w", c.Col, err)
			}
			col.Filter = &cond
		}
		rc.Columns = append(rc.Columns, col)
	}

	for _, g := range rj.Goals {
		targets := make([]decimal.Decimal, 0, len(g.Targets))
		for _, t := range g.Targets {
			targets = append(targets, decimal.NewFromFloat(t))
		}
		rc.Goals = append(rc.Goals, prize.Goal{Column: g.Col, Targets: sortTargets(targets)})
	}

	for _, t := range rj.Tags {
		cond, err := prize.ParseCondition(t.Condition)
		if err != nil {
			return prize.RosterConfig{}, fmt.Errorf("roster tag %q: %w", t.Name, err)
		}
		rc.Tags = append(rc.Tags, prize.Tag{Name: t.Name, Column: t.Col, Condition: cond})
	}
	return rc, nil
}

func isNumericType(s string) bool {
	switch strings.TrimSpace(s) {
	case "number", "numeric", "숫자":
		return true
	default:
		return false
	}
}

// sortTargets orders goal targets ascending and drops duplicates.
func sortTargets(ts []decimal.Decimal) []decimal.Decimal {
	sort.Slice(ts, func(i, j int) bool { return ts[i].LessThan(ts[j]) })
	out := ts[:0]
	for i, t := range ts {
		if i > 0 && t.Equal(ts[i-1]) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// =============================================================================
// ENCODING
// =============================================================================

// EncodeConfig renders cfg as an indented configuration document.
func (f *SchemeFactory) EncodeConfig(cfg prize.Config) ([]byte, error) {
	data, err := json.MarshalIndent(f.ToJSON(cfg), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return data, nil
}

// ToJSON converts prize.Config to ConfigJSON.
func (f *SchemeFactory) ToJSON(cfg prize.Config) ConfigJSON {
	cj := ConfigJSON{Schemes: make([]SchemeJSON, 0, len(cfg.Schemes))}
	for _, s := range cfg.Schemes {
		cj.Schemes = append(cj.Schemes, SchemeToJSON(s))
	}
	if cfg.Roster.SourceTable != "" || cfg.Roster.ManagerColumn != "" {
		rj := RosterToJSON(cfg.Roster)
		cj.Roster = &rj
	}
	return cj
}

// SchemeToJSON converts a prize.Scheme to SchemeJSON.
func SchemeToJSON(s prize.Scheme) SchemeJSON {
	sj := SchemeJSON{
		ID:         s.ID,
		Name:       s.Name,
		Desc:       s.Description,
		Category:   string(s.Category()),
		Type:       string(s.Kind()),
		File:       s.SourceTable,
		ColCode:    s.Columns.AgentCode,
		ColName:    s.Columns.AgentName,
		ColBranch:  s.Columns.Branch,
		ColAgency:  s.Columns.Agency,
		ColManager: s.Columns.ManagerCode,
	}

	switch r := s.Rule.(type) {
	case prize.FlatTier:
		sj.ColVal = r.ValueColumn
	case prize.BridgeConfirmed:
		sj.ColValPrev, sj.ColValCurr = r.PriorColumn, r.CurrentColumn
		req := r.Requirement.InexactFloat64()
		sj.CurrReq = &req
	case prize.BridgeConditional:
		sj.ColValCurr = r.CurrentColumn
		req := r.Requirement.InexactFloat64()
		sj.CurrReq = &req
	case prize.Passthrough:
		sj.ColVal, sj.ColPrize = r.ValueColumn, r.PrizeColumn
	}

	for _, t := range s.Tiers {
		sj.Tiers = append(sj.Tiers, [2]float64{t.Threshold.InexactFloat64(), t.Rate.InexactFloat64()})
	}
	return sj
}

// RosterToJSON converts a prize.RosterConfig to RosterJSON.
func RosterToJSON(rc prize.RosterConfig) RosterJSON {
	rj := RosterJSON{
		File:       rc.SourceTable,
		ColManager: rc.ManagerColumn,
		BaseCols:   rc.BaseColumns,
	}
	for _, c := range rc.Columns {
		cj := RosterColumnJSON{Col: c.Column, Type: "text"}
		if c.Numeric {
			cj.Type = "number"
		}
		if c.Filter != nil {
			cj.Condition = c.Filter.String()
		}
		rj.Cols = append(rj.Cols, cj)
	}
	for _, g := range rc.Goals {
		gj := GoalJSON{Col: g.Column}
		for _, t := range g.Targets {
			gj.Targets = append(gj.Targets, t.InexactFloat64())
		}
		rj.Goals = append(rj.Goals, gj)
	}
	for _, t := range rc.Tags {
		rj.Tags = append(rj.Tags, TagJSON{Col: t.Column, Condition: t.Condition.String(), Name: t.Name})
	}
	return rj
}

// =============================================================================
// DEFAULTS & TIER TEXT
// =============================================================================

// NewScheme returns a scheme of the given kind with the defaults new schemes
// start with: the default tier set for periodic kinds, the default
// requirement for bridge kinds, and a numbered placeholder name.
func (f *SchemeFactory) NewScheme(kind prize.Kind, table string, number int) (prize.Scheme, error) {
	s := prize.Scheme{ID: f.newID(), SourceTable: table}
	switch kind {
	case prize.KindFlatTier:
		s.Rule = prize.FlatTier{}
	case prize.KindBridgeConfirmed:
		s.Rule = prize.BridgeConfirmed{Requirement: prize.DefaultRequirement}
	case prize.KindBridgeConditional:
		s.Rule = prize.BridgeConditional{Requirement: prize.DefaultRequirement}
	case prize.KindPassthrough:
		s.Rule = prize.Passthrough{}
		s.Name = fmt.Sprintf("신규 누계 항목 %d", number)
		return s, nil
	default:
		return prize.Scheme{}, fmt.Errorf("%w: %q", prize.ErrUnknownKind, kind)
	}
	s.Name = fmt.Sprintf("신규 주차 시책 %d", number)
	s.Tiers = prize.DefaultTiers()
	return s, nil
}

// ParseTierText reads one "threshold,rate" pair per line. Blank lines and
// lines without a comma are ignored; thousands separators are not allowed
// since the comma separates the two fields.
func ParseTierText(text string) (prize.TierTable, error) {
	var tiers []prize.Tier
	for n, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.Contains(line, ",") {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: line %d: %q", prize.ErrInvalidTier, n+1, line)
		}
		threshold, err := decimal.NewFromString(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: threshold %q", prize.ErrInvalidTier, n+1, parts[0])
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: rate %q", prize.ErrInvalidTier, n+1, parts[1])
		}
		tiers = append(tiers, prize.Tier{Threshold: threshold, Rate: rate})
	}
	return prize.NewTierTable(tiers...)
}

// FormatTierText renders tiers the way ParseTierText reads them, highest first.
func FormatTierText(tiers prize.TierTable) string {
	lines := make([]string, 0, len(tiers))
	for _, t := range tiers {
		lines = append(lines, t.Threshold.String()+","+t.Rate.String())
	}
	return strings.Join(lines, "\n")
}

// ParseAmountText reads an amount typed by an administrator, allowing
// thousands separators.
func ParseAmountText(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q", prize.ErrInvalidScheme, s)
	}
	return d, nil
}
