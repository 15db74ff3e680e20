/*
roster.go - Manager roster view

PURPOSE:
  The roster is a second, column-oriented view of a manager's agents, read
  from one configured table. An administrator picks which columns to show,
  filters rows with numeric conditions, sets goal targets on a column and
  defines tags that mark rows meeting a condition.

ROW PIPELINE:
  1. Rows whose manager cell matches the manager code (engine match mode)
  2. Numeric display columns with a filter drop rows that fail it
  3. Goal columns get the next target above the value and the shortfall
  4. Tag rules append their name to every row that satisfies them

  Numeric cells that do not parse read as zero, for filters, goals and tags
  alike.

SEE ALSO:
  - condition.go: The closed condition type used by filters and tags
  - nearmiss.go: Band-oriented view of the same downline
*/
package prize

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// TopGoalLabel is shown when a value has passed every goal target.
const TopGoalLabel = "최고 구간 달성"

// DefaultRosterColumns are shown before any configured column when present.
var DefaultRosterColumns = []string{"현재대리점설계사조직명_MC", "현재대리점지사명", "설계사명", "설계사코드"}

// =============================================================================
// CONFIGURATION
// =============================================================================

// RosterColumn is an extra display column. Numeric columns may carry a filter.
type RosterColumn struct {
	Column  string
	Numeric bool
	Filter  *Condition
}

// Goal sets ascending targets on a numeric column.
type Goal struct {
	Column  string
	Targets []decimal.Decimal
}

// Tag marks rows whose column satisfies Condition.
type Tag struct {
	Name      string
	Column    string
	Condition Condition
}

// RosterConfig configures the roster view. An empty SourceTable disables it.
type RosterConfig struct {
	SourceTable   string
	ManagerColumn string
	BaseColumns   []string
	Columns       []RosterColumn
	Goals         []Goal
	Tags          []Tag
}

// Enabled reports whether a roster table and manager column are configured.
func (c RosterConfig) Enabled() bool {
	return c.SourceTable != "" && c.ManagerColumn != ""
}

func (c RosterConfig) clone() RosterConfig {
	out := c
	out.BaseColumns = append([]string(nil), c.BaseColumns...)
	out.Columns = append([]RosterColumn(nil), c.Columns...)
	out.Tags = append([]Tag(nil), c.Tags...)
	out.Goals = make([]Goal, len(c.Goals))
	for i, g := range c.Goals {
		g.Targets = append([]decimal.Decimal(nil), g.Targets...)
		out.Goals[i] = g
	}
	return out
}

// =============================================================================
// REPORT
// =============================================================================

// GoalProgress is a row's position against one goal.
type GoalProgress struct {
	Column    string
	Value     decimal.Decimal
	Next      decimal.Decimal
	HasNext   bool
	Label     string
	Shortfall decimal.Decimal
}

// RosterRow is one displayed row. Cells holds decimal.Decimal for numeric
// columns and string otherwise, keyed by column name.
type RosterRow struct {
	Cells map[string]any
	Goals []GoalProgress
	Tags  []string
}

// TagText renders tags the way the roster shows them: "[a] [b] ".
func (r RosterRow) TagText() string {
	var b strings.Builder
	for _, t := range r.Tags {
		b.WriteString("[" + t + "] ")
	}
	return b.String()
}

// RosterReport is the roster for one manager.
type RosterReport struct {
	ManagerCode    string
	Columns        []string
	Rows           []RosterRow
	Matched        int
	RelaxedMatches int
}

// =============================================================================
// BUILD
// =============================================================================

// Roster loads the configured roster table and builds the manager's roster.
func (e *Engine) Roster(ctx context.Context, snap *Snapshot, managerCode string) (*RosterReport, error) {
	if snap == nil || !snap.Roster.Enabled() {
		return nil, fmt.Errorf("%w: roster is not configured", ErrTableNotFound)
	}
	t, err := e.tables.Table(ctx, snap.Roster.SourceTable)
	if err != nil {
		return nil, fmt.Errorf("roster: load table %q: %w", snap.Roster.SourceTable, err)
	}
	if t == nil {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, snap.Roster.SourceTable)
	}
	report := BuildRoster(t, snap.Roster, managerCode, e.mode)
	if report.RelaxedMatches > 0 {
		e.log.Warn("manager code matched by containment",
			zap.String("manager", report.ManagerCode),
			zap.String("table", t.Name),
			zap.Int("rows", report.RelaxedMatches))
	}
	return report, nil
}

// BuildRoster applies cfg to the rows of t that belong to managerCode.
func BuildRoster(t *Table, cfg RosterConfig, managerCode string, mode MatchMode) *RosterReport {
	report := &RosterReport{ManagerCode: Normalize(managerCode)}

	base := cfg.BaseColumns
	if len(base) == 0 {
		base = DefaultRosterColumns
	}
	numeric := make(map[string]bool)
	for _, c := range base {
		if t.HasColumn(c) {
			report.Columns = appendUnique(report.Columns, c)
		}
	}
	for _, c := range cfg.Columns {
		if !t.HasColumn(c.Column) {
			continue
		}
		report.Columns = appendUnique(report.Columns, c.Column)
		if c.Numeric {
			numeric[c.Column] = true
		}
	}
	for _, g := range cfg.Goals {
		if t.HasColumn(g.Column) {
			numeric[g.Column] = true
		}
	}

	rows, relaxed := t.FindManaged(cfg.ManagerColumn, report.ManagerCode, mode)
	report.Matched = len(rows)
	report.RelaxedMatches = relaxed

	for _, row := range rows {
		if !passesFilters(row, cfg.Columns) {
			continue
		}
		out := RosterRow{Cells: make(map[string]any, len(report.Columns))}
		for _, c := range report.Columns {
			if numeric[c] {
				out.Cells[c] = ParseAmount(row.Value(c))
			} else {
				out.Cells[c] = DisplayText(row.Value(c))
			}
		}
		for _, g := range cfg.Goals {
			if t.HasColumn(g.Column) {
				out.Goals = append(out.Goals, goalProgress(g, ParseAmount(row.Value(g.Column))))
			}
		}
		for _, tag := range cfg.Tags {
			if t.HasColumn(tag.Column) && tag.Condition.Match(ParseAmount(row.Value(tag.Column))) {
				out.Tags = append(out.Tags, tag.Name)
			}
		}
		report.Rows = append(report.Rows, out)
	}
	return report
}

func passesFilters(row Row, cols []RosterColumn) bool {
	for _, c := range cols {
		if !c.Numeric || c.Filter == nil {
			continue
		}
		if !c.Filter.Match(ParseAmount(row.Value(c.Column))) {
			return false
		}
	}
	return true
}

// goalProgress finds the first target above v. Targets are ascending.
func goalProgress(g Goal, v decimal.Decimal) GoalProgress {
	p := GoalProgress{Column: g.Column, Value: v, Label: TopGoalLabel, Shortfall: decimal.Zero}
	for _, target := range g.Targets {
		if v.LessThan(target) {
			p.Next = target
			p.HasNext = true
			p.Label = FormatAmount(target) + " 구간"
			p.Shortfall = target.Sub(v)
			break
		}
	}
	return p
}

// FormatAmount renders d rounded to a whole number with thousands separators.
func FormatAmount(d decimal.Decimal) string {
	return message.NewPrinter(language.Korean).Sprintf("%d", d.Round(0).IntPart())
}

func appendUnique(xs []string, x string) []string {
	for _, have := range xs {
		if have == x {
			return xs
		}
	}
	return append(xs, x)
}
