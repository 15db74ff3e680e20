package prize

import (
	"context"
	"fmt"
)

// Severity ranks a review issue.
type Severity string

const (
	// SeveritySkip means the scheme contributes nothing to any query.
	SeveritySkip Severity = "skip"

	// SeverityWarn means the scheme runs but some figures will read as zero.
	SeverityWarn Severity = "warn"
)

// Issue is one configuration problem found by Review.
type Issue struct {
	SchemeID   string
	SchemeName string
	Field      string
	Severity   Severity
	Message    string
}

// Review checks every scheme of snap against the uploaded tables and lists
// what would make queries skip it or read zeros. Evaluation absorbs these
// problems silently; Review is how an administrator sees them.
func (e *Engine) Review(ctx context.Context, snap *Snapshot) ([]Issue, error) {
	var issues []Issue
	if snap == nil {
		return issues, nil
	}

	for _, s := range snap.Schemes {
		add := func(field string, sev Severity, format string, args ...any) {
			issues = append(issues, Issue{
				SchemeID:   s.ID,
				SchemeName: s.Name,
				Field:      field,
				Severity:   sev,
				Message:    fmt.Sprintf(format, args...),
			})
		}

		if s.Rule == nil {
			add("type", SeveritySkip, "no scheme kind")
			continue
		}
		if s.SourceTable == "" {
			add("file", SeveritySkip, "no source table")
			continue
		}
		if s.Columns.AgentCode == "" {
			add("col_code", SeveritySkip, "agent code column not set")
		}

		t, err := e.tables.Table(ctx, s.SourceTable)
		if err != nil {
			return nil, fmt.Errorf("scheme %q: load table %q: %w", s.Name, s.SourceTable, err)
		}
		if t == nil {
			add("file", SeveritySkip, "table %q has not been uploaded", s.SourceTable)
			continue
		}

		if s.Columns.AgentCode != "" && !t.HasColumn(s.Columns.AgentCode) {
			add("col_code", SeveritySkip, "column %q not in table %q", s.Columns.AgentCode, t.Name)
		}
		for _, col := range valueColumns(s.Rule) {
			if col == "" {
				add("value", SeverityWarn, "value column not set")
				continue
			}
			if !t.HasColumn(col) {
				add("value", SeverityWarn, "column %q not in table %q", col, t.Name)
			}
		}
		if s.Kind() != KindPassthrough && len(s.Tiers) == 0 {
			add("tiers", SeverityWarn, "no tiers; prize is always zero")
		}
		if s.Columns.ManagerCode != "" && !t.HasColumn(s.Columns.ManagerCode) {
			add("col_manager", SeverityWarn, "column %q not in table %q", s.Columns.ManagerCode, t.Name)
		}
	}
	return issues, nil
}
