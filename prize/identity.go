package prize

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// AnyBranch matches every branch in an agent lookup.
const AnyBranch = "0000"

// branchSuffix is the word a branch cell ends its number with ("11지점").
const branchSuffix = "지점"

// FindAgentCodes resolves an agent's name and branch code to the agent codes
// that match, sorted. More than one code means the caller has to ask the
// agent which one is theirs; the engine never picks.
//
// The name must equal the trimmed name cell. The branch code "0000" matches
// any branch; otherwise the branch cell must contain the code, not preceded
// by a digit, followed by "지점" (so "1" finds "1지점" but not "11지점").
// Cumulative schemes are not searched.
func (e *Engine) FindAgentCodes(ctx context.Context, snap *Snapshot, name, branch string) ([]string, error) {
	name = strings.TrimSpace(name)
	branch = strings.TrimSpace(branch)
	if name == "" || branch == "" || snap == nil {
		return nil, nil
	}

	var branchPattern *regexp.Regexp
	if branch != AnyBranch {
		code := strings.TrimSpace(strings.ReplaceAll(branch, branchSuffix, ""))
		if code == "" {
			return nil, nil
		}
		branchPattern = regexp.MustCompile(`(?:^|[^0-9])` + regexp.QuoteMeta(code) + `\s*` + branchSuffix)
	}

	found := make(map[string]struct{})
	for _, s := range snap.Schemes {
		cols := s.Columns
		if s.Category() == CategoryCumulative || cols.AgentName == "" || cols.AgentCode == "" {
			continue
		}
		if branchPattern != nil && cols.Branch == "" {
			continue
		}
		t, err := e.tables.Table(ctx, s.SourceTable)
		if err != nil {
			return nil, fmt.Errorf("scheme %q: load table %q: %w", s.Name, s.SourceTable, err)
		}
		if t == nil || !t.HasColumn(cols.AgentName) || !t.HasColumn(cols.AgentCode) {
			continue
		}
		if branchPattern != nil && !t.HasColumn(cols.Branch) {
			continue
		}

		for _, row := range t.Rows {
			if DisplayText(row.Value(cols.AgentName)) != name {
				continue
			}
			if branchPattern != nil && !branchPattern.MatchString(DisplayText(row.Value(cols.Branch))) {
				continue
			}
			if code := Normalize(row.Value(cols.AgentCode)); code != "" {
				found[code] = struct{}{}
			}
		}
	}

	codes := make([]string, 0, len(found))
	for c := range found {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes, nil
}
