/*
nearmiss.go - Manager downline roll-up

PURPOSE:
  A manager wants to know which of their agents are close to the next
  target. NearMiss collects every agent listed under the manager in any
  scheme's table, evaluates each one, and places them in at most one band.

DOWNLINE:
  An agent belongs to a manager's downline if any scheme with a manager
  column has a row whose manager cell matches the manager code (exact, or
  by containment when the engine is configured for it). The first scheme
  that lists an agent decides their displayed name and agency.

EVALUATION:
  Agents are evaluated on a bounded pond pool. Each agent is evaluated with
  EvaluateAgent, and the band comes from the same Result values; the
  classifier never recomputes a value on its own.

SEE ALSO:
  - classifier.go: Bands and folders
  - roster.go: The column-oriented roster view of the same downline
*/
package prize

import (
	"context"
	"fmt"
	"sort"

	"github.com/alitto/pond/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// UnnamedAgent is shown when a downline row has no name.
const UnnamedAgent = "이름없음"

// Agent is one member of a manager's downline.
type Agent struct {
	Code   string
	Name   string
	Agency string
}

// Downline is the deduplicated list of agents under a manager.
type Downline struct {
	ManagerCode    string
	Agents         []Agent
	RelaxedMatches int
}

// Downline lists the agents under managerCode, in first-seen order.
func (e *Engine) Downline(ctx context.Context, snap *Snapshot, managerCode string) (*Downline, error) {
	out := &Downline{ManagerCode: Normalize(managerCode)}
	if out.ManagerCode == "" || snap == nil {
		return out, nil
	}

	seen := make(map[string]int)
	for _, s := range snap.Schemes {
		cols := s.Columns
		if cols.ManagerCode == "" || cols.AgentCode == "" {
			continue
		}
		t, err := e.tables.Table(ctx, s.SourceTable)
		if err != nil {
			return nil, fmt.Errorf("scheme %q: load table %q: %w", s.Name, s.SourceTable, err)
		}
		if t == nil || !t.HasColumn(cols.AgentCode) {
			continue
		}

		rows, relaxed := t.FindManaged(cols.ManagerCode, out.ManagerCode, e.mode)
		if relaxed > 0 {
			e.log.Warn("manager code matched by containment",
				zap.String("manager", out.ManagerCode),
				zap.String("scheme", s.Name),
				zap.Int("rows", relaxed))
			out.RelaxedMatches += relaxed
		}

		for _, row := range rows {
			code := Normalize(row.Value(cols.AgentCode))
			if code == "" {
				continue
			}
			a := agentFromRow(row, cols, code)
			if i, ok := seen[code]; ok {
				fillAgent(&out.Agents[i], a)
				continue
			}
			seen[code] = len(out.Agents)
			out.Agents = append(out.Agents, a)
		}
	}

	for i := range out.Agents {
		if out.Agents[i].Name == "" {
			out.Agents[i].Name = UnnamedAgent
		}
	}
	return out, nil
}

func agentFromRow(row Row, cols Columns, code string) Agent {
	a := Agent{Code: code}
	if cols.AgentName != "" {
		a.Name = DisplayText(row.Value(cols.AgentName))
	}
	if cols.Agency != "" {
		a.Agency = DisplayText(row.Value(cols.Agency))
	}
	if a.Agency == "" && cols.Branch != "" {
		a.Agency = DisplayText(row.Value(cols.Branch))
	}
	return a
}

// fillAgent copies fields dst lacks from src.
func fillAgent(dst *Agent, src Agent) {
	if dst.Name == "" {
		dst.Name = src.Name
	}
	if dst.Agency == "" {
		dst.Agency = src.Agency
	}
}

// =============================================================================
// NEAR-MISS REPORT
// =============================================================================

// NearMissMember is one agent placed in a band.
type NearMissMember struct {
	Agent
	Value      decimal.Decimal
	SchemeName string
	Shortfall  decimal.Decimal
}

// NearMissGroup is one band and the agents in it.
type NearMissGroup struct {
	Band    Band
	Members []NearMissMember
}

// NearMissReport groups a manager's downline by band.
type NearMissReport struct {
	ManagerCode    string
	Folder         Folder
	Groups         []NearMissGroup
	Agents         int
	RelaxedMatches int
}

// NearMiss evaluates the downline of managerCode and groups agents by the
// band of their first folder result that lands in one. Groups follow band
// order; members are sorted by value descending, then code.
func (e *Engine) NearMiss(ctx context.Context, snap *Snapshot, managerCode string, folder Folder) (*NearMissReport, error) {
	down, err := e.Downline(ctx, snap, managerCode)
	if err != nil {
		return nil, err
	}

	bundles, err := e.evaluateAll(ctx, snap, down.Agents)
	if err != nil {
		return nil, err
	}

	report := &NearMissReport{
		ManagerCode:    down.ManagerCode,
		Folder:         folder,
		Agents:         len(down.Agents),
		RelaxedMatches: down.RelaxedMatches,
	}
	byBand := make(map[string][]NearMissMember)
	for i, a := range down.Agents {
		if bundles[i] == nil {
			continue
		}
		p, ok := classifyResults(e.bands, bundles[i].Results, folder)
		if !ok {
			continue
		}
		byBand[p.Band.Label] = append(byBand[p.Band.Label], NearMissMember{
			Agent:      a,
			Value:      p.Value,
			SchemeName: p.Result.SchemeName,
			Shortfall:  p.Band.Upper.Sub(p.Value),
		})
	}

	for _, b := range e.bands {
		members := byBand[b.Label]
		sort.SliceStable(members, func(i, j int) bool {
			if c := members[i].Value.Cmp(members[j].Value); c != 0 {
				return c > 0
			}
			return members[i].Code < members[j].Code
		})
		report.Groups = append(report.Groups, NearMissGroup{Band: b, Members: members})
	}
	return report, nil
}

// evaluateAll runs EvaluateAgent for every agent on the engine's pool.
// bundles[i] belongs to agents[i].
func (e *Engine) evaluateAll(ctx context.Context, snap *Snapshot, agents []Agent) ([]*Bundle, error) {
	bundles := make([]*Bundle, len(agents))
	if len(agents) == 0 {
		return bundles, nil
	}

	pool := pond.NewPool(e.workers)
	defer pool.StopAndWait()

	errs := make([]error, len(agents))
	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()
	for i, a := range agents {
		group.Submit(func() {
			bundles[i], errs[i] = e.EvaluateAgent(groupCtx, snap, a.Code)
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("evaluate agent %s: %w", agents[i].Code, err)
		}
	}
	return bundles, nil
}
