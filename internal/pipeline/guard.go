// Package pipeline runs the generation stages: it lists scene records,
// filters the ones with work remaining, guards spend with an estimate
// and approval step, and drives each scene through its provider task
// sequentially.
package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Estimate is a pre-flight cost projection for a batch.
type Estimate struct {
	Scenes   int
	UnitCost float64
}

// Total returns the projected spend for the whole batch.
func (e Estimate) Total() float64 {
	return float64(e.Scenes) * e.UnitCost
}

// CostGuard gates paid generation behind an explicit confirmation. The
// prompt is skipped when SkipApproval is set; dry runs never reach it.
type CostGuard struct {
	In           io.Reader
	Out          io.Writer
	SkipApproval bool
}

// Approve shows the estimate and waits for a yes/no answer. Only "yes"
// and "y" (any case) approve; everything else, including a closed input
// stream, declines.
func (g *CostGuard) Approve(est Estimate, unit string) (bool, error) {
	fmt.Fprintf(g.Out, "\nCost estimate: %d %ss x $%.3f = $%.2f total\n",
		est.Scenes, unit, est.UnitCost, est.Total())

	if g.SkipApproval {
		fmt.Fprintln(g.Out, "Approval skipped (--skip-approval)")
		return true, nil
	}

	fmt.Fprint(g.Out, "Ready to proceed? (yes/no): ")
	scanner := bufio.NewScanner(g.In)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return false, fmt.Errorf("read approval: %w", err)
		}
		return false, nil
	}

	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "yes" || answer == "y", nil
}
