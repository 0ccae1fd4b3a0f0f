package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/creativecloner/cloner/internal/poll"
	"github.com/creativecloner/cloner/internal/store"
)

// SceneLister fetches the scene records of a project.
type SceneLister interface {
	ListProject(ctx context.Context, project string) ([]store.Record, error)
}

// Operation is one generation stage applied per scene. Eligible filters
// the records with work remaining, Plan describes what Execute would do
// for dry runs, Prepare runs once before the batch, and Commit persists
// a successful result.
type Operation interface {
	Name() string
	UnitCost() float64
	Eligible(r *store.Record) bool
	Plan(r *store.Record) string
	Prepare(ctx context.Context) error
	Execute(ctx context.Context, r *store.Record) (string, error)
	Commit(ctx context.Context, r *store.Record, resultURL string) error
	Delay() time.Duration
}

// Failure records one scene that did not complete.
type Failure struct {
	Scene string
	Err   error
}

// Summary is the outcome of a batch run. RealizedCost counts only
// scenes that completed, not attempts.
type Summary struct {
	Attempted    int
	Succeeded    int
	Failed       int
	RealizedCost float64
	Failures     []Failure
}

// Runner drives one Operation across every eligible scene of a project.
type Runner struct {
	Store   SceneLister
	Guard   *CostGuard
	Project string
	DryRun  bool
	Logger  *slog.Logger
}

// Run lists the project's scenes, filters and orders the eligible ones,
// and executes the operation on each in turn. One scene failing is
// recorded and the batch moves on; a declined approval returns an empty
// summary with no side effects.
func (r *Runner) Run(ctx context.Context, op Operation) (*Summary, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	records, err := r.Store.ListProject(ctx, r.Project)
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}

	var eligible []store.Record
	for _, rec := range records {
		if op.Eligible(&rec) {
			eligible = append(eligible, rec)
		}
	}
	if len(eligible) == 0 {
		fmt.Fprintf(r.Guard.Out, "No scenes ready for %s\n", op.Name())
		return &Summary{}, nil
	}

	// Scenes run in ascending scene order; unparseable labels sort last
	// by label text so reruns are deterministic.
	sort.SliceStable(eligible, func(i, j int) bool {
		ni, iok := eligible[i].SceneNumber()
		nj, jok := eligible[j].SceneNumber()
		switch {
		case iok && jok:
			return ni < nj
		case iok != jok:
			return iok
		default:
			return eligible[i].Fields.Scene < eligible[j].Fields.Scene
		}
	})

	if r.DryRun {
		fmt.Fprintf(r.Guard.Out, "Dry run: %d scene(s) would be processed\n", len(eligible))
		for i := range eligible {
			rec := &eligible[i]
			fmt.Fprintf(r.Guard.Out, "  %s: %s\n", rec.Fields.Scene, op.Plan(rec))
		}
		est := Estimate{Scenes: len(eligible), UnitCost: op.UnitCost()}
		fmt.Fprintf(r.Guard.Out, "Estimated cost: $%.2f\n", est.Total())
		return &Summary{}, nil
	}

	ok, err := r.Guard.Approve(Estimate{Scenes: len(eligible), UnitCost: op.UnitCost()}, op.Name())
	if err != nil {
		return nil, err
	}
	if !ok {
		fmt.Fprintln(r.Guard.Out, "Cancelled")
		return &Summary{}, nil
	}

	if err := op.Prepare(ctx); err != nil {
		return nil, fmt.Errorf("prepare %s: %w", op.Name(), err)
	}

	summary := &Summary{}
	for i := range eligible {
		rec := &eligible[i]
		summary.Attempted++
		logger.Info("processing scene",
			"stage", op.Name(),
			"scene", rec.Fields.Scene,
			"progress", fmt.Sprintf("%d/%d", i+1, len(eligible)),
		)

		if err := r.runScene(ctx, op, rec); err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			logger.Error("scene failed", "scene", rec.Fields.Scene, "err", err)
			summary.Failed++
			summary.Failures = append(summary.Failures, Failure{Scene: rec.Fields.Scene, Err: err})
		} else {
			summary.Succeeded++
			summary.RealizedCost += op.UnitCost()
		}

		if i < len(eligible)-1 {
			if err := poll.Wait(ctx, op.Delay()); err != nil {
				return summary, err
			}
		}
	}

	return summary, nil
}

func (r *Runner) runScene(ctx context.Context, op Operation, rec *store.Record) error {
	resultURL, err := op.Execute(ctx, rec)
	if err != nil {
		return err
	}
	if err := op.Commit(ctx, rec, resultURL); err != nil {
		return fmt.Errorf("commit result: %w", err)
	}
	return nil
}

// Print writes the batch outcome in a fixed closing block.
func (s *Summary) Print(out io.Writer) {
	fmt.Fprintf(out, "\nSucceeded: %d\nFailed: %d\nActual cost: $%.4f\n",
		s.Succeeded, s.Failed, s.RealizedCost)
	for _, f := range s.Failures {
		fmt.Fprintf(out, "  %s: %v\n", f.Scene, f.Err)
	}
}
