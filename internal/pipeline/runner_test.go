package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/creativecloner/cloner/internal/store"
)

type fakeStore struct {
	records []store.Record
	listErr error
}

func (f *fakeStore) ListProject(ctx context.Context, project string) ([]store.Record, error) {
	return f.records, f.listErr
}

type fakeOp struct {
	name      string
	unitCost  float64
	executed  []string
	committed []string
	failOn    map[string]error
	prepared  int
}

func (f *fakeOp) Name() string      { return f.name }
func (f *fakeOp) UnitCost() float64 { return f.unitCost }

func (f *fakeOp) Eligible(r *store.Record) bool {
	return r.Fields.StartImagePrompt != "" && !r.HasImage()
}

func (f *fakeOp) Plan(r *store.Record) string { return "would generate" }

func (f *fakeOp) Prepare(ctx context.Context) error {
	f.prepared++
	return nil
}

func (f *fakeOp) Execute(ctx context.Context, r *store.Record) (string, error) {
	f.executed = append(f.executed, r.Fields.Scene)
	if err := f.failOn[r.Fields.Scene]; err != nil {
		return "", err
	}
	return "https://cdn.example/" + r.ID, nil
}

func (f *fakeOp) Commit(ctx context.Context, r *store.Record, resultURL string) error {
	f.committed = append(f.committed, r.Fields.Scene)
	return nil
}

func (f *fakeOp) Delay() time.Duration { return 0 }

func sceneRecord(id, label, prompt string) store.Record {
	return store.Record{ID: id, Fields: store.Fields{Scene: label, StartImagePrompt: prompt}}
}

func newRunner(st SceneLister, out *bytes.Buffer, dryRun bool) *Runner {
	return &Runner{
		Store: st,
		Guard: &CostGuard{
			In:           strings.NewReader("yes\n"),
			Out:          out,
			SkipApproval: false,
		},
		Project: "p",
		DryRun:  dryRun,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestRunnerCounts(t *testing.T) {
	st := &fakeStore{records: []store.Record{
		sceneRecord("r1", "Scene 1 - Intro", "prompt 1"),
		sceneRecord("r2", "Scene 2 - Middle", "prompt 2"),
		sceneRecord("r3", "Scene 3 - End", "prompt 3"),
	}}
	op := &fakeOp{name: "image", unitCost: 0.09, failOn: map[string]error{
		"Scene 2 - Middle": errors.New("remote fail"),
	}}

	var out bytes.Buffer
	summary, err := newRunner(st, &out, false).Run(context.Background(), op)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.Attempted != 3 || summary.Succeeded != 2 || summary.Failed != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.Attempted != summary.Succeeded+summary.Failed {
		t.Errorf("counts do not add up: %+v", summary)
	}
	if got := summary.RealizedCost; got != 0.18 {
		t.Errorf("realized cost = %v, want 0.18 (successes only)", got)
	}
	if len(summary.Failures) != 1 || summary.Failures[0].Scene != "Scene 2 - Middle" {
		t.Errorf("failures = %+v", summary.Failures)
	}
	// The failing scene must not stop the ones after it.
	if len(op.executed) != 3 {
		t.Errorf("executed = %v, want all three scenes", op.executed)
	}
	if len(op.committed) != 2 {
		t.Errorf("committed = %v", op.committed)
	}
	if op.prepared != 1 {
		t.Errorf("prepared %d times, want 1", op.prepared)
	}
}

func TestRunnerOrdering(t *testing.T) {
	st := &fakeStore{records: []store.Record{
		sceneRecord("r10", "Scene 10 - Late", "p"),
		sceneRecord("r2", "Scene 2 - Early", "p"),
		sceneRecord("rX", "Untitled extra", "p"),
		sceneRecord("r1", "Scene 1 - First", "p"),
	}}
	op := &fakeOp{name: "image"}

	var out bytes.Buffer
	if _, err := newRunner(st, &out, false).Run(context.Background(), op); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{"Scene 1 - First", "Scene 2 - Early", "Scene 10 - Late", "Untitled extra"}
	if len(op.executed) != len(want) {
		t.Fatalf("executed = %v", op.executed)
	}
	for i, scene := range want {
		if op.executed[i] != scene {
			t.Errorf("position %d = %q, want %q", i, op.executed[i], scene)
		}
	}
}

func TestRunnerDryRun(t *testing.T) {
	st := &fakeStore{records: []store.Record{
		sceneRecord("r1", "Scene 1 - Intro", "prompt"),
	}}
	op := &fakeOp{name: "image", unitCost: 0.5}

	var out bytes.Buffer
	summary, err := newRunner(st, &out, true).Run(context.Background(), op)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(op.executed) != 0 || len(op.committed) != 0 || op.prepared != 0 {
		t.Errorf("dry run had side effects: %+v", op)
	}
	if summary.Attempted != 0 || summary.RealizedCost != 0 {
		t.Errorf("dry run summary = %+v", summary)
	}
	if !strings.Contains(out.String(), "would generate") {
		t.Errorf("dry run output missing plan: %q", out.String())
	}
	if !strings.Contains(out.String(), "$0.50") {
		t.Errorf("dry run output missing estimate: %q", out.String())
	}
}

func TestRunnerDeclinedApproval(t *testing.T) {
	st := &fakeStore{records: []store.Record{
		sceneRecord("r1", "Scene 1 - Intro", "prompt"),
	}}
	op := &fakeOp{name: "image", unitCost: 0.09}

	var out bytes.Buffer
	runner := newRunner(st, &out, false)
	runner.Guard.In = strings.NewReader("no\n")

	summary, err := runner.Run(context.Background(), op)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(op.executed) != 0 {
		t.Errorf("declined approval still executed: %v", op.executed)
	}
	if summary.Attempted != 0 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestRunnerFiltersIneligible(t *testing.T) {
	withImage := sceneRecord("r2", "Scene 2 - Done", "prompt")
	withImage.Fields.StartImage = []store.Attachment{{URL: "u"}}

	st := &fakeStore{records: []store.Record{
		sceneRecord("r1", "Scene 1 - Todo", "prompt"),
		withImage,
		sceneRecord("r3", "Scene 3 - No prompt", ""),
	}}
	op := &fakeOp{name: "image"}

	var out bytes.Buffer
	if _, err := newRunner(st, &out, false).Run(context.Background(), op); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(op.executed) != 1 || op.executed[0] != "Scene 1 - Todo" {
		t.Errorf("executed = %v, want only the todo scene", op.executed)
	}
}

func TestRunnerNoEligibleScenes(t *testing.T) {
	st := &fakeStore{}
	op := &fakeOp{name: "video"}

	var out bytes.Buffer
	summary, err := newRunner(st, &out, false).Run(context.Background(), op)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Attempted != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if !strings.Contains(out.String(), "No scenes ready") {
		t.Errorf("output = %q", out.String())
	}
}

func TestCostGuard(t *testing.T) {
	tests := []struct {
		name  string
		input string
		skip  bool
		want  bool
	}{
		{"yes approves", "yes\n", false, true},
		{"y approves", "Y\n", false, true},
		{"no declines", "no\n", false, false},
		{"garbage declines", "maybe\n", false, false},
		{"empty input declines", "", false, false},
		{"skip approves without reading", "", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			guard := &CostGuard{In: strings.NewReader(tt.input), Out: &out, SkipApproval: tt.skip}
			got, err := guard.Approve(Estimate{Scenes: 4, UnitCost: 0.5}, "video")
			if err != nil {
				t.Fatalf("Approve() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Approve() = %v, want %v", got, tt.want)
			}
			if !strings.Contains(out.String(), "$2.00") {
				t.Errorf("estimate missing from output: %q", out.String())
			}
		})
	}
}
