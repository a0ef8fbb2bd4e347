package pipeline

import (
	"strings"
	"testing"
)

func validPipeline() *Pipeline {
	return &Pipeline{
		Name: "transcode-new-uploads",
		Steps: []Step{
			{ID: "check", Type: StepLog, Condition: `context.media_type == "video"`},
			{ID: "mark", Type: StepSet, Params: map[string]any{"stage": "transcoding"}},
			{ID: "send", Type: StepConnector, Connector: "transcoder"},
		},
		Active: true,
	}
}

func TestValidateAcceptsWellFormedPipeline(t *testing.T) {
	if err := validPipeline().Validate(NewExprLangEvaluator()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	eval := NewExprLangEvaluator()

	cases := []struct {
		name    string
		mutate  func(*Pipeline)
		wantMsg string
	}{
		{"missing name", func(p *Pipeline) { p.Name = "" }, "name is required"},
		{"no steps", func(p *Pipeline) { p.Steps = nil }, "at least one step"},
		{"missing step id", func(p *Pipeline) { p.Steps[0].ID = "" }, "id is required"},
		{"duplicate step id", func(p *Pipeline) { p.Steps[1].ID = "check" }, "duplicate id"},
		{"unknown type", func(p *Pipeline) { p.Steps[0].Type = "teleport" }, "unknown type"},
		{"connector without target", func(p *Pipeline) { p.Steps[2].Connector = "" }, "must name a connector"},
		{"set without params", func(p *Pipeline) { p.Steps[1].Params = nil }, "need params"},
		{"broken condition", func(p *Pipeline) { p.Steps[0].Condition = "((" }, "compile condition"},
	}
	for _, tc := range cases {
		p := validPipeline()
		tc.mutate(p)
		err := p.Validate(eval)
		if err == nil {
			t.Errorf("%s: expected error", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.wantMsg) {
			t.Errorf("%s: error %q does not mention %q", tc.name, err, tc.wantMsg)
		}
	}
}

func TestFindStep(t *testing.T) {
	p := validPipeline()
	if s := p.FindStep("mark"); s == nil || s.Type != StepSet {
		t.Fatalf("FindStep(mark) = %+v", s)
	}
	if s := p.FindStep("nope"); s != nil {
		t.Fatalf("expected nil for unknown step, got %+v", s)
	}
}

func TestExecutionIsTerminal(t *testing.T) {
	terminal := []string{StatusSucceeded, StatusFailed, StatusCancelled}
	for _, st := range terminal {
		e := &Execution{Status: st}
		if !e.IsTerminal() {
			t.Errorf("%s should be terminal", st)
		}
	}
	for _, st := range []string{StatusPending, StatusRunning} {
		e := &Execution{Status: st}
		if e.IsTerminal() {
			t.Errorf("%s should not be terminal", st)
		}
	}
}
