package pipeline

import "testing"

func TestEvaluateBool(t *testing.T) {
	eval := NewExprLangEvaluator()

	env := map[string]any{
		"context": map[string]any{
			"media_type": "video",
			"size_bytes": 2048,
		},
		"retry": false,
	}

	cases := []struct {
		expr string
		want bool
	}{
		{`context.media_type == "video"`, true},
		{`context.media_type == "audio"`, false},
		{`context.size_bytes > 1024`, true},
		{`!retry`, true},
		{`context.media_type in ["video", "image"]`, true},
	}
	for _, tc := range cases {
		got, err := eval.EvaluateBool(tc.expr, env)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.expr, err)
		}
		if got != tc.want {
			t.Errorf("%s = %v, want %v", tc.expr, got, tc.want)
		}
	}
}

func TestEvaluateBoolCompileError(t *testing.T) {
	eval := NewExprLangEvaluator()
	if _, err := eval.EvaluateBool("this is not ((( valid", map[string]any{}); err == nil {
		t.Fatal("expected compile error")
	}
}

func TestCompileRejectsNonBool(t *testing.T) {
	eval := NewExprLangEvaluator()
	if err := eval.Compile(`1 + 1`); err == nil {
		t.Fatal("expected error for non-boolean expression")
	}
}

func TestCompileCachesPrograms(t *testing.T) {
	eval := NewExprLangEvaluator()
	if err := eval.Compile(`retry == true`); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(eval.cache) != 1 {
		t.Fatalf("cache size = %d", len(eval.cache))
	}
	// Second compile of the same expression reuses the cached program.
	if err := eval.Compile(`retry == true`); err != nil {
		t.Fatalf("recompile: %v", err)
	}
	if len(eval.cache) != 1 {
		t.Fatalf("cache size after recompile = %d", len(eval.cache))
	}
}
