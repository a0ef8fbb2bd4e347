package pipeline

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ExprLangEvaluator evaluates step conditions with expr-lang/expr.
// Compiled programs are cached by expression string; the cache is safe
// for concurrent use since the scheduler and handlers share one
// evaluator.
type ExprLangEvaluator struct {
	mu    sync.Mutex
	cache map[string]*vm.Program
}

func NewExprLangEvaluator() *ExprLangEvaluator {
	return &ExprLangEvaluator{
		cache: make(map[string]*vm.Program),
	}
}

// Compile compiles and caches the expression without running it. Used
// at save time so a broken condition is rejected up front.
func (e *ExprLangEvaluator) Compile(expression string) error {
	_, err := e.program(expression)
	return err
}

// EvaluateBool runs the expression against the environment.
func (e *ExprLangEvaluator) EvaluateBool(expression string, env map[string]any) (bool, error) {
	prog, err := e.program(expression)
	if err != nil {
		return false, err
	}

	result, err := expr.Run(prog, env)
	if err != nil {
		return false, fmt.Errorf("evaluate condition: %w", err)
	}

	isTrue, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("condition did not return bool")
	}
	return isTrue, nil
}

func (e *ExprLangEvaluator) program(expression string) (*vm.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prog, ok := e.cache[expression]
	if !ok {
		var err error
		prog, err = expr.Compile(expression, expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile condition: %w", err)
		}
		e.cache[expression] = prog
	}
	return prog, nil
}
