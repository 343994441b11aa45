package cel

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"
)

// MessageFacts is what a scan rule sees about an incoming chat message.
type MessageFacts struct {
	ChatID    int64
	ChatType  string
	ChatTitle string
	UserID    int64
	Username  string
	IsBot     bool
	IsAdmin   bool
	Content   string
	// Kind names the extracted content type, e.g. "text", "photo", "sticker".
	Kind string
}

type Evaluator struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("chat_id", cel.IntType),
		cel.Variable("chat_type", cel.StringType),
		cel.Variable("chat_title", cel.StringType),
		cel.Variable("user_id", cel.IntType),
		cel.Variable("username", cel.StringType),
		cel.Variable("is_bot", cel.BoolType),
		cel.Variable("is_admin", cel.BoolType),
		cel.Variable("content", cel.StringType),
		cel.Variable("kind", cel.StringType),
		ext.Strings(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{env: env, programs: make(map[string]cel.Program)}, nil
}

func (e *Evaluator) ValidateExpression(expression string) error {
	_, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}
	return nil
}

// ValidateRule checks that expression compiles and yields a bool.
func (e *Evaluator) ValidateRule(expression string) error {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return fmt.Errorf("rule expression must return bool, got %v", ast.OutputType())
	}

	return nil
}

// EvaluateRule reports whether facts satisfy expression. An empty expression
// matches everything.
func (e *Evaluator) EvaluateRule(ctx context.Context, expression string, facts MessageFacts) (bool, error) {
	if expression == "" {
		return true, nil
	}

	program, err := e.program(expression)
	if err != nil {
		return false, err
	}

	vars := map[string]interface{}{
		"chat_id":    facts.ChatID,
		"chat_type":  facts.ChatType,
		"chat_title": facts.ChatTitle,
		"user_id":    facts.UserID,
		"username":   facts.Username,
		"is_bot":     facts.IsBot,
		"is_admin":   facts.IsAdmin,
		"content":    facts.Content,
		"kind":       facts.Kind,
	}

	result, _, err := program.ContextEval(ctx, vars)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return boolVal, nil
}

func (e *Evaluator) program(expression string) (cel.Program, error) {
	e.mu.RLock()
	p, ok := e.programs[expression]
	e.mu.RUnlock()
	if ok {
		return p, nil
	}

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("rule expression must return bool, got %v", ast.OutputType())
	}

	p, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	e.mu.Lock()
	e.programs[expression] = p
	e.mu.Unlock()
	return p, nil
}
