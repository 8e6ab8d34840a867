// Package policy classifies topology nodes with CEL rules while a document
// is loaded, marking them as endpoints or disabling them.
package policy

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"

	"github.com/osstelecom/topoweak/pkg/codec"
)

// Action is what a matching rule does to a node.
type Action string

const (
	ActionEndpoint Action = "endpoint"
	ActionDisable  Action = "disable"
)

var ErrUnknownAction = errors.New("unknown policy action")

// Rule is a CEL condition evaluated against every node. Available
// variables: name (string), attributes (map), degree (int), weight (double)
// and endpoint (bool).
type Rule struct {
	ID        string `mapstructure:"id" yaml:"id"`
	Condition string `mapstructure:"condition" yaml:"condition"`
	Action    Action `mapstructure:"action" yaml:"action"`
}

// RulesFrom turns plain condition lists, as found in configuration, into rules.
func RulesFrom(endpoint, disabled []string) []Rule {
	rules := make([]Rule, 0, len(endpoint)+len(disabled))
	for i, c := range endpoint {
		rules = append(rules, Rule{ID: fmt.Sprintf("endpoint-%d", i), Condition: c, Action: ActionEndpoint})
	}
	for i, c := range disabled {
		rules = append(rules, Rule{ID: fmt.Sprintf("disable-%d", i), Condition: c, Action: ActionDisable})
	}
	return rules
}

type compiled struct {
	rule Rule
	prg  cel.Program
}

// Engine holds compiled rules.
type Engine struct {
	env      *cel.Env
	programs []compiled
	logger   *slog.Logger
}

// NewEngine creates a CEL environment with the node variables declared.
func NewEngine(logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	env, err := cel.NewEnv(
		cel.Variable("name", cel.StringType),
		cel.Variable("attributes", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("degree", cel.IntType),
		cel.Variable("weight", cel.DoubleType),
		cel.Variable("endpoint", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}
	return &Engine{env: env, logger: logger}, nil
}

// Compile adds rules to the engine. Conditions must evaluate to a bool.
func (e *Engine) Compile(rules []Rule) error {
	for _, r := range rules {
		switch r.Action {
		case ActionEndpoint, ActionDisable:
		default:
			return fmt.Errorf("rule %s: %w %q", r.ID, ErrUnknownAction, r.Action)
		}

		ast, issues := e.env.Compile(r.Condition)
		if issues != nil && issues.Err() != nil {
			return fmt.Errorf("rule %s compilation error: %w", r.ID, issues.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return fmt.Errorf("rule %s: condition must return bool, got %s", r.ID, ast.OutputType())
		}
		prg, err := e.env.Program(ast)
		if err != nil {
			return fmt.Errorf("rule %s program creation error: %w", r.ID, err)
		}
		e.programs = append(e.programs, compiled{rule: r, prg: prg})
	}
	return nil
}

// Len returns the number of compiled rules.
func (e *Engine) Len() int { return len(e.programs) }

// Evaluate returns the rules matching vars, in compile order. A rule that
// fails at runtime is logged and treated as not matching.
func (e *Engine) Evaluate(vars map[string]any) []Rule {
	var matches []Rule
	for _, c := range e.programs {
		out, _, err := c.prg.Eval(vars)
		if err != nil {
			e.logger.Error("Rule evaluation failed", "rule_id", c.rule.ID, "error", err)
			continue
		}
		if match, ok := out.Value().(bool); ok && match {
			matches = append(matches, c.rule)
		}
	}
	return matches
}

// Outcome lists the nodes a policy pass changed.
type Outcome struct {
	Endpoints []string
	Disabled  []string
}

// Apply evaluates every node of doc, including nodes only named by a
// connection, and rewrites their endpoint and active flags in place.
func (e *Engine) Apply(doc *codec.Document) Outcome {
	var out Outcome
	if len(e.programs) == 0 {
		return out
	}
	doc.DeclareImplicitNodes()
	for i := range doc.Nodes {
		n := &doc.Nodes[i]
		attrs := n.Attributes
		if attrs == nil {
			attrs = map[string]any{}
		}
		vars := map[string]any{
			"name":       n.Name,
			"attributes": attrs,
			"degree":     int64(doc.Degree(n.Name)),
			"weight":     n.Weight,
			"endpoint":   n.Endpoint,
		}
		for _, r := range e.Evaluate(vars) {
			switch r.Action {
			case ActionEndpoint:
				if !n.Endpoint {
					n.Endpoint = true
					out.Endpoints = append(out.Endpoints, n.Name)
				}
			case ActionDisable:
				if n.Active == nil || *n.Active {
					inactive := false
					n.Active = &inactive
					out.Disabled = append(out.Disabled, n.Name)
				}
			}
		}
	}
	if len(out.Endpoints)+len(out.Disabled) > 0 {
		e.logger.Info("Policy applied", "topology", doc.Name, "endpoints", len(out.Endpoints), "disabled", len(out.Disabled))
	}
	return out
}
