package impact

import (
	"errors"
	"fmt"

	"github.com/osstelecom/topoweak/pkg/algorithm"
	"github.com/osstelecom/topoweak/pkg/graph"
)

// ErrInvalidParameter is matched by every InvalidParameterError.
var ErrInvalidParameter = errors.New("invalid analysis parameter")

// InvalidParameterError names the parameter that failed validation.
type InvalidParameterError struct {
	Param  string
	Value  any
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Param, e.Value, e.Reason)
}

func (e *InvalidParameterError) Is(target error) bool {
	return target == ErrInvalidParameter
}

// Params tune a weak-node analysis.
type Params struct {
	// ConnectionLimit is the number of independent routes a node needs.
	ConnectionLimit int
	// Exhaustive also computes which nodes each weak node would cut off.
	Exhaustive bool
	// Workers is the number of goroutines draining the job queue.
	Workers int
	// UseCache memoizes route counts within the run.
	UseCache bool
	// Strategy selects the route counter; empty means the default.
	Strategy algorithm.Strategy
	// Nodes restricts the analysis to these nodes when not empty.
	Nodes []*graph.Node
	// Progress is forwarded to the algorithm.
	Progress func(done, total int)
}

// DefaultParams returns the parameters used when nothing is configured.
func DefaultParams() Params {
	return Params{
		ConnectionLimit: 2,
		Workers:         4,
		UseCache:        true,
		Strategy:        algorithm.DefaultStrategy,
	}
}

// Validate checks the parameters before any job is built.
func (p Params) Validate() error {
	if p.ConnectionLimit < 0 {
		return &InvalidParameterError{Param: "connection limit", Value: p.ConnectionLimit, Reason: "must be zero or more"}
	}
	if p.Workers < 1 {
		return &InvalidParameterError{Param: "worker count", Value: p.Workers, Reason: "must be at least one"}
	}
	if _, err := algorithm.ParseStrategy(string(p.Strategy)); err != nil {
		return &InvalidParameterError{Param: "strategy", Value: p.Strategy, Reason: err.Error()}
	}
	return nil
}
