// Package pipe provides the value types a pipeline computation graph is made
// of: scalar expressions (Expr), dimension variables (Var), graph nodes
// (Func) and the buffer parameters (Parameter) that back them.
//
// These types carry no execution machinery of their own. They exist to be
// declared, bound and introspected by the generator package, and eventually
// consumed by whatever lowers a finished pipeline to an executable artifact.
// The one convenience beyond introspection is scalar evaluation (Expr.Eval,
// Func.EvalAt), which is enough to sanity-check a pipeline in tests without
// a compiler.
//
// To simplify error handling, functions panic with a stack trace in case of
// errors. See package github.com/gomlx/exceptions.
package pipe

import (
	"fmt"
)

// Var is a named dimension variable, used as an argument of a Func.
type Var struct {
	name string
}

// NewVar returns a dimension variable with the given name.
func NewVar(name string) Var {
	return Var{name: name}
}

// ImplicitVar returns the i-th implicitly-named dimension variable ("_0",
// "_1", ...), used when a node's argument names don't matter.
func ImplicitVar(i int) Var {
	return Var{name: fmt.Sprintf("_%d", i)}
}

// Name returns the variable name.
func (v Var) Name() string { return v.name }

// Expr returns the variable as a (32-bit integer) index expression.
func (v Var) Expr() Expr {
	return Expr{node: &varNode{dt: indexDType, name: v.name}}
}

func (v Var) String() string { return v.name }
