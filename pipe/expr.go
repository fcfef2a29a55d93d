package pipe

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
)

// indexDType is the element type of dimension indices.
const indexDType = dtypes.Int32

// Expr is an immutable scalar expression. The zero value is the undefined
// expression: Defined() reports false and every other method panics.
//
// Expressions compare with Equal, a structural "provably equal" test: it
// never reports a false positive, but two expressions that merely evaluate
// to the same value may still compare unequal.
type Expr struct {
	node exprNode
}

type exprNode interface {
	dtype() dtypes.DType
	equal(other exprNode) bool
	eval(env map[string]float64) float64
	String() string
}

// Defined reports whether the expression holds a value.
func (e Expr) Defined() bool { return e.node != nil }

// DType returns the element type of the expression, or dtypes.InvalidDType
// if the expression is undefined.
func (e Expr) DType() dtypes.DType {
	if e.node == nil {
		return dtypes.InvalidDType
	}
	return e.node.dtype()
}

// Equal reports whether e is provably equal to other. Undefined expressions
// are never Equal to anything, including each other.
func (e Expr) Equal(other Expr) bool {
	if e.node == nil || other.node == nil {
		return false
	}
	return e.node.equal(other.node)
}

// Eval evaluates the expression with free variables bound by env.
// It panics on undefined expressions and on expressions that cannot be
// evaluated without a compiled pipeline (buffer parameter reads).
func (e Expr) Eval(env map[string]float64) float64 {
	if e.node == nil {
		exceptions.Panicf("pipe: cannot evaluate an undefined expression")
	}
	return e.node.eval(env)
}

func (e Expr) String() string {
	if e.node == nil {
		return "(undefined)"
	}
	return e.node.String()
}

// ConstValue is the constraint for Go values convertible to constant
// expressions.
type ConstValue interface {
	int | int8 | int16 | int32 | int64 |
		uint8 | uint16 | uint32 | uint64 |
		float32 | float64
}

// Const returns a constant expression, with the element type inferred from
// the Go type of value.
func Const[T ConstValue](value T) Expr {
	return Expr{node: &constNode{dt: dtypes.FromGenericsType[T](), value: float64(value)}}
}

// ConstOf returns a constant expression of an explicit element type.
func ConstOf(dtype dtypes.DType, value float64) Expr {
	return Expr{node: &constNode{dt: dtype, value: value}}
}

// Variable returns a named scalar placeholder of the given type. If param is
// non-nil the placeholder reads its value from the parameter when evaluated.
func Variable(dtype dtypes.DType, name string, param *Parameter) Expr {
	return Expr{node: &varNode{dt: dtype, name: name, param: param}}
}

// Add returns a + b.
func Add(a, b Expr) Expr { return binary('+', a, b) }

// Sub returns a - b.
func Sub(a, b Expr) Expr { return binary('-', a, b) }

// Mul returns a * b.
func Mul(a, b Expr) Expr { return binary('*', a, b) }

// Div returns a / b.
func Div(a, b Expr) Expr { return binary('/', a, b) }

func binary(op byte, a, b Expr) Expr {
	if !a.Defined() || !b.Defined() {
		exceptions.Panicf("pipe: operand of %c is undefined", op)
	}
	return Expr{node: &binaryNode{op: op, a: a.node, b: b.node}}
}

// CallParam returns an expression reading the buffer parameter p at the
// given index arguments.
func CallParam(p *Parameter, args ...Expr) Expr {
	if p == nil {
		exceptions.Panicf("pipe: CallParam on a nil parameter")
	}
	if p.IsBuffer() && len(args) != p.Dimensions() {
		exceptions.Panicf("pipe: parameter %q has %d dimensions, called with %d arguments",
			p.Name(), p.Dimensions(), len(args))
	}
	return Expr{node: &callNode{param: p, args: nodesOf(args)}}
}

// CallFunc returns an expression reading the node f at the given index
// arguments. See also Func.At.
func CallFunc(f *Func, args ...Expr) Expr {
	if f == nil {
		exceptions.Panicf("pipe: CallFunc on a nil Func")
	}
	return Expr{node: &callNode{fn: f, args: nodesOf(args)}}
}

func nodesOf(args []Expr) []exprNode {
	nodes := make([]exprNode, len(args))
	for i, a := range args {
		if !a.Defined() {
			exceptions.Panicf("pipe: call argument #%d is undefined", i)
		}
		nodes[i] = a.node
	}
	return nodes
}

type constNode struct {
	dt    dtypes.DType
	value float64
}

func (n *constNode) dtype() dtypes.DType { return n.dt }

func (n *constNode) equal(other exprNode) bool {
	o, ok := other.(*constNode)
	return ok && o.dt == n.dt && o.value == n.value
}

func (n *constNode) eval(_ map[string]float64) float64 { return n.value }

func (n *constNode) String() string {
	if n.dt.IsFloat() {
		return strconv.FormatFloat(n.value, 'g', -1, 64)
	}
	return strconv.FormatInt(int64(n.value), 10)
}

type varNode struct {
	dt    dtypes.DType
	name  string
	param *Parameter
}

func (n *varNode) dtype() dtypes.DType { return n.dt }

func (n *varNode) equal(other exprNode) bool {
	o, ok := other.(*varNode)
	return ok && o.dt == n.dt && o.name == n.name
}

func (n *varNode) eval(env map[string]float64) float64 {
	if value, found := env[n.name]; found {
		return value
	}
	if n.param != nil && n.param.ScalarValue().Defined() {
		return n.param.ScalarValue().Eval(env)
	}
	exceptions.Panicf("pipe: variable %q is unbound", n.name)
	return 0
}

func (n *varNode) String() string { return n.name }

type binaryNode struct {
	op   byte
	a, b exprNode
}

func (n *binaryNode) dtype() dtypes.DType { return n.a.dtype() }

func (n *binaryNode) equal(other exprNode) bool {
	o, ok := other.(*binaryNode)
	return ok && o.op == n.op && n.a.equal(o.a) && n.b.equal(o.b)
}

func (n *binaryNode) eval(env map[string]float64) float64 {
	a, b := n.a.eval(env), n.b.eval(env)
	switch n.op {
	case '+':
		return a + b
	case '-':
		return a - b
	case '*':
		return a * b
	case '/':
		return a / b
	}
	exceptions.Panicf("pipe: unknown operator %c", n.op)
	return 0
}

func (n *binaryNode) String() string {
	return fmt.Sprintf("(%s %c %s)", n.a, n.op, n.b)
}

type callNode struct {
	param *Parameter
	fn    *Func
	args  []exprNode
}

func (n *callNode) dtype() dtypes.DType {
	if n.fn != nil {
		return n.fn.OutputTypes()[0]
	}
	return n.param.DType()
}

func (n *callNode) equal(other exprNode) bool {
	o, ok := other.(*callNode)
	if !ok || o.param != n.param || o.fn != n.fn || len(o.args) != len(n.args) {
		return false
	}
	for i := range n.args {
		if !n.args[i].equal(o.args[i]) {
			return false
		}
	}
	return true
}

func (n *callNode) eval(env map[string]float64) float64 {
	if n.fn != nil {
		at := make(map[string]float64, len(n.args))
		for i, arg := range n.fn.Args() {
			at[arg.Name()] = n.args[i].eval(env)
		}
		return n.fn.EvalAt(at)
	}
	if !n.param.IsBuffer() && n.param.ScalarValue().Defined() {
		return n.param.ScalarValue().Eval(env)
	}
	exceptions.Panicf("pipe: cannot evaluate a read of buffer parameter %q without a compiled pipeline", n.param.Name())
	return 0
}

func (n *callNode) String() string {
	name := ""
	if n.fn != nil {
		name = n.fn.Name()
	} else {
		name = n.param.Name()
	}
	args := make([]string, len(n.args))
	for i, a := range n.args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(args, ", "))
}
