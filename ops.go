package formula

import (
	"math"
	"math/big"
	"strconv"

	"github.com/zephyrtronium/bigfloat"
)

// Op is a binary operator.
type Op int8

const (
	opNone Op = iota

	OpDistance // ~
	OpPow      // ^
	OpMul      // *
	OpDiv      // /
	OpAdd      // +
	OpSub      // -
	OpEq       // =
	OpNeq      // !=
	OpGt       // >
	OpGte      // >=
	OpLt       // <
	OpLte      // <=

	opCount
)

// Tiers is the number of precedence tiers. Tier 0 binds most tightly.
const Tiers = 5

// opdesc describes the behavior of an operator.
type opdesc struct {
	sym  string
	name string
	// tier is the precedence tier. Lower is more binding.
	tier int8
	// mode is the comparison mode selector, or -1 if the operator is not a
	// comparison.
	mode int8
	// fold computes the operator over two constants. The result has the
	// given precision.
	fold func(prec uint, x, y *big.Float) (*big.Float, error)
}

var ops = [opCount]opdesc{
	opNone:     {sym: "", name: "none", tier: -1, mode: -1},
	OpDistance: {sym: "~", name: "distance", tier: 0, mode: -1, fold: foldMul},
	OpPow:      {sym: "^", name: "pow", tier: 1, mode: -1, fold: foldPow},
	OpMul:      {sym: "*", name: "multiply", tier: 2, mode: -1, fold: foldMul},
	OpDiv:      {sym: "/", name: "divide", tier: 2, mode: -1, fold: foldDiv},
	OpAdd:      {sym: "+", name: "add", tier: 3, mode: -1, fold: foldAdd},
	OpSub:      {sym: "-", name: "subtract", tier: 3, mode: -1, fold: foldSub},
	OpEq:       {sym: "=", name: "equal", tier: 4, mode: 0, fold: compare(func(c int) bool { return c == 0 })},
	OpNeq:      {sym: "!=", name: "not_equal", tier: 4, mode: 1, fold: compare(func(c int) bool { return c != 0 })},
	OpGt:       {sym: ">", name: "greater", tier: 4, mode: 2, fold: compare(func(c int) bool { return c > 0 })},
	OpGte:      {sym: ">=", name: "greater_or_equal", tier: 4, mode: 3, fold: compare(func(c int) bool { return c >= 0 })},
	OpLt:       {sym: "<", name: "less", tier: 4, mode: 4, fold: compare(func(c int) bool { return c < 0 })},
	OpLte:      {sym: "<=", name: "less_or_equal", tier: 4, mode: 5, fold: compare(func(c int) bool { return c <= 0 })},
}

// LookupOp finds the operator spelled sym.
func LookupOp(sym string) (Op, bool) {
	for op := opNone + 1; op < opCount; op++ {
		if ops[op].sym == sym {
			return op, true
		}
	}
	return opNone, false
}

func (op Op) valid() bool {
	return opNone < op && op < opCount
}

// Symbol returns the operator's spelling in expressions.
func (op Op) Symbol() string {
	if !op.valid() {
		return ""
	}
	return ops[op].sym
}

// Tier returns the precedence tier of the operator, from 0 (distance) to
// Tiers-1 (comparisons). Invalid operators have tier -1.
func (op Op) Tier() int {
	if !op.valid() {
		return -1
	}
	return int(ops[op].tier)
}

// CompareMode returns the selector a backend comparison primitive uses for
// the operator: 0 for =, 1 for !=, 2 for >, 3 for >=, 4 for <, 5 for <=.
// Non-comparison operators return -1.
func (op Op) CompareMode() int {
	if !op.valid() {
		return -1
	}
	return int(ops[op].mode)
}

func (op Op) String() string {
	if !op.valid() {
		return "Op(" + strconv.Itoa(int(op)) + ")"
	}
	return ops[op].name
}

// Fold computes op over two constants at the given precision.
func (op Op) Fold(prec uint, x, y *big.Float) (*big.Float, error) {
	if !op.valid() {
		panic("formula: fold with invalid operator " + op.String())
	}
	return ops[op].fold(prec, x, y)
}

func foldAdd(prec uint, x, y *big.Float) (*big.Float, error) {
	return new(big.Float).SetPrec(prec).Add(x, y), nil
}

func foldSub(prec uint, x, y *big.Float) (*big.Float, error) {
	return new(big.Float).SetPrec(prec).Sub(x, y), nil
}

func foldMul(prec uint, x, y *big.Float) (*big.Float, error) {
	return new(big.Float).SetPrec(prec).Mul(x, y), nil
}

func foldDiv(prec uint, x, y *big.Float) (*big.Float, error) {
	if y.Sign() == 0 {
		return nil, &DivisionByZeroError{X: x}
	}
	return new(big.Float).SetPrec(prec).Quo(x, y), nil
}

func foldPow(prec uint, x, y *big.Float) (*big.Float, error) {
	z := new(big.Float).SetPrec(prec)
	if y.Sign() == 0 {
		return z.SetInt64(1), nil
	}
	if x.Sign() == 0 {
		if y.Sign() < 0 {
			return nil, &DivisionByZeroError{X: z.SetInt64(1)}
		}
		return z, nil
	}
	if n, acc := y.Int64(); acc == big.Exact {
		return powint(z, x, n), nil
	}
	if x.Sign() < 0 {
		// Only integer exponents are defined for negative bases.
		return nil, &DomainError{X: x, Arg: 1, Op: OpPow}
	}
	one := new(big.Float).SetInt64(1)
	switch c := x.Cmp(one); {
	case c == 0:
		return z.SetInt64(1), nil
	case x.IsInf():
		if y.Sign() < 0 {
			return z, nil
		}
		return z.SetInf(false), nil
	case y.IsInf():
		// x^+Inf is Inf above 1 and 0 below; x^-Inf is the reverse.
		if (c > 0) == (y.Sign() > 0) {
			return z.SetInf(false), nil
		}
		return z, nil
	}
	// Results whose exponent is out of range for big.Float are decided
	// before bigfloat computes an intermediate that overflows float64.
	mant := new(big.Float)
	e := x.MantExp(mant)
	m, _ := mant.Float64()
	yf, _ := y.Float64()
	switch t := yf * (float64(e) + math.Log2(m)); {
	case t > big.MaxExp:
		return z.SetInf(false), nil
	case t < big.MinExp:
		return z, nil
	}
	b := new(big.Float).SetPrec(prec).Set(x)
	return z.Set(bigfloat.Pow(new(big.Float).SetPrec(prec), b, y)), nil
}

// powint sets z to x**n by repeated squaring and returns z.
func powint(z, x *big.Float, n int64) *big.Float {
	neg := n < 0
	// The magnitude of math.MinInt64 only fits in a uint64.
	u := uint64(n)
	if neg {
		u = -u
	}
	b := new(big.Float).SetPrec(z.Prec()).Set(x)
	z.SetInt64(1)
	for u > 0 {
		if u&1 != 0 {
			z.Mul(z, b)
		}
		u >>= 1
		if u > 0 {
			b.Mul(b, b)
		}
	}
	if neg {
		one := new(big.Float).SetPrec(z.Prec()).SetInt64(1)
		z.Quo(one, z)
	}
	return z
}

func compare(f func(int) bool) func(uint, *big.Float, *big.Float) (*big.Float, error) {
	return func(prec uint, x, y *big.Float) (*big.Float, error) {
		z := new(big.Float).SetPrec(prec)
		if f(x.Cmp(y)) {
			z.SetInt64(1)
		}
		return z, nil
	}
}

// builtins computes the constants that are always bound unless the caller
// overrides them.
func builtins(prec uint) Bindings {
	one := new(big.Float).SetPrec(prec).SetInt64(1)
	return Bindings{
		"e":  Const(bigfloat.Exp(new(big.Float).SetPrec(prec), one)),
		"pi": Const(bigfloat.Pi(new(big.Float).SetPrec(prec))),
	}
}
