package formula

import (
	"fmt"
	"math/big"
)

// Shape is the kind of data a Handle refers to. Backends use it to pick the
// form of a request, e.g. whether a distance is measured between points or
// between matrices.
type Shape int8

const (
	// Scalar is a single real value.
	Scalar Shape = iota
	// Point is a position in space.
	Point
	// Matrix is a transformation matrix.
	Matrix
)

func (s Shape) String() string {
	switch s {
	case Scalar:
		return "scalar"
	case Point:
		return "point"
	case Matrix:
		return "matrix"
	default:
		return fmt.Sprintf("Shape(%d)", int8(s))
	}
}

// Handle is an opaque reference to a result that is only known once the
// backend which produced it runs. The backend owns everything a Handle refers
// to; the compiler never releases handles.
type Handle interface {
	// Shape returns the kind of data the handle refers to.
	Shape() Shape
}

// Value is either a constant known at compile time or a Handle to a runtime
// result. The zero Value is invalid.
type Value struct {
	c *big.Float
	h Handle
}

// Const creates a constant Value. x is not copied.
func Const(x *big.Float) Value {
	return Value{c: x}
}

// Float creates a constant Value from a float64.
func Float(x float64) Value {
	return Value{c: new(big.Float).SetFloat64(x)}
}

// Int creates an integer-valued constant Value.
func Int(x int64) Value {
	return Value{c: new(big.Float).SetInt64(x)}
}

// Ref creates a Value referring to a runtime result.
func Ref(h Handle) Value {
	return Value{h: h}
}

// IsConst returns whether v is a constant.
func (v Value) IsConst() bool {
	return v.c != nil
}

// IsInt returns whether v is an integer-valued constant.
func (v Value) IsInt() bool {
	return v.c != nil && v.c.IsInt()
}

// Const returns the constant v holds, or nil if v is a handle.
func (v Value) Const() *big.Float {
	return v.c
}

// Handle returns the runtime reference v holds, or nil if v is a constant.
func (v Value) Handle() Handle {
	return v.h
}

// Float64 returns the nearest float64 to a constant v. It returns 0 for
// handles.
func (v Value) Float64() float64 {
	if v.c == nil {
		return 0
	}
	f, _ := v.c.Float64()
	return f
}

func (v Value) valid() bool {
	return v.c != nil || v.h != nil
}

func (v Value) String() string {
	switch {
	case v.c != nil:
		return v.c.Text('g', -1)
	case v.h == nil:
		return "<invalid>"
	}
	if s, ok := v.h.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("<%v %p>", v.h.Shape(), v.h)
}

// Bindings maps variable names to their values for a single compilation.
// Parse never modifies a Bindings.
type Bindings map[string]Value
