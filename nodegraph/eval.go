package nodegraph

import (
	"fmt"
	"math"

	"github.com/zephyrtronium/formula"
)

// Data is the value of a plug: one element for a scalar, three for a point,
// or sixteen for a row-major 4x4 matrix with the translation in the last row.
type Data []float64

// Len returns the number of elements data of a shape has.
func Len(s formula.Shape) int {
	switch s {
	case formula.Point:
		return 3
	case formula.Matrix:
		return 16
	default:
		return 1
	}
}

// Eval computes the value of a plug given values for input nodes by name.
// Division by zero produces zero.
func (g *Graph) Eval(p *Plug, inputs map[string]Data) (Data, error) {
	if _, err := g.plug(p); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	e := evaluator{inputs: inputs, memo: make(map[*Node]Data)}
	return e.eval(p.node)
}

// EvalFloat is a shortcut to evaluate a scalar plug.
func (g *Graph) EvalFloat(p *Plug, inputs map[string]Data) (float64, error) {
	d, err := g.Eval(p, inputs)
	if err != nil {
		return 0, err
	}
	if len(d) != 1 {
		return 0, fmt.Errorf("nodegraph: %v is not a scalar", p)
	}
	return d[0], nil
}

type evaluator struct {
	inputs map[string]Data
	memo   map[*Node]Data
}

func (e *evaluator) eval(n *Node) (Data, error) {
	if d, ok := e.memo[n]; ok {
		return d, nil
	}
	var r Data
	switch n.Type {
	case TypeInput:
		d, ok := e.inputs[n.Name]
		if !ok {
			return nil, fmt.Errorf("nodegraph: no value for input %q", n.Name)
		}
		if len(d) != Len(n.shape) {
			return nil, fmt.Errorf("nodegraph: input %q is a %v but has %d elements", n.Name, n.shape, len(d))
		}
		r = d
	case TypePlusMinus, TypeMulDiv, TypeCondition:
		x, y, err := e.pair(n)
		if err != nil {
			return nil, err
		}
		r = Data{scalar(n, x, y)}
	case TypeDistance:
		var p [2][3]float64
		var m [2]Data
		for _, a := range n.Attrs {
			d, err := e.eval(a.From.node)
			if err != nil {
				return nil, err
			}
			switch a.Name {
			case "point1":
				copy(p[0][:], d)
			case "point2":
				copy(p[1][:], d)
			case "inMatrix1":
				m[0] = d
			case "inMatrix2":
				m[1] = d
			}
		}
		var s float64
		for k := 0; k < 3; k++ {
			d := transform(m[0], p[0])[k] - transform(m[1], p[1])[k]
			s += d * d
		}
		r = Data{math.Sqrt(s)}
	default:
		return nil, fmt.Errorf("nodegraph: unknown node type %q", n.Type)
	}
	e.memo[n] = r
	return r, nil
}

// pair evaluates the first two attributes of a node as scalars.
func (e *evaluator) pair(n *Node) (x, y float64, err error) {
	var v [2]float64
	for i := range v {
		a := n.Attrs[i]
		if a.From == nil {
			v[i] = a.Value
			continue
		}
		d, err := e.eval(a.From.node)
		if err != nil {
			return 0, 0, err
		}
		v[i] = d[0]
	}
	return v[0], v[1], nil
}

func scalar(n *Node, x, y float64) float64 {
	switch n.Type {
	case TypePlusMinus:
		if n.Operation == 2 {
			return x - y
		}
		return x + y
	case TypeMulDiv:
		switch n.Operation {
		case 2:
			if y == 0 {
				return 0
			}
			return x / y
		case 3:
			return math.Pow(x, y)
		}
		return x * y
	case TypeCondition:
		var ok bool
		switch n.Operation {
		case 0:
			ok = x == y
		case 1:
			ok = x != y
		case 2:
			ok = x > y
		case 3:
			ok = x >= y
		case 4:
			ok = x < y
		case 5:
			ok = x <= y
		}
		if ok {
			return 1
		}
		return 0
	}
	panic("nodegraph: scalar on " + n.Type)
}

// transform applies a matrix to a point. A nil matrix is the identity.
func transform(m Data, p [3]float64) [3]float64 {
	if m == nil {
		return p
	}
	var r [3]float64
	for j := 0; j < 3; j++ {
		r[j] = p[0]*m[j] + p[1]*m[4+j] + p[2]*m[8+j] + m[12+j]
	}
	return r
}
