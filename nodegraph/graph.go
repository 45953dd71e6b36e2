// Package nodegraph implements a formula backend which builds an in-memory
// network of utility nodes, one node per materialized operation, and can
// evaluate the network numerically.
package nodegraph

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/zephyrtronium/formula"
)

// Node types created by the graph.
const (
	TypeInput     = "input"
	TypePlusMinus = "plusMinusAverage"
	TypeMulDiv    = "multiplyDivide"
	TypeDistance  = "distanceBetween"
	TypeCondition = "condition"
)

// Graph is a network of nodes. It is safe for concurrent use.
type Graph struct {
	mu    sync.Mutex
	nodes []*Node
	names map[string]*Node
	count map[string]int
}

// Node is a node in a graph.
type Node struct {
	// Name is the node's unique name.
	Name string
	// Type is one of the Type constants.
	Type string
	// Operation selects the computation for node types which have several.
	// It is -1 for inputs and distanceBetween nodes.
	Operation int
	// Attrs are the node's input attributes in the order they were set.
	Attrs []Attr

	out   string
	shape formula.Shape
}

// Attr is an input attribute of a node, either connected from another node's
// output or set to a constant.
type Attr struct {
	Name string
	From *Plug
	// Value is the constant value of an unconnected attribute.
	Value float64
}

// Plug is an output of a node. It implements formula.Handle.
type Plug struct {
	node *Node
}

// Shape returns the kind of data the plug produces.
func (p *Plug) Shape() formula.Shape {
	return p.node.shape
}

// Node returns the node that owns the plug.
func (p *Plug) Node() *Node {
	return p.node
}

// Attr returns the name of the output attribute.
func (p *Plug) Attr() string {
	return p.node.out
}

func (p *Plug) String() string {
	if p.node.Type == TypeInput {
		return p.node.Name
	}
	return p.node.Name + "." + p.node.out
}

var _ formula.Handle = (*Plug)(nil)

// ErrForeignHandle indicates a handle which was not created by the graph.
var ErrForeignHandle = errors.New("nodegraph: handle from another backend")

// ShapeError is an error indicating operands of the wrong shape for an
// operation.
type ShapeError struct {
	Op    formula.Op
	Shape formula.Shape
}

func (err *ShapeError) Error() string {
	return "nodegraph: cannot " + err.Op.String() + " " + err.Shape.String() + " operand"
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		names: make(map[string]*Node),
		count: make(map[string]int),
	}
}

// Input creates an input node which stands for an external value of the
// given shape, such as an attribute of an object in a scene. If name is
// already used, the node gets a unique name derived from it.
func (g *Graph) Input(name string, shape formula.Shape) *Plug {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := &Node{Type: TypeInput, Operation: -1, out: "output", shape: shape}
	g.add(n, name)
	return &Plug{n}
}

// Nodes returns the nodes in the order they were created.
func (g *Graph) Nodes() []*Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*Node(nil), g.nodes...)
}

// Lookup finds a node by name.
func (g *Graph) Lookup(name string) *Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.names[name]
}

// Name renames the node which produces h. It implements formula.Namer.
// Input nodes keep their names, since inputs are supplied by name.
func (g *Graph) Name(h formula.Handle, name string) error {
	p, err := g.plug(h)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if p.node.Type == TypeInput {
		return nil
	}
	if m := g.names[name]; m != nil && m != p.node {
		return fmt.Errorf("nodegraph: name %q already in use", name)
	}
	delete(g.names, p.node.Name)
	p.node.Name = name
	g.names[name] = p.node
	return nil
}

// Materialize creates a node computing op over left and right and returns
// its output. It implements formula.Backend.
func (g *Graph) Materialize(op formula.Op, left, right formula.Value) (formula.Handle, error) {
	var n *Node
	switch op {
	case formula.OpAdd, formula.OpSub:
		n = &Node{Type: TypePlusMinus, out: "output1D", Operation: 1}
		if op == formula.OpSub {
			n.Operation = 2
		}
		if err := g.scalars(n, op, left, right, "input1D[0]", "input1D[1]"); err != nil {
			return nil, err
		}
	case formula.OpMul, formula.OpDiv, formula.OpPow:
		n = &Node{Type: TypeMulDiv, out: "outputX"}
		switch op {
		case formula.OpMul:
			n.Operation = 1
		case formula.OpDiv:
			n.Operation = 2
		case formula.OpPow:
			n.Operation = 3
		}
		if err := g.scalars(n, op, left, right, "input1X", "input2X"); err != nil {
			return nil, err
		}
	case formula.OpDistance:
		n = &Node{Type: TypeDistance, out: "distance", Operation: -1}
		for i, v := range [2]formula.Value{left, right} {
			if v.IsConst() {
				return nil, &ShapeError{Op: op, Shape: formula.Scalar}
			}
			p, err := g.plug(v.Handle())
			if err != nil {
				return nil, err
			}
			k := strconv.Itoa(i + 1)
			switch p.Shape() {
			case formula.Point:
				n.Attrs = append(n.Attrs, Attr{Name: "point" + k, From: p})
			case formula.Matrix:
				n.Attrs = append(n.Attrs, Attr{Name: "inMatrix" + k, From: p})
			default:
				return nil, &ShapeError{Op: op, Shape: p.Shape()}
			}
		}
	default:
		mode := op.CompareMode()
		if mode < 0 {
			return nil, fmt.Errorf("nodegraph: unknown operator %v", op)
		}
		n = &Node{Type: TypeCondition, out: "outColorR", Operation: mode}
		if err := g.scalars(n, op, left, right, "firstTerm", "secondTerm"); err != nil {
			return nil, err
		}
		n.Attrs = append(n.Attrs, Attr{Name: "colorIfTrueR", Value: 1}, Attr{Name: "colorIfFalseR", Value: 0})
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.add(n, n.Type)
	return &Plug{n}, nil
}

// scalars sets a pair of scalar attributes from values.
func (g *Graph) scalars(n *Node, op formula.Op, left, right formula.Value, lname, rname string) error {
	for i, v := range [2]formula.Value{left, right} {
		a := Attr{Name: lname}
		if i == 1 {
			a.Name = rname
		}
		if v.IsConst() {
			a.Value = v.Float64()
		} else {
			p, err := g.plug(v.Handle())
			if err != nil {
				return err
			}
			if p.Shape() != formula.Scalar {
				return &ShapeError{Op: op, Shape: p.Shape()}
			}
			a.From = p
		}
		n.Attrs = append(n.Attrs, a)
	}
	return nil
}

// plug checks that h is a plug belonging to g.
func (g *Graph) plug(h formula.Handle) (*Plug, error) {
	p, ok := h.(*Plug)
	if !ok || p == nil {
		return nil, ErrForeignHandle
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.names[p.node.Name] != p.node {
		return nil, ErrForeignHandle
	}
	return p, nil
}

// add registers a node under a unique name derived from base. g.mu must be
// held.
func (g *Graph) add(n *Node, base string) {
	name := base
	for g.names[name] != nil || (name == n.Type && n.Type != TypeInput) {
		g.count[base]++
		name = base + strconv.Itoa(g.count[base])
	}
	n.Name = name
	g.names[name] = n
	g.nodes = append(g.nodes, n)
}
