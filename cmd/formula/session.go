package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zephyrtronium/formula"
	"github.com/zephyrtronium/formula/nodegraph"
)

// session holds the bindings and node network shared by every expression
// the command compiles.
type session struct {
	g    *nodegraph.Graph
	vars formula.Bindings
	// data holds values of inputs by node name, for evaluating results.
	data map[string]nodegraph.Data
	verb string
	opts []formula.ParseOption
}

// varsFile is the format of the -vars file. Inputs are declared before
// definitions are compiled, so definitions may refer to inputs and to earlier
// definitions.
type varsFile struct {
	Inputs []struct {
		Name  string    `yaml:"name"`
		Shape string    `yaml:"shape"`
		Value []float64 `yaml:"value,flow"`
	} `yaml:"inputs"`
	Given []struct {
		Name  string `yaml:"name"`
		Value string `yaml:"value"`
	} `yaml:"given"`
}

func (s *session) load(r io.Reader) error {
	var doc varsFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return err
	}
	for _, in := range doc.Inputs {
		shape, err := parseShape(in.Shape)
		if err != nil {
			return fmt.Errorf("input %s: %w", in.Name, err)
		}
		s.declare(in.Name, shape, in.Value)
	}
	for _, d := range doc.Given {
		if _, err := formula.Define(s.vars, d.Name, d.Value, s.g, s.opts...); err != nil {
			return fmt.Errorf("setting %s: %w", d.Name, err)
		}
	}
	return nil
}

// given compiles a name=value definition.
func (s *session) given(d string) error {
	name, val, ok := strings.Cut(d, "=")
	if !ok {
		return fmt.Errorf(`variable definitions must be "name=value", not %q`, d)
	}
	name = strings.TrimSpace(name)
	if _, err := formula.Define(s.vars, name, val, s.g, s.opts...); err != nil {
		return fmt.Errorf("setting %s: %w", name, err)
	}
	return nil
}

// input declares a runtime input from name[:shape][=v1,v2,...].
func (s *session) input(d string) error {
	decl, vals, hasvals := strings.Cut(d, "=")
	name, sh, _ := strings.Cut(decl, ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("input %q has no name", d)
	}
	shape, err := parseShape(sh)
	if err != nil {
		return fmt.Errorf("input %s: %w", name, err)
	}
	var data nodegraph.Data
	if hasvals {
		for _, f := range strings.Split(vals, ",") {
			x, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return fmt.Errorf("input %s: %w", name, err)
			}
			data = append(data, x)
		}
		if len(data) != nodegraph.Len(shape) {
			return fmt.Errorf("input %s: %v needs %d values, got %d", name, shape, nodegraph.Len(shape), len(data))
		}
	}
	s.declare(name, shape, data)
	return nil
}

func (s *session) declare(name string, shape formula.Shape, data nodegraph.Data) {
	p := s.g.Input(name, shape)
	s.vars[name] = formula.Ref(p)
	if data != nil {
		s.data[p.Node().Name] = data
	}
}

func parseShape(s string) (formula.Shape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "scalar":
		return formula.Scalar, nil
	case "point":
		return formula.Point, nil
	case "matrix":
		return formula.Matrix, nil
	default:
		return 0, fmt.Errorf("unknown shape %q", s)
	}
}

// run compiles one expression, or a definition "name := expression", and
// writes its result. Handle results are evaluated when every input they
// depend on has a value.
func (s *session) run(w io.Writer, src string) error {
	var v formula.Value
	var err error
	if name, expr, ok := strings.Cut(src, ":="); ok {
		v, err = formula.Define(s.vars, strings.TrimSpace(name), expr, s.g, s.opts...)
	} else {
		v, err = formula.ParseString(src, s.vars, s.g, s.opts...)
	}
	if err != nil {
		return err
	}
	if v.IsConst() {
		fmt.Fprintf(w, s.verb, v.Const())
		return nil
	}
	p, ok := v.Handle().(*nodegraph.Plug)
	if !ok {
		fmt.Fprintln(w, v)
		return nil
	}
	d, err := s.g.Eval(p, s.data)
	if err != nil {
		// Not every input has a value.
		fmt.Fprintln(w, p)
		return nil
	}
	if len(d) == 1 {
		fmt.Fprintf(w, "%v = %g\n", p, d[0])
	} else {
		fmt.Fprintf(w, "%v = %g\n", p, []float64(d))
	}
	return nil
}
