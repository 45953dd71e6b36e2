package nodegraph_test

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/zephyrtronium/formula"
	"github.com/zephyrtronium/formula/nodegraph"
)

type in struct {
	name  string
	shape formula.Shape
}

func declare(g *nodegraph.Graph, inputs ...in) formula.Bindings {
	vars := formula.Bindings{}
	for _, x := range inputs {
		vars[x.name] = formula.Ref(g.Input(x.name, x.shape))
	}
	return vars
}

// describe formats the non-input nodes of a graph.
func describe(g *nodegraph.Graph) []string {
	var r []string
	for _, n := range g.Nodes() {
		if n.Type == nodegraph.TypeInput {
			continue
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%s %s %d", n.Name, n.Type, n.Operation)
		for _, a := range n.Attrs {
			if a.From != nil {
				fmt.Fprintf(&b, " %s<-%v", a.Name, a.From)
			} else {
				fmt.Fprintf(&b, " %s=%g", a.Name, a.Value)
			}
		}
		r = append(r, b.String())
	}
	return r
}

var scalars = []in{{"x", formula.Scalar}, {"y", formula.Scalar}}

func TestMaterialize(t *testing.T) {
	shapes := append([]in{
		{"p", formula.Point},
		{"q", formula.Point},
		{"m", formula.Matrix},
		{"n", formula.Matrix},
	}, scalars...)
	cases := []struct {
		name string
		src  string
		want []string
	}{
		{"add", "x+1", []string{"plusMinusAverage1 plusMinusAverage 1 input1D[0]<-x input1D[1]=1"}},
		{"sub", "x-y", []string{"plusMinusAverage1 plusMinusAverage 2 input1D[0]<-x input1D[1]<-y"}},
		{"mul", "2*x", []string{"multiplyDivide1 multiplyDivide 1 input1X=2 input2X<-x"}},
		{"div", "x/y", []string{"multiplyDivide1 multiplyDivide 2 input1X<-x input2X<-y"}},
		{"pow", "x^0.5", []string{"multiplyDivide1 multiplyDivide 3 input1X<-x input2X=0.5"}},
		{"neg", "-x", []string{"multiplyDivide1 multiplyDivide 1 input1X=-1 input2X<-x"}},
		{"eq", "x=y", []string{"condition1 condition 0 firstTerm<-x secondTerm<-y colorIfTrueR=1 colorIfFalseR=0"}},
		{"lte", "x<=3", []string{"condition1 condition 5 firstTerm<-x secondTerm=3 colorIfTrueR=1 colorIfFalseR=0"}},
		{"points", "p~q", []string{"distanceBetween1 distanceBetween -1 point1<-p point2<-q"}},
		{"matrices", "m~n", []string{"distanceBetween1 distanceBetween -1 inMatrix1<-m inMatrix2<-n"}},
		{"mixed", "p~m", []string{"distanceBetween1 distanceBetween -1 point1<-p inMatrix2<-m"}},
		{"chain", "2+3*x", []string{
			"multiplyDivide1 multiplyDivide 1 input1X=3 input2X<-x",
			"plusMinusAverage1 plusMinusAverage 1 input1D[0]=2 input1D[1]<-multiplyDivide1.outputX",
		}},
		{"scaled-distance", "2*(p~q)", []string{
			"distanceBetween1 distanceBetween -1 point1<-p point2<-q",
			"multiplyDivide1 multiplyDivide 1 input1X=2 input2X<-distanceBetween1.distance",
		}},
		{"repeat", "x*x*x", []string{
			"multiplyDivide1 multiplyDivide 1 input1X<-x input2X<-x",
			"multiplyDivide2 multiplyDivide 1 input1X<-multiplyDivide1.outputX input2X<-x",
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			g := nodegraph.New()
			vars := declare(g, shapes...)
			v, err := formula.ParseString(c.src, vars, g)
			if err != nil {
				t.Fatalf("%q failed: %v", c.src, err)
			}
			if got := describe(g); !reflect.DeepEqual(got, c.want) {
				t.Errorf("%q made wrong nodes:\nwant %q\ngot  %q", c.src, c.want, got)
			}
			if _, ok := v.Handle().(*nodegraph.Plug); !ok {
				t.Errorf("%q gave %#v, not a plug", c.src, v)
			}
		})
	}
}

func TestEval(t *testing.T) {
	g := nodegraph.New()
	vars := declare(g, scalars...)
	v, err := formula.ParseString("1 / (e^(x^2))", vars, g)
	if err != nil {
		t.Fatal(err)
	}
	p := v.Handle().(*nodegraph.Plug)
	if got, want := p.String(), "multiplyDivide3.outputX"; got != want {
		t.Errorf("wrong output: want %s, got %s", want, got)
	}
	r, err := g.EvalFloat(p, map[string]nodegraph.Data{"x": {1.5}})
	if err != nil {
		t.Fatal(err)
	}
	if want := 1 / math.Exp(2.25); math.Abs(r-want) > 1e-12 {
		t.Errorf("wrong result: want %g, got %g", want, r)
	}
}

func TestEvalScalar(t *testing.T) {
	cases := []struct {
		src  string
		x, y float64
		want float64
	}{
		{"x+y", 2, 3, 5},
		{"x-y", 2, 3, -1},
		{"x*y", 2, 3, 6},
		{"x/y", 3, 2, 1.5},
		{"x/y", 3, 0, 0},
		{"x^y", 2, 10, 1024},
		{"x=y", 2, 2, 1},
		{"x=y", 2, 3, 0},
		{"x!=y", 2, 3, 1},
		{"x>y", 3, 2, 1},
		{"x>y", 2, 2, 0},
		{"x>=y", 2, 2, 1},
		{"x<y", 2, 3, 1},
		{"x<=y", 3, 2, 0},
		{"(x>y)*x + (x<=y)*y", 7, 4, 7},
		{"a*x + b", 2, 0, 13},
	}
	for _, c := range cases {
		g := nodegraph.New()
		vars := declare(g, scalars...)
		vars["a"] = formula.Int(4)
		vars["b"] = formula.Int(5)
		v, err := formula.ParseString(c.src, vars, g)
		if err != nil {
			t.Fatalf("%q failed: %v", c.src, err)
		}
		r, err := g.EvalFloat(v.Handle().(*nodegraph.Plug), map[string]nodegraph.Data{"x": {c.x}, "y": {c.y}})
		if err != nil {
			t.Errorf("%q failed to evaluate: %v", c.src, err)
			continue
		}
		if r != c.want {
			t.Errorf("%q with x=%g, y=%g: want %g, got %g", c.src, c.x, c.y, c.want, r)
		}
	}
}

func translate(x, y, z float64) nodegraph.Data {
	return nodegraph.Data{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		x, y, z, 1,
	}
}

func TestEvalDistance(t *testing.T) {
	cases := []struct {
		name string
		a, b in
		data map[string]nodegraph.Data
		want float64
	}{
		{
			name: "points",
			a:    in{"a", formula.Point},
			b:    in{"b", formula.Point},
			data: map[string]nodegraph.Data{"a": {0, 0, 0}, "b": {3, 4, 0}},
			want: 5,
		},
		{
			name: "matrices",
			a:    in{"a", formula.Matrix},
			b:    in{"b", formula.Matrix},
			data: map[string]nodegraph.Data{"a": translate(1, 2, 3), "b": translate(4, 6, 3)},
			want: 5,
		},
		{
			name: "mixed",
			a:    in{"a", formula.Point},
			b:    in{"b", formula.Matrix},
			data: map[string]nodegraph.Data{"a": {3, 4, 12}, "b": translate(0, 0, 0)},
			want: 13,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			g := nodegraph.New()
			vars := declare(g, c.a, c.b)
			v, err := formula.ParseString("a~b", vars, g)
			if err != nil {
				t.Fatal(err)
			}
			r, err := g.EvalFloat(v.Handle().(*nodegraph.Plug), c.data)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(r-c.want) > 1e-12 {
				t.Errorf("wrong distance: want %g, got %g", c.want, r)
			}
		})
	}
}

func TestEvalErrors(t *testing.T) {
	g := nodegraph.New()
	vars := declare(g, in{"x", formula.Scalar}, in{"p", formula.Point})
	v, err := formula.ParseString("x+1", vars, g)
	if err != nil {
		t.Fatal(err)
	}
	p := v.Handle().(*nodegraph.Plug)
	if _, err := g.Eval(p, nil); err == nil {
		t.Error("missing input gave no error")
	}
	if _, err := g.Eval(p, map[string]nodegraph.Data{"x": {1, 2}}); err == nil {
		t.Error("wrong-sized input gave no error")
	}
	pp := vars["p"].Handle().(*nodegraph.Plug)
	if _, err := g.EvalFloat(pp, map[string]nodegraph.Data{"p": {1, 2, 3}}); err == nil {
		t.Error("EvalFloat on a point gave no error")
	}
	if _, err := nodegraph.New().Eval(p, map[string]nodegraph.Data{"x": {1}}); !errors.Is(err, nodegraph.ErrForeignHandle) {
		t.Errorf("evaluating plug of another graph gave wrong error: %v", err)
	}
}

func TestShapeErrors(t *testing.T) {
	cases := []struct {
		src   string
		op    formula.Op
		shape formula.Shape
	}{
		{"x~1", formula.OpDistance, formula.Scalar},
		{"x~y", formula.OpDistance, formula.Scalar},
		{"p~x", formula.OpDistance, formula.Scalar},
		{"p+1", formula.OpAdd, formula.Point},
		{"x*m", formula.OpMul, formula.Matrix},
		{"p>=p", formula.OpGte, formula.Point},
	}
	for _, c := range cases {
		g := nodegraph.New()
		vars := declare(g, append([]in{{"p", formula.Point}, {"m", formula.Matrix}}, scalars...)...)
		_, err := formula.ParseString(c.src, vars, g)
		var se *nodegraph.ShapeError
		if !errors.As(err, &se) {
			t.Errorf("%q gave wrong error: %v", c.src, err)
			continue
		}
		if se.Op != c.op || se.Shape != c.shape {
			t.Errorf("%q gave wrong shape error: want %v %v, got %v %v", c.src, c.op, c.shape, se.Op, se.Shape)
		}
		if len(describe(g)) != 0 {
			t.Errorf("%q left nodes after failing: %q", c.src, describe(g))
		}
	}
}

func TestForeignHandle(t *testing.T) {
	g, h := nodegraph.New(), nodegraph.New()
	vars := declare(h, scalars...)
	_, err := formula.ParseString("x+1", vars, g)
	if !errors.Is(err, nodegraph.ErrForeignHandle) {
		t.Errorf("plug of another graph gave wrong error: %v", err)
	}
	type other struct{ formula.Handle }
	_, err = formula.ParseString("x+1", formula.Bindings{"x": formula.Ref(other{})}, g)
	if !errors.Is(err, nodegraph.ErrForeignHandle) {
		t.Errorf("foreign handle gave wrong error: %v", err)
	}
}

func TestName(t *testing.T) {
	g := nodegraph.New()
	vars := declare(g, scalars...)
	v, err := formula.Define(vars, "area", "x*y", g)
	if err != nil {
		t.Fatal(err)
	}
	if got := v.Handle().(*nodegraph.Plug).String(); got != "area.outputX" {
		t.Errorf("wrong name: want area.outputX, got %s", got)
	}
	if n := g.Lookup("area"); n == nil || n.Type != nodegraph.TypeMulDiv {
		t.Errorf("lookup of named node gave %+v", n)
	}
	if g.Lookup("multiplyDivide1") != nil {
		t.Error("old name still bound")
	}
	// Names are unique.
	if _, err := formula.Define(vars, "area", "x+y", g); err == nil {
		t.Error("duplicate name gave no error")
	}
	// Inputs keep their names.
	if _, err := formula.Define(vars, "z", "x", g); err != nil {
		t.Fatal(err)
	}
	if g.Lookup("x") == nil || g.Lookup("z") != nil {
		t.Error("input was renamed")
	}
	// New nodes never take a used name.
	w, err := formula.ParseString("area*2", vars, g)
	if err != nil {
		t.Fatal(err)
	}
	if got := w.Handle().(*nodegraph.Plug).Node().Name; got == "area" || got == "multiplyDivide1" {
		t.Errorf("new node reused name %s", got)
	}
}

func TestInputNames(t *testing.T) {
	g := nodegraph.New()
	a := g.Input("x", formula.Scalar)
	b := g.Input("x", formula.Scalar)
	if a.Node().Name != "x" {
		t.Errorf("first input got name %s", a.Node().Name)
	}
	if b.Node().Name == "x" {
		t.Error("second input reused name x")
	}
	if b.Shape() != formula.Scalar || b.Attr() != "output" {
		t.Errorf("wrong input plug %v %v", b.Shape(), b.Attr())
	}
}

func TestWriteYAML(t *testing.T) {
	g := nodegraph.New()
	vars := declare(g, in{"x", formula.Scalar}, in{"p", formula.Point}, in{"q", formula.Point})
	if _, err := formula.ParseString("(x = 0) * (p~q)", vars, g); err != nil {
		t.Fatal(err)
	}
	var b strings.Builder
	if err := g.WriteYAML(&b); err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Nodes []struct {
			Name      string `yaml:"name"`
			Type      string `yaml:"type"`
			Shape     string `yaml:"shape"`
			Operation *int   `yaml:"operation"`
			Attrs     []struct {
				Name  string   `yaml:"name"`
				From  string   `yaml:"from"`
				Value *float64 `yaml:"value"`
			} `yaml:"attrs"`
		} `yaml:"nodes"`
	}
	if err := yaml.Unmarshal([]byte(b.String()), &doc); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, b.String())
	}
	if len(doc.Nodes) != 6 {
		t.Fatalf("wrong number of nodes: want 6, got %d\n%s", len(doc.Nodes), b.String())
	}
	x := doc.Nodes[0]
	if x.Name != "x" || x.Type != "input" || x.Shape != "scalar" || x.Operation != nil || len(x.Attrs) != 0 {
		t.Errorf("wrong input node %+v", x)
	}
	c := doc.Nodes[3]
	if c.Type != nodegraph.TypeCondition || c.Operation == nil || *c.Operation != 0 {
		t.Errorf("wrong condition node %+v", c)
	}
	if len(c.Attrs) != 4 || c.Attrs[0].From != "x" || c.Attrs[1].Value == nil || *c.Attrs[1].Value != 0 {
		t.Errorf("wrong condition attributes %+v", c.Attrs)
	}
	m := doc.Nodes[5]
	if m.Attrs[0].From != "condition1.outColorR" || m.Attrs[1].From != "distanceBetween1.distance" {
		t.Errorf("wrong connections %+v", m.Attrs)
	}
}

func TestConcurrent(t *testing.T) {
	g := nodegraph.New()
	vars := declare(g, scalars...)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				if _, err := formula.ParseString("x*y + x/y", vars, g); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()
	nodes := g.Nodes()
	if len(nodes) != 2+8*25*3 {
		t.Fatalf("wrong number of nodes: want %d, got %d", 2+8*25*3, len(nodes))
	}
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.Name
	}
	sort.Strings(names)
	for i := 1; i < len(names); i++ {
		if names[i] == names[i-1] {
			t.Fatalf("duplicate node name %s", names[i])
		}
	}
}
