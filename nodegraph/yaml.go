package nodegraph

import (
	"io"

	"gopkg.in/yaml.v3"
)

type graphDoc struct {
	Nodes []nodeDoc `yaml:"nodes"`
}

type nodeDoc struct {
	Name      string    `yaml:"name"`
	Type      string    `yaml:"type"`
	Shape     string    `yaml:"shape,omitempty"`
	Operation *int      `yaml:"operation,omitempty"`
	Attrs     []attrDoc `yaml:"attrs,omitempty"`
}

type attrDoc struct {
	Name  string   `yaml:"name"`
	From  string   `yaml:"from,omitempty"`
	Value *float64 `yaml:"value,omitempty"`
}

// WriteYAML writes the nodes of the graph and their connections as a YAML
// document.
func (g *Graph) WriteYAML(w io.Writer) error {
	g.mu.Lock()
	doc := graphDoc{Nodes: make([]nodeDoc, 0, len(g.nodes))}
	for _, n := range g.nodes {
		d := nodeDoc{Name: n.Name, Type: n.Type}
		if n.Type == TypeInput {
			d.Shape = n.shape.String()
		}
		if n.Operation >= 0 {
			op := n.Operation
			d.Operation = &op
		}
		for _, a := range n.Attrs {
			ad := attrDoc{Name: a.Name}
			if a.From != nil {
				ad.From = a.From.String()
			} else {
				v := a.Value
				ad.Value = &v
			}
			d.Attrs = append(d.Attrs, ad)
		}
		doc.Nodes = append(doc.Nodes, d)
	}
	g.mu.Unlock()

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	return enc.Close()
}
