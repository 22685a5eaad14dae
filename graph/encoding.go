package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Serialization types for the on-disk graph document format.

type pinDef struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Default string `json:"default,omitempty"`
}

type nodeDef struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Function uint16   `json:"function,omitempty"`
	Pure     bool     `json:"pure,omitempty"`
	Inputs   []pinDef `json:"inputs,omitempty"`
	Outputs  []pinDef `json:"outputs,omitempty"`
}

type linkDef struct {
	Source string `json:"source"` // "node.pin"
	Target string `json:"target"`
}

type graphDef struct {
	Name  string    `json:"name"`
	Nodes []nodeDef `json:"nodes"`
	Links []linkDef `json:"links,omitempty"`
}

// Decode builds a graph from its JSON document form. Node names must be
// unique within the document so links can address pins by "node.pin" paths.
func Decode(data []byte) (*Graph, error) {
	var def graphDef
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, err
	}

	g := New(def.Name)
	byName := make(map[string]*Node, len(def.Nodes))

	for _, nd := range def.Nodes {
		if _, exists := byName[nd.Name]; exists {
			return nil, fmt.Errorf("duplicate node name %q", nd.Name)
		}
		var n *Node
		switch nd.Kind {
		case "event":
			n = g.AddEventNode(nd.Name)
		case "call":
			if nd.Pure {
				n = g.AddPureNode(nd.Name, nd.Function)
			} else {
				n = g.AddCallNode(nd.Name, nd.Function)
			}
		case "reroute":
			// Reroutes declaring their own pins sit on a data wire; bare
			// ones sit on the execution path and get exec pins.
			if len(nd.Inputs) > 0 || len(nd.Outputs) > 0 {
				n = g.addNode(nd.Name, Reroute, 0, false)
			} else {
				n = g.AddRerouteNode(nd.Name)
			}
		default:
			return nil, fmt.Errorf("node %q has unknown kind %q", nd.Name, nd.Kind)
		}
		for _, pd := range nd.Inputs {
			n.AddInput(pd.Name, pd.Type, pd.Default)
		}
		for _, pd := range nd.Outputs {
			n.AddOutput(pd.Name, pd.Type)
		}
		byName[nd.Name] = n
	}

	for _, ld := range def.Links {
		source, err := resolvePin(byName, ld.Source)
		if err != nil {
			return nil, err
		}
		target, err := resolvePin(byName, ld.Target)
		if err != nil {
			return nil, err
		}
		if _, err := g.AddLink(source, target); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// LoadFile reads and decodes a graph document from a file.
func LoadFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	g, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return g, nil
}

func resolvePin(nodes map[string]*Node, path string) (*Pin, error) {
	nodeName, pinName, ok := strings.Cut(path, ".")
	if !ok {
		return nil, fmt.Errorf("pin path %q is not of the form node.pin", path)
	}
	n, ok := nodes[nodeName]
	if !ok {
		return nil, fmt.Errorf("pin path %q references unknown node %q", path, nodeName)
	}
	p := n.FindPin(pinName)
	if p == nil {
		return nil, fmt.Errorf("pin path %q references unknown pin %q on node %q", path, pinName, nodeName)
	}
	return p, nil
}
