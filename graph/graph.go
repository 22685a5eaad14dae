// Package graph provides the in-memory node graph model consumed by the
// rivet compiler. A graph is a set of nodes, each with ordered input and
// output pins; links connect exactly two pins. Execution pins (type "exec")
// sequence control flow between nodes, while data pins carry typed values.
//
// The compiler reads this model but never mutates it.
package graph

import (
	"fmt"

	"github.com/gofrs/uuid"
)

// TypeExec is the pin type used for execution (control flow) pins.
const TypeExec = "exec"

// Direction indicates whether a pin accepts or produces a value.
type Direction uint8

const (
	Input Direction = iota
	Output
)

// String returns "input" or "output".
func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// NodeKind categorizes a node by its control-flow relevance.
type NodeKind uint8

const (
	// Event nodes are entry points: execution starts at an event.
	Event NodeKind = iota

	// Call nodes invoke an external function, identified by a function
	// index resolved by an external registry.
	Call

	// Reroute nodes pass execution or data through unchanged. They exist
	// for visual layout only and can be folded away.
	Reroute
)

// String returns the lowercase kind name.
func (k NodeKind) String() string {
	switch k {
	case Event:
		return "event"
	case Call:
		return "call"
	case Reroute:
		return "reroute"
	default:
		return "unknown"
	}
}

// Graph is a collection of nodes and the links between their pins.
type Graph struct {
	name  string
	nodes []*Node
	links []*Link
}

// New creates an empty graph with the given name.
func New(name string) *Graph {
	return &Graph{name: name}
}

// Name returns the graph name.
func (g *Graph) Name() string {
	return g.name
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// Links returns the links in insertion order.
func (g *Graph) Links() []*Link {
	return g.links
}

// AddEventNode adds an entry-point node with one execution output pin.
func (g *Graph) AddEventNode(name string) *Node {
	n := g.addNode(name, Event, 0, false)
	n.AddOutput("exec", TypeExec)
	return n
}

// AddCallNode adds a side-effecting function call node with execution
// input and output pins. The function index identifies the external
// function in a registry the compiler treats as opaque.
func (g *Graph) AddCallNode(name string, functionIndex uint16) *Node {
	n := g.addNode(name, Call, functionIndex, false)
	n.AddInput("exec", TypeExec, "")
	n.AddOutput("then", TypeExec)
	return n
}

// AddPureNode adds a data-only function call node. Pure nodes have no
// execution pins; they run on demand when a consumer needs their output.
func (g *Graph) AddPureNode(name string, functionIndex uint16) *Node {
	return g.addNode(name, Call, functionIndex, true)
}

// AddRerouteNode adds a pass-through node on the execution path.
func (g *Graph) AddRerouteNode(name string) *Node {
	n := g.addNode(name, Reroute, 0, false)
	n.AddInput("exec", TypeExec, "")
	n.AddOutput("exec", TypeExec)
	return n
}

// AddDataRerouteNode adds a pass-through node on a data wire. Both pins
// carry the given type; the node denotes a single value, not a
// conversion.
func (g *Graph) AddDataRerouteNode(name, typ string) *Node {
	n := g.addNode(name, Reroute, 0, false)
	n.AddInput("in", typ, "")
	n.AddOutput("out", typ)
	return n
}

func (g *Graph) addNode(name string, kind NodeKind, functionIndex uint16, pure bool) *Node {
	n := &Node{
		id:            uuid.Must(uuid.NewV4()),
		graph:         g,
		name:          name,
		kind:          kind,
		functionIndex: functionIndex,
		pure:          pure,
	}
	g.nodes = append(g.nodes, n)
	return n
}

// AddLink connects an output pin to an input pin. A pin may be the source
// of many links but the target of at most one. Execution pins may only
// link to execution pins; data types need not match (a type mismatch
// requires a converting copy rather than aliasing, which the compiler
// handles).
func (g *Graph) AddLink(source, target *Pin) (*Link, error) {
	if source.node.graph != g || target.node.graph != g {
		return nil, fmt.Errorf("link endpoints must belong to graph %q", g.name)
	}
	if source.direction != Output {
		return nil, fmt.Errorf("link source %s is not an output pin", source.Path())
	}
	if target.direction != Input {
		return nil, fmt.Errorf("link target %s is not an input pin", target.Path())
	}
	if source.IsExec() != target.IsExec() {
		return nil, fmt.Errorf("cannot link %s to %s: execution and data pins are incompatible", source.Path(), target.Path())
	}
	if existing := g.LinkedSource(target); existing != nil {
		return nil, fmt.Errorf("target %s is already linked to %s", target.Path(), existing.Path())
	}
	l := &Link{source: source, target: target}
	g.links = append(g.links, l)
	return l, nil
}

// LinkedSource returns the source pin linked to the given target pin, or
// nil if the target is unlinked.
func (g *Graph) LinkedSource(target *Pin) *Pin {
	for _, l := range g.links {
		if l.target == target {
			return l.source
		}
	}
	return nil
}

// LinkedTargets returns the target pins of every link whose source is the
// given pin, in insertion order.
func (g *Graph) LinkedTargets(source *Pin) []*Pin {
	var targets []*Pin
	for _, l := range g.links {
		if l.source == source {
			targets = append(targets, l.target)
		}
	}
	return targets
}

// Node is a single node in the graph with ordered pins.
type Node struct {
	id            uuid.UUID
	graph         *Graph
	name          string
	kind          NodeKind
	functionIndex uint16
	pure          bool
	pins          []*Pin
}

// ID returns the node's unique identifier.
func (n *Node) ID() uuid.UUID {
	return n.id
}

// Name returns the node name. Event node names double as event names:
// multiple event nodes sharing a name implement the same event.
func (n *Node) Name() string {
	return n.name
}

// Kind returns the node kind.
func (n *Node) Kind() NodeKind {
	return n.kind
}

// FunctionIndex returns the external function index for Call nodes.
func (n *Node) FunctionIndex() uint16 {
	return n.functionIndex
}

// IsPure returns true for data-only call nodes without execution pins.
func (n *Node) IsPure() bool {
	return n.pure
}

// Graph returns the owning graph.
func (n *Node) Graph() *Graph {
	return n.graph
}

// Pins returns the node's pins in declaration order.
func (n *Node) Pins() []*Pin {
	return n.pins
}

// AddInput adds an input pin. An empty defaultValue means the pin has no
// constant default and must be linked to produce a value.
func (n *Node) AddInput(name, typ, defaultValue string) *Pin {
	return n.addPin(name, typ, Input, defaultValue)
}

// AddOutput adds an output pin.
func (n *Node) AddOutput(name, typ string) *Pin {
	return n.addPin(name, typ, Output, "")
}

func (n *Node) addPin(name, typ string, dir Direction, defaultValue string) *Pin {
	p := &Pin{
		id:           uuid.Must(uuid.NewV4()),
		node:         n,
		name:         name,
		typ:          typ,
		direction:    dir,
		defaultValue: defaultValue,
		index:        len(n.pins),
	}
	n.pins = append(n.pins, p)
	return p
}

// FindPin returns the pin with the given name, or nil.
func (n *Node) FindPin(name string) *Pin {
	for _, p := range n.pins {
		if p.name == name {
			return p
		}
	}
	return nil
}

// ExecIn returns the first execution input pin, or nil.
func (n *Node) ExecIn() *Pin {
	for _, p := range n.pins {
		if p.IsExec() && p.direction == Input {
			return p
		}
	}
	return nil
}

// ExecOut returns the first execution output pin, or nil.
func (n *Node) ExecOut() *Pin {
	for _, p := range n.pins {
		if p.IsExec() && p.direction == Output {
			return p
		}
	}
	return nil
}

// Pin is a typed connection point on a node.
type Pin struct {
	id           uuid.UUID
	node         *Node
	name         string
	typ          string
	direction    Direction
	defaultValue string
	index        int
}

// ID returns the pin's unique identifier.
func (p *Pin) ID() uuid.UUID {
	return p.id
}

// Node returns the owning node.
func (p *Pin) Node() *Node {
	return p.node
}

// Name returns the pin name, unique within its node.
func (p *Pin) Name() string {
	return p.name
}

// Type returns the declared pin type.
func (p *Pin) Type() string {
	return p.typ
}

// Direction returns whether this is an input or output pin.
func (p *Pin) Direction() Direction {
	return p.direction
}

// DefaultValue returns the pin's constant default, or "" if it has none.
func (p *Pin) DefaultValue() string {
	return p.defaultValue
}

// HasDefault returns true if the pin carries a constant default value.
func (p *Pin) HasDefault() bool {
	return p.defaultValue != ""
}

// IsExec returns true for execution pins.
func (p *Pin) IsExec() bool {
	return p.typ == TypeExec
}

// Index returns the pin's position within its node.
func (p *Pin) Index() int {
	return p.index
}

// Path returns "node.pin" for diagnostics.
func (p *Pin) Path() string {
	return fmt.Sprintf("%s.%s", p.node.name, p.name)
}

// Link connects a source (output) pin to a target (input) pin.
type Link struct {
	source *Pin
	target *Pin
}

// Source returns the link's source pin.
func (l *Link) Source() *Pin {
	return l.source
}

// Target returns the link's target pin.
func (l *Link) Target() *Pin {
	return l.target
}
