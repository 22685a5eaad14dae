package graph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	doc := []byte(`{
		"name": "blink",
		"nodes": [
			{"name": "Start", "kind": "event", "outputs": [{"name": "pin", "type": "int"}]},
			{"name": "Add", "kind": "call", "function": 4, "pure": true,
				"inputs": [{"name": "a", "type": "int", "default": "1"}, {"name": "b", "type": "int", "default": "2"}],
				"outputs": [{"name": "sum", "type": "int"}]},
			{"name": "Print", "kind": "call", "function": 9,
				"inputs": [{"name": "value", "type": "int"}]}
		],
		"links": [
			{"source": "Start.exec", "target": "Print.exec"},
			{"source": "Add.sum", "target": "Print.value"}
		]
	}`)

	g, err := Decode(doc)
	require.Nil(t, err)
	require.Equal(t, "blink", g.Name())
	require.Len(t, g.Nodes(), 3)
	require.Len(t, g.Links(), 2)

	add := g.Nodes()[1]
	require.Equal(t, "Add", add.Name())
	require.True(t, add.IsPure())
	require.Equal(t, uint16(4), add.FunctionIndex())
	require.Equal(t, "1", add.FindPin("a").DefaultValue())

	print := g.Nodes()[2]
	require.Equal(t, Call, print.Kind())
	require.False(t, print.IsPure())
	require.Equal(t, add.FindPin("sum"), g.LinkedSource(print.FindPin("value")))
}

func TestDecodeReroutes(t *testing.T) {
	doc := []byte(`{
		"name": "knots",
		"nodes": [
			{"name": "execKnot", "kind": "reroute"},
			{"name": "dataKnot", "kind": "reroute",
				"inputs": [{"name": "in", "type": "float"}],
				"outputs": [{"name": "out", "type": "float"}]}
		]
	}`)

	g, err := Decode(doc)
	require.Nil(t, err)

	execKnot := g.Nodes()[0]
	require.Equal(t, Reroute, execKnot.Kind())
	require.NotNil(t, execKnot.ExecIn())
	require.NotNil(t, execKnot.ExecOut())

	dataKnot := g.Nodes()[1]
	require.Equal(t, Reroute, dataKnot.Kind())
	require.Nil(t, dataKnot.ExecIn())
	require.Equal(t, "float", dataKnot.FindPin("in").Type())
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		errMsg string
	}{
		{
			name:   "duplicate node name",
			doc:    `{"nodes": [{"name": "A", "kind": "event"}, {"name": "A", "kind": "event"}]}`,
			errMsg: `duplicate node name "A"`,
		},
		{
			name:   "unknown kind",
			doc:    `{"nodes": [{"name": "A", "kind": "widget"}]}`,
			errMsg: `unknown kind "widget"`,
		},
		{
			name:   "bad pin path",
			doc:    `{"nodes": [{"name": "A", "kind": "event"}], "links": [{"source": "A", "target": "A.exec"}]}`,
			errMsg: "not of the form node.pin",
		},
		{
			name:   "unknown node in path",
			doc:    `{"nodes": [{"name": "A", "kind": "event"}], "links": [{"source": "B.exec", "target": "A.exec"}]}`,
			errMsg: `unknown node "B"`,
		},
		{
			name:   "unknown pin in path",
			doc:    `{"nodes": [{"name": "A", "kind": "event"}], "links": [{"source": "A.missing", "target": "A.exec"}]}`,
			errMsg: `unknown pin "missing"`,
		},
		{
			name:   "not json",
			doc:    `{`,
			errMsg: "unexpected end of JSON input",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc))
			require.NotNil(t, err)
			require.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
