package bk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNode_Get(t *testing.T) {
	doc := `{
		"data": {
			"list": [{"name": "first"}, {"name": "second"}],
			"nothing": null,
			"empty": {},
			"count": 3
		}
	}`
	root, err := ParseNode([]byte(doc))
	require.NoError(t, err)

	tests := []struct {
		name     string
		path     []any
		wantOK   bool
		wantKind Kind
	}{
		{name: "mapping descent", path: []any{"data", "list"}, wantOK: true, wantKind: KindSequence},
		{name: "index into sequence", path: []any{"data", "list", 0, "name"}, wantOK: true, wantKind: KindScalar},
		{name: "index out of range", path: []any{"data", "list", 2}, wantOK: false},
		{name: "negative index", path: []any{"data", "list", -1}, wantOK: false},
		{name: "missing key", path: []any{"data", "missing"}, wantOK: false},
		{name: "null leaf is present", path: []any{"data", "nothing"}, wantOK: true, wantKind: KindNull},
		{name: "descent through null", path: []any{"data", "nothing", "x"}, wantOK: false},
		{name: "key on sequence", path: []any{"data", "list", "name"}, wantOK: false},
		{name: "index on mapping", path: []any{"data", 0}, wantOK: false},
		{name: "descent into scalar", path: []any{"data", "count", "x"}, wantOK: false},
		{name: "unsupported segment", path: []any{"data", 1.5}, wantOK: false},
		{name: "empty path", path: nil, wantOK: true, wantKind: KindMapping},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := root.Get(tt.path...)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantKind, got.Kind())
			}
		})
	}
}

func TestNode_LookupTreatsNullAsMissing(t *testing.T) {
	root, err := ParseNode([]byte(`{"data": {"Picker": null}}`))
	require.NoError(t, err)

	_, ok := root.Get("data", "Picker")
	assert.True(t, ok)

	_, ok = root.Lookup("data", "Picker")
	assert.False(t, ok)
}

func TestNode_ScalarsAndDecode(t *testing.T) {
	root, err := ParseNode([]byte(`{"s": "text", "b": true, "items": [{"min": 1.5}, {"min": 2}]}`))
	require.NoError(t, err)

	s, ok := root.Lookup("s")
	require.True(t, ok)
	str, ok := s.String()
	assert.True(t, ok)
	assert.Equal(t, "text", str)

	b, ok := root.Lookup("b")
	require.True(t, ok)
	val, ok := b.Bool()
	assert.True(t, ok)
	assert.True(t, val)

	items, ok := root.Lookup("items")
	require.True(t, ok)
	assert.Equal(t, 2, items.Len())
	require.Len(t, items.Items(), 2)

	var out struct {
		Min float64 `json:"min"`
	}
	require.NoError(t, items.Items()[1].Decode(&out))
	assert.Equal(t, 2.0, out.Min)
}

func TestParseNode_Malformed(t *testing.T) {
	_, err := ParseNode([]byte(`{"data": `))
	assert.Error(t, err)
}
