package bk

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind tags the shape of a decoded JSON value.
type Kind int

const (
	KindNull Kind = iota
	KindMapping
	KindSequence
	KindScalar
)

// Node is a decoded JSON value. Get walks it one step at a time by mapping
// key (string) or sequence index (int) and stops at the first miss.
type Node struct {
	v any
}

// ParseNode decodes a JSON document into a Node.
func ParseNode(body []byte) (Node, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return Node{}, err
	}
	return Node{v: v}, nil
}

// Kind returns the tag of the node.
func (n Node) Kind() Kind {
	switch n.v.(type) {
	case nil:
		return KindNull
	case map[string]any:
		return KindMapping
	case []any:
		return KindSequence
	default:
		return KindScalar
	}
}

// Len is the number of entries of a mapping or sequence, 0 otherwise.
func (n Node) Len() int {
	switch v := n.v.(type) {
	case map[string]any:
		return len(v)
	case []any:
		return len(v)
	default:
		return 0
	}
}

// Get descends along path. Segments must be string (mapping key) or int
// (sequence index); anything else, a missing key, an out-of-range index or a
// null on the way yields ok=false. A null at the final step is returned as a
// present KindNull node.
func (n Node) Get(path ...any) (Node, bool) {
	cur := n.v
	for _, seg := range path {
		switch key := seg.(type) {
		case string:
			m, ok := cur.(map[string]any)
			if !ok {
				return Node{}, false
			}
			next, ok := m[key]
			if !ok {
				return Node{}, false
			}
			cur = next
		case int:
			s, ok := cur.([]any)
			if !ok || key < 0 || key >= len(s) {
				return Node{}, false
			}
			cur = s[key]
		default:
			return Node{}, false
		}
	}
	return Node{v: cur}, true
}

// Lookup is Get that also treats a null leaf as missing.
func (n Node) Lookup(path ...any) (Node, bool) {
	got, ok := n.Get(path...)
	if !ok || got.Kind() == KindNull {
		return Node{}, false
	}
	return got, true
}

// Items returns the elements of a sequence, nil for any other kind.
func (n Node) Items() []Node {
	s, ok := n.v.([]any)
	if !ok {
		return nil
	}
	out := make([]Node, len(s))
	for i, v := range s {
		out[i] = Node{v: v}
	}
	return out
}

// String returns the scalar as a string when it is one.
func (n Node) String() (string, bool) {
	s, ok := n.v.(string)
	return s, ok
}

// Bool returns the scalar as a bool when it is one.
func (n Node) Bool() (bool, bool) {
	b, ok := n.v.(bool)
	return b, ok
}

// Decode re-encodes the node and unmarshals it into dst.
func (n Node) Decode(dst any) error {
	raw, err := json.Marshal(n.v)
	if err != nil {
		return fmt.Errorf("failed to re-encode node: %w", err)
	}
	return json.Unmarshal(raw, dst)
}
