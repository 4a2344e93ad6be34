package aggregate

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// typeFactories maps a result type tag to a constructor of its zero
// value. Result packages register their types at init time so encoded
// trees can be reconstructed by tag.
var (
	typeMu        sync.RWMutex
	typeFactories = map[string]func() Internal{}
)

// RegisterType registers the factory for a result type tag. Registering
// the same tag twice is a defect.
func RegisterType(tag string, factory func() Internal) {
	typeMu.Lock()
	defer typeMu.Unlock()
	if _, ok := typeFactories[tag]; ok {
		panic(fmt.Sprintf("aggregate: type [%s] registered twice", tag))
	}
	typeFactories[tag] = factory
}

// RegisteredTypes returns the known type tags in sorted order.
func RegisteredTypes() []string {
	typeMu.RLock()
	defer typeMu.RUnlock()
	tags := make([]string, 0, len(typeFactories))
	for tag := range typeFactories {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func newByTag(tag string) (Internal, bool) {
	typeMu.RLock()
	defer typeMu.RUnlock()
	factory, ok := typeFactories[tag]
	if !ok {
		return nil, false
	}
	return factory(), true
}

// typedNode is the self-describing wire form of one result.
type typedNode struct {
	Type string          `json:"type"`
	Body json.RawMessage `json:"body"`
}

// MarshalJSON implements json.Marshaler. Each result is wrapped with
// its type tag so nested trees survive the round trip.
//
// Node bodies are always encoded with encoding/json, whatever codec
// drives the outermost call: the json.Marshaler contract hands no
// codec down, and the wire format is plain JSON either way, so any
// registered codec decodes trees produced by any other.
func (in Internals) MarshalJSON() ([]byte, error) {
	nodes := make([]typedNode, len(in))
	for i, a := range in {
		body, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		nodes[i] = typedNode{Type: a.Type(), Body: body}
	}
	return json.Marshal(nodes)
}

// UnmarshalJSON implements json.Unmarshaler.
func (in *Internals) UnmarshalJSON(data []byte) error {
	var nodes []typedNode
	if err := json.Unmarshal(data, &nodes); err != nil {
		return err
	}
	out := make(Internals, len(nodes))
	for i, n := range nodes {
		agg, ok := newByTag(n.Type)
		if !ok {
			return fmt.Errorf("unknown aggregation type [%s]", n.Type)
		}
		if err := json.Unmarshal(n.Body, agg); err != nil {
			return err
		}
		out[i] = agg
	}
	*in = out
	return nil
}
