package codec

import (
	"encoding/json"
)

// JSON is the standard-library JSON codec.
//
// It is the most portable option: builder configurations and internal
// results are plain structs with JSON tags and round-trip without
// custom encoding. The default codec may change over time; archived
// data always records the codec name so it can be validated on load.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// Default is the default codec used by the library.
//
// NOTE: This affects newly-created envelopes and archives. Existing
// persisted data is self-describing and is opened by selecting the
// appropriate codec by name.
var Default Codec = GoJSON{}
