package codec

import "encoding/json"

// JSON is the standard-library codec, kept for volumes packed by tools that
// do not link go-json.
type JSON struct{}

// Marshal encodes v.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (JSON) Name() string { return NameJSON }

// Default is the codec used for newly packed volumes and outgoing
// contributions.
var Default Codec = GoJSON{}
