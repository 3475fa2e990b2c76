// Package codec encodes volume manifests and histogram contributions.
//
// Packed volumes record the codec name next to the manifest, so changing the
// default codec never breaks volumes that were packed with an older one.
package codec

// Codec encodes and decodes values. Implementations must be safe for
// concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Names written into manifest headers. They must never change.
const (
	NameJSON   = "json"
	NameGoJSON = "go-json"
)

// ByName resolves a manifest header to its codec.
func ByName(name string) (Codec, bool) {
	switch name {
	case NameJSON:
		return JSON{}, true
	case NameGoJSON:
		return GoJSON{}, true
	default:
		return nil, false
	}
}
