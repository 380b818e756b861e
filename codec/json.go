package codec

import "encoding/json"

// Default is the codec used when none is configured.
var Default Codec = JSON{}

// JSON encodes values with encoding/json.
type JSON struct{}

// Marshal implements Codec.
func (JSON) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal implements Codec.
func (JSON) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Name implements Codec.
func (JSON) Name() string { return "json" }
