package codec

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// DecodeYAML parses a YAML document. JSON is a subset of YAML, so JSON
// documents decode through the same path.
func DecodeYAML(data []byte) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse topology document: %w", err)
	}
	return &doc, nil
}

// EncodeYAML writes d as YAML.
func EncodeYAML(d *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("failed to encode topology document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
