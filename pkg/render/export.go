package render

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/vpcmap/pkg/topology"
)

// WriteJSON writes the model as indented JSON.
func WriteJSON(w io.Writer, m *topology.Model) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// WriteYAML writes the model as YAML.
func WriteYAML(w io.Writer, m *topology.Model) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return err
	}
	return enc.Close()
}

// ReadJSON decodes a model written by [WriteJSON].
func ReadJSON(r io.Reader) (*topology.Model, error) {
	var m topology.Model
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}
