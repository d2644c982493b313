package statestore

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/GoCodeAlone/geuse/internal/model"
)

// ExportYAML writes state as YAML to w.
func (s *Store) ExportYAML(w io.Writer, state *model.DeploymentState) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(state)
}
