package adapters

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"pinfetch/internal/ports"
	"pinfetch/internal/shared"
	"pinfetch/internal/types"
)

// ComposeFileAdapter reads the configuration and overlays passed to the
// composer. An empty path yields an empty configuration and no overlays.
type ComposeFileAdapter struct{}

func NewComposeFileAdapter() ComposeFileAdapter {
	return ComposeFileAdapter{}
}

func (a ComposeFileAdapter) LoadCompose(path string) (types.ComposeInput, error) {
	input := types.ComposeInput{Config: types.Configuration{}, Overlays: types.OverlayList{}}
	if strings.TrimSpace(path) == "" {
		return input, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return types.ComposeInput{}, shared.ParseError("compose file not readable", err)
	}
	if err := yaml.Unmarshal(data, &input); err != nil {
		return types.ComposeInput{}, shared.ParseError("failed to parse compose yaml", err)
	}
	if input.Config == nil {
		input.Config = types.Configuration{}
	}
	if input.Overlays == nil {
		input.Overlays = types.OverlayList{}
	}
	return input, nil
}

var _ ports.ComposeSourcePort = ComposeFileAdapter{}
