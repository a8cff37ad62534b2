package adapters

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/renameio/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"

	"pinfetch/internal/ports"
	"pinfetch/internal/shared"
	"pinfetch/internal/types"
)

// PinFileAdapter reads and writes pin files. The format follows the file
// extension: .hcl is HCL, anything else (.yaml, .yml, .json) is YAML.
type PinFileAdapter struct{}

func NewPinFileAdapter() PinFileAdapter {
	return PinFileAdapter{}
}

func (a PinFileAdapter) LoadPin(path string) (types.PinRecord, error) {
	if strings.TrimSpace(path) == "" {
		return types.PinRecord{}, shared.ParseError("pin file path is empty", nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return types.PinRecord{}, shared.ParseError("pin file not readable", err)
	}
	var pin types.PinRecord
	switch PinFormatFor(path) {
	case types.PinFormatHCL:
		pin, err = decodeHCLPin(path, data)
	default:
		pin, err = decodeYAMLPin(data)
	}
	if err != nil {
		return types.PinRecord{}, err
	}
	pin = normalizePin(pin)
	if pin.SourceURL == "" {
		return types.PinRecord{}, shared.ValidationError("pin file is missing sourceURL", nil)
	}
	if pin.Revision == "" {
		return types.PinRecord{}, shared.ValidationError("pin file is missing revision", nil)
	}
	return pin, nil
}

func (a PinFileAdapter) WritePin(path string, pin types.PinRecord) error {
	if strings.TrimSpace(path) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("pin file path is empty")
	}
	var data []byte
	switch PinFormatFor(path) {
	case types.PinFormatHCL:
		data = encodeHCLPin(pin)
	default:
		encoded, err := yaml.Marshal(pin)
		if err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to encode pin yaml").
				WithCause(err)
		}
		data = encoded
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create pin directory").
			WithCause(err)
	}
	if err := renameio.WriteFile(path, data, 0644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write pin file").
			WithCause(err)
	}
	return nil
}

func PinFormatFor(path string) types.PinFormat {
	if strings.EqualFold(filepath.Ext(path), ".hcl") {
		return types.PinFormatHCL
	}
	return types.PinFormatYAML
}

func decodeYAMLPin(data []byte) (types.PinRecord, error) {
	var pin types.PinRecord
	if err := yaml.Unmarshal(data, &pin); err != nil {
		return types.PinRecord{}, shared.ParseError("failed to parse pin yaml", err)
	}
	return pin, nil
}

func decodeHCLPin(path string, data []byte) (types.PinRecord, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, path)
	if diags.HasErrors() {
		return types.PinRecord{}, shared.ParseError("failed to parse pin hcl", diags)
	}
	var raw types.PinHCL
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return types.PinRecord{}, shared.ParseError("failed to decode pin hcl", diags)
	}
	return raw.Record(), nil
}

func encodeHCLPin(pin types.PinRecord) []byte {
	file := hclwrite.NewEmptyFile()
	body := file.Body()
	if pin.Name != "" {
		body.SetAttributeValue("name", cty.StringVal(pin.Name))
	}
	body.SetAttributeValue("sourceURL", cty.StringVal(pin.SourceURL))
	body.SetAttributeValue("revision", cty.StringVal(pin.Revision))
	if pin.IntegrityHash != "" {
		body.SetAttributeValue("integrityHash", cty.StringVal(pin.IntegrityHash))
	}
	if pin.SignatureURL != "" {
		body.SetAttributeValue("signatureURL", cty.StringVal(pin.SignatureURL))
	}
	return file.Bytes()
}

func normalizePin(pin types.PinRecord) types.PinRecord {
	return types.PinRecord{
		Name:          strings.TrimSpace(pin.Name),
		SourceURL:     strings.TrimSpace(pin.SourceURL),
		Revision:      strings.TrimSpace(pin.Revision),
		IntegrityHash: strings.TrimSpace(pin.IntegrityHash),
		SignatureURL:  strings.TrimSpace(pin.SignatureURL),
	}
}

var _ ports.PinSourcePort = PinFileAdapter{}
var _ ports.PinWriterPort = PinFileAdapter{}
