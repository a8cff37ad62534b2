package adapters

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"pinfetch/internal/ports"
	"pinfetch/internal/types"
)

// HandleFileAdapter writes import handles as YAML, or JSON when the
// target ends in .json. A path of "-" writes YAML to Stdout.
type HandleFileAdapter struct {
	Stdout io.Writer
}

func NewHandleFileAdapter() HandleFileAdapter {
	return HandleFileAdapter{Stdout: os.Stdout}
}

func (a HandleFileAdapter) WriteHandle(path string, handle types.ImportHandle) error {
	path = strings.TrimSpace(path)
	data, err := encodeHandle(path, handle)
	if err != nil {
		return err
	}
	if path == "" || path == "-" {
		out := a.Stdout
		if out == nil {
			out = os.Stdout
		}
		if _, err := out.Write(data); err != nil {
			return errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to write import handle").
				WithCause(err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create handle directory").
			WithCause(err)
	}
	if err := renameio.WriteFile(path, data, 0644); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to write import handle").
			WithCause(err)
	}
	return nil
}

func encodeHandle(path string, handle types.ImportHandle) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := json.MarshalIndent(handle, "", "  ")
		if err != nil {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeInternal).
				WithMsg("failed to encode import handle json").
				WithCause(err)
		}
		return append(data, '\n'), nil
	}
	data, err := yaml.Marshal(handle)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode import handle yaml").
			WithCause(err)
	}
	return data, nil
}

var _ ports.HandleWriterPort = HandleFileAdapter{}
