package adapters

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"pinfetch/internal/types"
)

func sampleHandle() types.ImportHandle {
	return types.ImportHandle{
		ArtifactPath: "/cache/entries/sha256-abc/contents",
		Config:       types.Configuration{"allowUnfree": true},
		Overlays:     types.OverlayList{"first", "second"},
		Source: types.HandleSource{
			URL:      "https://example.test/archive.tar",
			Revision: "abc123",
			Digest:   "sha256:abc",
		},
	}
}

func TestHandleFileAdapterWritesYAMLToStdout(t *testing.T) {
	var out bytes.Buffer
	adapter := HandleFileAdapter{Stdout: &out}

	require.NoError(t, adapter.WriteHandle("-", sampleHandle()))

	var got types.ImportHandle
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
	if diff := cmp.Diff(sampleHandle(), got); diff != "" {
		t.Fatalf("unexpected handle (-want +got):\n%s", diff)
	}
}

func TestHandleFileAdapterWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "handle.json")

	require.NoError(t, NewHandleFileAdapter().WriteHandle(path, sampleHandle()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, "/cache/entries/sha256-abc/contents", got["artifactPath"])
	require.Equal(t, []any{"first", "second"}, got["overlays"])
	require.Equal(t, "abc123", got["source"].(map[string]any)["revision"])
}

func TestHandleFileAdapterEmptyOverlaysEncodeAsList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "handle.json")
	handle := types.ImportHandle{ArtifactPath: "/x", Config: types.Configuration{}, Overlays: types.OverlayList{}}

	require.NoError(t, NewHandleFileAdapter().WriteHandle(path, handle))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"overlays": []`)
	require.Contains(t, string(data), `"config": {}`)
}
