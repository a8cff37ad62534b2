package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"pinfetch/internal/shared"
	"pinfetch/internal/types"
)

func TestComposeFileAdapterLoadCompose(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    types.ComposeInput
	}{
		{
			name: "config and overlays",
			content: `config:
  allowUnfree: true
  system: x86_64-linux
overlays:
  - ./overlays/first.nix
  - ./overlays/second.nix
`,
			want: types.ComposeInput{
				Config:   types.Configuration{"allowUnfree": true, "system": "x86_64-linux"},
				Overlays: types.OverlayList{"./overlays/first.nix", "./overlays/second.nix"},
			},
		},
		{
			name:    "config only",
			content: "config:\n  jobs: 4\n",
			want: types.ComposeInput{
				Config:   types.Configuration{"jobs": 4},
				Overlays: types.OverlayList{},
			},
		},
		{
			name:    "empty document",
			content: "",
			want:    types.ComposeInput{Config: types.Configuration{}, Overlays: types.OverlayList{}},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "compose.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			got, err := NewComposeFileAdapter().LoadCompose(path)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("unexpected compose input (-want +got):\n%s", diff)
			}
		})
	}
}

func TestComposeFileAdapterEmptyPath(t *testing.T) {
	got, err := NewComposeFileAdapter().LoadCompose("")
	require.NoError(t, err)
	require.NotNil(t, got.Config)
	require.NotNil(t, got.Overlays)
	require.Empty(t, got.Config)
	require.Empty(t, got.Overlays)
}

func TestComposeFileAdapterErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := NewComposeFileAdapter().LoadCompose(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, shared.ErrParse)

	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("config: [1, 2\n"), 0644))
	_, err = NewComposeFileAdapter().LoadCompose(path)
	require.ErrorIs(t, err, shared.ErrParse)
}
