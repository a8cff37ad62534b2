package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"pinfetch/internal/shared"
	"pinfetch/internal/types"
)

func writeArchive(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func readTree(t *testing.T, root string) map[string]string {
	t.Helper()
	files := map[string]string{}
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return files
}

func TestArchiveExtractorFormats(t *testing.T) {
	entries := []archiveEntry{
		dirEntry("nixpkgs-abc123/"),
		fileEntry("nixpkgs-abc123/default.nix", "{ }: { }"),
		fileEntry("nixpkgs-abc123/lib/strings.nix", "strings"),
	}
	want := map[string]string{
		"default.nix":     "{ }: { }",
		"lib/strings.nix": "strings",
	}
	tests := []struct {
		name   string
		file   string
		data   []byte
		format types.ArchiveFormat
	}{
		{name: "tar", file: "archive", data: buildTar(t, entries...), format: types.ArchiveFormatTar},
		{name: "tar gzip", file: "archive", data: buildTarGzip(t, entries...), format: types.ArchiveFormatTarGzip},
		{name: "tar zstd", file: "archive", data: buildTarZstd(t, entries...), format: types.ArchiveFormatTarZstd},
		{name: "zip", file: "archive", data: buildZip(t, entries...), format: types.ArchiveFormatZip},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			archive := writeArchive(t, tt.file, tt.data)
			dest := filepath.Join(t.TempDir(), "contents")

			format, err := NewArchiveExtractorAdapter().Extract(t.Context(), archive, "", dest)
			require.NoError(t, err)
			require.Equal(t, tt.format, format)
			require.Equal(t, want, readTree(t, dest))
			_, err = os.Stat(dest + ".unpack")
			require.True(t, os.IsNotExist(err))
		})
	}
}

func TestArchiveExtractorKeepsMultipleTopLevelEntries(t *testing.T) {
	archive := writeArchive(t, "archive.tar", buildTar(t,
		fileEntry("README", "readme"),
		fileEntry("pkgs/top.nix", "top"),
	))
	dest := filepath.Join(t.TempDir(), "contents")

	_, err := NewArchiveExtractorAdapter().Extract(t.Context(), archive, "", dest)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"README": "readme", "pkgs/top.nix": "top"}, readTree(t, dest))
}

func TestArchiveExtractorRelativeSymlink(t *testing.T) {
	archive := writeArchive(t, "archive.tar", buildTar(t,
		fileEntry("src/lib/real.nix", "real"),
		symlinkEntry("src/alias.nix", "lib/real.nix"),
		fileEntry("other", "x"),
	))
	dest := filepath.Join(t.TempDir(), "contents")

	_, err := NewArchiveExtractorAdapter().Extract(t.Context(), archive, "", dest)
	require.NoError(t, err)
	link, err := os.Readlink(filepath.Join(dest, "src", "alias.nix"))
	require.NoError(t, err)
	require.Equal(t, "lib/real.nix", link)
}

func TestArchiveExtractorRejectsUnsafeArchives(t *testing.T) {
	tests := []struct {
		name string
		data func(t *testing.T) []byte
	}{
		{
			name: "tar path traversal",
			data: func(t *testing.T) []byte { return buildTar(t, fileEntry("../evil", "x")) },
		},
		{
			name: "tar absolute path",
			data: func(t *testing.T) []byte { return buildTar(t, fileEntry("/etc/evil", "x")) },
		},
		{
			name: "escaping symlink",
			data: func(t *testing.T) []byte { return buildTar(t, symlinkEntry("link", "../../outside")) },
		},
		{
			name: "absolute symlink",
			data: func(t *testing.T) []byte { return buildTar(t, symlinkEntry("link", "/etc/passwd")) },
		},
		{
			name: "write through symlinked directory",
			data: func(t *testing.T) []byte {
				return buildTar(t,
					symlinkEntry("here", "."),
					symlinkEntry("here/up", ".."),
					fileEntry("here/up/evil", "x"),
				)
			},
		},
		{
			name: "symlink chained through an earlier link",
			data: func(t *testing.T) []byte {
				return buildTar(t,
					dirEntry("a/b/"),
					symlinkEntry("a/b/l", "../.."),
					symlinkEntry("a/b/l/a/esc", "../.."),
					fileEntry("c", "x"),
				)
			},
		},
		{
			name: "hard link to a path behind a symlink",
			data: func(t *testing.T) []byte {
				return buildTar(t,
					dirEntry("a/b/"),
					symlinkEntry("a/b/l", "../.."),
					hardLinkEntry("h", "a/b/l/a/esc/evil"),
				)
			},
		},
		{
			name: "hard link to a missing file",
			data: func(t *testing.T) []byte { return buildTar(t, hardLinkEntry("h", "nothing"), fileEntry("c", "x")) },
		},
		{
			name: "symlink leaving the stripped top-level directory",
			data: func(t *testing.T) []byte {
				return buildTar(t,
					fileEntry("top/real.nix", "real"),
					symlinkEntry("top/alias.nix", "../top/real.nix"),
				)
			},
		},
		{
			name: "zip symlink chained through an earlier link",
			data: func(t *testing.T) []byte {
				return buildZip(t,
					dirEntry("a/b/"),
					symlinkEntry("a/b/l", "../.."),
					symlinkEntry("a/b/l/a/esc", "../.."),
					fileEntry("c", "x"),
				)
			},
		},
		{
			name: "zip path traversal",
			data: func(t *testing.T) []byte { return buildZip(t, fileEntry("../evil", "x")) },
		},
		{
			name: "unsupported format",
			data: func(t *testing.T) []byte { return []byte("plain text, not an archive") },
		},
		{
			name: "empty file",
			data: func(t *testing.T) []byte { return nil },
		},
		{
			name: "corrupt gzip",
			data: func(t *testing.T) []byte { return []byte{0x1f, 0x8b, 0x00, 0x01, 0x02} },
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			archive := writeArchive(t, "archive", tt.data(t))
			parent := t.TempDir()
			dest := filepath.Join(parent, "contents")

			_, err := NewArchiveExtractorAdapter().Extract(t.Context(), archive, "", dest)
			require.ErrorIs(t, err, shared.ErrExtraction)
			_, statErr := os.Stat(filepath.Join(parent, "evil"))
			require.True(t, os.IsNotExist(statErr))
			_, statErr = os.Stat(dest)
			require.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestArchiveExtractorDoesNotWriteThroughLinksOutsideRoot(t *testing.T) {
	parent := t.TempDir()
	victim := filepath.Join(parent, "victim.txt")
	require.NoError(t, os.WriteFile(victim, []byte("original"), 0644))
	archive := writeArchive(t, "archive.tar", buildTar(t,
		dirEntry("a/b/"),
		symlinkEntry("a/b/l", "../.."),
		symlinkEntry("a/b/l/a/esc", "../.."),
		hardLinkEntry("h", "a/b/l/a/esc/victim.txt"),
		fileEntry("h", "overwritten"),
	))
	dest := filepath.Join(parent, "dest")

	_, err := NewArchiveExtractorAdapter().Extract(t.Context(), archive, "", dest)
	require.ErrorIs(t, err, shared.ErrExtraction)
	data, err := os.ReadFile(victim)
	require.NoError(t, err)
	require.Equal(t, "original", string(data))
	_, statErr := os.Lstat(dest)
	require.True(t, os.IsNotExist(statErr))
}

func TestArchiveExtractorHardLinks(t *testing.T) {
	archive := writeArchive(t, "archive.tar", buildTar(t,
		fileEntry("pkg/lib/a.nix", "shared"),
		hardLinkEntry("pkg/lib/b.nix", "pkg/lib/a.nix"),
	))
	dest := filepath.Join(t.TempDir(), "contents")

	_, err := NewArchiveExtractorAdapter().Extract(t.Context(), archive, "", dest)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"lib/a.nix": "shared", "lib/b.nix": "shared"}, readTree(t, dest))
}

func TestArchiveExtractorSymlinkChainInsideRoot(t *testing.T) {
	archive := writeArchive(t, "archive.tar", buildTar(t,
		fileEntry("lib/real.nix", "real"),
		symlinkEntry("alias", "lib"),
		symlinkEntry("nested/entry.nix", "../alias/real.nix"),
		fileEntry("README", "readme"),
	))
	dest := filepath.Join(t.TempDir(), "contents")

	_, err := NewArchiveExtractorAdapter().Extract(t.Context(), archive, "", dest)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dest, "nested", "entry.nix"))
	require.NoError(t, err)
	require.Equal(t, "real", string(data))
}

func TestArchiveExtractorEnforcesEntryLimit(t *testing.T) {
	archive := writeArchive(t, "archive.tar", buildTar(t, fileEntry("big", "0123456789")))
	dest := filepath.Join(t.TempDir(), "contents")

	_, err := ArchiveExtractorAdapter{MaxEntryBytes: 4}.Extract(t.Context(), archive, "", dest)
	require.ErrorIs(t, err, shared.ErrExtraction)
}

func TestDetectArchiveFormatFallsBackToName(t *testing.T) {
	// Zeroed blocks carry no ustar magic.
	archive := writeArchive(t, "blob", make([]byte, 1024))

	format, err := DetectArchiveFormat(archive, "https://example.test/releases/nixpkgs.tar?token=x")
	require.NoError(t, err)
	require.Equal(t, types.ArchiveFormatTar, format)

	_, err = DetectArchiveFormat(archive, "https://example.test/releases/nixpkgs")
	require.ErrorIs(t, err, shared.ErrExtraction)
}
