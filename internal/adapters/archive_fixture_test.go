package adapters

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"os"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
)

type archiveEntry struct {
	name     string
	body     string
	linkname string
	typeflag byte
}

func fileEntry(name string, body string) archiveEntry {
	return archiveEntry{name: name, body: body, typeflag: tar.TypeReg}
}

func dirEntry(name string) archiveEntry {
	return archiveEntry{name: name, typeflag: tar.TypeDir}
}

func symlinkEntry(name string, target string) archiveEntry {
	return archiveEntry{name: name, linkname: target, typeflag: tar.TypeSymlink}
}

func hardLinkEntry(name string, target string) archiveEntry {
	return archiveEntry{name: name, linkname: target, typeflag: tar.TypeLink}
}

func buildTar(t *testing.T, entries ...archiveEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, entry := range entries {
		header := &tar.Header{
			Name:     entry.name,
			Typeflag: entry.typeflag,
			Linkname: entry.linkname,
			Mode:     0644,
		}
		if entry.typeflag == tar.TypeDir {
			header.Mode = 0755
		}
		if entry.typeflag == tar.TypeReg {
			header.Size = int64(len(entry.body))
		}
		require.NoError(t, tw.WriteHeader(header))
		if entry.typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(entry.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func buildTarGzip(t *testing.T, entries ...archiveEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write(buildTar(t, entries...))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	return buf.Bytes()
}

func buildTarZstd(t *testing.T, entries ...archiveEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = zw.Write(buildTar(t, entries...))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func buildZip(t *testing.T, entries ...archiveEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, entry := range entries {
		header := &zip.FileHeader{Name: entry.name, Method: zip.Deflate}
		switch entry.typeflag {
		case tar.TypeDir:
			header.SetMode(os.ModeDir | 0755)
		case tar.TypeSymlink:
			header.SetMode(os.ModeSymlink | 0777)
		default:
			header.SetMode(0644)
		}
		w, err := zw.CreateHeader(header)
		require.NoError(t, err)
		body := entry.body
		if entry.typeflag == tar.TypeSymlink {
			body = entry.linkname
		}
		if entry.typeflag != tar.TypeDir {
			_, err = w.Write([]byte(body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
