package adapters

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"pinfetch/internal/ports"
	"pinfetch/internal/shared"
	"pinfetch/internal/types"
)

const defaultMaxEntryBytes int64 = 1 << 30
const maxSymlinkTargetBytes = 4096
const maxSymlinkHops = 255

var (
	gzipMagic     = []byte{0x1f, 0x8b}
	zstdMagic     = []byte{0x28, 0xb5, 0x2f, 0xfd}
	zipMagic      = []byte("PK\x03\x04")
	zipEmptyMagic = []byte("PK\x05\x06")
	tarMagic      = []byte("ustar")
)

// ArchiveExtractorAdapter unpacks tar, tar+gzip, tar+zstd and zip
// archives. When the archive holds a single top-level directory, that
// directory becomes the extracted root. Symlinks are created after every
// file and hard link, so no entry is ever written through a link.
type ArchiveExtractorAdapter struct {
	MaxEntryBytes int64
}

func NewArchiveExtractorAdapter() ArchiveExtractorAdapter {
	return ArchiveExtractorAdapter{MaxEntryBytes: defaultMaxEntryBytes}
}

func (a ArchiveExtractorAdapter) Extract(ctx context.Context, archivePath string, hint string, destDir string) (types.ArchiveFormat, error) {
	format, err := DetectArchiveFormat(archivePath, hint)
	if err != nil {
		return types.ArchiveFormatUnknown, err
	}
	unpackDir := destDir + ".unpack"
	if err := os.MkdirAll(unpackDir, 0755); err != nil {
		return types.ArchiveFormatUnknown, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create extraction directory").
			WithCause(err)
	}
	defer os.RemoveAll(unpackDir)

	switch format {
	case types.ArchiveFormatZip:
		err = a.extractZip(ctx, archivePath, unpackDir)
	default:
		err = a.extractTarFile(ctx, archivePath, format, unpackDir)
	}
	if err != nil {
		return types.ArchiveFormatUnknown, err
	}

	root, err := contentRoot(unpackDir)
	if err != nil {
		return types.ArchiveFormatUnknown, err
	}
	if err := checkSymlinks(root); err != nil {
		return types.ArchiveFormatUnknown, err
	}
	if err := os.Rename(root, destDir); err != nil {
		return types.ArchiveFormatUnknown, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to move extracted contents").
			WithCause(err)
	}
	log.Ctx(ctx).Debug().Str("format", string(format)).Str("dest", destDir).Msg("archive extracted")
	return format, nil
}

// DetectArchiveFormat sniffs magic bytes and falls back to the file name
// in hint (a path or URL).
func DetectArchiveFormat(archivePath string, hint string) (types.ArchiveFormat, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return types.ArchiveFormatUnknown, shared.ExtractionError("archive not readable", err)
	}
	defer file.Close()
	header := make([]byte, 512)
	n, err := io.ReadFull(file, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return types.ArchiveFormatUnknown, shared.ExtractionError("archive not readable", err)
	}
	header = header[:n]
	if n == 0 {
		return types.ArchiveFormatUnknown, shared.ExtractionError("archive is empty", nil)
	}
	switch {
	case bytes.HasPrefix(header, gzipMagic):
		return types.ArchiveFormatTarGzip, nil
	case bytes.HasPrefix(header, zstdMagic):
		return types.ArchiveFormatTarZstd, nil
	case bytes.HasPrefix(header, zipMagic), bytes.HasPrefix(header, zipEmptyMagic):
		return types.ArchiveFormatZip, nil
	case len(header) >= 262 && bytes.Equal(header[257:262], tarMagic):
		return types.ArchiveFormatTar, nil
	}
	if format := formatFromName(hint); format != types.ArchiveFormatUnknown {
		return format, nil
	}
	return types.ArchiveFormatUnknown, shared.ExtractionError("unsupported archive format", nil)
}

func formatFromName(hint string) types.ArchiveFormat {
	name := hint
	if parsed, err := url.Parse(hint); err == nil && parsed.Path != "" {
		name = parsed.Path
	}
	name = strings.ToLower(name)
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return types.ArchiveFormatTarGzip
	case strings.HasSuffix(name, ".tar.zst"), strings.HasSuffix(name, ".tzst"):
		return types.ArchiveFormatTarZstd
	case strings.HasSuffix(name, ".tar"):
		return types.ArchiveFormatTar
	case strings.HasSuffix(name, ".zip"):
		return types.ArchiveFormatZip
	default:
		return types.ArchiveFormatUnknown
	}
}

func (a ArchiveExtractorAdapter) extractTarFile(ctx context.Context, archivePath string, format types.ArchiveFormat, root string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return shared.ExtractionError("archive not readable", err)
	}
	defer file.Close()

	var reader io.Reader = file
	switch format {
	case types.ArchiveFormatTarGzip:
		gz, err := gzip.NewReader(file)
		if err != nil {
			return shared.ExtractionError("corrupt gzip stream", err)
		}
		defer gz.Close()
		reader = gz
	case types.ArchiveFormatTarZstd:
		zr, err := zstd.NewReader(file)
		if err != nil {
			return shared.ExtractionError("corrupt zstd stream", err)
		}
		defer zr.Close()
		reader = zr
	}
	return a.extractTar(ctx, reader, root)
}

// pendingSymlink is a symlink entry held back until all regular entries
// are on disk.
type pendingSymlink struct {
	rel      string
	linkname string
	target   string
}

func (a ArchiveExtractorAdapter) extractTar(ctx context.Context, reader io.Reader, root string) error {
	tr := tar.NewReader(reader)
	var symlinks []pendingSymlink
	for {
		if err := ctx.Err(); err != nil {
			return shared.ExtractionError("extraction cancelled", err)
		}
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return createSymlinks(root, symlinks)
		}
		if err != nil {
			return shared.ExtractionError("corrupt tar archive", err)
		}
		if header.Typeflag == tar.TypeXGlobalHeader || header.Typeflag == tar.TypeXHeader {
			continue
		}
		rel, err := safeRelPath(header.Name)
		if err != nil {
			return err
		}
		if rel == "" {
			continue
		}
		target := filepath.Join(root, filepath.FromSlash(rel))
		if err := insideRoot(root, target); err != nil {
			return err
		}
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return shared.ExtractionError("failed to create directory", err)
			}
		case tar.TypeReg:
			if err := a.writeFile(target, tr, header.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			symlinks = append(symlinks, pendingSymlink{rel: rel, linkname: header.Linkname, target: target})
		case tar.TypeLink:
			if err := createHardLink(root, header.Name, header.Linkname, target); err != nil {
				return err
			}
		default:
			log.Ctx(ctx).Debug().Str("entry", header.Name).Msg("skipping unsupported tar entry type")
		}
	}
}

func (a ArchiveExtractorAdapter) extractZip(ctx context.Context, archivePath string, root string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return shared.ExtractionError("corrupt zip archive", err)
	}
	defer reader.Close()
	var symlinks []pendingSymlink
	for _, file := range reader.File {
		if err := ctx.Err(); err != nil {
			return shared.ExtractionError("extraction cancelled", err)
		}
		rel, err := safeRelPath(file.Name)
		if err != nil {
			return err
		}
		if rel == "" {
			continue
		}
		target := filepath.Join(root, filepath.FromSlash(rel))
		if err := insideRoot(root, target); err != nil {
			return err
		}
		info := file.FileInfo()
		switch {
		case info.IsDir():
			if err := os.MkdirAll(target, 0755); err != nil {
				return shared.ExtractionError("failed to create directory", err)
			}
		case info.Mode()&os.ModeSymlink != 0:
			linkname, err := readZipEntry(file, maxSymlinkTargetBytes)
			if err != nil {
				return err
			}
			symlinks = append(symlinks, pendingSymlink{rel: rel, linkname: string(linkname), target: target})
		default:
			if file.UncompressedSize64 > uint64(a.maxEntryBytes()) {
				return shared.ExtractionError("archive entry exceeds size limit: "+file.Name, nil)
			}
			rc, err := file.Open()
			if err != nil {
				return shared.ExtractionError("corrupt zip entry: "+file.Name, err)
			}
			err = a.writeFile(target, rc, info.Mode().Perm())
			_ = rc.Close()
			if err != nil {
				return err
			}
		}
	}
	return createSymlinks(root, symlinks)
}

func (a ArchiveExtractorAdapter) writeFile(target string, r io.Reader, perm os.FileMode) error {
	if perm == 0 {
		perm = 0644
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return shared.ExtractionError("failed to create directory", err)
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return shared.ExtractionError("failed to create file", err)
	}
	limit := a.maxEntryBytes()
	written, err := io.Copy(out, io.LimitReader(r, limit+1))
	closeErr := out.Close()
	if err != nil {
		return shared.ExtractionError("failed to extract file", err)
	}
	if written > limit {
		return shared.ExtractionError("archive entry exceeds size limit: "+target, nil)
	}
	if closeErr != nil {
		return shared.ExtractionError("failed to close file", closeErr)
	}
	return nil
}

func (a ArchiveExtractorAdapter) maxEntryBytes() int64 {
	if a.MaxEntryBytes <= 0 {
		return defaultMaxEntryBytes
	}
	return a.MaxEntryBytes
}

// safeRelPath cleans an archive entry name. It returns "" for the archive
// root and an error for absolute names or names that leave the root.
func safeRelPath(name string) (string, error) {
	if path.IsAbs(name) {
		return "", shared.ExtractionError("archive entry has absolute path: "+name, nil)
	}
	cleaned := path.Clean(name)
	if cleaned == "." {
		return "", nil
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", shared.ExtractionError("archive entry escapes destination: "+name, nil)
	}
	return cleaned, nil
}

// createHardLink links target to an already extracted regular file. The
// source is resolved on disk, not just by name.
func createHardLink(root string, name string, linkname string, target string) error {
	linkRel, err := safeRelPath(linkname)
	if err != nil || linkRel == "" {
		return shared.ExtractionError("hard link escapes archive root: "+name, err)
	}
	resolvedRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return shared.ExtractionError("failed to resolve extraction root", err)
	}
	hops := 0
	parts, err := resolveInRoot(resolvedRoot, nil, linkRel, &hops)
	if err != nil {
		return shared.ExtractionError("hard link escapes destination: "+name, err)
	}
	source := filepath.Join(append([]string{resolvedRoot}, parts...)...)
	info, err := os.Lstat(source)
	if err != nil || !info.Mode().IsRegular() {
		return shared.ExtractionError("hard link must point at an extracted regular file: "+name, err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return shared.ExtractionError("failed to create directory", err)
	}
	if err := os.Link(source, target); err != nil {
		return shared.ExtractionError("failed to create hard link", err)
	}
	return nil
}

func createSymlinks(root string, links []pendingSymlink) error {
	if len(links) == 0 {
		return nil
	}
	resolvedRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return shared.ExtractionError("failed to resolve extraction root", err)
	}
	for _, link := range links {
		if err := createSymlink(resolvedRoot, link); err != nil {
			return err
		}
	}
	return nil
}

// createSymlink follows the link's directory and then its target through
// the links created so far, and refuses a link that lands outside root.
func createSymlink(root string, link pendingSymlink) error {
	if link.linkname == "" || path.IsAbs(link.linkname) {
		return shared.ExtractionError("symlink target must be relative: "+link.rel, nil)
	}
	hops := 0
	dir, err := resolveInRoot(root, nil, path.Dir(link.rel), &hops)
	if err != nil {
		return shared.ExtractionError("symlink escapes destination: "+link.rel, err)
	}
	if _, err := resolveInRoot(root, dir, link.linkname, &hops); err != nil {
		return shared.ExtractionError("symlink escapes destination: "+link.rel, err)
	}
	if err := os.MkdirAll(filepath.Dir(link.target), 0755); err != nil {
		return shared.ExtractionError("failed to create directory", err)
	}
	if err := os.Symlink(link.linkname, link.target); err != nil {
		return shared.ExtractionError("failed to create symlink", err)
	}
	return nil
}

var errOutsideRoot = errors.New("path resolves outside extraction root")

// resolveInRoot walks name from the directory parts (relative to root)
// one component at a time, following symlinks that exist on disk the way
// the kernel would. Missing components are taken literally. It returns
// the resolved components, or errOutsideRoot once the walk leaves root.
func resolveInRoot(root string, parts []string, name string, hops *int) ([]string, error) {
	current := append([]string(nil), parts...)
	for _, component := range strings.Split(name, "/") {
		switch component {
		case "", ".":
			continue
		case "..":
			if len(current) == 0 {
				return nil, errOutsideRoot
			}
			current = current[:len(current)-1]
			continue
		}
		next := append(append([]string(nil), current...), component)
		full := filepath.Join(append([]string{root}, next...)...)
		info, err := os.Lstat(full)
		if err != nil || info.Mode()&os.ModeSymlink == 0 {
			current = next
			continue
		}
		*hops++
		if *hops > maxSymlinkHops {
			return nil, errors.New("too many levels of symbolic links")
		}
		linkname, err := os.Readlink(full)
		if err != nil {
			return nil, err
		}
		if filepath.IsAbs(linkname) {
			return nil, errOutsideRoot
		}
		current, err = resolveInRoot(root, current, filepath.ToSlash(linkname), hops)
		if err != nil {
			return nil, err
		}
	}
	return current, nil
}

func readZipEntry(file *zip.File, limit int64) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, shared.ExtractionError("corrupt zip entry: "+file.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, limit))
	if err != nil {
		return nil, shared.ExtractionError("corrupt zip entry: "+file.Name, err)
	}
	return data, nil
}

// insideRoot resolves the deepest existing ancestor of target and rejects
// it when an earlier symlink has redirected it outside root.
func insideRoot(root string, target string) error {
	dir := filepath.Dir(target)
	for {
		if _, err := os.Lstat(dir); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	resolvedRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return shared.ExtractionError("failed to resolve extraction root", err)
	}
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return shared.ExtractionError("failed to resolve archive entry: "+target, err)
	}
	rel, err := filepath.Rel(resolvedRoot, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return shared.ExtractionError("archive entry escapes destination through a symlink: "+target, err)
	}
	return nil
}

// checkSymlinks rejects any link in the tree under root that resolves
// outside it. Stripping the top-level directory moves the root, so links
// accepted during extraction are checked again here.
func checkSymlinks(root string) error {
	resolvedRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return shared.ExtractionError("failed to resolve extraction root", err)
	}
	return filepath.WalkDir(resolvedRoot, func(current string, entry fs.DirEntry, err error) error {
		if err != nil {
			return shared.ExtractionError("failed to read extracted contents", err)
		}
		if entry.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		rel, err := filepath.Rel(resolvedRoot, current)
		if err != nil {
			return shared.ExtractionError("failed to read extracted contents", err)
		}
		hops := 0
		if _, err := resolveInRoot(resolvedRoot, nil, filepath.ToSlash(rel), &hops); err != nil {
			return shared.ExtractionError("symlink escapes destination: "+filepath.ToSlash(rel), err)
		}
		return nil
	})
}

func contentRoot(unpackDir string) (string, error) {
	entries, err := os.ReadDir(unpackDir)
	if err != nil {
		return "", shared.ExtractionError("failed to read extracted contents", err)
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(unpackDir, entries[0].Name()), nil
	}
	return unpackDir, nil
}

var _ ports.ArchiveExtractorPort = ArchiveExtractorAdapter{}
