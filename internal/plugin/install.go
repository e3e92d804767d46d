package plugin

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

// maxExtractedSize caps total decompressed bytes per archive to keep a
// hostile plugin package from filling the disk.
const maxExtractedSize = 100 * 1024 * 1024

// extractArchive unpacks every entry of a ZIP archive into destDir,
// rejecting entries whose resolved path escapes it.
func extractArchive(archivePath, destDir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer zr.Close()

	var total int64
	for _, f := range zr.File {
		target, err := securePath(destDir, filepath.FromSlash(f.Name))
		if err != nil {
			return fmt.Errorf("archive entry %q: %w", f.Name, err)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to open archive entry %q: %w", f.Name, err)
		}

		out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			rc.Close()
			return err
		}

		n, err := io.Copy(out, io.LimitReader(rc, maxExtractedSize-total+1))
		rc.Close()
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("failed to extract %q: %w", f.Name, err)
		}
		total += n
		if total > maxExtractedSize {
			return fmt.Errorf("archive exceeds %d byte extraction limit", maxExtractedSize)
		}
	}
	return nil
}

// findManifestDir locates the directory holding manifest.json: either the
// extraction root or exactly one directory level down, tolerating archives
// built with a wrapping folder.
func findManifestDir(root string) (string, error) {
	if hasManifest(root) {
		return root, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		if hasManifest(dir) {
			return dir, nil
		}
	}
	return "", ErrManifestNotFound
}

func hasManifest(dir string) bool {
	st, err := os.Stat(filepath.Join(dir, ManifestName))
	return err == nil && !st.IsDir()
}

// peekManifestID reads just the id field out of manifest bytes without a
// full unmarshal of untrusted data.
func peekManifestID(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return ""
	}
	return gjson.GetBytes(data, "id").String()
}
