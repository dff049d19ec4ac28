package main

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pactaudit/pactaudit/pkg/evidence"
)

// zipBundle walks every file store.ListFiles reports and writes them
// into a single zip archive at destPath, bundle-relative paths
// preserved as zip entry names.
func zipBundle(ctx context.Context, store evidence.BlobStore, destPath string) error {
	paths, err := store.ListFiles(ctx)
	if err != nil {
		return fmt.Errorf("list bundle files: %w", err)
	}

	f, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, p := range paths {
		data, err := store.ReadFile(ctx, p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		w, err := zw.Create(p)
		if err != nil {
			return fmt.Errorf("add %s to archive: %w", p, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("write %s to archive: %w", p, err)
		}
	}
	return zw.Close()
}

// unzipBundle extracts a pack produced by zipBundle into destDir,
// which is created if it does not exist.
func unzipBundle(srcPath, destDir string) error {
	r, err := zip.OpenReader(srcPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", srcPath, err)
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", destDir, err)
	}

	for _, zf := range r.File {
		targetPath := filepath.Join(destDir, zf.Name)
		if !withinDir(destDir, targetPath) {
			return fmt.Errorf("archive entry %q escapes destination directory", zf.Name)
		}
		if err := extractZipFile(zf, targetPath); err != nil {
			return err
		}
	}
	return nil
}

func extractZipFile(zf *zip.File, targetPath string) error {
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", targetPath, err)
	}
	rc, err := zf.Open()
	if err != nil {
		return fmt.Errorf("open archive entry %s: %w", zf.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(targetPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", targetPath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("extract %s: %w", targetPath, err)
	}
	return nil
}

func withinDir(dir, path string) bool {
	cleanDir := filepath.Clean(dir) + string(os.PathSeparator)
	return strings.HasPrefix(filepath.Clean(path)+string(os.PathSeparator), cleanDir)
}
