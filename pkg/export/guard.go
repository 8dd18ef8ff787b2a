package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"photomark/pkg/watermark"
)

// Guard fails with OverwriteGuard when outDir is sourcePath's own directory
// and s does not allow exporting there.
func Guard(sourcePath, outDir string, s watermark.Settings) error {
	if s.AllowExportToSource {
		return nil
	}
	out, err := canonicalDir(outDir)
	if err != nil {
		return watermark.NewError(watermark.KindOverwriteGuard, outDir, err)
	}
	src, err := canonicalDir(filepath.Dir(sourcePath))
	if err != nil {
		return watermark.NewError(watermark.KindOverwriteGuard, sourcePath, err)
	}
	if out == src {
		return watermark.NewError(watermark.KindOverwriteGuard, sourcePath,
			fmt.Errorf("output directory %s is the source directory; enable allow_export_to_source to write there", outDir))
	}
	return nil
}

// GuardBatch applies Guard to every path and additionally rejects an outDir
// that contains a source directory, returning the first violation.
func GuardBatch(paths []string, outDir string, s watermark.Settings) error {
	if s.AllowExportToSource {
		return nil
	}
	out, err := canonicalDir(outDir)
	if err != nil {
		return watermark.NewError(watermark.KindOverwriteGuard, outDir, err)
	}
	for _, p := range paths {
		if err := Guard(p, outDir, s); err != nil {
			return err
		}
		src, err := canonicalDir(filepath.Dir(p))
		if err != nil {
			return watermark.NewError(watermark.KindOverwriteGuard, p, err)
		}
		if within(out, src) {
			return watermark.NewError(watermark.KindOverwriteGuard, p,
				fmt.Errorf("output directory %s contains the source directory %s; enable allow_export_to_source to write there", outDir, src))
		}
	}
	return nil
}

// within reports whether dir is root or lies below it.
func within(root, dir string) bool {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// canonicalDir returns an absolute, symlink-free form of dir. A directory that
// does not exist yet cannot be a source directory, so its cleaned absolute
// path is used as is.
func canonicalDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return filepath.Clean(abs), nil
}
