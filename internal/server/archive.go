package server

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var errBadArchive = errors.New("bad archive")

// shapefile members extracted from uploads, anything else is ignored
var memberExts = map[string]bool{
	".shp": true,
	".shx": true,
	".dbf": true,
	".prj": true,
	".cpg": true,
}

// extractShapefiles unpacks the shapefile members of a zip archive into dir
// and returns the paths of the .shp files found, sorted. At most limit bytes
// are written in total.
func extractShapefiles(data []byte, dir string, limit int64) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errBadArchive, err)
	}

	var shps []string
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(f.Name))
		if !memberExts[ext] {
			continue
		}

		name := filepath.FromSlash(f.Name)
		if !filepath.IsLocal(name) {
			return nil, fmt.Errorf("%w: unsafe path %q", errBadArchive, f.Name)
		}

		n, err := extractFile(f, filepath.Join(dir, name), limit)
		if err != nil {
			return nil, err
		}
		limit -= n

		if ext == ".shp" {
			shps = append(shps, filepath.Join(dir, name))
		}
	}

	if len(shps) == 0 {
		return nil, fmt.Errorf("%w: no .shp file", errBadArchive)
	}
	slices.Sort(shps)
	return shps, nil
}

func extractFile(f *zip.File, dst string, limit int64) (int64, error) {
	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", errBadArchive, f.Name, err)
	}
	defer func() { _ = rc.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", errBadArchive, f.Name, err)
	}
	defer func() { _ = out.Close() }()

	n, err := io.Copy(out, io.LimitReader(rc, limit+1))
	if err != nil {
		return n, fmt.Errorf("%w: %s: %w", errBadArchive, f.Name, err)
	}
	if n > limit {
		return n, fmt.Errorf("%w: uncompressed size exceeds limit", errBadArchive)
	}
	return n, nil
}

// pickLayer selects the shapefile named layer (base name, case insensitive),
// or the only one when layer is empty.
func pickLayer(shps []string, layer string) (string, error) {
	if layer == "" {
		if len(shps) > 1 {
			return "", fmt.Errorf("%w: %d shapefiles in archive, select one with ?layer=", errBadArchive, len(shps))
		}
		return shps[0], nil
	}

	for _, p := range shps {
		base := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		if strings.EqualFold(base, layer) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: layer %q not found", errBadArchive, layer)
}
