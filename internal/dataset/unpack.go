package dataset

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"

	apperrors "github.com/tabloader/tabloader/internal/errors"
)

// Unpack expands a downloaded file in place and returns the resulting paths.
// Zip archives are extracted next to the archive, which is then removed.
// Snappy-framed .sz files are decompressed to the name without the suffix.
// Any other file is returned unchanged.
func Unpack(localPath string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(localPath)) {
	case ".zip":
		return unzip(localPath)
	case ".sz":
		out, err := unsnappy(localPath)
		if err != nil {
			return nil, err
		}
		return []string{out}, nil
	default:
		return []string{localPath}, nil
	}
}

func unzip(archive string) ([]string, error) {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return nil, unpackError(archive, err)
	}

	dir := filepath.Dir(archive)
	var out []string
	for _, f := range r.File {
		target, err := extractPath(dir, f.Name)
		if err != nil {
			r.Close()
			return nil, unpackError(archive, err)
		}
		if f.FileInfo().IsDir() {
			if err := ensureDir(target); err != nil {
				r.Close()
				return nil, unpackError(archive, err)
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			r.Close()
			return nil, unpackError(archive, err)
		}
		out = append(out, target)
	}

	if err := r.Close(); err != nil {
		return nil, unpackError(archive, err)
	}
	if err := os.Remove(archive); err != nil {
		return nil, unpackError(archive, err)
	}
	return out, nil
}

// extractPath resolves an archive entry below dir and rejects entries that
// would land outside it.
func extractPath(dir, name string) (string, error) {
	target := filepath.Join(dir, filepath.FromSlash(name))
	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(name) {
		return "", fmt.Errorf("archive entry %q escapes destination", name)
	}
	return target, nil
}

func extractFile(f *zip.File, target string) error {
	if err := ensureDir(filepath.Dir(target)); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func unsnappy(compressed string) (string, error) {
	target := strings.TrimSuffix(compressed, filepath.Ext(compressed))

	src, err := os.Open(compressed)
	if err != nil {
		return "", unpackError(compressed, err)
	}

	dst, err := os.Create(target)
	if err != nil {
		src.Close()
		return "", unpackError(compressed, err)
	}

	_, err = io.Copy(dst, snappy.NewReader(src))
	src.Close()
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(target)
		return "", unpackError(compressed, err)
	}

	if err := os.Remove(compressed); err != nil {
		return "", unpackError(compressed, err)
	}
	return target, nil
}

func unpackError(path string, cause error) error {
	return apperrors.NewDatasetError(apperrors.CodeUnpackFailed, fmt.Sprintf("failed to unpack %s", path), cause)
}
