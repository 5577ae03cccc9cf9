package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"skyreel/internal/services"
)

const bytesPerMB = 1024 * 1024

// CopyFile streams src to dst using io.Copy with default permissions (0o644).
func CopyFile(src, dst string) error {
	return CopyFileMode(src, dst, 0o644)
}

// CopyFileMode streams src to dst, setting the given file mode on dst.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// WriteFileAtomic writes data to a temp file beside path and renames it into
// place, so readers never observe a partially written file.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// SizeMB returns the file size in megabytes, or 0 when the file is missing.
func SizeMB(path string) float64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return float64(info.Size()) / bytesPerMB
}

// ValidateVideoFile rejects missing files, directories and files smaller than
// minSizeMB.
func ValidateVideoFile(path string, minSizeMB float64) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return services.Wrap(services.ErrNotFound, "validate", "stat video", path, err)
		}
		return services.Wrap(services.ErrValidation, "validate", "stat video", path, err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrValidation, "validate", "stat video", path+" is a directory", nil)
	}
	sizeMB := float64(info.Size()) / bytesPerMB
	if sizeMB < minSizeMB {
		return services.Wrap(services.ErrValidation, "validate", "check size",
			fmt.Sprintf("%s is %.3f MB, below the %.3f MB minimum", path, sizeMB, minSizeMB), nil)
	}
	return nil
}

// CleanupResult lists the files a cleanup pass removed or failed to remove.
type CleanupResult struct {
	Kept    []string
	Removed []string
	Failed  map[string]error
}

// CleanupRecent keeps the keepRecent most recently modified files in dir
// that match pattern and removes the rest. Running it again with the same
// arguments removes nothing further.
func CleanupRecent(dir, pattern string, keepRecent int) (CleanupResult, error) {
	var result CleanupResult
	if keepRecent < 0 {
		keepRecent = 0
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return result, fmt.Errorf("match %q: %w", pattern, err)
	}

	type candidate struct {
		path    string
		modTime int64
	}
	files := make([]candidate, 0, len(matches))
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, candidate{path: match, modTime: info.ModTime().UnixNano()})
	}
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].modTime != files[j].modTime {
			return files[i].modTime > files[j].modTime
		}
		return files[i].path < files[j].path
	})

	for i, file := range files {
		if i < keepRecent {
			result.Kept = append(result.Kept, file.path)
			continue
		}
		if err := os.Remove(file.path); err != nil && !os.IsNotExist(err) {
			if result.Failed == nil {
				result.Failed = make(map[string]error)
			}
			result.Failed[file.path] = err
			continue
		}
		result.Removed = append(result.Removed, file.path)
	}
	return result, nil
}
