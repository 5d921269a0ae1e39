// Package pathutil checks trace paths handed to vcdq by callers.
package pathutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrPathRequired is returned when no trace path was supplied.
	ErrPathRequired = errors.New("vcd_path is required")

	// ErrNotRegularFile is returned when the trace path names a directory,
	// device or other non-regular file.
	ErrNotRegularFile = errors.New("not a file")
)

// RequireFile checks that path is set, exists, and is a regular file.
// Symlinks are followed.
func RequireFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return ErrPathRequired
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("VCD not found: %s: %w", path, fs.ErrNotExist)
		}
		return fmt.Errorf("cannot stat VCD %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", ErrNotRegularFile, path)
	}
	return nil
}

// ValidatePath checks that the existing file at path resolves, after
// symlinks, to a location inside one of allowedDirs. An empty allowedDirs
// means every location is allowed.
func ValidatePath(path string, allowedDirs []string) error {
	if len(allowedDirs) == 0 {
		return nil
	}
	if strings.ContainsRune(path, '\x00') {
		return fmt.Errorf("path validation failed: path contains null byte")
	}

	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("path validation failed: cannot resolve absolute path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return fmt.Errorf("path validation failed: cannot resolve %s: %w", RedactPath(abs), err)
	}

	for _, dir := range allowedDirs {
		allowed, err := filepath.Abs(ExpandHome(dir))
		if err != nil {
			continue
		}
		if r, err := filepath.EvalSymlinks(allowed); err == nil {
			allowed = r
		}
		if isSubpath(resolved, allowed) {
			return nil
		}
	}

	return fmt.Errorf("path validation failed: %s is outside allowed trace directories", RedactPath(abs))
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// RedactPath reduces a full path to .../<parent>/<basename> for audit
// records. For example, "/home/user/sim/run.vcd" becomes ".../sim/run.vcd".
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	base := filepath.Base(cleaned)
	parent := filepath.Base(filepath.Dir(cleaned))
	if parent == "." || parent == string(filepath.Separator) {
		return base
	}
	return ".../" + parent + "/" + base
}

func isSubpath(path, base string) bool {
	if path == base {
		return true
	}
	return strings.HasPrefix(path, base+string(os.PathSeparator))
}
