// Package logfinder provides VRChat log directory and file detection.
package logfinder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vrclog/whereami/internal/parser"
)

// EnvLogDir is the environment variable name for specifying log directory.
const EnvLogDir = "VRCHAT_LOG_DIR"

// Sentinel errors.
var (
	ErrLogDirNotFound = errors.New("log directory not found")
	ErrNoLogFiles     = errors.New("no log files found")
)

const (
	fileNamePrefix = "output_log_"
	fileNameSuffix = ".txt"
	// YYYY-MM-DD_HH-MM-SS
	fileStampLen = 19
)

// LogFile is a log file whose name carries a valid session timestamp.
type LogFile struct {
	Path      string
	Timestamp time.Time
}

// ParseFileName extracts the session timestamp from a log file base name of
// the form output_log_YYYY-MM-DD_HH-MM-SS.txt. Any other name is rejected.
// The wall-clock stamp is returned as UTC so ordering never depends on the
// local zone's DST transitions.
func ParseFileName(name string) (time.Time, bool) {
	stamp, ok := strings.CutPrefix(name, fileNamePrefix)
	if !ok {
		return time.Time{}, false
	}
	stamp, ok = strings.CutSuffix(stamp, fileNameSuffix)
	if !ok || len(stamp) != fileStampLen {
		return time.Time{}, false
	}
	if stamp[4] != '-' || stamp[7] != '-' || stamp[10] != '_' ||
		stamp[13] != '-' || stamp[16] != '-' {
		return time.Time{}, false
	}
	return parser.DateTime(time.UTC, stamp[0:4], stamp[5:7], stamp[8:10], stamp[11:13], stamp[14:16], stamp[17:19])
}

// NewLogFile returns the LogFile for path if its base name matches.
func NewLogFile(path string) (LogFile, bool) {
	ts, ok := ParseFileName(filepath.Base(path))
	if !ok {
		return LogFile{}, false
	}
	return LogFile{Path: path, Timestamp: ts}, true
}

// DefaultLogDirs returns candidate VRChat log directories in priority order.
// The directories are OS-specific (Windows only for VRChat PC).
func DefaultLogDirs() []string {
	localAppData := os.Getenv("LOCALAPPDATA")
	if localAppData == "" {
		// Fallback: try to construct from USERPROFILE
		userProfile := os.Getenv("USERPROFILE")
		if userProfile != "" {
			localAppData = filepath.Join(userProfile, "AppData", "Local")
		}
	}

	if localAppData == "" {
		return nil
	}

	// LocalLow is one level up from Local
	localLow := filepath.Join(filepath.Dir(localAppData), "LocalLow")

	return []string{
		filepath.Join(localLow, "VRChat", "VRChat"),
		filepath.Join(localLow, "VRChat", "vrchat"),
	}
}

// FindLogDir returns the VRChat log directory.
//
// Priority:
//  1. explicit (if non-empty)
//  2. VRCHAT_LOG_DIR environment variable
//  3. Auto-detect from DefaultLogDirs()
//
// The directory does not need to contain log files yet; the watcher waits
// for the first one. Returns ErrLogDirNotFound if no directory qualifies.
// The returned path has symlinks resolved for consistency.
func FindLogDir(explicit string) (string, error) {
	if explicit != "" {
		if resolved := resolveLogDir(explicit); resolved != "" {
			return resolved, nil
		}
		return "", fmt.Errorf("%w: %s is not a directory", ErrLogDirNotFound, explicit)
	}

	if envDir := os.Getenv(EnvLogDir); envDir != "" {
		if resolved := resolveLogDir(envDir); resolved != "" {
			return resolved, nil
		}
		return "", fmt.Errorf("%w: %s environment variable points to invalid directory", ErrLogDirNotFound, EnvLogDir)
	}

	dirs := DefaultLogDirs()
	if len(dirs) == 0 {
		return "", fmt.Errorf("%w: set logs_path in where-am-i.toml to the location of your VRChat log files", ErrLogDirNotFound)
	}
	for _, dir := range dirs {
		if resolved := resolveLogDir(dir); resolved != "" {
			return resolved, nil
		}
	}

	return "", ErrLogDirNotFound
}

// ScanLatest returns the log file with the greatest name timestamp among the
// regular files in dir. ok is false when no file qualifies. Entries whose
// type cannot be determined are skipped; failing to read dir is an error.
func ScanLatest(dir string) (latest LogFile, ok bool, err error) {
	files, err := List(dir)
	if err != nil {
		return LogFile{}, false, err
	}
	if len(files) == 0 {
		return LogFile{}, false, nil
	}
	return files[len(files)-1], true, nil
}

// List returns every log file in dir ordered by name timestamp, oldest first.
func List(dir string) ([]LogFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading log directory: %w", err)
	}

	var files []LogFile
	for _, entry := range entries {
		ts, ok := ParseFileName(entry.Name())
		if !ok {
			continue
		}
		if !isRegular(dir, entry) {
			continue
		}
		files = append(files, LogFile{Path: filepath.Join(dir, entry.Name()), Timestamp: ts})
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Timestamp.Before(files[j].Timestamp)
	})
	return files, nil
}

// FindLatestLogFile returns the path of the newest log file in dir.
//
// Returns ErrNoLogFiles if no log files are found.
func FindLatestLogFile(dir string) (string, error) {
	latest, ok, err := ScanLatest(dir)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoLogFiles
	}
	return latest.Path, nil
}

// isRegular follows symlinks, as opening the path would.
func isRegular(dir string, entry os.DirEntry) bool {
	if entry.Type().IsRegular() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, entry.Name()))
	return err == nil && info.Mode().IsRegular()
}

// resolveLogDir resolves symlinks and checks that dir is a directory.
// Returns the resolved path if valid, empty string otherwise.
func resolveLogDir(dir string) string {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return ""
	}

	// Resolve symlinks (works with Windows Junctions in Go 1.20+)
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		// Fallback to original path if symlink resolution fails
		// (e.g., permission issues, broken links)
		resolved = dir
	}
	return resolved
}
