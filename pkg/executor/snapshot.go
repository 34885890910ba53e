package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/runbox-dev/runbox/pkg/sandbox"
)

// listTimeout bounds the directory listing command used for snapshots.
const listTimeout = 10 * time.Second

// noisePatterns excludes files that routinely appear in the working
// directory without being user output: compiled bytecode caches,
// notebook checkpoints, and general cache directories.
var noisePatterns = []string{".pyc", "__pycache__", ".ipynb_checkpoints", ".cache"}

// Snapshot is a point-in-time set of file paths observed in the sandbox
// working directory.
type Snapshot map[string]struct{}

// Contains reports whether the snapshot holds the given path.
func (s Snapshot) Contains(path string) bool {
	_, ok := s[path]
	return ok
}

// takeSnapshot lists files in the sandbox working directory. Listing
// failures degrade to an empty snapshot: output-file detection is a
// best-effort enhancement and must not fail the request.
func takeSnapshot(ctx context.Context, sb sandbox.Sandbox) Snapshot {
	workDir := sb.WorkDir()
	cmd := fmt.Sprintf("find %s -maxdepth 2 -type f 2>/dev/null || ls -la %s", workDir, workDir)

	result, err := sb.RunCommand(ctx, cmd, listTimeout)
	if err != nil {
		slog.Warn("could not list sandbox files", "workdir", workDir, "error", err.Error())
		return Snapshot{}
	}
	return parseListing(result.Stdout)
}

// parseListing normalizes the two listing formats into a set of paths.
// find output contributes full paths as-is; ls -la lines (permissions,
// links, owner, group, size, date, name) contribute only their final
// column. Header lines such as "total 12" are dropped.
func parseListing(out string) Snapshot {
	snap := Snapshot{}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "total") {
			continue
		}
		if strings.HasPrefix(line, "/") {
			snap[line] = struct{}{}
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 9 {
			snap[fields[len(fields)-1]] = struct{}{}
		}
	}
	return snap
}

// diffSnapshots returns the paths present in after but not before, with
// noise patterns filtered out. The result is sorted for determinism;
// downstream treats it as a set.
func diffSnapshots(before, after Snapshot) []string {
	var added []string
	for path := range after {
		if before.Contains(path) {
			continue
		}
		if isNoise(path) {
			continue
		}
		added = append(added, path)
	}
	sort.Strings(added)
	return added
}

// isNoise reports whether the path matches the deny-list by substring.
func isNoise(path string) bool {
	for _, pattern := range noisePatterns {
		if strings.Contains(path, pattern) {
			return true
		}
	}
	return false
}
