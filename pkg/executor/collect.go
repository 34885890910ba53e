package executor

import (
	"context"
	"encoding/base64"
	"log/slog"
	"path"
)

// Artifact is one collected output file. Filename is the basename only;
// Data is the base64-encoded content.
type Artifact struct {
	Filename string
	Data     string
	Size     int
}

// fileReader resolves a path inside the sandbox to file bytes.
type fileReader interface {
	ReadFile(ctx context.Context, p string) ([]byte, error)
}

// collectArtifacts retrieves explicitly requested files first, in
// caller order, then auto-detected new files. Uniqueness is enforced by
// basename, first-writer-wins, so explicit requests always take
// precedence. A failure to read any individual file only shrinks the
// result set, never aborts collection.
func collectArtifacts(ctx context.Context, reader fileReader, workDir string, explicit, auto []string) []Artifact {
	var artifacts []Artifact
	claimed := make(map[string]bool)

	for _, filePath := range explicit {
		content, err := reader.ReadFile(ctx, filePath)
		if err != nil {
			slog.Warn("could not retrieve requested file", "path", filePath, "error", err.Error())
			continue
		}
		name := path.Base(filePath)
		artifacts = append(artifacts, encodeArtifact(name, content))
		claimed[name] = true
		slog.Info("retrieved requested file", "path", filePath, "bytes", len(content))
	}

	for _, filePath := range auto {
		name := path.Base(filePath)
		if claimed[name] {
			continue
		}

		// The listing may report a bare name or a path the file server
		// cannot resolve directly; try a short list of plausible
		// locations and take the first that reads.
		content, ok := readFirst(ctx, reader, filePath, path.Join(workDir, name), name)
		if !ok {
			slog.Warn("could not retrieve auto-detected file", "path", filePath)
			continue
		}

		artifacts = append(artifacts, encodeArtifact(name, content))
		claimed[name] = true
		slog.Info("retrieved auto-detected file", "filename", name, "bytes", len(content))
	}

	return artifacts
}

// readFirst tries each candidate path in order and returns the first
// successful read.
func readFirst(ctx context.Context, reader fileReader, candidates ...string) ([]byte, bool) {
	for _, candidate := range candidates {
		content, err := reader.ReadFile(ctx, candidate)
		if err == nil {
			return content, true
		}
	}
	return nil, false
}

func encodeArtifact(name string, content []byte) Artifact {
	return Artifact{
		Filename: name,
		Data:     base64.StdEncoding.EncodeToString(content),
		Size:     len(content),
	}
}
