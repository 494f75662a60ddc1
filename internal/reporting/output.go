package reporting

import (
	"fmt"
	"os"
	"path/filepath"
)

// Artifact is one fully rendered output file.
type Artifact struct {
	Name string // relative to the output directory
	Data []byte
}

// WriteArtifacts writes every artifact under dir and returns the written
// paths in order. All artifacts are staged in temporary siblings before the
// first rename, and a failure removes whatever this call already created.
func WriteArtifacts(dir string, artifacts []Artifact) (paths []string, err error) {
	for _, a := range artifacts {
		if a.Name == "" || filepath.IsAbs(a.Name) {
			return nil, fmt.Errorf("report: invalid artifact name %q", a.Name)
		}
	}

	staged := make([]string, 0, len(artifacts))
	paths = make([]string, 0, len(artifacts))
	defer func() {
		if err == nil {
			return
		}
		for _, tmp := range staged {
			_ = os.Remove(tmp)
		}
		for _, p := range paths {
			_ = os.Remove(p)
		}
		paths = nil
	}()

	for _, a := range artifacts {
		tmp, err := stageFile(filepath.Join(dir, a.Name), a.Data)
		if err != nil {
			return nil, err
		}
		staged = append(staged, tmp)
	}

	for i, a := range artifacts {
		path := filepath.Join(dir, a.Name)
		if err := os.Rename(staged[i], path); err != nil {
			staged = staged[i:]
			return nil, fmt.Errorf("report: rename %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	staged = nil
	return paths, nil
}

// stageFile writes data to a synced temp file next to path and returns its name.
func stageFile(path string, data []byte) (name string, err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("report: create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("report: temp file for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("report: write %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("report: sync %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return "", fmt.Errorf("report: close %s: %w", path, err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("report: chmod %s: %w", path, err)
	}
	return tmp.Name(), nil
}
