// Package archive keeps a bounded on-disk history of converted outputs.
// Each conversion is written to a timestamped file; old files beyond the
// retention limit are pruned so the directory cannot grow unbounded.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Archive manages converted CSV files on disk.
type Archive struct {
	dir      string
	maxFiles int
}

// New creates an Archive that stores files in dir and keeps at most
// maxFiles of them.
func New(dir string, maxFiles int) *Archive {
	if maxFiles <= 0 {
		maxFiles = 10
	}
	return &Archive{dir: dir, maxFiles: maxFiles}
}

// Dir returns the archive directory.
func (a *Archive) Dir() string {
	return a.dir
}

// Check verifies the archive directory exists and is writable.
func (a *Archive) Check() error {
	if err := a.ensureDir(); err != nil {
		return err
	}
	probe := filepath.Join(a.dir, ".probe")
	if err := os.WriteFile(probe, nil, 0644); err != nil {
		return fmt.Errorf("archive dir not writable: %w", err)
	}
	return os.Remove(probe)
}

// Write saves converted output to a timestamped file and prunes files
// beyond the retention limit.
func (a *Archive) Write(data []byte, ts time.Time) error {
	if err := a.ensureDir(); err != nil {
		return err
	}

	name := fmt.Sprintf("converted_%d.csv", ts.UnixNano())
	if err := os.WriteFile(filepath.Join(a.dir, name), data, 0644); err != nil {
		return fmt.Errorf("writing archive file: %w", err)
	}

	return a.prune()
}

// LoadLatest reads the newest archived conversion. Returns the data, the
// timestamp encoded in the filename, and any error.
func (a *Archive) LoadLatest() ([]byte, time.Time, error) {
	files, err := a.listFiles()
	if err != nil {
		return nil, time.Time{}, err
	}
	if len(files) == 0 {
		return nil, time.Time{}, fmt.Errorf("no archived conversions")
	}

	latest := files[len(files)-1]
	data, err := os.ReadFile(filepath.Join(a.dir, latest.name))
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading archive file: %w", err)
	}
	return data, latest.ts, nil
}

type archiveFile struct {
	name string
	ts   time.Time
}

func (a *Archive) listFiles() ([]archiveFile, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing archive dir: %w", err)
	}

	var files []archiveFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, "converted_") || !strings.HasSuffix(name, ".csv") {
			continue
		}
		tsStr := strings.TrimSuffix(strings.TrimPrefix(name, "converted_"), ".csv")
		nanos, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			continue
		}
		files = append(files, archiveFile{name: name, ts: time.Unix(0, nanos)})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].ts.Before(files[j].ts)
	})
	return files, nil
}

func (a *Archive) prune() error {
	files, err := a.listFiles()
	if err != nil {
		return err
	}
	if len(files) <= a.maxFiles {
		return nil
	}

	for _, f := range files[:len(files)-a.maxFiles] {
		if err := os.Remove(filepath.Join(a.dir, f.name)); err != nil {
			return fmt.Errorf("pruning archive file %s: %w", f.name, err)
		}
	}
	return nil
}

func (a *Archive) ensureDir() error {
	return os.MkdirAll(a.dir, 0755)
}
