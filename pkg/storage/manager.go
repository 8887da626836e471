package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	errs "geckofetcher/pkg/errors"
)

// metadataSuffix is appended to the snapshot file name for the sidecar
const metadataSuffix = ".meta.json"

// Metadata describes the cycle that produced the current snapshot
type Metadata struct {
	CycleID        string    `json:"cycle_id"`
	UpdatedAt      time.Time `json:"updated_at"`
	Entries        int       `json:"entries"`
	PagesRequested int       `json:"pages_requested"`
	FailedPages    []int     `json:"failed_pages"`
	DurationMS     int64     `json:"duration_ms"`
}

// Manager owns the snapshot file and its sidecar. Every write replaces the
// previous file completely.
type Manager struct {
	dataDir  string
	fileName string
	mu       sync.Mutex
}

// NewManager creates a storage manager for dataDir/fileName. The directory
// is created on the first save.
func NewManager(dataDir, fileName string) *Manager {
	return &Manager{dataDir: dataDir, fileName: fileName}
}

// DataPath returns the snapshot path
func (m *Manager) DataPath() string {
	return filepath.Join(m.dataDir, m.fileName)
}

// MetadataPath returns the sidecar path
func (m *Manager) MetadataPath() string {
	return filepath.Join(m.dataDir, m.fileName+metadataSuffix)
}

// SaveSnapshot writes entries as a single JSON array, replacing any previous
// snapshot. No entries are written as [].
func (m *Manager) SaveSnapshot(entries []json.RawMessage) error {
	if entries == nil {
		entries = []json.RawMessage{}
	}
	return m.writeAtomic(m.DataPath(), func(w io.Writer) error {
		return json.NewEncoder(w).Encode(entries)
	})
}

// LoadSnapshot reads the snapshot back
func (m *Manager) LoadSnapshot() ([]json.RawMessage, error) {
	data, err := os.ReadFile(m.DataPath())
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypePersistence, "failed to read snapshot", err)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeParsing, "failed to parse snapshot", err)
	}
	return entries, nil
}

// SaveMetadata writes the sidecar file
func (m *Manager) SaveMetadata(meta *Metadata) error {
	out := *meta
	if out.FailedPages == nil {
		out.FailedPages = []int{}
	}
	return m.writeAtomic(m.MetadataPath(), func(w io.Writer) error {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(&out)
	})
}

// LoadMetadata reads the sidecar file
func (m *Manager) LoadMetadata() (*Metadata, error) {
	data, err := os.ReadFile(m.MetadataPath())
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypePersistence, "failed to read metadata", err)
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errs.Wrap(errs.ErrorTypeParsing, "failed to parse metadata", err)
	}
	return &meta, nil
}

// writeAtomic writes through a temporary file in the destination directory
// and renames it over path, so readers never see a partial file
func (m *Manager) writeAtomic(path string, write func(io.Writer) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errs.Wrap(errs.ErrorTypePersistence, "failed to create data directory", err)
	}

	file, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errs.Wrap(errs.ErrorTypePersistence, "failed to create temporary file", err)
	}
	tempPath := file.Name()

	fail := func(msg string, cause error) error {
		file.Close()
		os.Remove(tempPath)
		return errs.Wrap(errs.ErrorTypePersistence, msg, cause)
	}

	buffered := bufio.NewWriter(file)
	if err := write(buffered); err != nil {
		return fail(fmt.Sprintf("failed to write %s", filepath.Base(path)), err)
	}
	if err := buffered.Flush(); err != nil {
		return fail(fmt.Sprintf("failed to write %s", filepath.Base(path)), err)
	}
	if err := file.Sync(); err != nil {
		return fail("failed to sync temporary file", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return errs.Wrap(errs.ErrorTypePersistence, "failed to close temporary file", err)
	}
	if err := os.Chmod(tempPath, 0644); err != nil {
		os.Remove(tempPath)
		return errs.Wrap(errs.ErrorTypePersistence, "failed to set file mode", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return errs.Wrap(errs.ErrorTypePersistence, fmt.Sprintf("failed to replace %s", path), err)
	}
	return nil
}
