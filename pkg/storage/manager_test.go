package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	errs "geckofetcher/pkg/errors"
)

func raw(items ...string) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(items))
	for _, s := range items {
		out = append(out, json.RawMessage(s))
	}
	return out
}

func TestSaveSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	manager := NewManager(dir, "coingecko_data.json")

	entries := raw(`{"id":"bitcoin","current_price":64000.5}`, `{"id":"ethereum","sparkline_in_7d":{"price":[1,2]}}`)
	if err := manager.SaveSnapshot(entries); err != nil {
		t.Fatalf("Failed to save snapshot: %v", err)
	}

	if manager.DataPath() != filepath.Join(dir, "coingecko_data.json") {
		t.Errorf("Unexpected data path %s", manager.DataPath())
	}

	loaded, err := manager.LoadSnapshot()
	if err != nil {
		t.Fatalf("Failed to load snapshot: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(loaded))
	}
	for i := range entries {
		if string(loaded[i]) != string(entries[i]) {
			t.Errorf("Entry %d changed: got %s, want %s", i, loaded[i], entries[i])
		}
	}
}

func TestSaveSnapshotReplacesPrevious(t *testing.T) {
	manager := NewManager(t.TempDir(), "data.json")

	if err := manager.SaveSnapshot(raw(`{"id":"a"}`, `{"id":"b"}`, `{"id":"c"}`)); err != nil {
		t.Fatalf("First save failed: %v", err)
	}
	if err := manager.SaveSnapshot(raw(`{"id":"z"}`)); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	loaded, err := manager.LoadSnapshot()
	if err != nil {
		t.Fatalf("Failed to load snapshot: %v", err)
	}
	if len(loaded) != 1 || string(loaded[0]) != `{"id":"z"}` {
		t.Errorf("Expected only the second snapshot, got %s", loaded)
	}
}

func TestSaveSnapshotEmpty(t *testing.T) {
	manager := NewManager(t.TempDir(), "data.json")

	if err := manager.SaveSnapshot(nil); err != nil {
		t.Fatalf("Failed to save empty snapshot: %v", err)
	}

	data, err := os.ReadFile(manager.DataPath())
	if err != nil {
		t.Fatalf("Failed to read snapshot: %v", err)
	}
	if strings.TrimSpace(string(data)) != "[]" {
		t.Errorf("Expected [], got %q", data)
	}
}

func TestSaveSnapshotCreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	manager := NewManager(dir, "data.json")

	if err := manager.SaveSnapshot(raw(`{"id":"a"}`)); err != nil {
		t.Fatalf("Failed to save snapshot: %v", err)
	}
	if _, err := os.Stat(manager.DataPath()); err != nil {
		t.Errorf("Snapshot not created: %v", err)
	}
}

func TestSaveSnapshotLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	manager := NewManager(dir, "data.json")

	for i := 0; i < 3; i++ {
		if err := manager.SaveSnapshot(raw(`{"id":"a"}`)); err != nil {
			t.Fatalf("Save %d failed: %v", i, err)
		}
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read dir: %v", err)
	}
	if len(files) != 1 || files[0].Name() != "data.json" {
		var names []string
		for _, f := range files {
			names = append(names, f.Name())
		}
		t.Errorf("Expected only data.json, found %v", names)
	}
}

func TestSaveSnapshotUnwritableDestination(t *testing.T) {
	base := t.TempDir()
	// a regular file where the data directory should be
	blocker := filepath.Join(base, "data")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create blocker: %v", err)
	}

	manager := NewManager(blocker, "data.json")
	err := manager.SaveSnapshot(raw(`{"id":"a"}`))
	if err == nil {
		t.Fatal("Expected an error when the data directory cannot be created")
	}
	if !errs.Is(err, errs.ErrorTypePersistence) {
		t.Errorf("Expected persistence error, got %v", err)
	}
}

func TestLoadSnapshotMissing(t *testing.T) {
	manager := NewManager(t.TempDir(), "data.json")

	if _, err := manager.LoadSnapshot(); !errs.Is(err, errs.ErrorTypePersistence) {
		t.Errorf("Expected persistence error for missing snapshot, got %v", err)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	manager := NewManager(t.TempDir(), "coingecko_data.json")

	if manager.MetadataPath() != manager.DataPath()+".meta.json" {
		t.Errorf("Unexpected metadata path %s", manager.MetadataPath())
	}

	meta := &Metadata{
		CycleID:        "5a1f4c9e-0000-4000-8000-000000000001",
		UpdatedAt:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Entries:        1000,
		PagesRequested: 6,
		FailedPages:    []int{3},
		DurationMS:     4200,
	}
	if err := manager.SaveMetadata(meta); err != nil {
		t.Fatalf("Failed to save metadata: %v", err)
	}

	loaded, err := manager.LoadMetadata()
	if err != nil {
		t.Fatalf("Failed to load metadata: %v", err)
	}
	if loaded.CycleID != meta.CycleID || !loaded.UpdatedAt.Equal(meta.UpdatedAt) ||
		loaded.Entries != 1000 || loaded.PagesRequested != 6 || loaded.DurationMS != 4200 {
		t.Errorf("Metadata changed on round trip: %+v", loaded)
	}
	if len(loaded.FailedPages) != 1 || loaded.FailedPages[0] != 3 {
		t.Errorf("Unexpected failed pages %v", loaded.FailedPages)
	}
}

func TestMetadataEmptyFailedPages(t *testing.T) {
	manager := NewManager(t.TempDir(), "data.json")

	if err := manager.SaveMetadata(&Metadata{CycleID: "c"}); err != nil {
		t.Fatalf("Failed to save metadata: %v", err)
	}

	data, err := os.ReadFile(manager.MetadataPath())
	if err != nil {
		t.Fatalf("Failed to read metadata: %v", err)
	}
	if !strings.Contains(string(data), `"failed_pages": []`) {
		t.Errorf("Expected an empty failed_pages list, got %s", data)
	}
}
