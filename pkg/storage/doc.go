// Package storage persists the merged market snapshot.
//
// The snapshot is a single JSON array at data_dir/data_file_name and is
// replaced wholesale on every save through a temporary file and a rename.
// An optional sidecar, data_file_name + ".meta.json", records which cycle
// produced the snapshot and how many pages failed.
package storage
