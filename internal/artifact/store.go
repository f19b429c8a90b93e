// Shelfwise - Library Catalog Intelligence
// Copyright 2026 Shelfwise Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/shelfwise/shelfwise

// Package artifact persists trained model state for the intelligence
// components.
//
// Each component's trained state is stored as an independent, versioned
// artifact: a gob-encoded payload, gzip-compressed, wrapped with metadata
// including a SHA-256 checksum. Artifacts are replaced wholesale on rebuild
// and never mutated in place, so a load always observes a complete snapshot.
//
// The on-disk format is opaque to everything except the owning component's
// own save/load pair. No cross-version compatibility is guaranteed: a
// checksum or decode failure is reported as ErrCorrupt and callers are
// expected to treat it as absence and rebuild.
package artifact

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Sentinel errors returned by the store.
var (
	// ErrNotFound indicates no artifact exists for the requested name.
	ErrNotFound = errors.New("artifact not found")

	// ErrCorrupt indicates the persisted artifact could not be read back:
	// truncated file, checksum mismatch, or undecodable payload.
	ErrCorrupt = errors.New("artifact corrupt")
)

// Metadata describes a stored artifact.
type Metadata struct {
	// Name is the owning component ("recommender", "search", "predictor").
	Name string

	// Version increases monotonically per component.
	Version int

	// BuiltAt is when the model was built.
	BuiltAt time.Time

	// SavedAt is when the artifact was written.
	SavedAt time.Time

	// ItemCount is the number of co-indexed entries in the artifact.
	ItemCount int

	// Checksum is the SHA-256 of the uncompressed payload.
	Checksum string

	// SizeBytes is the compressed payload size.
	SizeBytes int64
}

// storedFile is the on-disk envelope.
type storedFile struct {
	Metadata       Metadata
	CompressedData []byte
}

// Store manages versioned artifact files under a base directory.
// File layout: {name}_v{version}.gob.gz. Safe for concurrent use.
type Store struct {
	baseDir string
	mu      sync.RWMutex

	// latest version per artifact name
	versions map[string]int
}

// NewStore creates an artifact store rooted at baseDir, creating the
// directory if needed and scanning it for existing artifacts.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}

	s := &Store{
		baseDir:  baseDir,
		versions: make(map[string]int),
	}
	if err := s.scan(); err != nil {
		return nil, fmt.Errorf("scan artifacts: %w", err)
	}
	return s, nil
}

// scan records the latest version found on disk for each artifact name.
func (s *Store) scan() error {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, version, ok := parseFilename(entry.Name())
		if !ok {
			continue
		}
		if current, seen := s.versions[name]; !seen || version > current {
			s.versions[name] = version
		}
	}
	return nil
}

// parseFilename splits "{name}_v{version}.gob.gz" into its parts.
func parseFilename(filename string) (name string, version int, ok bool) {
	base, found := strings.CutSuffix(filename, ".gob.gz")
	if !found {
		return "", 0, false
	}

	idx := strings.LastIndex(base, "_v")
	if idx < 1 {
		return "", 0, false
	}

	version, err := strconv.Atoi(base[idx+2:])
	if err != nil || version < 1 {
		return "", 0, false
	}
	return base[:idx], version, true
}

// Save serializes payload and writes it as the given version of name.
// The write goes to a temp file first and is renamed into place so a
// concurrent Load never observes a partially written artifact.
func (s *Store) Save(ctx context.Context, name string, payload interface{}, meta Metadata) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(payload); err != nil {
		return 0, fmt.Errorf("encode artifact: %w", err)
	}
	raw := buf.Bytes()

	hash := sha256.Sum256(raw)

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw); err != nil {
		return 0, fmt.Errorf("compress artifact: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return 0, fmt.Errorf("finalize compression: %w", err)
	}

	version := s.versions[name] + 1
	meta.Name = name
	meta.Version = version
	meta.SavedAt = time.Now()
	meta.Checksum = hex.EncodeToString(hash[:])
	meta.SizeBytes = int64(compressed.Len())

	path := s.path(name, version)
	tmp := path + ".tmp"
	f, err := os.Create(tmp) //nolint:gosec // path is built from a fixed component name
	if err != nil {
		return 0, fmt.Errorf("create artifact file: %w", err)
	}

	sf := storedFile{Metadata: meta, CompressedData: compressed.Bytes()}
	if err := gob.NewEncoder(f).Encode(sf); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("write artifact file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("close artifact file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("publish artifact file: %w", err)
	}

	s.versions[name] = version
	return version, nil
}

// Load reads an artifact into target. Version 0 loads the latest.
// Returns ErrNotFound when no artifact exists and ErrCorrupt when the
// stored bytes cannot be verified or decoded.
func (s *Store) Load(ctx context.Context, name string, version int, target interface{}) (*Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if version == 0 {
		var ok bool
		version, ok = s.versions[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
	}

	f, err := os.Open(s.path(name, version)) //nolint:gosec // path is built from a fixed component name
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s v%d", ErrNotFound, name, version)
		}
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer func() { _ = f.Close() }()

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, fmt.Errorf("%w: read envelope: %v", ErrCorrupt, err)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("%w: decompress: %v", ErrCorrupt, err)
	}
	defer func() { _ = gzr.Close() }()

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress: %v", ErrCorrupt, err)
	}

	hash := sha256.Sum256(raw)
	if hex.EncodeToString(hash[:]) != sf.Metadata.Checksum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(target); err != nil {
		return nil, fmt.Errorf("%w: decode payload: %v", ErrCorrupt, err)
	}

	meta := sf.Metadata
	return &meta, nil
}

// LatestVersion returns the latest stored version for name.
func (s *Store) LatestVersion(name string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	version, ok := s.versions[name]
	return version, ok
}

// List returns metadata for the latest version of every stored artifact.
func (s *Store) List(ctx context.Context) ([]Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var metas []Metadata
	for name, version := range s.versions {
		f, err := os.Open(s.path(name, version)) //nolint:gosec // path is built from a fixed component name
		if err != nil {
			continue
		}

		var sf storedFile
		err = gob.NewDecoder(f).Decode(&sf)
		_ = f.Close()
		if err != nil {
			continue
		}
		metas = append(metas, sf.Metadata)
	}

	sort.Slice(metas, func(i, j int) bool { return metas[i].Name < metas[j].Name })
	return metas, nil
}

// Delete removes one stored version of name.
func (s *Store) Delete(ctx context.Context, name string, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(name, version)); err != nil {
		return fmt.Errorf("delete artifact: %w", err)
	}

	if s.versions[name] == version {
		delete(s.versions, name)
		for _, v := range s.versionsOnDisk(name) {
			if v > s.versions[name] {
				s.versions[name] = v
			}
		}
		if s.versions[name] == 0 {
			delete(s.versions, name)
		}
	}
	return nil
}

// Prune removes old versions of name, keeping the newest keep versions.
func (s *Store) Prune(ctx context.Context, name string, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 1 {
		keep = 1
	}

	versions := s.versionsOnDisk(name)
	sort.Sort(sort.Reverse(sort.IntSlice(versions)))

	for i := keep; i < len(versions); i++ {
		_ = os.Remove(s.path(name, versions[i]))
	}
	return nil
}

// versionsOnDisk lists every stored version of name. Must be called with
// the lock held.
func (s *Store) versionsOnDisk(name string) []int {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil
	}

	var versions []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		n, v, ok := parseFilename(entry.Name())
		if ok && n == name {
			versions = append(versions, v)
		}
	}
	return versions
}

// path returns the artifact file path for a name and version.
func (s *Store) path(name string, version int) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_v%d.gob.gz", name, version))
}
