package persist

import (
	"errors"
	"fmt"
	"os"

	"github.com/atomozero/meshcore-go/internal/identity"
)

// ErrNotFound indicates the store file does not exist yet (first boot).
var ErrNotFound = errors.New("persist: store file not found")

// layout is identity || node config || stats, back to back, with no
// separators: each record's own CRC-16 delimits it.
const (
	identityOffset   = 0
	nodeConfigOffset = identityOffset + IdentityRecordSize
	statsOffset      = nodeConfigOffset + NodeConfigRecordSize
	fileSize         = statsOffset + StatsRecordSize
)

// Store reads and writes the single-file record layout at Path.
type Store struct {
	Path string
}

// NewStore creates a Store rooted at path.
func NewStore(path string) *Store {
	return &Store{Path: path}
}

// Load reads all three records from the store file. Returns ErrNotFound
// if the file does not exist, so callers can fall back to first-boot
// defaults without treating it as an error.
func (s *Store) Load() (*identity.Identity, NodeConfigRecord, StatsRecord, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, NodeConfigRecord{}, StatsRecord{}, ErrNotFound
	}
	if err != nil {
		return nil, NodeConfigRecord{}, StatsRecord{}, fmt.Errorf("persist: read %s: %w", s.Path, err)
	}
	if len(data) != fileSize {
		return nil, NodeConfigRecord{}, StatsRecord{}, fmt.Errorf("persist: %s is %d bytes, want %d", s.Path, len(data), fileSize)
	}

	id, err := DecodeIdentity(data[identityOffset:nodeConfigOffset])
	if err != nil {
		return nil, NodeConfigRecord{}, StatsRecord{}, fmt.Errorf("persist: decode identity: %w", err)
	}
	cfg, err := DecodeNodeConfig(data[nodeConfigOffset:statsOffset])
	if err != nil {
		return nil, NodeConfigRecord{}, StatsRecord{}, fmt.Errorf("persist: decode node config: %w", err)
	}
	stats, err := DecodeStats(data[statsOffset:fileSize])
	if err != nil {
		return nil, NodeConfigRecord{}, StatsRecord{}, fmt.Errorf("persist: decode stats: %w", err)
	}

	return id, cfg, stats, nil
}

// Save atomically replaces the store file with the encoded form of all
// three records: written to a temp file in the same directory, then
// renamed into place, so a crash mid-write never leaves a torn file.
func (s *Store) Save(id *identity.Identity, cfg NodeConfigRecord, stats StatsRecord) error {
	idBytes, err := EncodeIdentity(id)
	if err != nil {
		return fmt.Errorf("persist: encode identity: %w", err)
	}

	tmp := s.Path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("persist: create %s: %w", tmp, err)
	}
	defer f.Close()

	for _, chunk := range [][]byte{idBytes, EncodeNodeConfig(cfg), EncodeStats(stats)} {
		if _, err := f.Write(chunk); err != nil {
			return fmt.Errorf("persist: write %s: %w", tmp, err)
		}
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("persist: sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("persist: close %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("persist: rename %s to %s: %w", tmp, s.Path, err)
	}
	return nil
}
