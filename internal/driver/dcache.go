package driver

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"cxxsema/internal/diag"
	"cxxsema/internal/symbols"
	"cxxsema/internal/syntax"
)

// Current schema version - increment when DiskPayload format changes
const diskCacheSchemaVersion uint16 = 1

// DiskCache keeps analyzed translation units on disk keyed by Digest.
// Entries are msgpack records compressed with zstd. Thread-safe for
// concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// DiskPayload is everything needed to rebuild a session without parsing.
type DiskPayload struct {
	// Schema version for safe invalidation when format changes
	Schema uint16 `msgpack:"schema"`

	Path     string `msgpack:"path"`
	Language string `msgpack:"language"`

	Snapshot    *symbols.Snapshot `msgpack:"snapshot"`
	Nodes       []syntax.Node     `msgpack:"nodes"`
	Diagnostics []diag.Diagnostic `msgpack:"diagnostics"`
}

// DefaultCacheDir is $XDG_CACHE_HOME/app or ~/.cache/app.
func DefaultCacheDir(app string) (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, app), nil
}

// OpenDiskCache creates dir if needed and returns a cache rooted there.
func OpenDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir, enc: enc, dec: dec}, nil
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *DiskCache) pathFor(key Digest) string {
	hexKey := hex.EncodeToString(key[:])
	return filepath.Join(c.dir, "units", hexKey[:2], hexKey+".mp.zst")
}

// Put serializes and writes a payload to the disk cache.
func (c *DiskCache) Put(key Digest, payload *DiskPayload) (err error) {
	if c == nil {
		return nil
	}
	payload.Schema = diskCacheSchemaVersion
	raw, err := msgpack.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	packed := c.enc.EncodeAll(raw, make([]byte, 0, len(raw)/3))

	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = rmErr
		}
	}()
	if _, err := f.Write(packed); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// atomic replace
	return os.Rename(f.Name(), p)
}

// Get reads a payload. A missing entry or one written by another schema
// is a miss, not an error.
func (c *DiskCache) Get(key Digest, out *DiskPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	packed, err := os.ReadFile(c.pathFor(key))
	c.mu.RUnlock()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	raw, err := c.dec.DecodeAll(packed, nil)
	if err != nil {
		return false, fmt.Errorf("decompress cache entry: %w", err)
	}
	if err := msgpack.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode cache entry: %w", err)
	}
	if out.Schema != diskCacheSchemaVersion || out.Snapshot == nil || out.Snapshot.Version != symbols.SnapshotVersion {
		return false, nil
	}
	return true, nil
}

// DropAll invalidates the cache, useful after format changes.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	return os.RemoveAll(old)
}

// Close releases the compressor state.
func (c *DiskCache) Close() error {
	if c == nil {
		return nil
	}
	c.dec.Close()
	return c.enc.Close()
}

// sessionToPayload captures a finished session.
func sessionToPayload(res *Result) *DiskPayload {
	s := res.Session
	payload := &DiskPayload{
		Path:     res.Path,
		Language: res.Language.String(),
		Snapshot: s.Table.Snapshot(),
		Nodes:    append([]syntax.Node(nil), s.Nodes.All()...),
	}
	for _, d := range s.Bag.Items() {
		if d.Code != diag.IOCacheError {
			payload.Diagnostics = append(payload.Diagnostics, d)
		}
	}
	return payload
}

// restoreSession rebuilds table, nodes and diagnostics into s. The file
// must already be loaded into s.FileSet under the same id it had when the
// payload was written.
func restoreSession(s *Session, payload *DiskPayload) error {
	table, err := symbols.Restore(payload.Snapshot)
	if err != nil {
		return err
	}
	s.Table = table
	s.Nodes = syntax.NodesFrom(payload.Nodes)
	for _, d := range payload.Diagnostics {
		s.Bag.Add(d)
	}
	return nil
}
