package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const entryExt = ".json"

// Entry is one cached completion.
type Entry struct {
	Key        string    `json:"key"`
	Content    string    `json:"content"`
	TokensUsed int       `json:"tokensUsed"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Cache is a directory of JSON entries. A disabled Cache misses on every Get
// and drops every Put. Safe for concurrent use: writes go through a temp file
// and rename.
type Cache struct {
	dir     string
	ttl     time.Duration
	enabled bool
	now     func() time.Time
}

// New creates a Cache. An empty dir selects the platform cache directory. A
// zero ttl keeps entries forever.
func New(enabled bool, dir string, ttl time.Duration) (*Cache, error) {
	if !enabled {
		return &Cache{now: time.Now}, nil
	}
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &Cache{dir: dir, ttl: ttl, enabled: true, now: time.Now}, nil
}

// Get returns the entry stored under key. Expired entries are removed and
// reported as a miss.
func (c *Cache) Get(key string) (Entry, bool) {
	if !c.enabled {
		return Entry{}, false
	}
	path := c.entryPath(key)
	entry, err := readEntry(path)
	if err != nil {
		return Entry{}, false
	}
	if c.expired(entry) {
		_ = os.Remove(path)
		return Entry{}, false
	}
	return entry, true
}

// Put stores content under key.
func (c *Cache) Put(key, content string, tokensUsed int) error {
	if !c.enabled {
		return nil
	}
	data, err := json.Marshal(Entry{
		Key:        Key(key),
		Content:    content,
		TokensUsed: tokensUsed,
		CreatedAt:  c.now(),
	})
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("creating cache entry: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.entryPath(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("committing cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry and returns how many were deleted.
func (c *Cache) Clear() (int, error) {
	return c.sweep(func(Entry) bool { return true })
}

// Prune removes expired entries and returns how many were deleted.
func (c *Cache) Prune() (int, error) {
	return c.sweep(c.expired)
}

// Stats describes the cache directory.
type Stats struct {
	Dir        string `json:"dir"`
	Enabled    bool   `json:"enabled"`
	Entries    int    `json:"entries"`
	TotalBytes int64  `json:"totalBytes"`
	Expired    int    `json:"expired"`
}

// Stats walks the cache directory.
func (c *Cache) Stats() (Stats, error) {
	stats := Stats{Dir: c.dir, Enabled: c.enabled}
	files, err := c.files()
	if err != nil {
		return stats, err
	}
	for _, path := range files {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		stats.Entries++
		stats.TotalBytes += info.Size()
		if entry, err := readEntry(path); err == nil && c.expired(entry) {
			stats.Expired++
		}
	}
	return stats, nil
}

// Dir returns the cache directory path.
func (c *Cache) Dir() string { return c.dir }

// Enabled returns whether caching is enabled.
func (c *Cache) Enabled() bool { return c.enabled }

// Key hashes arbitrary key material into a file-safe name.
func Key(material string) string {
	h := sha256.Sum256([]byte(material))
	return hex.EncodeToString(h[:])
}

// CompletionKey builds the key for one model call.
func CompletionKey(provider, model, system, user string) string {
	return strings.Join([]string{provider, model, system, user}, "\x00")
}

func (c *Cache) expired(e Entry) bool {
	return c.ttl > 0 && c.now().Sub(e.CreatedAt) > c.ttl
}

func (c *Cache) sweep(match func(Entry) bool) (int, error) {
	files, err := c.files()
	if err != nil {
		return 0, err
	}
	var removed int
	for _, path := range files {
		entry, err := readEntry(path)
		if err == nil && !match(entry) {
			continue
		}
		if os.Remove(path) == nil {
			removed++
		}
	}
	return removed, nil
}

func (c *Cache) files() ([]string, error) {
	if !c.enabled || c.dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cache directory: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == entryExt {
			out = append(out, filepath.Join(c.dir, e.Name()))
		}
	}
	return out, nil
}

func readEntry(path string) (Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, err
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (c *Cache) entryPath(key string) string {
	return filepath.Join(c.dir, Key(key)+entryExt)
}

// DefaultDir returns the per-user cache directory for funnel.
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "funnel"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Caches", "funnel"), nil
	case "windows":
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, "funnel", "cache"), nil
		}
		return filepath.Join(home, "AppData", "Local", "funnel", "cache"), nil
	default:
		return filepath.Join(home, ".cache", "funnel"), nil
	}
}
