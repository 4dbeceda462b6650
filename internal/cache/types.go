package cache

import (
	"errors"
	"strings"
	"time"

	"github.com/dgnsrekt/narrator/pkg/audio"
)

// Common errors for cache operations
var (
	// ErrItemTooLarge is returned when a clip exceeds the cache capacity
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCacheMiss is returned when a clip is not cached
	ErrCacheMiss = errors.New("cache miss")
)

// Level is the cache tier an entry came from.
type Level int

const (
	// LevelMemory is the in-process LRU.
	LevelMemory Level = iota
	// LevelDisk is the compressed on-disk store.
	LevelDisk
)

func (l Level) String() string {
	switch l {
	case LevelMemory:
		return "L1-Memory"
	case LevelDisk:
		return "L2-Disk"
	default:
		return "Unknown"
	}
}

// Stats holds cache metrics.
type Stats struct {
	Capacity  int64 // bytes
	Size      int64 // bytes
	ItemCount int64
	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64

	LastAccess time.Time
	LastEvict  time.Time
}

func (s *Stats) computeHitRate() {
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
}

// Cache is the operation set both tiers share.
type Cache interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
	Delete(key string) error
	Clear() error
	Contains(key string) bool
	Size() int64
	Stats() Stats
}

// Config sizes the cache tiers.
type Config struct {
	MemoryCapacity int64 // bytes

	DiskCapacity     int64 // bytes
	DiskPath         string
	CompressionLevel int // zstd speed level, 1 (fastest) to 4 (best)

	// TTL expires disk entries; zero keeps them forever.
	TTL             time.Duration
	CleanupInterval time.Duration
}

// DefaultConfig returns the default tier sizes. DiskPath must still be set.
func DefaultConfig() Config {
	return Config{
		MemoryCapacity:   32 << 20,
		DiskCapacity:     256 << 20,
		CompressionLevel: 3,
		TTL:              30 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// Key is the cache key of a clip: language and id, e.g. "es-US/c12".
// Clip ids are unique only within a language.
func Key(ref audio.ClipReference) string {
	return ref.LanguageCode + "/" + ref.ClipID
}

// ParseKey splits a key made by Key.
func ParseKey(key string) (audio.ClipReference, bool) {
	lang, id, ok := strings.Cut(key, "/")
	if !ok || lang == "" || id == "" {
		return audio.ClipReference{}, false
	}
	return audio.ClipReference{ClipID: id, LanguageCode: lang}, true
}
