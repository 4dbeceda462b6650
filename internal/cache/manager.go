package cache

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

// Manager stacks the memory tier over the disk tier. Reads promote disk
// hits to memory; writes land in memory at once and on disk in the
// background.
type Manager struct {
	memory *MemoryCache
	disk   *DiskCache
	config Config

	writes sync.WaitGroup

	cleanupStop chan struct{}
	cleanupWg   sync.WaitGroup
	closeOnce   sync.Once

	mu    sync.Mutex
	stats ManagerStats
}

// ManagerStats aggregates both tiers.
type ManagerStats struct {
	Hits        int64
	Misses      int64
	MemoryHits  int64
	DiskHits    int64
	Promotions  int64
	CleanupRuns int64
	LastCleanup time.Time

	Memory Stats
	Disk   Stats
}

// NewManager opens both tiers.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.DiskPath == "" {
		return nil, errors.New("cache: disk path is required")
	}
	def := DefaultConfig()
	if cfg.MemoryCapacity <= 0 {
		cfg.MemoryCapacity = def.MemoryCapacity
	}
	if cfg.DiskCapacity <= 0 {
		cfg.DiskCapacity = def.DiskCapacity
	}

	disk, err := NewDiskCache(cfg.DiskPath, cfg.DiskCapacity, cfg.CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create disk cache: %w", err)
	}

	m := &Manager{
		memory:      NewMemoryCache(cfg.MemoryCapacity),
		disk:        disk,
		config:      cfg,
		cleanupStop: make(chan struct{}),
	}
	if cfg.CleanupInterval > 0 {
		m.startCleanup()
	}

	log.Debug("Clip cache opened",
		"path", cfg.DiskPath,
		"memory", humanize.IBytes(uint64(cfg.MemoryCapacity)),
		"disk", humanize.IBytes(uint64(cfg.DiskCapacity)),
		"entries", disk.Stats().ItemCount)
	return m, nil
}

// Get looks in memory, then on disk.
func (m *Manager) Get(key string) ([]byte, bool) {
	if data, ok := m.memory.Get(key); ok {
		m.count(func(s *ManagerStats) { s.Hits++; s.MemoryHits++ })
		return data, true
	}

	if data, ok := m.disk.Get(key); ok {
		_ = m.memory.Put(key, data)
		m.count(func(s *ManagerStats) { s.Hits++; s.DiskHits++; s.Promotions++ })
		return data, true
	}

	m.count(func(s *ManagerStats) { s.Misses++ })
	return nil, false
}

// Put stores value in memory and schedules the disk write. Payloads too
// large for memory still go to disk.
func (m *Manager) Put(key string, value []byte) error {
	if err := m.memory.Put(key, value); err != nil && !errors.Is(err, ErrItemTooLarge) {
		return fmt.Errorf("L1 cache error: %w", err)
	}

	m.writes.Add(1)
	go func() {
		defer m.writes.Done()
		if err := m.disk.Put(key, value); err != nil {
			log.Debug("Clip not written to disk cache", "key", key, "error", err)
		}
	}()
	return nil
}

// Delete removes key from both tiers.
func (m *Manager) Delete(key string) error {
	m.writes.Wait()
	return errors.Join(m.memory.Delete(key), m.disk.Delete(key))
}

// Clear empties both tiers.
func (m *Manager) Clear() error {
	m.writes.Wait()
	return errors.Join(m.memory.Clear(), m.disk.Clear())
}

// Contains reports whether either tier holds key.
func (m *Manager) Contains(key string) bool {
	return m.memory.Contains(key) || m.disk.Contains(key)
}

// Size returns the bytes held on disk.
func (m *Manager) Size() int64 {
	return m.disk.Size()
}

// Flush waits for background disk writes.
func (m *Manager) Flush() {
	m.writes.Wait()
}

// Stats returns aggregated statistics.
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	s := m.stats
	m.mu.Unlock()

	s.Memory = m.memory.Stats()
	s.Disk = m.disk.Stats()
	return s
}

// LogStats writes a one-line summary at debug level.
func (m *Manager) LogStats() {
	s := m.Stats()
	var rate float64
	if total := s.Hits + s.Misses; total > 0 {
		rate = float64(s.Hits) / float64(total) * 100
	}
	log.Debug("Clip cache stats",
		"hits", s.Hits,
		"misses", s.Misses,
		"hitRate", fmt.Sprintf("%.1f%%", rate),
		"memory", humanize.IBytes(uint64(s.Memory.Size)),
		"disk", humanize.IBytes(uint64(s.Disk.Size)),
		"entries", s.Disk.ItemCount)
}

// Close stops cleanup, finishes pending writes and saves the disk index.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.cleanupStop)
		m.cleanupWg.Wait()
		m.writes.Wait()
		m.LogStats()
		if cerr := m.disk.Close(); cerr != nil {
			err = fmt.Errorf("failed to close disk cache: %w", cerr)
		}
	})
	return err
}

func (m *Manager) count(fn func(s *ManagerStats)) {
	m.mu.Lock()
	fn(&m.stats)
	m.mu.Unlock()
}

func (m *Manager) startCleanup() {
	ticker := time.NewTicker(m.config.CleanupInterval)
	m.cleanupWg.Add(1)

	go func() {
		defer m.cleanupWg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.cleanup()
			case <-m.cleanupStop:
				return
			}
		}
	}()
}

// cleanup expires old entries and trims the disk tier.
func (m *Manager) cleanup() {
	m.count(func(s *ManagerStats) { s.CleanupRuns++; s.LastCleanup = time.Now() })

	if m.config.TTL > 0 {
		removed := m.disk.RemoveOlderThan(time.Now().Add(-m.config.TTL))
		pruned := m.memory.Prune(m.config.TTL)
		if removed+pruned > 0 {
			log.Debug("Expired cached clips", "disk", removed, "memory", pruned)
		}
	}
	if m.disk.Size() > m.config.DiskCapacity {
		m.disk.EvictLRU()
	}
}
