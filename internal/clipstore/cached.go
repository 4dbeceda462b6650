package clipstore

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/dgnsrekt/narrator/internal/cache"
	"github.com/dgnsrekt/narrator/pkg/audio"
)

// Store is the part of the clip cache a CachedSource needs;
// *cache.Manager and *cache.MemoryCache satisfy it.
type Store interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
}

// CachedSource serves clips from a store and fetches only the misses from
// the wrapped source.
type CachedSource struct {
	source audio.ClipSource
	store  Store
}

// NewCachedSource wraps source with store.
func NewCachedSource(source audio.ClipSource, store Store) *CachedSource {
	return &CachedSource{source: source, store: store}
}

// FetchClips returns the clips in request order.
func (s *CachedSource) FetchClips(ctx context.Context, ids []string, languageCode string) ([]audio.Clip, error) {
	clips := make([]audio.Clip, len(ids))
	var missing []string
	missingAt := make(map[string][]int)

	for i, id := range ids {
		key := cache.Key(audio.ClipReference{ClipID: id, LanguageCode: languageCode})
		if data, ok := s.store.Get(key); ok {
			clips[i] = audio.Clip{ID: id, LanguageCode: languageCode, Data: data}
			continue
		}
		if _, dup := missingAt[id]; !dup {
			missing = append(missing, id)
		}
		missingAt[id] = append(missingAt[id], i)
	}

	if len(missing) == 0 {
		return clips, nil
	}

	fetched, err := s.source.FetchClips(ctx, missing, languageCode)
	if err != nil {
		return nil, err
	}
	for _, clip := range fetched {
		if err := s.store.Put(cache.Key(clip.Reference()), clip.Data); err != nil {
			log.Debug("Clip not cached", "clip", clip.Reference(), "error", err)
		}
		for _, i := range missingAt[clip.ID] {
			clips[i] = clip
		}
		delete(missingAt, clip.ID)
	}
	for id := range missingAt {
		return nil, fmt.Errorf("%w: %s/%s", audio.ErrClipNotFound, languageCode, id)
	}
	return clips, nil
}

// Prefetch warms a cached source with refs, batchSize ids per request and
// at most workers requests in flight. It returns the number of clips
// fetched before the first error.
func Prefetch(ctx context.Context, source audio.ClipSource, refs []audio.ClipReference, batchSize, workers int) (int, error) {
	if batchSize <= 0 {
		batchSize = 16
	}
	if workers <= 0 {
		workers = 4
	}

	var batches []batch
	byLang := make(map[string]int)
	for _, ref := range refs {
		i, ok := byLang[ref.LanguageCode]
		if !ok || len(batches[i].ids) == batchSize {
			batches = append(batches, batch{lang: ref.LanguageCode})
			i = len(batches) - 1
			byLang[ref.LanguageCode] = i
		}
		batches[i].ids = append(batches[i].ids, ref.ClipID)
	}

	counts := make([]int, len(batches))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, b := range batches {
		i, b := i, b
		g.Go(func() error {
			clips, err := source.FetchClips(ctx, b.ids, b.lang)
			if err != nil {
				return fmt.Errorf("prefetch %s: %w", b.lang, err)
			}
			counts[i] = len(clips)
			return nil
		})
	}
	err := g.Wait()

	total := 0
	for _, n := range counts {
		total += n
	}
	log.Debug("Prefetched clips", "count", total, "batches", len(batches))
	return total, err
}

type batch struct {
	lang string
	ids  []string
}
