package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/narrator/internal/cache"
	"github.com/dgnsrekt/narrator/internal/clipstore"
	"github.com/dgnsrekt/narrator/internal/config"
	"github.com/dgnsrekt/narrator/internal/device"
	"github.com/dgnsrekt/narrator/internal/uitree"
	"github.com/dgnsrekt/narrator/pkg/audio"
	"github.com/dgnsrekt/narrator/pkg/narration"
)

// runtime is an assembled engine plus the resources it must release.
type runtime struct {
	engine  *narration.Engine
	tree    *uitree.Tree
	catalog *clipstore.Catalog
	source  audio.ClipSource
	cache   *cache.Manager
}

type runtimeOptions struct {
	// tree is the screen; nil means one element per catalog key when
	// catalogScreen is set and an empty screen otherwise.
	tree          *uitree.Tree
	catalogScreen bool

	presence    device.Source
	silent      bool
	onQueueDone func(narration.NodeID)
}

// newRuntime wires the catalog, clip source, cache and device signal into
// a narration engine. The engine is not started.
func newRuntime(ctx context.Context, cfg config.Config, opts runtimeOptions) (*runtime, error) {
	if cfg.Clips.Catalog == "" {
		return nil, errors.New("no audio-id catalog configured (set clips.catalog or --catalog)")
	}
	catalog, err := clipstore.LoadCatalog(cfg.Clips.Catalog)
	if err != nil {
		return nil, err
	}

	rt := &runtime{catalog: catalog, tree: opts.tree}
	if rt.tree == nil {
		lang := ""
		if opts.catalogScreen {
			lang = cfg.Language.Default
		}
		if rt.tree, err = catalogScreen(catalog, lang); err != nil {
			return nil, err
		}
	}

	switch {
	case cfg.Clips.BackendURL != "":
		rt.source, err = clipstore.NewHTTPSource(cfg.Clips.BackendURL, clipstore.HTTPOptions{
			RequestsPerSecond: cfg.Clips.RequestsPerSecond,
			Timeout:           cfg.Clips.Timeout,
		})
	case cfg.Clips.Dir != "":
		rt.source, err = clipstore.NewDirSource(cfg.Clips.Dir)
	default:
		err = errors.New("no clip source configured (set clips.dir or clips.backend_url)")
	}
	if err != nil {
		return nil, err
	}

	if cfg.Clips.Cache.Enabled {
		if rt.cache, err = openCache(cfg.Clips.Cache); err != nil {
			return nil, err
		}
		rt.source = clipstore.NewCachedSource(rt.source, rt.cache)
	}

	var presence <-chan bool
	if opts.presence != nil {
		if presence, err = opts.presence.Watch(ctx); err != nil {
			rt.Close()
			return nil, fmt.Errorf("unable to watch headphones: %w", err)
		}
	}

	kind, backendOpts := cfg.BackendOptions()
	if opts.silent {
		kind = audio.BackendNull
	}

	rt.engine, err = narration.NewEngine(narration.EngineConfig{
		OpenBackend: func() (audio.Backend, error) {
			return audio.OpenBackend(kind, backendOpts)
		},
		Source:          rt.source,
		Lookup:          catalog,
		Tree:            rt.tree,
		Settings:        cfg.SettingsOptions(),
		Language:        cfg.Language.Default,
		Device:          presence,
		AnnounceChanges: cfg.Settings.Announce,
		OnQueueDone:     opts.onQueueDone,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}

	session := rt.engine.Session
	rt.tree.OnDetach(func(ids []narration.NodeID) {
		for _, id := range ids {
			if err := session.Blur(id); err != nil {
				log.Debug("Session not running", "error", err)
			}
		}
	})
	return rt, nil
}

func openCache(cfg config.CacheConfig) (*cache.Manager, error) {
	dir := cfg.Dir
	if dir == "" {
		dataDir, err := config.DataDir()
		if err != nil {
			return nil, fmt.Errorf("unable to locate clip cache: %w", err)
		}
		dir = filepath.Join(dataDir, "clips")
	}

	cc := cache.DefaultConfig()
	cc.MemoryCapacity = int64(cfg.MemoryMB) << 20
	cc.DiskCapacity = int64(cfg.DiskMB) << 20
	cc.DiskPath = dir
	cc.CompressionLevel = cfg.Compression
	return cache.NewManager(cc)
}

// prefetch warms the clip cache for every language in languages.
func (rt *runtime) prefetch(ctx context.Context, languages []string) {
	if rt.cache == nil {
		return
	}
	for _, lang := range languages {
		n, err := clipstore.Prefetch(ctx, rt.source, rt.catalog.References(lang), 16, 4)
		if err != nil && ctx.Err() == nil {
			log.Warn("Clip prefetch incomplete", "language", lang, "error", err)
		}
		log.Debug("Prefetched clips", "language", lang, "clips", n)
	}
	rt.cache.LogStats()
}

// Close releases the cache. The engine releases the audio output when its
// Run returns.
func (rt *runtime) Close() {
	if rt.cache == nil {
		return
	}
	if err := rt.cache.Close(); err != nil {
		log.Warn("Failed to close clip cache", "error", err)
	}
}

// catalogScreen builds a flat screen with one focusable element per
// catalog key of lang, for trying clips without a tree file. An empty lang
// gives an empty screen.
func catalogScreen(catalog *clipstore.Catalog, lang string) (*uitree.Tree, error) {
	root := &uitree.Node{}
	for _, key := range catalog.Keys(lang) {
		root.Children = append(root.Children, &uitree.Node{
			ID:        narration.NodeID(key),
			Key:       key,
			Focusable: true,
		})
	}
	return uitree.New(root)
}
