package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/opsconductor/toolengine/internal/types"
)

// Registry is the single source of truth for tool specifications. Reads
// are lock-free against an immutable index; Load/Refresh build a fresh
// index and atomically swap it in, so readers always see either the old
// or the new fully-loaded catalog, never a partial one.
type Registry struct {
	store  Store
	logger *slog.Logger
	index  atomic.Pointer[catalogIndex]
}

// catalogIndex is an immutable snapshot of the loaded catalog.
type catalogIndex struct {
	latest map[string]types.ToolSpec // name -> is_latest spec
	all    []types.ToolSpec          // every valid spec, sorted by name then version
}

// LoadResult reports the outcome of a catalog load.
type LoadResult struct {
	Loaded  int
	Skipped int
}

// NewRegistry creates a Registry reading from store. The registry is empty
// until Load is called.
func NewRegistry(store Store, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		store:  store,
		logger: logger,
	}
	r.index.Store(&catalogIndex{latest: map[string]types.ToolSpec{}})
	return r
}

// Load reads all specs from the store, validates each, and swaps in the new
// index. Invalid specs are skipped and logged; the load succeeds for the
// remaining specs (partial-success policy). A store failure leaves the
// current index untouched and returns CATALOG_UNREADABLE.
func (r *Registry) Load(ctx context.Context) (LoadResult, error) {
	specs, err := r.store.LoadSpecs(ctx)
	if err != nil {
		return LoadResult{}, err
	}

	index := &catalogIndex{latest: make(map[string]types.ToolSpec)}
	seen := make(map[string]bool)
	result := LoadResult{}

	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			result.Skipped++
			r.logger.Warn("skipping invalid tool spec",
				"tool", spec.Name,
				"version", spec.Version,
				"error", err)
			continue
		}

		key := spec.Name + "@" + spec.Version
		if seen[key] {
			result.Skipped++
			r.logger.Warn("skipping duplicate tool spec", "tool", spec.Name, "version", spec.Version)
			continue
		}
		seen[key] = true

		if spec.IsLatest {
			if _, dup := index.latest[spec.Name]; dup {
				result.Skipped++
				r.logger.Warn("skipping second is_latest spec for lineage", "tool", spec.Name, "version", spec.Version)
				continue
			}
			index.latest[spec.Name] = spec
		}

		index.all = append(index.all, spec)
		result.Loaded++
	}

	sort.Slice(index.all, func(i, j int) bool {
		if index.all[i].Name != index.all[j].Name {
			return index.all[i].Name < index.all[j].Name
		}
		return index.all[i].Version < index.all[j].Version
	})

	r.index.Store(index)

	r.logger.Info("tool catalog loaded", "loaded", result.Loaded, "skipped", result.Skipped)
	return result, nil
}

// Refresh re-invokes Load against the configured store. On store failure
// the previous index is kept and the error is logged, not propagated as
// fatal; callers get the error for reporting only.
func (r *Registry) Refresh(ctx context.Context) (LoadResult, error) {
	result, err := r.Load(ctx)
	if err != nil {
		r.logger.Error("catalog refresh failed, keeping previous index", "error", err)
		return LoadResult{}, err
	}
	return result, nil
}

// Get returns the is_latest spec for name.
func (r *Registry) Get(name string) (types.ToolSpec, error) {
	index := r.index.Load()
	spec, ok := index.latest[name]
	if !ok {
		return types.ToolSpec{}, types.NewError(types.TOOL_NOT_FOUND, fmt.Sprintf("tool %q not found", name))
	}
	return spec, nil
}

// List returns latest specs filtered by platform and/or category, ordered
// by name. Cross-platform tools always match a platform filter. Empty
// filter values match everything.
func (r *Registry) List(platform types.Platform, category string) []types.ToolSpec {
	index := r.index.Load()

	names := make([]string, 0, len(index.latest))
	for name := range index.latest {
		names = append(names, name)
	}
	sort.Strings(names)

	var specs []types.ToolSpec
	for _, name := range names {
		spec := index.latest[name]
		if platform != "" && !spec.Platform.Matches(platform) {
			continue
		}
		if category != "" && spec.Category != category {
			continue
		}
		specs = append(specs, spec)
	}

	return specs
}

// Len returns the number of latest tools currently indexed.
func (r *Registry) Len() int {
	return len(r.index.Load().latest)
}

// Health reports registry health: unhealthy when empty, healthy otherwise.
func (r *Registry) Health(ctx context.Context) types.HealthStatus {
	n := r.Len()
	if n == 0 {
		return types.Unhealthy("no tools loaded")
	}
	return types.Healthy(fmt.Sprintf("%d tools loaded", n))
}
