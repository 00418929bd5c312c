package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsconductor/toolengine/internal/types"
)

// stubStore returns canned specs or an error.
type stubStore struct {
	mu    sync.Mutex
	specs []types.ToolSpec
	err   error
}

func (s *stubStore) LoadSpecs(ctx context.Context) ([]types.ToolSpec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]types.ToolSpec, len(s.specs))
	copy(out, s.specs)
	return out, nil
}

func (s *stubStore) set(specs []types.ToolSpec, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.specs = specs
	s.err = err
}

func spec(name string, platform types.Platform) types.ToolSpec {
	return types.ToolSpec{
		Name:            name,
		Version:         "1.0.0",
		IsLatest:        true,
		Platform:        platform,
		Category:        "ops",
		Description:     name + " tool",
		CommandTemplate: "echo {text}",
		Parameters: []types.ToolParameter{
			{Name: "text", Type: types.ParameterTypeString, Required: true},
		},
	}
}

func TestRegistry_LoadAndGet(t *testing.T) {
	store := &stubStore{specs: []types.ToolSpec{
		spec("asset-query", types.PlatformCrossPlatform),
		spec("service-status", types.PlatformLinux),
	}}

	reg := NewRegistry(store, nil)
	result, err := reg.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Loaded)
	assert.Equal(t, 0, result.Skipped)

	got, err := reg.Get("asset-query")
	require.NoError(t, err)
	assert.Equal(t, "asset-query", got.Name)

	_, err = reg.Get("missing-tool")
	require.Error(t, err)
	assert.Equal(t, types.TOOL_NOT_FOUND, types.CodeOf(err))
}

func TestRegistry_PartialSuccess(t *testing.T) {
	invalid := spec("broken", types.PlatformLinux)
	invalid.CommandTemplate = "run {undeclared}"

	duplicateLatest := spec("asset-query", types.PlatformLinux)

	store := &stubStore{specs: []types.ToolSpec{
		spec("asset-query", types.PlatformCrossPlatform),
		invalid,
		duplicateLatest, // second is_latest for the same lineage
		spec("service-status", types.PlatformLinux),
	}}

	reg := NewRegistry(store, nil)
	result, err := reg.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Loaded)
	assert.Equal(t, 2, result.Skipped)

	// The invalid spec did not poison the rest.
	_, err = reg.Get("service-status")
	assert.NoError(t, err)
	_, err = reg.Get("broken")
	assert.Error(t, err)
}

func TestRegistry_RefreshKeepsOldIndexOnFailure(t *testing.T) {
	store := &stubStore{specs: []types.ToolSpec{spec("asset-query", types.PlatformLinux)}}

	reg := NewRegistry(store, nil)
	_, err := reg.Load(context.Background())
	require.NoError(t, err)

	store.set(nil, types.NewError(types.CATALOG_UNREADABLE, "source offline"))

	_, err = reg.Refresh(context.Background())
	require.Error(t, err)

	// Previous index still serves reads.
	got, err := reg.Get("asset-query")
	require.NoError(t, err)
	assert.Equal(t, "asset-query", got.Name)
}

func TestRegistry_List(t *testing.T) {
	store := &stubStore{specs: []types.ToolSpec{
		spec("zulu-probe", types.PlatformWindows),
		spec("asset-query", types.PlatformCrossPlatform),
		spec("service-status", types.PlatformLinux),
	}}

	reg := NewRegistry(store, nil)
	_, err := reg.Load(context.Background())
	require.NoError(t, err)

	all := reg.List("", "")
	require.Len(t, all, 3)
	assert.Equal(t, "asset-query", all[0].Name) // stable name ordering
	assert.Equal(t, "service-status", all[1].Name)
	assert.Equal(t, "zulu-probe", all[2].Name)

	linux := reg.List(types.PlatformLinux, "")
	require.Len(t, linux, 2) // cross-platform always included
	assert.Equal(t, "asset-query", linux[0].Name)
	assert.Equal(t, "service-status", linux[1].Name)

	ops := reg.List("", "ops")
	assert.Len(t, ops, 3)
	assert.Empty(t, reg.List("", "storage"))
}

func TestRegistry_ConcurrentReadDuringRefresh(t *testing.T) {
	store := &stubStore{specs: []types.ToolSpec{
		spec("asset-query", types.PlatformLinux),
		spec("service-status", types.PlatformLinux),
	}}

	reg := NewRegistry(store, nil)
	_, err := reg.Load(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				// Readers must always see a complete index.
				n := len(reg.List("", ""))
				assert.Contains(t, []int{1, 2}, n)
			}
		}()
	}

	for j := 0; j < 50; j++ {
		if j%2 == 0 {
			store.set([]types.ToolSpec{spec("asset-query", types.PlatformLinux)}, nil)
		} else {
			store.set([]types.ToolSpec{
				spec("asset-query", types.PlatformLinux),
				spec("service-status", types.PlatformLinux),
			}, nil)
		}
		_, err := reg.Refresh(context.Background())
		require.NoError(t, err)
	}

	wg.Wait()
}

func TestFileStore_LoadSpecs(t *testing.T) {
	dir := t.TempDir()

	multi := `
tools:
  - name: network-ping
    version: 1.0.0
    is_latest: true
    platform: cross-platform
    description: ICMP probe
    command_template: "ping -c {count} {host}"
    parameters:
      - name: host
        type: string
        required: true
      - name: count
        type: int
        default: "3"
`
	single := `
name: service-status
version: 2.1.0
is_latest: true
platform: linux
category: service
description: systemd unit status
command_template: "systemctl status {unit}"
parameters:
  - name: unit
    type: string
    required: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "network.yaml"), []byte(multi), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "service.yml"), []byte(single), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	specs, err := NewFileStore(dir).LoadSpecs(context.Background())
	require.NoError(t, err)
	require.Len(t, specs, 2)
}

func TestFileStore_MissingDirIsUnreadable(t *testing.T) {
	_, err := NewFileStore("/nonexistent/catalog").LoadSpecs(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.NewError(types.CATALOG_UNREADABLE, "")))
}

func TestFileStore_MalformedFileCountsAsSkipped(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("{{not yaml"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.yaml"), []byte(`
name: asset-query
version: 1.0.0
is_latest: true
platform: cross-platform
command_template: "asset-query {id}"
parameters:
  - name: id
    type: string
    required: true
`), 0o644))

	store := NewFileStore(dir)
	reg := NewRegistry(store, nil)

	result, err := reg.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Loaded)
	assert.Equal(t, 1, result.Skipped)
}
