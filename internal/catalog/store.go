package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/opsconductor/toolengine/internal/database"
	"github.com/opsconductor/toolengine/internal/types"
)

// Store is a durable source of tool specifications.
type Store interface {
	// LoadSpecs reads every spec record from the underlying source.
	// Individual malformed records are NOT filtered here; schema
	// validation and skip accounting happen in the registry.
	LoadSpecs(ctx context.Context) ([]types.ToolSpec, error)
}

// FileStore reads tool specs from a directory of YAML files. A file may
// hold a single spec document or a list under a top-level "tools" key.
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// specFile is the on-disk document shape accepted by FileStore.
type specFile struct {
	Tools []types.ToolSpec `yaml:"tools"`
}

// LoadSpecs walks the catalog directory and parses every .yaml/.yml file.
// An unreadable directory is a CATALOG_UNREADABLE error; an unparsable
// file is skipped with the parse error attached to a zero-name spec so
// the registry counts it as invalid.
func (s *FileStore) LoadSpecs(ctx context.Context) ([]types.ToolSpec, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, types.WrapError(types.CATALOG_UNREADABLE,
			fmt.Sprintf("cannot read catalog directory %s", s.dir), err)
	}

	var specs []types.ToolSpec
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, types.WrapError(types.CATALOG_UNREADABLE,
				fmt.Sprintf("cannot read catalog file %s", path), err)
		}

		fileSpecs, err := parseSpecFile(raw)
		if err != nil {
			// Surface the file as one invalid spec so the reload result
			// counts it as skipped instead of aborting the load.
			specs = append(specs, types.ToolSpec{Description: fmt.Sprintf("unparsable file %s: %v", path, err)})
			continue
		}

		specs = append(specs, fileSpecs...)
	}

	return specs, nil
}

// parseSpecFile accepts either a {tools: [...]} document or a single
// inline spec document.
func parseSpecFile(raw []byte) ([]types.ToolSpec, error) {
	var file specFile
	if err := yaml.Unmarshal(raw, &file); err == nil && len(file.Tools) > 0 {
		return file.Tools, nil
	}

	var single types.ToolSpec
	if err := yaml.Unmarshal(raw, &single); err != nil {
		return nil, err
	}
	if single.Name == "" {
		return nil, fmt.Errorf("no tool specs found in document")
	}
	return []types.ToolSpec{single}, nil
}

// DBStore reads tool specs from the tool_specs table.
type DBStore struct {
	dao *database.ToolSpecDAO
}

// NewDBStore creates a DBStore backed by the given database.
func NewDBStore(db *database.DB) *DBStore {
	return &DBStore{dao: database.NewToolSpecDAO(db)}
}

// LoadSpecs reads every catalog row. Query failures are catalog-unreadable:
// fatal on first load, log-and-keep-old on refresh (registry policy).
func (s *DBStore) LoadSpecs(ctx context.Context) ([]types.ToolSpec, error) {
	specs, err := s.dao.ListAll(ctx)
	if err != nil {
		return nil, types.WrapError(types.CATALOG_UNREADABLE, "cannot read tool_specs table", err)
	}
	return specs, nil
}
