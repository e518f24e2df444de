package collector

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/mantis/gatewayd/internal/driver"
)

// Registry holds the versioned collector packs loaded from a drivers_root
// directory tree, reloadable via an atomic map swap so readers never
// observe a partially-merged view.
type Registry struct {
	root    string
	log     *zap.Logger
	packs   atomic.Pointer[map[string][]*Pack] // db_type -> packs
	drivers *driver.Registry
}

// NewRegistry constructs a Registry rooted at root. Call Reload to perform
// the initial load; a freshly constructed Registry serves no packs.
func NewRegistry(root string, drivers *driver.Registry, log *zap.Logger) *Registry {
	r := &Registry{root: root, drivers: drivers, log: log}
	empty := map[string][]*Pack{}
	r.packs.Store(&empty)
	return r
}

// Reload walks <drivers_root>/<db_type>/*.y?ml, parses each file into a
// Pack, discards packs missing supported_versions, and atomically swaps
// the live map. Returns the number of packs loaded and the first error
// encountered while reading the directory tree itself (a malformed
// individual file is logged and skipped, not fatal to the reload).
func (r *Registry) Reload() (int, error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return 0, err
	}

	next := map[string][]*Pack{}
	loaded := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dbType := entry.Name()
		dir := filepath.Join(r.root, dbType)
		files, err := os.ReadDir(dir)
		if err != nil {
			r.log.Warn("collector registry: failed to read db_type directory", zap.String("db_type", dbType), zap.Error(err))
			continue
		}
		for _, f := range files {
			if f.IsDir() || !isYAML(f.Name()) {
				continue
			}
			path := filepath.Join(dir, f.Name())
			pack, err := loadPack(path)
			if err != nil {
				r.log.Warn("collector registry: failed to parse pack", zap.String("file", path), zap.Error(err))
				continue
			}
			pack.SourceFile = f.Name()
			if pack.DBType == "" {
				pack.DBType = dbType
			}
			if !pack.Valid() {
				r.log.Warn("collector registry: pack missing supported_versions, skipped", zap.String("file", path))
				continue
			}
			next[dbType] = append(next[dbType], pack)
			loaded++
		}
	}

	r.packs.Store(&next)
	r.log.Info("collector registry: reload complete", zap.Int("packs_loaded", loaded))
	return loaded, nil
}

func isYAML(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

func loadPack(path string) (*Pack, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Pack
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// packsFor returns the currently-live packs for dbType, the snapshot this
// reader observed regardless of concurrent Reload calls.
func (r *Registry) packsFor(dbType string) []*Pack {
	m := *r.packs.Load()
	return m[dbType]
}

// GetMatchingConfigs returns every pack whose supported_versions contains
// the live connection's reported server version, for dbType. Never
// returns an error; an empty slice means no match, which is logged here
// together with the available ranges for diagnostics.
func (r *Registry) GetMatchingConfigs(ctx context.Context, db *sql.DB, dbType string) []*Pack {
	packs := r.packsFor(dbType)
	if len(packs) == 0 {
		return nil
	}

	drv, err := r.drivers.Get(dbType)
	if err != nil {
		r.log.Warn("collector registry: no driver registered for db_type, cannot extract version", zap.String("db_type", dbType))
		return nil
	}
	raw, err := drv.ServerVersion(ctx, db)
	if err != nil {
		r.log.Warn("collector registry: failed to read server version", zap.String("db_type", dbType), zap.Error(err))
		return nil
	}
	v := extractVersion(raw)

	var matches []*Pack
	for _, p := range packs {
		if p.SupportedVersions.inRange(v) {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		available := make([]string, len(packs))
		for i, p := range packs {
			available[i] = p.SourceFile + " [" + p.SupportedVersions.Min + "," + p.SupportedVersions.Max + "]"
		}
		r.log.Info("collector registry: no pack matched server version",
			zap.String("db_type", dbType),
			zap.String("server_version", raw),
			zap.Strings("available_ranges", available))
	}
	return matches
}

// GetConfig returns the single best-matching pack for the live connection:
// among GetMatchingConfigs' results, the one with the highest
// supported_versions.max. Returns nil if none match.
func (r *Registry) GetConfig(ctx context.Context, db *sql.DB, dbType string) *Pack {
	matches := r.GetMatchingConfigs(ctx, db, dbType)
	if len(matches) == 0 {
		return nil
	}
	sort.Slice(matches, func(i, j int) bool {
		return parseVersion(matches[i].SupportedVersions.Max).compare(parseVersion(matches[j].SupportedVersions.Max)) > 0
	})
	return matches[0]
}

// PacksByID returns the packs in the given slice whose PackID matches id;
// it searches only the packs passed in, not every db_type.
func PacksByID(packs []*Pack, id string) []*Pack {
	var out []*Pack
	for _, p := range packs {
		if p.PackID() == id {
			out = append(out, p)
		}
	}
	return out
}
