package assets

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/rendis/nodeforge/internal/store"
	"github.com/rendis/nodeforge/pkg/schema"
)

// Pin is a pin exposed by a reusable subgraph.
type Pin struct {
	Name      string              `json:"name" yaml:"name"`
	Type      string              `json:"type" yaml:"type"`
	SubType   string              `json:"sub_type,omitempty" yaml:"sub_type,omitempty"`
	Direction schema.PinDirection `json:"direction" yaml:"direction"`
	Default   string              `json:"default,omitempty" yaml:"default,omitempty"`
}

// Graph is a named reusable subgraph inside a container.
type Graph struct {
	Name string `json:"name" yaml:"name"`
	Pins []Pin  `json:"pins,omitempty" yaml:"pins,omitempty"`
}

// Container is an asset holding named subgraphs, such as a macro library.
type Container struct {
	Path   string  `json:"path" yaml:"path"`
	Class  string  `json:"class,omitempty" yaml:"class,omitempty"`
	Graphs []Graph `json:"graphs" yaml:"graphs"`
}

// Name is the asset name: the object name of the path, or its last segment.
func (c *Container) Name() string {
	p := c.Path
	if i := strings.LastIndex(p, "/"); i >= 0 {
		p = p[i+1:]
	}
	if i := strings.LastIndex(p, "."); i >= 0 {
		p = p[i+1:]
	}
	return p
}

// Graph selects a subgraph by exact case-insensitive name, falling back to the
// only subgraph when the container has exactly one.
func (c *Container) Graph(name string) (*Graph, bool) {
	for i := range c.Graphs {
		if strings.EqualFold(c.Graphs[i].Name, name) {
			return &c.Graphs[i], true
		}
	}
	if len(c.Graphs) == 1 {
		return &c.Graphs[0], true
	}
	return nil, false
}

// HasGraph reports an exact case-insensitive subgraph match.
func (c *Container) HasGraph(name string) bool {
	for _, g := range c.Graphs {
		if strings.EqualFold(g.Name, name) {
			return true
		}
	}
	return false
}

// Blueprint summarizes a document asset for cast-target scans.
type Blueprint struct {
	Name           string
	Path           string
	ParentClass    string
	GeneratedClass string
}

// Source supplies the persisted assets and documents. store.Store satisfies it.
type Source interface {
	ListAssets(ctx context.Context, filter store.AssetFilter) ([]*store.AssetRecord, error)
	ListDocuments(ctx context.Context) ([]*store.DocumentRecord, error)
}

// Index is the in-memory asset registry consulted during resolution.
// It is safe for concurrent use; Refresh swaps its contents atomically.
type Index struct {
	mu         sync.RWMutex
	containers map[string]*Container
	blueprints map[string]Blueprint
	logger     *slog.Logger
}

// NewIndex creates an empty index.
func NewIndex(logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	return &Index{
		containers: make(map[string]*Container),
		blueprints: make(map[string]Blueprint),
		logger:     logger,
	}
}

// Add registers or replaces a container.
func (x *Index) Add(c *Container) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.containers[normalizePath(c.Path)] = c
}

// AddBlueprint registers or replaces a blueprint summary.
func (x *Index) AddBlueprint(b Blueprint) {
	if b.GeneratedClass == "" {
		b.GeneratedClass = b.Name + "_C"
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.blueprints[strings.ToLower(b.Name)] = b
}

// Load fetches a container by object path. Both "/Pkg/Name.Name" and the bare
// package path "/Pkg/Name" are accepted.
func (x *Index) Load(path string) (*Container, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	c, ok := x.containers[normalizePath(path)]
	return c, ok
}

// Query returns the containers under any of roots, sorted by path.
func (x *Index) Query(roots []string) []*Container {
	x.mu.RLock()
	out := make([]*Container, 0, len(x.containers))
	for _, c := range x.containers {
		if underAny(c.Path, roots) {
			out = append(out, c)
		}
	}
	x.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Blueprints returns every known blueprint, sorted by name.
func (x *Index) Blueprints() []Blueprint {
	x.mu.RLock()
	out := make([]Blueprint, 0, len(x.blueprints))
	for _, b := range x.blueprints {
		out = append(out, b)
	}
	x.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Counts reports the number of containers and blueprints.
func (x *Index) Counts() (containers, blueprints int) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.containers), len(x.blueprints)
}

// Refresh rebuilds the index from src plus the built-in seed containers.
// Records that fail to decode are skipped and logged.
func (x *Index) Refresh(ctx context.Context, src Source) error {
	seed, err := SeedContainers()
	if err != nil {
		return err
	}
	containers := make(map[string]*Container, len(seed))
	for _, c := range seed {
		containers[normalizePath(c.Path)] = c
	}

	records, err := src.ListAssets(ctx, store.AssetFilter{})
	if err != nil {
		return schema.NewError(schema.ErrCodeStore, "list assets").WithCause(err)
	}
	for _, rec := range records {
		var c Container
		if err := json.Unmarshal(rec.Body, &c); err != nil {
			x.logger.Warn("skipping undecodable asset", slog.String("path", rec.Path), slog.String("error", err.Error()))
			continue
		}
		c.Path = rec.Path
		if c.Class == "" {
			c.Class = rec.Class
		}
		containers[normalizePath(c.Path)] = &c
	}

	docs, err := src.ListDocuments(ctx)
	if err != nil {
		return schema.NewError(schema.ErrCodeStore, "list documents").WithCause(err)
	}
	blueprints := make(map[string]Blueprint, len(docs))
	for _, d := range docs {
		blueprints[strings.ToLower(d.Name)] = Blueprint{
			Name:           d.Name,
			Path:           d.Path,
			ParentClass:    d.ParentClass,
			GeneratedClass: d.Name + "_C",
		}
	}

	x.mu.Lock()
	x.containers = containers
	x.blueprints = blueprints
	x.mu.Unlock()

	x.logger.Info("asset index refreshed",
		slog.Int("containers", len(containers)),
		slog.Int("blueprints", len(blueprints)),
	)
	return nil
}

// normalizePath maps "/Pkg/Name" and "/Pkg/Name.Name" to the same key.
func normalizePath(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	slash := strings.LastIndex(p, "/")
	if slash >= 0 && !strings.Contains(p[slash:], ".") {
		p = p + "." + p[slash+1:]
	}
	return p
}

func underAny(path string, roots []string) bool {
	if len(roots) == 0 {
		return true
	}
	lp := strings.ToLower(path)
	for _, r := range roots {
		r = strings.ToLower(strings.TrimSuffix(r, "/"))
		if lp == r || strings.HasPrefix(lp, r+"/") || strings.HasPrefix(lp, r+".") {
			return true
		}
	}
	return false
}
