package macros

import (
	"context"
	"log/slog"
	"strings"

	"github.com/rendis/nodeforge/internal/assets"
	"github.com/rendis/nodeforge/pkg/schema"
)

// AssetIndex is the asset lookup surface the finder needs. *assets.Index satisfies it.
type AssetIndex interface {
	Load(path string) (*assets.Container, bool)
	Query(roots []string) []*assets.Container
}

// Result is a located macro: the container and the subgraph inside it.
type Result struct {
	Name      string
	Container *assets.Container
	Graph     *assets.Graph
	// Source is "well_known", "index" or "fallback".
	Source string
}

// Finder locates the container that exposes a macro subgraph.
type Finder struct {
	index  AssetIndex
	table  *Table
	roots  []string
	logger *slog.Logger
}

// NewFinder creates a Finder. Empty roots select the table's default roots.
func NewFinder(index AssetIndex, roots []string, logger *slog.Logger) *Finder {
	if logger == nil {
		logger = slog.Default()
	}
	t := Default()
	if len(roots) == 0 {
		roots = t.Roots()
	}
	return &Finder{index: index, table: t, roots: roots, logger: logger}
}

// Canonical maps a symbol to its canonical macro name.
func (f *Finder) Canonical(symbol string) (string, bool) {
	return f.table.Canonical(symbol)
}

// Find locates the macro named by symbol. Sources are tried in order: the
// well-known containers, an index query for an exact subgraph name, then any
// macro-looking container with a single subgraph.
func (f *Finder) Find(ctx context.Context, symbol string) (Result, error) {
	name, ok := f.table.Canonical(symbol)
	if !ok {
		name = strings.TrimSpace(symbol)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, schema.NewError(schema.ErrCodeCancelled, "macro lookup cancelled").WithCause(err)
	}

	for _, path := range f.table.WellKnownPaths(name) {
		c, ok := f.index.Load(path)
		if !ok || len(c.Graphs) == 0 {
			continue
		}
		if g, ok := c.Graph(name); ok {
			return f.found(name, c, g, "well_known"), nil
		}
	}

	candidates := f.index.Query(f.roots)
	for _, c := range candidates {
		if c.HasGraph(name) {
			g, _ := c.Graph(name)
			return f.found(name, c, g, "index"), nil
		}
	}

	for _, c := range candidates {
		lname := strings.ToLower(c.Name())
		if (strings.Contains(lname, "macro") || strings.Contains(lname, "standard")) && len(c.Graphs) == 1 {
			return f.found(name, c, &c.Graphs[0], "fallback"), nil
		}
	}

	return Result{}, schema.NewErrorf(schema.ErrCodeNotFound,
		"macro %q not found in any macro library", name).
		WithDetails(map[string]any{"roots": f.roots})
}

func (f *Finder) found(name string, c *assets.Container, g *assets.Graph, source string) Result {
	f.logger.Debug("macro located",
		slog.String("macro", name),
		slog.String("container", c.Path),
		slog.String("graph", g.Name),
		slog.String("source", source),
	)
	return Result{Name: name, Container: c, Graph: g, Source: source}
}
