package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/rendis/nodeforge/internal/assets"
	"github.com/rendis/nodeforge/internal/catalog"
	"github.com/rendis/nodeforge/internal/document"
	"github.com/rendis/nodeforge/internal/editor"
	"github.com/rendis/nodeforge/internal/expressions"
	"github.com/rendis/nodeforge/internal/macros"
	"github.com/rendis/nodeforge/internal/metrics"
	"github.com/rendis/nodeforge/internal/reflection"
	"github.com/rendis/nodeforge/internal/search"
	"github.com/rendis/nodeforge/internal/store"
	"github.com/rendis/nodeforge/internal/symbols"
	"github.com/rendis/nodeforge/internal/synth"
	"github.com/rendis/nodeforge/internal/validation"
)

// app holds the wired components shared by the subcommands.
type app struct {
	cfg        Config
	logger     *slog.Logger
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	validator  *validation.ManifestValidator
	store      store.Store
	types      *reflection.Registry
	catalog    *catalog.Catalog
	index      *assets.Index
	editor     *editor.Editor
	search     *search.Service
	synth      *synth.Synthesizer
	predicates expressions.Engine
}

// newApp opens the store and builds every component from cfg. The asset
// index is populated from the store before returning.
func newApp(ctx context.Context, cfg Config, logger *slog.Logger) (*app, error) {
	v, err := validation.NewManifestValidator()
	if err != nil {
		return nil, fmt.Errorf("manifest validator: %w", err)
	}
	predicates, err := expressions.NewPredicateEngine(cfg.ExprEngine)
	if err != nil {
		return nil, err
	}

	st, err := store.NewLibSQLStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	a, err := buildApp(ctx, cfg, logger, st, v, predicates)
	if err != nil {
		st.Close()
		return nil, err
	}
	return a, nil
}

// buildApp wires the components on top of an open store.
func buildApp(ctx context.Context, cfg Config, logger *slog.Logger, st store.Store, v *validation.ManifestValidator, predicates expressions.Engine) (*app, error) {
	types, err := reflection.NewBuiltinRegistry(v, cfg.ManifestPaths...)
	if err != nil {
		return nil, fmt.Errorf("load type manifests: %w", err)
	}
	cat, err := catalog.Build(types, macros.Default().Names())
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}

	for _, path := range cfg.AssetPaths {
		if _, err := importManifestFile(ctx, st, v, path); err != nil {
			return nil, fmt.Errorf("import %s: %w", path, err)
		}
	}

	idx := assets.NewIndex(logger)
	if err := idx.Refresh(ctx, st); err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	ed := editor.New(st, logger, m)

	resolver := symbols.New(symbols.Config{
		Types:      types,
		Catalog:    cat,
		Macros:     macros.NewFinder(idx, cfg.MacroRoots, logger),
		Blueprints: idx,
		Metrics:    m,
		Logger:     logger,
	})

	containers, blueprints := idx.Counts()
	logger.Info("components ready",
		slog.Int("types", types.Count()),
		slog.Int("containers", containers),
		slog.Int("blueprints", blueprints),
		slog.String("expr_engine", predicates.Name()),
	)

	return &app{
		cfg:       cfg,
		logger:    logger,
		registry:  reg,
		metrics:   m,
		validator: v,
		store:     st,
		types:     types,
		catalog:   cat,
		index:     idx,
		editor:    ed,
		search: search.NewService(search.Config{
			Catalog:    cat,
			Types:      types,
			Documents:  st,
			Metrics:    m,
			Logger:     logger,
			DefaultMax: cfg.MaxResults,
		}),
		synth:      synth.New(synth.Config{Resolver: resolver, Editor: ed, Types: types, Metrics: m, Logger: logger}),
		predicates: predicates,
	}, nil
}

// Close drains the editing context and closes the store.
func (a *app) Close() error {
	a.editor.Shutdown()
	return a.store.Close()
}

// importResult reports what a manifest import stored.
type importResult struct {
	Kind  string   `json:"kind"`
	Names []string `json:"names"`
}

// importManifestFile reads a manifest from disk and stores its contents.
func importManifestFile(ctx context.Context, st store.Store, v *validation.ManifestValidator, path string) (importResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return importResult{}, err
	}
	return importManifest(ctx, st, v, data)
}

// importManifest stores an asset manifest (top-level "containers") or a
// document manifest. Existing records with the same key are replaced.
func importManifest(ctx context.Context, st store.Store, v *validation.ManifestValidator, data []byte) (importResult, error) {
	var probe map[string]any
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return importResult{}, fmt.Errorf("decode manifest: %w", err)
	}

	if _, ok := probe["containers"]; ok {
		containers, err := assets.ParseManifest(data, v)
		if err != nil {
			return importResult{}, err
		}
		res := importResult{Kind: validation.ManifestAssets}
		for _, c := range containers {
			rec, err := assets.Record(c)
			if err != nil {
				return importResult{}, err
			}
			if err := st.UpsertAsset(ctx, rec); err != nil {
				return importResult{}, err
			}
			res.Names = append(res.Names, rec.Path)
		}
		return res, nil
	}

	doc, err := document.ParseManifest(data, v)
	if err != nil {
		return importResult{}, err
	}
	body, err := doc.Encode()
	if err != nil {
		return importResult{}, err
	}
	if err := st.PutDocument(ctx, &store.DocumentRecord{
		Name:        doc.Name,
		Path:        doc.Path,
		ParentClass: doc.ParentClass,
		Body:        body,
	}); err != nil {
		return importResult{}, err
	}
	return importResult{Kind: validation.ManifestDocument, Names: []string{doc.Name}}, nil
}

func describeImport(r importResult) string {
	return fmt.Sprintf("imported %s manifest: %s", r.Kind, strings.Join(r.Names, ", "))
}
