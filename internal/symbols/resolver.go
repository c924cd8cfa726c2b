package symbols

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/rendis/nodeforge/internal/assets"
	"github.com/rendis/nodeforge/internal/catalog"
	"github.com/rendis/nodeforge/internal/document"
	"github.com/rendis/nodeforge/internal/macros"
	"github.com/rendis/nodeforge/internal/metrics"
	"github.com/rendis/nodeforge/internal/properties"
	"github.com/rendis/nodeforge/internal/reflection"
	"github.com/rendis/nodeforge/pkg/schema"
)

// ErrDecline is returned by a strategy when the symbol is not its concern.
var ErrDecline = errors.New("strategy declined")

// Strategy tries to bind a request. It returns ErrDecline to pass the
// request on, or any other error to stop resolution.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, doc *document.Document, req *schema.NodeRequest) (*Binding, error)
}

// BlueprintSource lists the blueprint documents known to the asset index.
// *assets.Index satisfies it.
type BlueprintSource interface {
	Blueprints() []assets.Blueprint
}

// Config holds the collaborators of a Resolver.
type Config struct {
	Types      *reflection.Registry
	Catalog    *catalog.Catalog
	Macros     *macros.Finder
	Properties *properties.Locator
	Blueprints BlueprintSource
	Aliases    *Aliases
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// Resolver turns a symbolic request into a Binding by running its strategies
// in order. The first strategy that does not decline decides the outcome.
type Resolver struct {
	strategies []Strategy
	aliases    *Aliases
	macros     *macros.Finder
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// New creates a Resolver with the standard chain: builtin, macro, accessor,
// struct, catalog, function.
func New(cfg Config) *Resolver {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Aliases == nil {
		cfg.Aliases = DefaultAliases()
	}
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.New()
	}
	if cfg.Properties == nil && cfg.Types != nil {
		cfg.Properties = properties.NewLocator(cfg.Types, cfg.Logger)
	}
	return NewWithStrategies(cfg,
		&builtinStrategy{types: cfg.Types, aliases: cfg.Aliases, blueprints: cfg.Blueprints},
		&macroStrategy{finder: cfg.Macros},
		&accessorStrategy{catalog: cfg.Catalog, types: cfg.Types, locator: cfg.Properties, logger: cfg.Logger},
		&structStrategy{types: cfg.Types},
		&catalogStrategy{catalog: cfg.Catalog, types: cfg.Types, finder: cfg.Macros, logger: cfg.Logger},
		&functionStrategy{types: cfg.Types, logger: cfg.Logger},
	)
}

// NewWithStrategies creates a Resolver running the given strategies in order.
func NewWithStrategies(cfg Config, strategies ...Strategy) *Resolver {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Aliases == nil {
		cfg.Aliases = DefaultAliases()
	}
	return &Resolver{
		strategies: strategies,
		aliases:    cfg.Aliases,
		macros:     cfg.Macros,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
	}
}

// Strategies lists the strategy names in resolution order.
func (r *Resolver) Strategies() []string {
	out := make([]string, len(r.strategies))
	for i, s := range r.strategies {
		out[i] = s.Name()
	}
	return out
}

// Canonical maps a symbol to its canonical spelling: built-in aliases first,
// then macro aliases. Unknown symbols come back trimmed. Canonical is
// idempotent.
func (r *Resolver) Canonical(symbol string) string {
	symbol = strings.TrimSpace(symbol)
	if name, ok := r.aliases.Canonical(symbol); ok {
		return name
	}
	if r.macros != nil {
		if name, ok := r.macros.Canonical(symbol); ok {
			return name
		}
	}
	return symbol
}

// Resolve canonicalizes the request symbol once and runs the chain.
// A symbol no strategy claims is NOT_FOUND with the attempted strategies
// in the error details.
func (r *Resolver) Resolve(ctx context.Context, doc *document.Document, req *schema.NodeRequest) (*Binding, error) {
	if strings.TrimSpace(req.Symbol) == "" {
		return nil, schema.NewError(schema.ErrCodeInvalidParameter, "function_name is required")
	}
	creq := *req
	creq.Symbol = r.Canonical(req.Symbol)
	log := r.logger.With(slog.String("symbol", req.Symbol))
	if creq.Symbol != strings.TrimSpace(req.Symbol) {
		log = log.With(slog.String("canonical", creq.Symbol))
	}

	attempted := make([]string, 0, len(r.strategies))
	for _, s := range r.strategies {
		if err := ctx.Err(); err != nil {
			return nil, schema.NewError(schema.ErrCodeCancelled, "symbol resolution cancelled").WithCause(err)
		}
		attempted = append(attempted, s.Name())

		b, err := s.Resolve(ctx, doc, &creq)
		if errors.Is(err, ErrDecline) {
			r.metrics.Resolution(s.Name(), "declined")
			continue
		}
		if err != nil {
			r.metrics.Resolution(s.Name(), "failed")
			log.Debug("strategy failed", slog.String("strategy", s.Name()), slog.String("error", err.Error()))
			return nil, annotate(err, s.Name(), attempted)
		}
		b.Strategy = s.Name()
		r.metrics.Resolution(s.Name(), "resolved")
		log.Debug("symbol resolved",
			slog.String("strategy", s.Name()),
			slog.String("kind", string(b.Kind)),
			slog.String("owner", b.Owner),
			slog.String("member", b.Member),
		)
		return b, nil
	}

	return nil, schema.NewErrorf(schema.ErrCodeNotFound,
		"Function '%s' not found and not a recognized control flow node", strings.TrimSpace(req.Symbol)).
		WithDetails(map[string]any{"attempted": attempted})
}

func annotate(err error, strategy string, attempted []string) error {
	var fe *schema.ForgeError
	if !errors.As(err, &fe) {
		return schema.NewError(schema.ErrCodeExecution, err.Error()).WithCause(err).WithStrategy(strategy)
	}
	if fe.Strategy == "" {
		fe = fe.WithStrategy(strategy)
	}
	if fe.Code == schema.ErrCodeNotFound && fe.Details == nil {
		fe = fe.WithDetails(map[string]any{"attempted": attempted})
	}
	return fe
}
