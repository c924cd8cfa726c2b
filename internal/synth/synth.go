// Package synth instantiates resolved bindings as graph nodes.
package synth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rendis/nodeforge/internal/catalog"
	"github.com/rendis/nodeforge/internal/document"
	"github.com/rendis/nodeforge/internal/editor"
	"github.com/rendis/nodeforge/internal/metrics"
	"github.com/rendis/nodeforge/internal/reflection"
	"github.com/rendis/nodeforge/internal/symbols"
	"github.com/rendis/nodeforge/pkg/schema"
)

// Resolver binds a symbolic request against a document. *symbols.Resolver
// satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, doc *document.Document, req *schema.NodeRequest) (*symbols.Binding, error)
}

// Editor runs a mutation on the single editing context. *editor.Editor
// satisfies it.
type Editor interface {
	Edit(ctx context.Context, name string, fn editor.EditFunc) error
}

// Config holds the collaborators of a Synthesizer.
type Config struct {
	Resolver Resolver
	Editor   Editor
	Types    *reflection.Registry
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

// Synthesizer creates nodes from symbolic requests.
type Synthesizer struct {
	resolver Resolver
	editor   Editor
	coercer  *Coercer
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates a Synthesizer.
func New(cfg Config) *Synthesizer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Synthesizer{
		resolver: cfg.Resolver,
		editor:   cfg.Editor,
		coercer:  NewCoercer(cfg.Types, cfg.Logger),
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}
}

// Create resolves the request, builds the node and commits it to the
// document. Every step runs inside one edit, so a failure leaves the
// document untouched. The result always carries success and either a
// message or an error.
func (s *Synthesizer) Create(ctx context.Context, req schema.NodeRequest) *schema.NodeResult {
	res := &schema.NodeResult{BlueprintName: req.Document, FunctionName: req.Symbol}
	if req.Document == "" {
		return fail(res, schema.NewError(schema.ErrCodeInvalidParameter, "blueprint_name is required"))
	}
	req.Params = schema.FlattenParams(req.Params)

	log := s.logger.With(slog.String("document", req.Document), slog.String("symbol", req.Symbol))

	var node *document.Node
	var binding *symbols.Binding
	err := s.editor.Edit(ctx, req.Document, func(ctx context.Context, doc *document.Document) error {
		b, err := s.resolver.Resolve(ctx, doc, &req)
		if err != nil {
			return err
		}
		pins, err := Allocate(b)
		if err != nil {
			return err
		}
		if err := s.coercer.Apply(pins, req.Params); err != nil {
			return err
		}

		n := &document.Node{
			Kind:     b.Kind,
			Class:    nodeClass(b),
			Title:    b.Title,
			Position: req.Position,
			Owner:    b.Owner,
			Member:   b.Member,
			Pins:     pins,
		}
		if err := doc.FindOrCreateGraph(req.Graph).AddNode(n); err != nil {
			return err
		}
		doc.MarkModified()
		node, binding = n, b
		return nil
	})
	if err != nil {
		log.Info("node creation failed", slog.String("error", err.Error()))
		return fail(res, err)
	}

	s.metrics.NodeCreated(string(node.Kind))
	log.Debug("node created",
		slog.String("node_id", node.ID),
		slog.String("kind", string(node.Kind)),
		slog.String("strategy", binding.Strategy),
	)

	pos := node.Position
	res.Success = true
	res.Message = fmt.Sprintf("Created %s node '%s'", node.Kind, node.Title)
	res.NodeType = node.Kind
	res.NodeClass = node.Class
	res.NodeID = node.ID
	res.NodeTitle = node.Title
	res.Position = &pos
	res.Pins = node.Pins
	if node.Kind == schema.KindCallFunction {
		res.ClassName = node.Owner
	}
	return res
}

func nodeClass(b *symbols.Binding) string {
	if b.NodeClass != "" {
		return b.NodeClass
	}
	return catalog.KindClass[b.Kind]
}

func fail(res *schema.NodeResult, err error) *schema.NodeResult {
	res.Success = false
	res.Error = err.Error()
	res.ErrorCode = schema.CodeOf(err)
	var fe *schema.ForgeError
	if errors.As(err, &fe) {
		res.Error = fe.Message
	}
	return res
}
