package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rendis/nodeforge/internal/catalog"
	"github.com/rendis/nodeforge/internal/document"
	"github.com/rendis/nodeforge/internal/expressions"
	"github.com/rendis/nodeforge/internal/metrics"
	"github.com/rendis/nodeforge/internal/store"
	"github.com/rendis/nodeforge/pkg/schema"
)

// DocumentSource loads stored documents for document-scoped searches.
type DocumentSource interface {
	GetDocument(ctx context.Context, name string) (*store.DocumentRecord, error)
}

// Config holds the dependencies of a Service.
type Config struct {
	Catalog    *catalog.Catalog
	Types      TypeIndex
	Documents  DocumentSource
	PinDB      *PinDB
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
	DefaultMax int
}

// Service implements the read-only discovery operations.
type Service struct {
	catalog    *catalog.Catalog
	types      TypeIndex
	docs       DocumentSource
	pins       *PinDB
	metrics    *metrics.Metrics
	logger     *slog.Logger
	defaultMax int
}

// NewService creates a discovery service.
func NewService(cfg Config) *Service {
	s := &Service{
		catalog:    cfg.Catalog,
		types:      cfg.Types,
		docs:       cfg.Documents,
		pins:       cfg.PinDB,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		defaultMax: cfg.DefaultMax,
	}
	if s.pins == nil {
		s.pins = DefaultPinDB()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.defaultMax <= 0 {
		s.defaultMax = DefaultMaxResults
	}
	return s
}

// Query carries the options shared by every discovery operation.
type Query struct {
	Search     string
	Category   string
	MaxResults int
	Where      *expressions.Predicate
}

func (s *Service) criteria(mode Mode, q Query) Criteria {
	limit := q.MaxResults
	if limit <= 0 {
		limit = s.defaultMax
	}
	return Criteria{
		Mode:       mode,
		SearchTerm: q.Search,
		Category:   q.Category,
		MaxResults: limit,
		Where:      q.Where,
	}
}

// ActionsForPin lists actions that can connect to a pin of the given type.
func (s *Service) ActionsForPin(ctx context.Context, pinType, subcategory string, q Query) schema.DiscoveryResult {
	c := s.criteria(ModePin, q)
	c.PinType = pinType
	c.PinSubcategory = subcategory

	res := schema.DiscoveryResult{PinType: pinType, PinSubcategory: subcategory, SearchFilter: q.Search}
	actions, err := Filter(ctx, s.types, s.catalog.Enumerate(), c)
	if err != nil {
		return s.failed("actions_for_pin", res, err)
	}
	res.Success = true
	res.Actions = actions
	res.ActionCount = len(actions)
	res.Message = fmt.Sprintf("Found %d actions for pin type '%s'", len(actions), pinType)
	s.metrics.Discovery("actions_for_pin", true, len(actions))
	return res
}

// ActionsForClass lists the native properties and calls available on a class.
func (s *Service) ActionsForClass(ctx context.Context, className string, q Query) schema.DiscoveryResult {
	res := schema.DiscoveryResult{ClassName: className, SearchFilter: q.Search, Actions: []schema.ActionDescriptor{}}
	if _, ok := s.types.ResolveClass(className); !ok {
		res.Message = fmt.Sprintf("Class '%s' not found", className)
		s.metrics.Discovery("actions_for_class", false, 0)
		return res
	}

	c := s.criteria(ModeClass, q)
	c.OwnerType = className
	actions, err := Filter(ctx, s.types, s.catalog.Enumerate(), c)
	if err != nil {
		return s.failed("actions_for_class", res, err)
	}
	res.Success = true
	res.Actions = actions
	res.ActionCount = len(actions)
	res.Message = fmt.Sprintf("Found %d actions for class '%s'", len(actions), className)
	s.metrics.Discovery("actions_for_class", true, len(actions))
	return res
}

// ActionsForClassHierarchy is ActionsForClass across the whole ancestor chain,
// reporting the chain and how many actions each class contributed.
func (s *Service) ActionsForClassHierarchy(ctx context.Context, className string, q Query) schema.HierarchyResult {
	res := schema.HierarchyResult{
		DiscoveryResult: schema.DiscoveryResult{ClassName: className, SearchFilter: q.Search, Actions: []schema.ActionDescriptor{}},
		ClassHierarchy:  []string{},
		CategoryCounts:  map[string]int{},
	}
	t, ok := s.types.ResolveClass(className)
	if !ok {
		res.Message = fmt.Sprintf("Class '%s' not found", className)
		s.metrics.Discovery("actions_for_class_hierarchy", false, 0)
		return res
	}

	c := s.criteria(ModeHierarchy, q)
	c.OwnerType = className
	actions, err := Filter(ctx, s.types, s.catalog.Enumerate(), c)
	if err != nil {
		res.DiscoveryResult = s.failed("actions_for_class_hierarchy", res.DiscoveryResult, err)
		return res
	}
	for _, a := range actions {
		if a.ClassName != "" {
			res.CategoryCounts[a.ClassName]++
		}
	}
	res.ClassHierarchy = s.types.Ancestors(t.Name)
	res.Success = true
	res.Actions = actions
	res.ActionCount = len(actions)
	res.Message = fmt.Sprintf("Found %d actions for class hierarchy of '%s'", len(actions), className)
	s.metrics.Discovery("actions_for_class_hierarchy", true, len(actions))
	return res
}

// Search runs a free-text query over the whole catalog. When documentName is
// set, that document's variables and function graphs are offered first.
func (s *Service) Search(ctx context.Context, q Query, documentName string) schema.DiscoveryResult {
	res := schema.DiscoveryResult{SearchQuery: q.Search, CategoryFilter: q.Category, Actions: []schema.ActionDescriptor{}}
	if strings.TrimSpace(q.Search) == "" {
		res.Message = "Search query cannot be empty"
		s.metrics.Discovery("search", false, 0)
		return res
	}

	c := s.criteria(ModeKeyword, q)
	if documentName != "" {
		c.Local = s.documentActions(ctx, documentName)
	}
	actions, err := Filter(ctx, s.types, s.catalog.Enumerate(), c)
	if err != nil {
		return s.failed("search", res, err)
	}
	res.Success = true
	res.Actions = actions
	res.ActionCount = len(actions)
	res.Message = fmt.Sprintf("Found %d actions matching '%s'", len(actions), q.Search)
	s.metrics.Discovery("search", true, len(actions))
	return res
}

// PinInfo answers a static pin metadata lookup.
func (s *Service) PinInfo(nodeName, pinName string) schema.PinInfoResult {
	res := s.pins.Lookup(nodeName, pinName)
	s.metrics.Discovery("pin_info", res.Success, 0)
	return res
}

func (s *Service) failed(op string, res schema.DiscoveryResult, err error) schema.DiscoveryResult {
	s.logger.Warn("discovery failed", slog.String("operation", op), slog.String("error", err.Error()))
	s.metrics.Discovery(op, false, 0)
	res.Success = false
	res.Actions = []schema.ActionDescriptor{}
	res.ActionCount = 0
	res.Error = err.Error()
	return res
}

// documentActions describes the variables and custom functions of a stored
// document. A missing document contributes nothing.
func (s *Service) documentActions(ctx context.Context, name string) []schema.ActionDescriptor {
	if s.docs == nil {
		return nil
	}
	doc, err := s.loadDocument(ctx, name)
	if err != nil {
		s.logger.Debug("document not available for search", slog.String("document", name), slog.String("error", err.Error()))
		return nil
	}
	return DocumentActions(doc)
}

func (s *Service) loadDocument(ctx context.Context, name string) (*document.Document, error) {
	rec, err := s.docs.GetDocument(ctx, name)
	if err != nil && schema.IsNotFound(err) && !strings.HasPrefix(name, "BP_") {
		rec, err = s.docs.GetDocument(ctx, "BP_"+name)
	}
	if err != nil {
		return nil, err
	}
	return document.Decode(rec.Body)
}

// DocumentActions describes the getters, setters and function calls a
// document exposes to its own graphs. Const variables get no setter.
func DocumentActions(doc *document.Document) []schema.ActionDescriptor {
	owner := doc.GeneratedClass()
	var out []schema.ActionDescriptor
	for _, v := range doc.Variables {
		out = append(out, schema.ActionDescriptor{
			Title:        "Get " + v.Name,
			Category:     "Variables",
			Tooltip:      fmt.Sprintf("Get the value of variable %s", v.Name),
			Keywords:     fmt.Sprintf("variable get %s local blueprint", v.Name),
			NodeType:     schema.KindVariableGet,
			NodeClass:    catalog.ClassVariableGet,
			ClassName:    owner,
			FunctionName: "Get " + v.Name,
			PropertyName: v.Name,
			PropertyType: v.Type,
			IsPure:       true,
		})
		if v.Const {
			continue
		}
		out = append(out, schema.ActionDescriptor{
			Title:        "Set " + v.Name,
			Category:     "Variables",
			Tooltip:      fmt.Sprintf("Set the value of variable %s", v.Name),
			Keywords:     fmt.Sprintf("variable set %s local blueprint", v.Name),
			NodeType:     schema.KindVariableSet,
			NodeClass:    catalog.ClassVariableSet,
			ClassName:    owner,
			FunctionName: "Set " + v.Name,
			PropertyName: v.Name,
			PropertyType: v.Type,
		})
	}
	for _, fn := range doc.FunctionGraphs() {
		out = append(out, schema.ActionDescriptor{
			Title:        fn,
			Category:     "Custom Functions",
			Tooltip:      fmt.Sprintf("Call custom function %s", fn),
			Keywords:     fmt.Sprintf("function call custom %s local blueprint", fn),
			NodeType:     schema.KindCallFunction,
			NodeClass:    catalog.ClassCallFunction,
			ClassName:    owner,
			FunctionName: fn,
		})
	}
	return out
}
