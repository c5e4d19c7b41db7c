// Package listing orchestrates grid reads: permission gating, view
// resolution, filter sanitization, compilation, and paginated execution.
package listing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/merchantops/gridview/internal/access"
	"github.com/merchantops/gridview/internal/domain"
	"github.com/merchantops/gridview/internal/query"
	"github.com/merchantops/gridview/internal/repository"
	"github.com/merchantops/gridview/internal/schema"
	"github.com/merchantops/gridview/internal/views"
)

// Service runs authorized grid listings end to end.
type Service struct {
	registry *schema.Registry
	compiler *query.Compiler
	access   *access.Resolver
	grid     repository.GridRepository
	views    *views.Service
	loader   *CategoryLoader
	logger   *zap.Logger

	defaultPageSize int
	maxPageSize     int
}

// Options tunes pagination bounds.
type Options struct {
	DefaultPageSize int
	MaxPageSize     int
}

func NewService(
	registry *schema.Registry,
	resolver *access.Resolver,
	grid repository.GridRepository,
	viewService *views.Service,
	loader *CategoryLoader,
	logger *zap.Logger,
	opts Options,
) *Service {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 25
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = 200
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		registry:        registry,
		compiler:        query.NewCompiler(registry),
		access:          resolver,
		grid:            grid,
		views:           viewService,
		loader:          loader,
		logger:          logger,
		defaultPageSize: opts.DefaultPageSize,
		maxPageSize:     opts.MaxPageSize,
	}
}

// Request carries one grid listing call. Inline parameters override the
// corresponding parts of the selected view.
type Request struct {
	UserID   uuid.UUID
	Resource string
	ViewID   *uuid.UUID

	Columns     []string
	Exclude     []string
	ExcludeMode bool
	Filter      map[string]any
	Sort        []domain.SortField
	Search      string
	Page        int
	PageSize    int
	GroupBy     string
}

// List executes one authorized grid read. Count and data run against the
// same compiled descriptor; the two round trips are not transactional and a
// concurrent write may shift totalCount relative to the page.
func (s *Service) List(ctx context.Context, req Request) (domain.ListResult, error) {
	entity, err := s.registry.Lookup(req.Resource)
	if err != nil {
		return domain.ListResult{}, err
	}

	if err := s.access.Guard(ctx, req.UserID, entity.Table); err != nil {
		return domain.ListResult{}, err
	}
	allowed := s.access.ResolveColumns(ctx, req.UserID, entity.Table)
	if len(allowed) == 0 {
		return domain.ListResult{}, domain.ErrAccessDenied
	}
	allowedSet := query.NewColumnSet(allowed)

	view, err := s.selectView(ctx, req, entity)
	if err != nil {
		return domain.ListResult{}, err
	}

	columns := req.Columns
	fromView := false
	if req.ExcludeMode {
		columns = query.ExcludePaths(schema.FullProjection(entity), req.Exclude)
	} else if len(columns) == 0 {
		columns = view.Columns
		fromView = true
	}
	columns = intersectOrdered(columns, allowedSet)
	if len(columns) == 0 && !req.ExcludeMode {
		columns = intersectOrdered(schema.DefaultViewColumns(entity), allowedSet)
		fromView = true
	}

	rawFilter := req.Filter
	if rawFilter == nil && len(view.Filters) > 0 {
		decoded, err := domain.DecodeFilterPayload(view.Filters)
		if err != nil {
			s.logger.Warn("stored view filter is not an object, ignoring",
				zap.String("view", view.Name), zap.Error(err))
		} else {
			rawFilter = decoded
		}
	}
	filter := query.Sanitize(rawFilter, allowedSet)

	sortFields := req.Sort
	if len(sortFields) == 0 {
		sortFields = view.Sort
	}
	sortFields = intersectSort(sortFields, allowedSet)

	descriptor := s.compiler.Compile(entity, query.Request{
		Projection:  columns,
		Exclude:     req.Exclude,
		ExcludeMode: req.ExcludeMode,
		Filter:      filter,
		Sort:        sortFields,
		Search:      req.Search,
		Allowed:     allowed,
	})

	page, pageSize := s.normalizePage(req.Page, req.PageSize)

	total, err := s.grid.Count(ctx, entity.Name, descriptor)
	if err != nil {
		return domain.ListResult{}, fmt.Errorf("count listing: %w", err)
	}

	// Inline column requests keep their request order; view-derived columns
	// follow the view's saved ordering.
	availableColumns := columns
	if fromView {
		availableColumns = s.orderedColumns(view, columns)
	}
	result := domain.ListResult{
		Kind:                 domain.ResultFlat,
		TotalCount:           total,
		Page:                 page,
		PageSize:             pageSize,
		AvailableColumns:     availableColumns,
		AvailableColumnTypes: s.columnTypes(entity, availableColumns),
		AppliedFilters:       domain.EncodeFilterNode(filter),
		AppliedSort:          s.survivingSort(entity, sortFields, allowedSet),
	}

	if req.GroupBy != "" {
		groups, err := s.grid.GroupCount(ctx, entity.Name, descriptor, req.GroupBy)
		if err != nil {
			return domain.ListResult{}, fmt.Errorf("group listing: %w", err)
		}
		result.Kind = domain.ResultGrouped
		result.Groups = groups
		result.Rows = []domain.OrderedRow{}
	} else {
		rows, err := s.grid.Query(ctx, entity.Name, descriptor, (page-1)*pageSize, pageSize)
		if err != nil {
			return domain.ListResult{}, fmt.Errorf("query listing: %w", err)
		}
		if err := s.hydrateCategories(ctx, entity, availableColumns, rows); err != nil {
			return domain.ListResult{}, fmt.Errorf("hydrate categories: %w", err)
		}
		for i := range rows {
			rows[i].Columns = availableColumns
		}
		result.Rows = rows
	}

	summaries, err := s.views.ListForResource(ctx, req.UserID, entity.Name)
	if err != nil {
		return domain.ListResult{}, err
	}
	result.Views = summaries

	return result, nil
}

// selectView resolves the view in effect: an explicitly requested one
// (ownership enforced) or the lazily created default.
func (s *Service) selectView(ctx context.Context, req Request, entity *schema.Entity) (domain.View, error) {
	if req.ViewID != nil {
		return s.views.Get(ctx, req.UserID, *req.ViewID)
	}
	return s.views.GetOrCreateDefault(ctx, req.UserID, entity.Name)
}

func (s *Service) normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.defaultPageSize
	}
	if pageSize > s.maxPageSize {
		pageSize = s.maxPageSize
	}
	return page, pageSize
}

// orderedColumns applies the view's saved column order to the effective
// column set, appending columns the order does not mention.
func (s *Service) orderedColumns(view domain.View, columns []string) []string {
	if len(view.ColumnOrder) == 0 {
		return columns
	}
	present := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		present[c] = struct{}{}
	}
	ordered := make([]string, 0, len(columns))
	for _, c := range view.ColumnOrder {
		if _, ok := present[c]; ok {
			ordered = append(ordered, c)
			delete(present, c)
		}
	}
	for _, c := range columns {
		if _, ok := present[c]; ok {
			ordered = append(ordered, c)
		}
	}
	return ordered
}

func (s *Service) columnTypes(entity *schema.Entity, columns []string) map[string]string {
	types := make(map[string]string, len(columns))
	for _, path := range columns {
		column, ok := s.registry.ColumnType(entity, path)
		if !ok {
			continue
		}
		if column.IsEnum() {
			types[path] = column.Enum
			continue
		}
		types[path] = string(column.Kind)
	}
	return types
}

// survivingSort mirrors the compiler's sort validation so the response
// reports exactly the sort that was applied: allow-listed columns the
// registry knows, with a recognized direction.
func (s *Service) survivingSort(entity *schema.Entity, sort []domain.SortField, allowed query.ColumnSet) []domain.SortField {
	kept := make([]domain.SortField, 0, len(sort))
	for _, field := range sort {
		if !allowed.Has(field.Column) {
			continue
		}
		if _, ok := domain.NormalizeDirection(string(field.Direction)); !ok {
			continue
		}
		if _, ok := s.registry.ColumnType(entity, field.Column); !ok {
			continue
		}
		kept = append(kept, field)
	}
	return kept
}

// hydrateCategories attaches batched category lists to rows of entities that
// declare a to-many categories relation.
func (s *Service) hydrateCategories(ctx context.Context, entity *schema.Entity, columns []string, rows []domain.OrderedRow) error {
	rel, ok := entity.Relation("categories")
	if !ok || !rel.Many {
		return nil
	}
	wanted := false
	for _, c := range columns {
		if c == "categories" {
			wanted = true
			break
		}
	}
	if !wanted || len(rows) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(rows))
	idx := make([]int, 0, len(rows))
	for i, row := range rows {
		raw, ok := row.Get("id")
		if !ok {
			continue
		}
		str, ok := raw.(string)
		if !ok {
			continue
		}
		id, err := uuid.Parse(str)
		if err != nil {
			continue
		}
		ids = append(ids, id)
		idx = append(idx, i)
	}
	if len(ids) == 0 {
		return nil
	}

	refs, err := s.loader.LoadMany(ctx, ids)
	if err != nil {
		return err
	}
	for n, i := range idx {
		rows[i].Values["categories"] = refs[n]
	}
	return nil
}

func intersectSort(sort []domain.SortField, allowed query.ColumnSet) []domain.SortField {
	kept := make([]domain.SortField, 0, len(sort))
	for _, field := range sort {
		if allowed.Has(field.Column) {
			kept = append(kept, field)
		}
	}
	return kept
}

func intersectOrdered(requested []string, allowed query.ColumnSet) []string {
	kept := make([]string, 0, len(requested))
	for _, column := range requested {
		if allowed.Has(column) {
			kept = append(kept, column)
		}
	}
	return kept
}
