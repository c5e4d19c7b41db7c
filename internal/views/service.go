// Package views manages named grid configurations: the lazily created
// per-resource default plus user-defined saved views.
package views

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/merchantops/gridview/internal/domain"
	"github.com/merchantops/gridview/internal/repository"
	"github.com/merchantops/gridview/internal/schema"
)

// Service exposes view lifecycle operations. All mutations enforce that the
// caller owns the view.
type Service struct {
	views    repository.ViewRepository
	registry *schema.Registry
	logger   *zap.Logger
}

func NewService(views repository.ViewRepository, registry *schema.Registry, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{views: views, registry: registry, logger: logger}
}

// GetOrCreateDefault returns the default view for (owner, resource),
// creating it from the entity's default column set on first use. Concurrent
// first calls converge on a single row.
func (s *Service) GetOrCreateDefault(ctx context.Context, ownerID uuid.UUID, resource string) (domain.View, error) {
	entity, err := s.registry.Lookup(resource)
	if err != nil {
		return domain.View{}, err
	}

	seed := domain.View{
		OwnerID:       ownerID,
		ResourceTable: entity.Table,
		Name:          domain.DefaultViewName,
		Columns:       schema.DefaultViewColumns(entity),
		Filters:       json.RawMessage(`{}`),
		Sort:          []domain.SortField{},
		ColumnOrder:   schema.DefaultViewColumns(entity),
	}

	view, err := s.views.EnsureDefault(ctx, seed)
	if err != nil {
		return domain.View{}, fmt.Errorf("ensure default view: %w", err)
	}
	return view, nil
}

// Get loads one view and verifies ownership.
func (s *Service) Get(ctx context.Context, ownerID, viewID uuid.UUID) (domain.View, error) {
	view, err := s.views.GetByID(ctx, viewID)
	if err != nil {
		return domain.View{}, err
	}
	if view.OwnerID != ownerID {
		return domain.View{}, domain.ErrAccessDenied
	}
	return view, nil
}

// ListForResource returns the caller's views for one resource as sidebar
// summaries, with the default view first.
func (s *Service) ListForResource(ctx context.Context, ownerID uuid.UUID, resource string) ([]domain.ViewSummary, error) {
	entity, err := s.registry.Lookup(resource)
	if err != nil {
		return nil, err
	}
	all, err := s.views.ListByResource(ctx, ownerID, entity.Table)
	if err != nil {
		return nil, fmt.Errorf("list views: %w", err)
	}

	summaries := make([]domain.ViewSummary, 0, len(all))
	for _, view := range all {
		if view.IsDefault() {
			summaries = append([]domain.ViewSummary{{ID: view.ID, Name: view.Name}}, summaries...)
			continue
		}
		summaries = append(summaries, domain.ViewSummary{ID: view.ID, Name: view.Name})
	}
	return summaries, nil
}

// Create persists a new named view for the caller.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, resource string, input domain.ViewInput) (domain.View, error) {
	entity, err := s.registry.Lookup(resource)
	if err != nil {
		return domain.View{}, err
	}
	if input.Name == "" {
		return domain.View{}, fmt.Errorf("%w: view name is required", domain.ErrValidation)
	}

	view := domain.View{
		OwnerID:       ownerID,
		ResourceTable: entity.Table,
		Name:          input.Name,
		Columns:       input.Columns,
		Filters:       filtersOrEmptyBlob(input.Filters),
		Sort:          input.Sort,
		ColumnOrder:   input.ColumnOrder,
	}

	created, err := s.views.Create(ctx, view)
	if err != nil {
		return domain.View{}, fmt.Errorf("create view: %w", err)
	}
	return created, nil
}

// Update overwrites a view's configuration. Only the owner may update.
func (s *Service) Update(ctx context.Context, ownerID, viewID uuid.UUID, input domain.ViewInput) (domain.View, error) {
	view, err := s.Get(ctx, ownerID, viewID)
	if err != nil {
		return domain.View{}, err
	}

	if input.Name != "" && !view.IsDefault() {
		view.Name = input.Name
	}
	view.Columns = input.Columns
	view.Filters = filtersOrEmptyBlob(input.Filters)
	view.Sort = input.Sort
	view.ColumnOrder = input.ColumnOrder

	updated, err := s.views.Update(ctx, view)
	if err != nil {
		return domain.View{}, fmt.Errorf("update view: %w", err)
	}
	return updated, nil
}

// Delete removes a view the caller owns and returns the default view to fall
// back to. The default view itself cannot be deleted.
func (s *Service) Delete(ctx context.Context, ownerID, viewID uuid.UUID) (domain.View, error) {
	view, err := s.Get(ctx, ownerID, viewID)
	if err != nil {
		return domain.View{}, err
	}
	if view.IsDefault() {
		return domain.View{}, fmt.Errorf("%w: default view cannot be deleted", domain.ErrValidation)
	}

	if err := s.views.Delete(ctx, viewID); err != nil {
		return domain.View{}, fmt.Errorf("delete view: %w", err)
	}

	resource, err := s.registry.LookupByTable(view.ResourceTable)
	if err != nil {
		return domain.View{}, err
	}
	return s.GetOrCreateDefault(ctx, ownerID, resource.Name)
}

func filtersOrEmptyBlob(filters json.RawMessage) json.RawMessage {
	if len(filters) == 0 {
		return json.RawMessage(`{}`)
	}
	return filters
}
