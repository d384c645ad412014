package domain

import (
	"context"
	"fmt"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/core/tx"
	"ledgerbook/pkg/logger"
)

// CatalogService provides create/read/update/soft-delete for reference data.
type CatalogService[T Entity] struct {
	repo       CatalogRepository[T]
	txManager  tx.Manager
	hooks      *HookRegistry[T]
	entityName string
}

// NewCatalogService creates a new catalog service.
func NewCatalogService[T Entity](repo CatalogRepository[T], txManager tx.Manager, entityName string) *CatalogService[T] {
	return &CatalogService[T]{
		repo:       repo,
		txManager:  txManager,
		hooks:      NewHookRegistry[T](),
		entityName: entityName,
	}
}

// Hooks returns the hook registry for external registration.
func (s *CatalogService[T]) Hooks() *HookRegistry[T] {
	return s.hooks
}

func (s *CatalogService[T]) normalizeValidationErr(err error) error {
	if _, ok := apperror.AsAppError(err); ok {
		return err
	}
	return apperror.NewValidation(err.Error())
}

func (s *CatalogService[T]) normalizeGetErr(err error, entityID id.ID) error {
	if apperror.IsNotFound(err) {
		return apperror.NewNotFound(s.entityName, entityID)
	}
	return apperror.Wrap(err)
}

// Create fills defaults through BeforeCreate hooks, validates and inserts an
// entity. InCreate hooks run in the same transaction as the insert.
func (s *CatalogService[T]) Create(ctx context.Context, entity T) error {
	if err := s.hooks.Run(ctx, BeforeCreate, entity); err != nil {
		return err
	}
	if err := entity.Validate(ctx); err != nil {
		return s.normalizeValidationErr(err)
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, entity); err != nil {
			return fmt.Errorf("create %s: %w", s.entityName, err)
		}
		return s.hooks.Run(ctx, InCreate, entity)
	})
	if err != nil {
		return apperror.Wrap(err)
	}

	logger.Info(ctx, "catalog entry created", "entity", s.entityName, "id", entity.GetID())
	return nil
}

// GetByID retrieves entity by ID.
func (s *CatalogService[T]) GetByID(ctx context.Context, entityID id.ID) (T, error) {
	entity, err := s.repo.GetByID(ctx, entityID)
	if err != nil {
		return entity, s.normalizeGetErr(err, entityID)
	}
	return entity, nil
}

// Update validates and saves an existing entity.
func (s *CatalogService[T]) Update(ctx context.Context, entity T) error {
	if err := entity.Validate(ctx); err != nil {
		return s.normalizeValidationErr(err)
	}
	if err := s.hooks.Run(ctx, BeforeUpdate, entity); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, entity); err != nil {
			return fmt.Errorf("update %s: %w", s.entityName, err)
		}
		return nil
	})
	if err != nil {
		return apperror.Wrap(err)
	}
	return nil
}

// Delete sets the deletion mark. Rows are never physically removed because
// ledger history may reference them.
func (s *CatalogService[T]) Delete(ctx context.Context, entityID id.ID) error {
	return s.SetDeletionMark(ctx, entityID, true)
}

// SetDeletionMark sets or clears the deletion mark. BeforeDelete hooks run
// only when marking.
func (s *CatalogService[T]) SetDeletionMark(ctx context.Context, entityID id.ID, marked bool) error {
	entity, err := s.repo.GetByID(ctx, entityID)
	if err != nil {
		return s.normalizeGetErr(err, entityID)
	}
	if marked {
		if err := s.hooks.Run(ctx, BeforeDelete, entity); err != nil {
			return err
		}
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.SetDeletionMark(ctx, entityID, marked)
	})
	if err != nil {
		return apperror.Wrap(err)
	}

	logger.Info(ctx, "catalog deletion mark changed", "entity", s.entityName, "id", entityID, "marked", marked)
	return nil
}

// List retrieves entities with filtering.
func (s *CatalogService[T]) List(ctx context.Context, filter ListFilter) (ListResult[T], error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = DefaultListFilter().Limit
	}
	res, err := s.repo.List(ctx, filter)
	if err != nil {
		return res, apperror.Wrap(err)
	}
	return res, nil
}
