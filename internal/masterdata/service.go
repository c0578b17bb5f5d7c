package masterdata

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"
)

// Service exposes master data to the purchase desk. Candidate lists are served from
// the versioned cache and concurrent misses share a single repository query.
type Service struct {
	repo  Repository
	cache Cache
	group singleflight.Group
}

// NewService creates a master data service. cache may be nil.
func NewService(repo Repository, cache Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// ListSuppliers returns active suppliers ordered by name.
func (s *Service) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	var out []Supplier
	err := s.cached(ctx, "suppliers", &out, func(ctx context.Context) (any, error) {
		return s.repo.ListSuppliers(ctx)
	})
	return out, err
}

// ListCatalogItems returns active catalog items ordered by name.
func (s *Service) ListCatalogItems(ctx context.Context) ([]CatalogItem, error) {
	var out []CatalogItem
	err := s.cached(ctx, "items", &out, func(ctx context.Context) (any, error) {
		return s.repo.ListCatalogItems(ctx)
	})
	return out, err
}

// CreateSupplier validates and stores a supplier, then invalidates cached lists.
func (s *Service) CreateSupplier(ctx context.Context, supplier Supplier) (Supplier, error) {
	supplier.Name = strings.TrimSpace(supplier.Name)
	supplier.GSTIN = strings.ToUpper(strings.TrimSpace(supplier.GSTIN))
	if err := validateSupplier(supplier); err != nil {
		return Supplier{}, err
	}
	created, err := s.repo.CreateSupplier(ctx, supplier)
	if err != nil {
		return Supplier{}, err
	}
	if err := s.Invalidate(ctx); err != nil {
		return Supplier{}, err
	}
	return created, nil
}

// Invalidate drops every cached candidate list.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Bump(ctx)
}

// Warm loads both candidate lists into the cache.
func (s *Service) Warm(ctx context.Context) (suppliers, items int, err error) {
	sup, err := s.ListSuppliers(ctx)
	if err != nil {
		return 0, 0, err
	}
	its, err := s.ListCatalogItems(ctx)
	if err != nil {
		return 0, 0, err
	}
	return len(sup), len(its), nil
}

func (s *Service) cached(ctx context.Context, name string, dest any, loader func(context.Context) (any, error)) error {
	if s.cache == nil {
		val, err, _ := s.dedupe(ctx, name, loader)
		if err != nil {
			return err
		}
		return assign(dest, val)
	}
	key, err := s.cache.BuildKey(ctx, "masterdata", name)
	if err != nil {
		return err
	}
	return s.cache.FetchJSON(ctx, key, dest, func(ctx context.Context) (any, error) {
		val, err, _ := s.dedupe(ctx, key, loader)
		return val, err
	})
}

func (s *Service) dedupe(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error, bool) {
	resultChan := s.group.DoChan(key, func() (any, error) {
		return fn(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-resultChan:
		return res.Val, res.Err, res.Shared
	}
}

func assign(dest, val any) error {
	switch d := dest.(type) {
	case *[]Supplier:
		v, _ := val.([]Supplier)
		*d = v
	case *[]CatalogItem:
		v, _ := val.([]CatalogItem)
		*d = v
	default:
		return fmt.Errorf("masterdata: unsupported destination %T", dest)
	}
	return nil
}

func validateSupplier(supplier Supplier) error {
	if supplier.Name == "" {
		return fmt.Errorf("%w: supplier name is required", ErrValidation)
	}
	if len(supplier.Name) > 200 {
		return fmt.Errorf("%w: supplier name too long", ErrValidation)
	}
	if supplier.GSTIN != "" && len(supplier.GSTIN) != 15 {
		return fmt.Errorf("%w: GSTIN must be 15 characters", ErrValidation)
	}
	return nil
}
