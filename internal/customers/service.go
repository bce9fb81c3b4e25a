package customers

import (
	"context"
	"strings"
)

// RepositoryPort is the persistence surface the service needs.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Customer, error)
	List(ctx context.Context, req ListRequest) ([]Customer, int, error)
	Create(ctx context.Context, c Customer) (Customer, error)
	Update(ctx context.Context, id int64, in UpdateInput) (Customer, error)
	GetSummary(ctx context.Context, id int64) (Summary, error)
	ListTypes(ctx context.Context) ([]CustomerType, error)
	CreateType(ctx context.Context, t CustomerType) (CustomerType, error)
}

// Service manages the customer directory.
type Service struct {
	repo RepositoryPort
}

// NewService constructs a customers service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) GetSummary(ctx context.Context, id int64) (Summary, error) {
	return s.repo.GetSummary(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListRequest) ([]Customer, int, error) {
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

func (s *Service) Create(ctx context.Context, c Customer) (Customer, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return Customer{}, ErrValidation
	}
	return s.repo.Create(ctx, c)
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (Customer, error) {
	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		if trimmed == "" {
			return Customer{}, ErrValidation
		}
		in.Name = &trimmed
	}
	return s.repo.Update(ctx, id, in)
}

func (s *Service) ListTypes(ctx context.Context) ([]CustomerType, error) {
	return s.repo.ListTypes(ctx)
}

func (s *Service) CreateType(ctx context.Context, t CustomerType) (CustomerType, error) {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" || t.CreditDays < 0 {
		return CustomerType{}, ErrValidation
	}
	return s.repo.CreateType(ctx, t)
}
