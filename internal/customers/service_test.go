package customers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryCustomerRepo struct {
	customers map[int64]Customer
	types     map[int64]CustomerType
	nextID    int64
}

func newMemoryCustomerRepo() *memoryCustomerRepo {
	return &memoryCustomerRepo{
		customers: make(map[int64]Customer),
		types:     make(map[int64]CustomerType),
	}
}

func (r *memoryCustomerRepo) Get(ctx context.Context, id int64) (Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return Customer{}, ErrNotFound
	}
	return c, nil
}

func (r *memoryCustomerRepo) List(ctx context.Context, req ListRequest) ([]Customer, int, error) {
	var out []Customer
	for _, c := range r.customers {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (r *memoryCustomerRepo) Create(ctx context.Context, c Customer) (Customer, error) {
	r.nextID++
	c.ID = r.nextID
	r.customers[c.ID] = c
	return c, nil
}

func (r *memoryCustomerRepo) Update(ctx context.Context, id int64, in UpdateInput) (Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return Customer{}, ErrNotFound
	}
	if in.Name != nil {
		c.Name = *in.Name
	}
	if in.Phone != nil {
		c.Phone = *in.Phone
	}
	r.customers[id] = c
	return c, nil
}

func (r *memoryCustomerRepo) GetSummary(ctx context.Context, id int64) (Summary, error) {
	c, err := r.Get(ctx, id)
	if err != nil {
		return Summary{}, err
	}
	return Summary{Customer: c}, nil
}

func (r *memoryCustomerRepo) ListTypes(ctx context.Context) ([]CustomerType, error) {
	var out []CustomerType
	for _, t := range r.types {
		out = append(out, t)
	}
	return out, nil
}

func (r *memoryCustomerRepo) CreateType(ctx context.Context, t CustomerType) (CustomerType, error) {
	r.nextID++
	t.ID = r.nextID
	r.types[t.ID] = t
	return t, nil
}

func TestCreateTrimsName(t *testing.T) {
	repo := newMemoryCustomerRepo()
	svc := NewService(repo)

	created, err := svc.Create(context.Background(), Customer{Name: "  Acme  "})
	require.NoError(t, err)
	require.Equal(t, "Acme", created.Name)

	_, err = svc.Create(context.Background(), Customer{Name: "   "})
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpdateRejectsBlankName(t *testing.T) {
	repo := newMemoryCustomerRepo()
	svc := NewService(repo)
	created, err := svc.Create(context.Background(), Customer{Name: "Acme"})
	require.NoError(t, err)

	blank := "  "
	_, err = svc.Update(context.Background(), created.ID, UpdateInput{Name: &blank})
	require.ErrorIs(t, err, ErrValidation)

	phone := "021234567"
	updated, err := svc.Update(context.Background(), created.ID, UpdateInput{Phone: &phone})
	require.NoError(t, err)
	require.Equal(t, "021234567", updated.Phone)
	require.Equal(t, "Acme", updated.Name)
}

func TestCreateTypeValidation(t *testing.T) {
	repo := newMemoryCustomerRepo()
	svc := NewService(repo)

	_, err := svc.CreateType(context.Background(), CustomerType{Name: "Corporate", CreditDays: -1})
	require.ErrorIs(t, err, ErrValidation)

	created, err := svc.CreateType(context.Background(), CustomerType{Name: "Corporate", CreditDays: 30})
	require.NoError(t, err)
	require.Equal(t, 30, created.CreditDays)
}
