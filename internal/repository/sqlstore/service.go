package sqlstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
)

type serviceRepository struct {
	BaseRepository
}

func NewServiceRepository(base BaseRepository) repository.ServiceRepository {
	return &serviceRepository{base}
}

func (r *serviceRepository) CreateService(ctx context.Context, service *model.Service) error {
	query := r.db.Rebind(`
		INSERT INTO services (id, name, description, duration, price, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		service.ID,
		service.Name,
		service.Description,
		service.Duration,
		service.Price,
		service.Active,
		service.CreatedAt,
		service.UpdatedAt,
	)
	return storeErr("create service", err)
}

func (r *serviceRepository) GetService(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	var service model.Service
	query := r.db.Rebind(`
		SELECT id, name, description, duration, price, active, created_at, updated_at
		FROM services WHERE id = ?
	`)
	if err := r.db.GetContext(ctx, &service, query, id); err != nil {
		return nil, storeErr("service", err)
	}
	return &service, nil
}

func (r *serviceRepository) ListServices(ctx context.Context) ([]*model.Service, error) {
	services := []*model.Service{}
	query := `
		SELECT id, name, description, duration, price, active, created_at, updated_at
		FROM services ORDER BY name, id
	`
	if err := r.db.SelectContext(ctx, &services, query); err != nil {
		return nil, storeErr("list services", err)
	}
	return services, nil
}
