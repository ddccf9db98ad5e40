// Package cached wraps the worker directory and service catalog with a
// short-lived in-process cache.
//
// Cached profiles may lag the store by up to the TTL. Writes through the
// wrappers flush the cache immediately; writes made elsewhere (completion
// counts bumped by the booking store) become visible once entries expire.
// Returned values are shared and must be treated as read-only.
package cached

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
	"github.com/jwalitptl/booking-engine/pkg/metrics"
)

const (
	kindWorker   = "worker"
	kindByServ   = "service_workers"
	kindService  = "service"
	resultHit    = "hit"
	resultMiss   = "miss"
	cleanupRatio = 2
)

type cacheBase struct {
	cache   *cache.Cache
	metrics *metrics.Metrics
}

func newCacheBase(ttl time.Duration, m *metrics.Metrics) cacheBase {
	return cacheBase{cache: cache.New(ttl, cleanupRatio*ttl), metrics: m}
}

func (c *cacheBase) lookup(kind, key string) (interface{}, bool) {
	v, ok := c.cache.Get(kind + ":" + key)
	if c.metrics != nil {
		result := resultMiss
		if ok {
			result = resultHit
		}
		c.metrics.DirectoryCacheHits.WithLabelValues(kind, result).Inc()
	}
	return v, ok
}

func (c *cacheBase) store(kind, key string, v interface{}) {
	c.cache.Set(kind+":"+key, v, cache.DefaultExpiration)
}

// WorkerRepository caches profile reads of a repository.WorkerRepository.
type WorkerRepository struct {
	cacheBase
	next repository.WorkerRepository
}

func NewWorkerRepository(next repository.WorkerRepository, ttl time.Duration, m *metrics.Metrics) *WorkerRepository {
	return &WorkerRepository{cacheBase: newCacheBase(ttl, m), next: next}
}

var _ repository.WorkerRepository = (*WorkerRepository)(nil)

func (r *WorkerRepository) GetWorkerProfile(ctx context.Context, id uuid.UUID) (*model.WorkerProfile, error) {
	if v, ok := r.lookup(kindWorker, id.String()); ok {
		return v.(*model.WorkerProfile), nil
	}
	w, err := r.next.GetWorkerProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(kindWorker, id.String(), w)
	return w, nil
}

func (r *WorkerRepository) ListByService(ctx context.Context, serviceID uuid.UUID) ([]*model.WorkerProfile, error) {
	if v, ok := r.lookup(kindByServ, serviceID.String()); ok {
		return v.([]*model.WorkerProfile), nil
	}
	workers, err := r.next.ListByService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	r.store(kindByServ, serviceID.String(), workers)
	return workers, nil
}

func (r *WorkerRepository) CreateWorker(ctx context.Context, worker *model.WorkerProfile) error {
	defer r.cache.Flush()
	return r.next.CreateWorker(ctx, worker)
}

func (r *WorkerRepository) SetServices(ctx context.Context, workerID uuid.UUID, serviceIDs []uuid.UUID) error {
	defer r.cache.Flush()
	return r.next.SetServices(ctx, workerID, serviceIDs)
}

func (r *WorkerRepository) SetAvailable(ctx context.Context, workerID uuid.UUID, available bool) error {
	defer r.cache.Flush()
	return r.next.SetAvailable(ctx, workerID, available)
}

// Invalidate drops everything cached for the directory.
func (r *WorkerRepository) Invalidate() {
	r.cache.Flush()
}

// ServiceRepository caches GetService of a repository.ServiceRepository.
type ServiceRepository struct {
	cacheBase
	next repository.ServiceRepository
}

func NewServiceRepository(next repository.ServiceRepository, ttl time.Duration, m *metrics.Metrics) *ServiceRepository {
	return &ServiceRepository{cacheBase: newCacheBase(ttl, m), next: next}
}

var _ repository.ServiceRepository = (*ServiceRepository)(nil)

func (r *ServiceRepository) GetService(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	if v, ok := r.lookup(kindService, id.String()); ok {
		return v.(*model.Service), nil
	}
	svc, err := r.next.GetService(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(kindService, id.String(), svc)
	return svc, nil
}

func (r *ServiceRepository) CreateService(ctx context.Context, service *model.Service) error {
	defer r.cache.Flush()
	return r.next.CreateService(ctx, service)
}

func (r *ServiceRepository) ListServices(ctx context.Context) ([]*model.Service, error) {
	return r.next.ListServices(ctx)
}
