// Package app assembles the matching engine over a set of repositories.
package app

import (
	"github.com/jwalitptl/booking-engine/internal/config"
	"github.com/jwalitptl/booking-engine/internal/repository"
	"github.com/jwalitptl/booking-engine/internal/repository/cached"
	"github.com/jwalitptl/booking-engine/internal/repository/sqlstore"
	"github.com/jwalitptl/booking-engine/internal/service/availability"
	"github.com/jwalitptl/booking-engine/internal/service/booking"
	"github.com/jwalitptl/booking-engine/internal/service/candidate"
	"github.com/jwalitptl/booking-engine/internal/service/conflict"
	"github.com/jwalitptl/booking-engine/internal/service/scoring"
	"github.com/jwalitptl/booking-engine/pkg/logger"
	"github.com/jwalitptl/booking-engine/pkg/metrics"
	"github.com/jwalitptl/booking-engine/pkg/validator"
)

type Engine struct {
	Services     repository.ServiceRepository
	Workers      repository.WorkerRepository
	Availability *availability.Service
	Conflicts    *conflict.Service
	Candidates   *candidate.Service
	Scoring      *scoring.Service
	Bookings     *booking.Service
}

// NewEngine wires the engine services. With a positive directory TTL the
// worker directory and service catalog are read through a cache.
func NewEngine(repos *sqlstore.Repositories, cfg config.MatchingConfig, m *metrics.Metrics, log *logger.Logger) *Engine {
	services := repos.Services
	workers := repos.Workers
	if cfg.DirectoryTTL > 0 {
		services = cached.NewServiceRepository(repos.Services, cfg.DirectoryTTL, m)
		workers = cached.NewWorkerRepository(repos.Workers, cfg.DirectoryTTL, m)
	}

	v := validator.New()
	sched := availability.NewService(repos.Availability, v, log)
	conflicts := conflict.NewService(repos.Bookings, m)
	finder := candidate.NewService(services, workers, sched, conflicts, candidate.Config{FanOut: cfg.CandidateFanOut}, m, log)
	scorer := scoring.NewService(workers, m, log)
	bookings := booking.NewService(repos.Bookings, services, workers, finder, scorer, sched, v, booking.Config{
		AssignmentMode: cfg.AssignmentMode,
		SlotStep:       cfg.SlotStep,
	}, m, log)

	return &Engine{
		Services:     services,
		Workers:      workers,
		Availability: sched,
		Conflicts:    conflicts,
		Candidates:   finder,
		Scoring:      scorer,
		Bookings:     bookings,
	}
}
