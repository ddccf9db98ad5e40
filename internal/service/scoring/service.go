package scoring

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
	"github.com/jwalitptl/booking-engine/pkg/logger"
	"github.com/jwalitptl/booking-engine/pkg/metrics"
	"github.com/jwalitptl/booking-engine/pkg/telemetry"
)

// Scoring weights.
const (
	BaseScore          = 10.0
	ServiceBonus       = 20.0
	RatingWeight       = 2.0
	MaxRating          = 5.0
	ExperiencePerJob   = 0.5
	MaxExperience      = 10.0
	AffordabilityCap   = 10.0
	AffordabilityScale = 10.0
)

// Breakdown is a worker's score split by factor.
type Breakdown struct {
	Base          float64 `json:"base"`
	Service       float64 `json:"service"`
	Rating        float64 `json:"rating"`
	Experience    float64 `json:"experience"`
	Affordability float64 `json:"affordability"`
	Total         float64 `json:"total"`
}

type Ranked struct {
	WorkerID uuid.UUID `json:"worker_id"`
	Score    Breakdown `json:"score"`
}

// Score rates profile for serviceID. It is a pure function of its inputs.
func Score(profile *model.WorkerProfile, serviceID uuid.UUID) Breakdown {
	b := Breakdown{Base: BaseScore}
	if profile.OffersService(serviceID) {
		b.Service = ServiceBonus
	}
	b.Rating = math.Max(0, math.Min(profile.Rating, MaxRating)) * RatingWeight
	b.Experience = math.Min(float64(profile.CompletedBookings)*ExperiencePerJob, MaxExperience)
	b.Affordability = math.Max(0, AffordabilityCap-profile.HourlyRate/AffordabilityScale)
	b.Total = b.Base + b.Service + b.Rating + b.Experience + b.Affordability
	return b
}

type Service struct {
	directory repository.WorkerDirectory
	metrics   *metrics.Metrics
	log       *logger.Logger
}

func NewService(directory repository.WorkerDirectory, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{directory: directory, metrics: m, log: log.With("scoring")}
}

// Rank scores every candidate, highest first. Equal totals are ordered by
// worker id ascending so the result does not depend on input order.
func (s *Service) Rank(ctx context.Context, candidates []uuid.UUID, serviceID uuid.UUID) ([]Ranked, error) {
	ranked := make([]Ranked, 0, len(candidates))
	seen := make(map[uuid.UUID]struct{}, len(candidates))
	for _, id := range candidates {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		profile, err := s.directory.GetWorkerProfile(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load profile for %s: %w", id, err)
		}
		ranked = append(ranked, Ranked{WorkerID: id, Score: Score(profile, serviceID)})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score.Total != ranked[j].Score.Total {
			return ranked[i].Score.Total > ranked[j].Score.Total
		}
		return bytes.Compare(ranked[i].WorkerID[:], ranked[j].WorkerID[:]) < 0
	})
	return ranked, nil
}

// SelectBest returns the top ranked candidate. found is false when
// candidates is empty.
func (s *Service) SelectBest(ctx context.Context, candidates []uuid.UUID, serviceID uuid.UUID) (best uuid.UUID, found bool, err error) {
	ctx, span := telemetry.StartSpan(ctx, "scoring.SelectBest")
	span.SetAttributes(attribute.Int("candidates", len(candidates)))
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	if len(candidates) == 0 {
		s.record("empty")
		return uuid.Nil, false, nil
	}

	ranked, err := s.Rank(ctx, candidates, serviceID)
	if err != nil {
		s.record("error")
		return uuid.Nil, false, err
	}

	top := ranked[0]
	s.record("selected")
	s.log.Debug("worker selected",
		"worker_id", top.WorkerID.String(),
		"score", top.Score.Total,
		"candidates", len(ranked))
	return top.WorkerID, true, nil
}

func (s *Service) record(result string) {
	if s.metrics != nil {
		s.metrics.SelectionsTotal.WithLabelValues(result).Inc()
	}
}
