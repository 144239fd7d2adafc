// Package orchestrator strings the four pipeline stages together: it reads
// already-persisted stage output, runs only the missing stages, and
// returns the final itinerary plus critique (spec.md §2, §6).
package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	reqcontext "github.com/va6996/tripplanner/context"
	"github.com/va6996/tripplanner/core"
	"github.com/va6996/tripplanner/critic"
	"github.com/va6996/tripplanner/domain"
	"github.com/va6996/tripplanner/log"
	"github.com/va6996/tripplanner/macroplanner"
	"github.com/va6996/tripplanner/poiplanner"
	"github.com/va6996/tripplanner/routeoptimizer"
	"github.com/va6996/tripplanner/store"
)

// entryFor returns a logger entry carrying the inbound request's ID, if
// any, so every stage call in this file can be correlated back to one
// HTTP request.
func entryFor(ctx context.Context) *logrus.Entry {
	return log.WithRequestID(reqcontext.RequestIDFromContext(ctx))
}

// pipelineGraph is validated once at init time: a cycle here would mean a
// future edit wired two stages into a mutual dependency, which Plan's
// fixed call order could no longer satisfy.
var pipelineGraph = core.PipelineGraph()

func init() {
	if err := core.ValidateGraph(pipelineGraph); err != nil {
		panic(fmt.Sprintf("orchestrator: invalid pipeline graph: %v", err))
	}
	if core.HasCycle(pipelineGraph) {
		panic("orchestrator: pipeline graph has a cycle")
	}
}

// Orchestrator composes the Macro Planner, POI Planner, Route & Time
// Optimizer, and Trip Critic into the three operations exposed at the
// HTTP boundary.
type Orchestrator struct {
	Store          *store.Store
	MacroPlanner   *macroplanner.Planner
	POIPlanner     *poiplanner.Planner
	RouteOptimizer *routeoptimizer.Optimizer

	tripLocks sync.Map // trip_id -> *sync.Mutex
}

func New(s *store.Store, mp *macroplanner.Planner, pp *poiplanner.Planner, ro *routeoptimizer.Optimizer) *Orchestrator {
	return &Orchestrator{Store: s, MacroPlanner: mp, POIPlanner: pp, RouteOptimizer: ro}
}

// lockFor returns the advisory mutex for tripID, serializing concurrent
// orchestrations of the same trip while leaving other trips unaffected
// (spec.md §5's shared-resources requirement).
func (o *Orchestrator) lockFor(tripID string) *sync.Mutex {
	value, _ := o.tripLocks.LoadOrStore(tripID, &sync.Mutex{})
	return value.(*sync.Mutex)
}

// Plan runs any missing stage in order and returns the final itinerary.
// It is idempotent: a second call against a fully-planned trip returns the
// same itinerary without re-running any stage (spec.md §6).
func (o *Orchestrator) Plan(ctx context.Context, tripID string) (domain.Itinerary, error) {
	entry := entryFor(ctx).WithField("trip_id", tripID)
	entry.Debug("plan: entry")

	lock := o.lockFor(tripID)
	lock.Lock()
	defer lock.Unlock()

	trip, err := o.Store.GetTripSpec(ctx, tripID)
	if err != nil {
		entry.WithField("error", err).Error("plan: failed to load trip spec")
		return domain.Itinerary{}, err
	}

	skeleton, err := o.ensureMacroPlan(ctx, tripID, trip)
	if err != nil {
		entry.WithField("error", err).Error("plan: macro planner stage failed")
		return domain.Itinerary{}, err
	}

	plan, err := o.ensurePOIPlan(ctx, tripID, trip, skeleton)
	if err != nil {
		entry.WithField("error", err).Error("plan: poi planner stage failed")
		return domain.Itinerary{}, err
	}

	itinerary, err := o.Store.GetItinerary(ctx, tripID)
	if err != nil {
		entry.WithField("error", err).Error("plan: failed to load existing itinerary")
		return domain.Itinerary{}, err
	}
	if itinerary != nil {
		entry.Debug("plan: exit (cached itinerary)")
		return *itinerary, nil
	}

	if plan == nil {
		return domain.Itinerary{}, domain.ErrItineraryRequiresPOIPlan
	}

	computed := o.RouteOptimizer.Optimize(ctx, trip, skeleton, *plan)
	computed, err = o.Store.SaveItinerary(ctx, tripID, computed)
	if err != nil {
		entry.WithField("error", err).Error("plan: failed to persist itinerary")
		return domain.Itinerary{}, err
	}

	issues := critic.Critique(trip, computed)
	if err := o.Store.SaveCritique(ctx, tripID, issues); err != nil {
		entry.WithField("error", err).Debug("failed to persist critique, itinerary still returned")
	}

	entry.Debug("plan: exit")
	return computed, nil
}

// GenerateMacroPlan runs (or returns the cached) macro-plan stage alone,
// backing the supplemented per-stage trigger endpoint.
func (o *Orchestrator) GenerateMacroPlan(ctx context.Context, tripID string) ([]domain.DaySkeleton, error) {
	entry := entryFor(ctx).WithField("trip_id", tripID)
	entry.Debug("generate macro plan: entry")

	lock := o.lockFor(tripID)
	lock.Lock()
	defer lock.Unlock()

	trip, err := o.Store.GetTripSpec(ctx, tripID)
	if err != nil {
		entry.WithField("error", err).Error("generate macro plan: failed to load trip spec")
		return nil, err
	}
	skeleton, err := o.ensureMacroPlan(ctx, tripID, trip)
	if err != nil {
		entry.WithField("error", err).Error("generate macro plan: stage failed")
		return nil, err
	}
	entry.Debug("generate macro plan: exit")
	return skeleton, nil
}

// GeneratePOIPlan runs (or returns the cached) POI-planner stage alone,
// requiring a macro plan to already exist.
func (o *Orchestrator) GeneratePOIPlan(ctx context.Context, tripID string) (*domain.POIPlan, error) {
	entry := entryFor(ctx).WithField("trip_id", tripID)
	entry.Debug("generate poi plan: entry")

	lock := o.lockFor(tripID)
	lock.Lock()
	defer lock.Unlock()

	trip, err := o.Store.GetTripSpec(ctx, tripID)
	if err != nil {
		entry.WithField("error", err).Error("generate poi plan: failed to load trip spec")
		return nil, err
	}

	skeleton, err := o.Store.GetMacroPlan(ctx, tripID)
	if err != nil {
		entry.WithField("error", err).Error("generate poi plan: failed to load macro plan")
		return nil, err
	}
	if len(skeleton) == 0 {
		return nil, domain.ErrPOIPlanRequiresMacroPlan
	}

	plan, err := o.ensurePOIPlan(ctx, tripID, trip, skeleton)
	if err != nil {
		entry.WithField("error", err).Error("generate poi plan: stage failed")
		return nil, err
	}
	entry.Debug("generate poi plan: exit")
	return plan, nil
}

// GetItinerary returns the persisted itinerary, or nil if plan() has not
// produced one yet.
func (o *Orchestrator) GetItinerary(ctx context.Context, tripID string) (*domain.Itinerary, error) {
	return o.Store.GetItinerary(ctx, tripID)
}

// GetCritique returns the persisted critique, or an empty list if the trip
// exists but has not been planned yet. An unknown trip (ErrTripNotFound) or
// a store failure is returned as an error.
func (o *Orchestrator) GetCritique(ctx context.Context, tripID string) ([]domain.CritiqueIssue, error) {
	issues, err := o.Store.GetCritique(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if issues == nil {
		return []domain.CritiqueIssue{}, nil
	}
	return issues, nil
}

func (o *Orchestrator) ensureMacroPlan(ctx context.Context, tripID string, trip domain.TripSpec) ([]domain.DaySkeleton, error) {
	existing, err := o.Store.GetMacroPlan(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}

	skeleton, err := o.MacroPlanner.Generate(ctx, trip)
	if err != nil {
		return nil, err
	}
	if err := o.Store.SaveMacroPlan(ctx, tripID, skeleton); err != nil {
		return nil, fmt.Errorf("failed to persist macro plan: %w", err)
	}
	return skeleton, nil
}

func (o *Orchestrator) ensurePOIPlan(ctx context.Context, tripID string, trip domain.TripSpec, skeleton []domain.DaySkeleton) (*domain.POIPlan, error) {
	existing, err := o.Store.GetPOIPlan(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	if len(skeleton) == 0 {
		return nil, domain.ErrPOIPlanRequiresMacroPlan
	}

	plan := o.POIPlanner.Generate(ctx, trip, skeleton)
	if err := o.Store.SavePOIPlan(ctx, tripID, plan); err != nil {
		return nil, fmt.Errorf("failed to persist poi plan: %w", err)
	}
	return &plan, nil
}
