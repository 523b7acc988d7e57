// Package service implements identity resolution: matching an observation
// against known contacts, computing the transitively connected cluster,
// converging it on a single primary, and projecting the consolidated view.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"unify/internal/contact/metrics"
	"unify/internal/contact/models"
	"unify/internal/platform/audit"
	dErrors "unify/pkg/domain-errors"
	"unify/pkg/platform/sentinel"
	"unify/pkg/requestcontext"
)

// Outcome classifies what a resolution did to the store.
type Outcome string

const (
	OutcomeCreatedPrimary   Outcome = "created_primary"
	OutcomeCreatedSecondary Outcome = "created_secondary"
	OutcomeMerged           Outcome = "merged"
	OutcomeNoop             Outcome = "noop"
)

// Service orchestrates identity resolution requests.
type Service struct {
	stores  StoreTx
	locker  Locker
	logger  *slog.Logger
	metrics *metrics.Metrics
	auditor *audit.Publisher
	tracer  trace.Tracer
}

// Option configures optional service dependencies.
type Option func(*Service)

// WithMetrics attaches Prometheus metrics to the resolution path.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAuditor attaches an audit publisher.
func WithAuditor(p *audit.Publisher) Option {
	return func(s *Service) { s.auditor = p }
}

// New constructs the resolution service. The locker serializes overlapping
// resolutions; the tx runner makes each resolution atomic.
func New(stores StoreTx, locker Locker, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		stores: stores,
		locker: locker,
		logger: logger,
		tracer: otel.Tracer("unify/contact"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// resolution carries the intra-transaction result out to the caller.
type resolution struct {
	view    *models.IdentityView
	outcome Outcome
	// created is the row inserted this request, if any.
	created *models.Contact
	// demoted counts primaries relabeled secondary this request.
	demoted int
}

// Resolve consolidates the observation into its contact cluster, creating or
// linking records as needed, and returns the cluster's identity view.
//
// The full read-mutate-read sequence runs under an attribute lock and inside
// one store transaction. A store conflict (concurrent overlapping resolution)
// retries the whole resolution once from the matcher, since the first run's
// reads may be stale.
func (s *Service) Resolve(ctx context.Context, obs models.Observation) (*models.IdentityView, error) {
	if obs.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one of email or phoneNumber must be provided")
	}

	ctx, span := s.tracer.Start(ctx, "contact.Resolve")
	defer span.End()

	start := time.Now()
	keys := lockKeys(obs)
	if err := s.locker.Lock(ctx, keys); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to acquire attribute lock")
	}
	defer s.locker.Unlock(ctx, keys)

	res, err := s.resolveOnce(ctx, obs)
	if err != nil && errors.Is(err, sentinel.ErrConflict) {
		s.observeConflictRetry()
		res, err = s.resolveOnce(ctx, obs)
	}
	if err != nil {
		return nil, s.translate(err)
	}

	s.observeResolution(res.outcome, start)
	s.emitAudit(ctx, res)
	s.logger.InfoContext(ctx, "identity resolved",
		"request_id", requestcontext.RequestID(ctx),
		"primary_id", res.view.PrimaryContactID,
		"outcome", string(res.outcome),
		"secondaries", len(res.view.SecondaryContactIDs),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res.view, nil
}

// resolveOnce runs one attempt of the full resolution inside a transaction.
func (s *Service) resolveOnce(ctx context.Context, obs models.Observation) (*resolution, error) {
	res := &resolution{}
	err := s.stores.RunInTx(ctx, func(store Store) error {
		direct, err := matchDirect(ctx, store, obs)
		if err != nil {
			return err
		}

		// Fresh observation: no matches anywhere, insert a new primary.
		if len(direct) == 0 {
			return s.createPrimary(ctx, store, obs, res)
		}

		cluster, err := buildCluster(ctx, store, direct)
		if err != nil {
			return err
		}
		primary := cluster[0]

		if err := s.demoteOthers(ctx, store, cluster, &primary, res); err != nil {
			return err
		}
		if err := s.insertIfNovel(ctx, store, cluster, obs, &primary, res); err != nil {
			return err
		}

		related, err := store.FindByIDOrLinkedID(ctx, primary.ID)
		if err != nil {
			return fmt.Errorf("fetch cluster view: %w", err)
		}
		res.view = assembleView(primary.ID, related)

		switch {
		case res.demoted > 0:
			res.outcome = OutcomeMerged
		case res.created != nil:
			res.outcome = OutcomeCreatedSecondary
		default:
			res.outcome = OutcomeNoop
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// createPrimary inserts a brand-new primary contact for an observation that
// matched nothing.
func (s *Service) createPrimary(ctx context.Context, store Store, obs models.Observation, res *resolution) error {
	now := requestcontext.Now(ctx)
	c := &models.Contact{
		Email:          optional(obs.Email),
		PhoneNumber:    optional(obs.PhoneNumber),
		LinkPrecedence: models.PrecedencePrimary,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := store.Insert(ctx, c); err != nil {
		return fmt.Errorf("insert primary: %w", err)
	}
	res.created = c
	res.outcome = OutcomeCreatedPrimary
	res.view = assembleView(c.ID, []models.Contact{*c})
	return nil
}

// demoteOthers relabels every non-selected primary in the cluster as a
// secondary of the selected one. Members already secondary are untouched even
// if their link points at a demoted primary: that record still exists, just
// relabeled, so the one-level indirection stays valid.
func (s *Service) demoteOthers(ctx context.Context, store Store, cluster []models.Contact, primary *models.Contact, res *resolution) error {
	now := requestcontext.Now(ctx)
	for i := range cluster {
		c := &cluster[i]
		if c.ID == primary.ID || !c.IsPrimary() {
			continue
		}
		if err := store.UpdatePrecedence(ctx, c.ID, models.PrecedenceSecondary, &primary.ID, now); err != nil {
			return fmt.Errorf("demote contact %d: %w", c.ID, err)
		}
		c.LinkPrecedence = models.PrecedenceSecondary
		c.LinkedID = &primary.ID
		c.UpdatedAt = now
		res.demoted++
	}

	// Should be unreachable: selection picked exactly one member and every
	// other primary was just demoted. Treat anything else as fatal rather
	// than silently picking one.
	primaries := 0
	for i := range cluster {
		if cluster[i].IsPrimary() && cluster[i].LinkedID == nil {
			primaries++
		}
	}
	if primaries != 1 {
		return dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("cluster converged to %d primaries", primaries))
	}
	return nil
}

// insertIfNovel creates one secondary carrying the observation's values as
// given when the observation supplies an email or phone not yet present
// anywhere in the cluster.
func (s *Service) insertIfNovel(ctx context.Context, store Store, cluster []models.Contact, obs models.Observation, primary *models.Contact, res *resolution) error {
	knownEmails := make(map[string]struct{}, len(cluster))
	knownPhones := make(map[string]struct{}, len(cluster))
	for i := range cluster {
		if key, ok := cluster[i].EmailKey(); ok {
			knownEmails[key] = struct{}{}
		}
		if key, ok := cluster[i].PhoneKey(); ok {
			knownPhones[key] = struct{}{}
		}
	}

	novel := false
	if key, ok := obs.EmailKey(); ok {
		if _, known := knownEmails[key]; !known {
			novel = true
		}
	}
	if key, ok := obs.PhoneKey(); ok {
		if _, known := knownPhones[key]; !known {
			novel = true
		}
	}
	if !novel {
		return nil
	}

	now := requestcontext.Now(ctx)
	c := &models.Contact{
		Email:          optional(obs.Email),
		PhoneNumber:    optional(obs.PhoneNumber),
		LinkedID:       &primary.ID,
		LinkPrecedence: models.PrecedenceSecondary,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := store.Insert(ctx, c); err != nil {
		return fmt.Errorf("insert secondary: %w", err)
	}
	res.created = c
	return nil
}

// translate maps store failures to caller-safe domain errors.
func (s *Service) translate(err error) error {
	switch {
	case dErrors.HasCode(err, dErrors.CodeValidation),
		dErrors.HasCode(err, dErrors.CodeBadRequest),
		dErrors.HasCode(err, dErrors.CodeInvariantViolation):
		return err
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "resolution conflicted with a concurrent request")
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "resolution timed out")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "identity resolution failed")
	}
}

func (s *Service) observeResolution(outcome Outcome, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncrementResolution(string(outcome))
	s.metrics.ObserveResolve(start)
}

func (s *Service) observeConflictRetry() {
	if s.metrics == nil {
		return
	}
	s.metrics.IncrementConflictRetry()
}

func (s *Service) emitAudit(ctx context.Context, res *resolution) {
	if s.auditor == nil {
		return
	}
	requestID := requestcontext.RequestID(ctx)
	now := requestcontext.Now(ctx)

	if res.created != nil {
		action := audit.EventContactCreated
		if res.created.LinkedID != nil {
			action = audit.EventContactLinked
		}
		_ = s.auditor.Emit(ctx, audit.Event{
			Timestamp: now,
			Action:    action,
			ContactID: res.created.ID,
			PrimaryID: res.view.PrimaryContactID,
			RequestID: requestID,
		})
	}
	if res.demoted > 0 {
		_ = s.auditor.Emit(ctx, audit.Event{
			Timestamp: now,
			Action:    audit.EventClustersMerged,
			PrimaryID: res.view.PrimaryContactID,
			RequestID: requestID,
			Detail:    fmt.Sprintf("%d primaries demoted", res.demoted),
		})
	}
}

// lockKeys derives the deterministic, sorted lock key set for an observation.
// Sorting gives a global acquisition order so overlapping requests cannot
// deadlock.
func lockKeys(obs models.Observation) []string {
	keys := make([]string, 0, 2)
	if key, ok := obs.EmailKey(); ok {
		keys = append(keys, "email:"+key)
	}
	if key, ok := obs.PhoneKey(); ok {
		keys = append(keys, "phone:"+key)
	}
	sort.Strings(keys)
	return keys
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
