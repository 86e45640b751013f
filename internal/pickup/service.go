// Package pickup owns the Pickup entity and its lifecycle state machine:
// Proposed -> Confirmed -> In-Transit -> ArrivedAtPickup -> Completed, with
// Cancelled reachable from every non-terminal state.
package pickup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"greenloop/internal/dispatch"
	"greenloop/internal/policy"
	"greenloop/internal/utils"
	"greenloop/internal/validate"
	"greenloop/pkg/types"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// Store is the persistence the manager requires. CreatePickup must be atomic
// against concurrent claims on the same post; UpdatePickup must be a
// compare-and-set on the current status.
type Store interface {
	Pickup(ctx context.Context, pickupID string) (*types.Pickup, error)
	ActivePickupByPost(ctx context.Context, postID string) (*types.Pickup, error)
	CreatePickup(ctx context.Context, pickup *types.Pickup) error
	UpdatePickup(ctx context.Context, pickup *types.Pickup, fromStatus types.PickupStatus) error
}

// PostRegistry is the consumed slice of the post registry contract.
type PostRegistry interface {
	Post(ctx context.Context, postID string) (*types.Post, error)
	SetStatus(ctx context.Context, postID string, status types.PostStatus) error
}

// PartyDirectory resolves actor identities and role flags.
type PartyDirectory interface {
	Party(ctx context.Context, partyID string) (*types.Party, error)
}

type Service struct {
	logger     *logrus.Logger
	store      Store
	posts      PostRegistry
	parties    PartyDirectory
	dispatcher dispatch.Dispatcher
	validator  *validator.Validate
	now        func() time.Time
}

func New(
	logger *logrus.Logger,
	store Store,
	posts PostRegistry,
	parties PartyDirectory,
	dispatcher dispatch.Dispatcher,
) *Service {
	return &Service{
		logger:     logger,
		store:      store,
		posts:      posts,
		parties:    parties,
		dispatcher: dispatcher,
		validator:  validate.New(),
		now:        time.Now,
	}
}

// WithClock overrides the wall clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type ProposeInput struct {
	PostID          string   `json:"post_id" validate:"required"`
	PickupDate      string   `json:"pickup_date" validate:"required,datetime=2006-01-02"`
	PickupTime      string   `json:"pickup_time" validate:"required,datetime=15:04"`
	PickupLocation  string   `json:"pickup_location" validate:"required"`
	ContactPerson   string   `json:"contact_person" validate:"required"`
	ContactNumber   string   `json:"contact_number" validate:"required,phmobile"`
	ExpectedTypes   []string `json:"expected_types" validate:"required,min=1,dive,required"`
	EstimatedAmount float64  `json:"estimated_amount" validate:"required,gt=0"`
	EstimatedUnit   string   `json:"estimated_unit" validate:"required"`
}

// Propose creates a Proposed pickup against a post. Either party may propose
// depending on post type; the claim-exclusivity invariant guarantees at most
// one active pickup per post even under concurrent calls.
func (s *Service) Propose(ctx context.Context, actorID string, input ProposeInput) (*types.Pickup, error) {

	if err := validate.Struct(s.validator, input); err != nil {
		return nil, err
	}

	pickupDate, scheduledAt, err := parseSchedule(input.PickupDate, input.PickupTime)
	if err != nil {
		return nil, err
	}

	if !scheduledAt.After(s.now()) {
		return nil, types.NewValidationError("pickup must be scheduled in the future")
	}

	post, err := s.posts.Post(ctx, input.PostID)
	if err != nil {
		return nil, err
	}

	assignment, ok := roleAssignments[post.PostType]
	if !ok {
		return nil, types.NewValidationError("unsupported post type %q", post.PostType)
	}

	if post.OwnerID == actorID {
		return nil, types.NewAuthorizationError("cannot propose a pickup against your own post")
	}

	if post.Status == types.PostStatusCompleted || post.Status == types.PostStatusClosed {
		return nil, types.NewConflictError("post is no longer open")
	}
	if post.PostType == types.PostTypeWaste && post.Status != types.PostStatusAvailable {
		return nil, types.NewConflictError("post is not available")
	}

	actor, err := s.parties.Party(ctx, actorID)
	if err != nil {
		return nil, err
	}

	if !assignment.actorAllowed(actor) {
		return nil, types.NewAuthorizationError("only a %s may propose a pickup for this post", assignment.actorRole)
	}

	if _, err := s.store.ActivePickupByPost(ctx, post.ID); err == nil {
		return nil, types.NewConflictError("an active pickup already exists for this post")
	} else if !errors.Is(err, types.ErrPickupNotFound) {
		return nil, err
	}

	giverID, collectorID := assignment.assign(post.OwnerID, actorID)

	pickup := &types.Pickup{
		PostID:          post.ID,
		PostType:        post.PostType,
		PostTitle:       post.Title,
		GiverID:         giverID,
		CollectorID:     collectorID,
		ProposedBy:      actorID,
		PickupDate:      pickupDate,
		PickupTime:      input.PickupTime,
		PickupLocation:  input.PickupLocation,
		ContactPerson:   input.ContactPerson,
		ContactNumber:   input.ContactNumber,
		ExpectedTypes:   input.ExpectedTypes,
		EstimatedAmount: input.EstimatedAmount,
		EstimatedUnit:   input.EstimatedUnit,
		Status:          types.PickupStatusProposed,
	}

	err = s.store.CreatePickup(ctx, pickup)
	if errors.Is(err, types.ErrActivePickupExists) {
		return nil, types.NewConflictError("an active pickup already exists for this post")
	}
	if err != nil {
		return nil, err
	}

	s.emit(ctx, types.EventPickupProposed, pickup, actorID, 0)

	return pickup, nil
}

// Confirm moves a Proposed pickup to Confirmed. Only the giver may confirm.
// A confirmed claim on a waste post marks the post Claimed.
func (s *Service) Confirm(ctx context.Context, pickupID, actorID string) (*types.Pickup, error) {

	pickup, err := s.store.Pickup(ctx, pickupID)
	if err != nil {
		return nil, err
	}

	if pickup.Status != types.PickupStatusProposed {
		return nil, types.NewStateError("pickup cannot be confirmed from status %s", pickup.Status)
	}

	if actorID != pickup.GiverID {
		return nil, types.NewAuthorizationError("only the giver may confirm a pickup")
	}

	pickup.Status = types.PickupStatusConfirmed
	pickup.ConfirmedAt = utils.TimePtr(s.now())

	if err := s.applyTransition(ctx, pickup, types.PickupStatusProposed); err != nil {
		return nil, err
	}

	if pickup.PostType == types.PostTypeWaste {
		s.syncPostStatus(ctx, pickup.PostID, types.PostStatusClaimed)
	}

	s.emit(ctx, types.EventPickupConfirmed, pickup, actorID, 0)

	return pickup, nil
}

// StartTransit moves a Confirmed pickup to In-Transit. Collector only.
func (s *Service) StartTransit(ctx context.Context, pickupID, actorID string) (*types.Pickup, error) {

	pickup, err := s.store.Pickup(ctx, pickupID)
	if err != nil {
		return nil, err
	}

	if pickup.Status != types.PickupStatusConfirmed {
		return nil, types.NewStateError("pickup cannot start transit from status %s", pickup.Status)
	}

	if actorID != pickup.CollectorID {
		return nil, types.NewAuthorizationError("only the collector may start transit")
	}

	pickup.Status = types.PickupStatusInTransit
	pickup.InTransitAt = utils.TimePtr(s.now())

	if err := s.applyTransition(ctx, pickup, types.PickupStatusConfirmed); err != nil {
		return nil, err
	}

	s.emit(ctx, types.EventPickupStarted, pickup, actorID, 0)

	return pickup, nil
}

// Arrive moves an In-Transit pickup to ArrivedAtPickup. Collector only.
func (s *Service) Arrive(ctx context.Context, pickupID, actorID string) (*types.Pickup, error) {

	pickup, err := s.store.Pickup(ctx, pickupID)
	if err != nil {
		return nil, err
	}

	if pickup.Status != types.PickupStatusInTransit {
		return nil, types.NewStateError("pickup cannot arrive from status %s", pickup.Status)
	}

	if actorID != pickup.CollectorID {
		return nil, types.NewAuthorizationError("only the collector may mark arrival")
	}

	pickup.Status = types.PickupStatusArrived
	pickup.ArrivedAt = utils.TimePtr(s.now())

	if err := s.applyTransition(ctx, pickup, types.PickupStatusInTransit); err != nil {
		return nil, err
	}

	s.emit(ctx, types.EventPickupArrived, pickup, actorID, 0)

	return pickup, nil
}

type CompleteInput struct {
	ActualTypes        []string `json:"actual_types" validate:"required,min=1,dive,required"`
	FinalAmount        float64  `json:"final_amount" validate:"required,gt=0"`
	FinalUnit          string   `json:"final_unit" validate:"required"`
	WasteNotes         string   `json:"waste_notes"`
	PaymentReceived    *float64 `json:"payment_received" validate:"required,gte=0"`
	PaymentMethod      string   `json:"payment_method"`
	IdentityVerified   bool     `json:"identity_verified"`
	VerificationMethod string   `json:"verification_method"`
}

// Complete settles the hand-off. Legal from Confirmed, In-Transit, or
// ArrivedAtPickup, because a giver may skip granular transit tracking. Only
// the giver may complete.
func (s *Service) Complete(ctx context.Context, pickupID, actorID string, input CompleteInput) (*types.Pickup, error) {

	if err := validate.Struct(s.validator, input); err != nil {
		return nil, err
	}

	pickup, err := s.store.Pickup(ctx, pickupID)
	if err != nil {
		return nil, err
	}

	switch pickup.Status {
	case types.PickupStatusConfirmed, types.PickupStatusInTransit, types.PickupStatusArrived:
	default:
		return nil, types.NewStateError("pickup cannot be completed from status %s", pickup.Status)
	}

	if actorID != pickup.GiverID {
		return nil, types.NewAuthorizationError("only the giver may complete a pickup")
	}

	fromStatus := pickup.Status

	pickup.Status = types.PickupStatusCompleted
	pickup.CompletedAt = utils.TimePtr(s.now())
	pickup.ActualTypes = input.ActualTypes
	pickup.FinalAmount = utils.Float64Ptr(input.FinalAmount)
	pickup.FinalUnit = utils.StringPtr(input.FinalUnit)
	pickup.PaymentReceived = input.PaymentReceived
	pickup.IdentityVerified = input.IdentityVerified
	if input.WasteNotes != "" {
		pickup.WasteNotes = utils.StringPtr(input.WasteNotes)
	}
	if input.PaymentMethod != "" {
		pickup.PaymentMethod = utils.StringPtr(input.PaymentMethod)
	}
	if input.VerificationMethod != "" {
		pickup.VerificationMethod = utils.StringPtr(input.VerificationMethod)
	}

	if err := s.applyTransition(ctx, pickup, fromStatus); err != nil {
		return nil, err
	}

	s.syncPostStatus(ctx, pickup.PostID, types.PostStatusCompleted)

	s.emit(ctx, types.EventPickupCompleted, pickup, actorID, 0)

	return pickup, nil
}

// CancelResult carries the advisory reputation penalty back to the caller;
// applying it is the reputation collaborator's job.
type CancelResult struct {
	Pickup     *types.Pickup `json:"pickup"`
	Penalty    int           `json:"penalty"`
	HoursUntil float64       `json:"hours_until"`
}

// Cancel ends a non-terminal pickup, subject to the cancellation policy.
// Either party may cancel.
func (s *Service) Cancel(ctx context.Context, pickupID, actorID, reason string) (*CancelResult, error) {

	if reason == "" {
		return nil, types.NewValidationError("cancellation reason is required")
	}

	pickup, err := s.store.Pickup(ctx, pickupID)
	if err != nil {
		return nil, err
	}

	if !pickup.Party(actorID) {
		return nil, types.NewAuthorizationError("only a party to the pickup may cancel it")
	}

	decision, err := policy.Evaluate(pickup, s.now())
	if err != nil {
		return nil, fmt.Errorf("evaluate cancellation policy: %w", err)
	}

	if !decision.Eligible {
		return nil, types.NewPolicyError("%s", decision.Reason)
	}

	penalty := policy.Penalty(pickup.Status, decision.HoursUntil)
	fromStatus := pickup.Status

	pickup.Status = types.PickupStatusCancelled
	pickup.CancelledAt = utils.TimePtr(s.now())
	pickup.CancellationBy = utils.StringPtr(actorID)
	pickup.CancellationReason = utils.StringPtr(reason)

	if err := s.applyTransition(ctx, pickup, fromStatus); err != nil {
		return nil, err
	}

	// A claimed waste post goes back on the market.
	if post, err := s.posts.Post(ctx, pickup.PostID); err == nil && post.Status == types.PostStatusClaimed {
		s.syncPostStatus(ctx, pickup.PostID, types.PostStatusAvailable)
	}

	s.emit(ctx, types.EventPickupCancelled, pickup, actorID, penalty)

	return &CancelResult{Pickup: pickup, Penalty: penalty, HoursUntil: decision.HoursUntil}, nil
}

type UpdateInput struct {
	PickupDate     *string `json:"pickup_date" validate:"omitempty,datetime=2006-01-02"`
	PickupTime     *string `json:"pickup_time" validate:"omitempty,datetime=15:04"`
	PickupLocation *string `json:"pickup_location"`
	ContactPerson  *string `json:"contact_person"`
	ContactNumber  *string `json:"contact_number" validate:"omitempty,phmobile"`
}

// Update patches schedule and contact fields on a still-Proposed pickup.
// Only the proposing party may update.
func (s *Service) Update(ctx context.Context, pickupID, actorID string, input UpdateInput) (*types.Pickup, error) {

	if err := validate.Struct(s.validator, input); err != nil {
		return nil, err
	}

	pickup, err := s.store.Pickup(ctx, pickupID)
	if err != nil {
		return nil, err
	}

	if pickup.Status != types.PickupStatusProposed {
		return nil, types.NewStateError("pickup cannot be updated from status %s", pickup.Status)
	}

	if actorID != pickup.ProposedBy {
		return nil, types.NewAuthorizationError("only the proposing party may update a pickup")
	}

	if input.PickupDate != nil {
		date, _, err := parseSchedule(*input.PickupDate, pickup.PickupTime)
		if err != nil {
			return nil, err
		}
		pickup.PickupDate = date
	}
	if input.PickupTime != nil {
		pickup.PickupTime = *input.PickupTime
	}
	if input.PickupLocation != nil {
		pickup.PickupLocation = *input.PickupLocation
	}
	if input.ContactPerson != nil {
		pickup.ContactPerson = *input.ContactPerson
	}
	if input.ContactNumber != nil {
		pickup.ContactNumber = *input.ContactNumber
	}

	scheduledAt, err := pickup.ScheduledAt()
	if err != nil {
		return nil, types.NewValidationError("invalid pickup schedule: %v", err)
	}
	if !scheduledAt.After(s.now()) {
		return nil, types.NewValidationError("pickup must be scheduled in the future")
	}

	if err := s.applyTransition(ctx, pickup, types.PickupStatusProposed); err != nil {
		return nil, err
	}

	s.emit(ctx, types.EventPickupUpdated, pickup, actorID, 0)

	return pickup, nil
}

// applyTransition performs the compare-and-set write, translating a CAS miss
// into the state-machine error the caller reports.
func (s *Service) applyTransition(ctx context.Context, pickup *types.Pickup, fromStatus types.PickupStatus) error {
	err := s.store.UpdatePickup(ctx, pickup, fromStatus)
	if errors.Is(err, types.ErrStatusConflict) {
		return types.NewStateError("pickup is no longer in status %s", fromStatus)
	}
	return err
}

// syncPostStatus requests a post status change from the registry. The
// triggering transition is already committed, so failures are logged and
// retried but never propagated.
func (s *Service) syncPostStatus(ctx context.Context, postID string, status types.PostStatus) {
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		if err = s.posts.SetStatus(ctx, postID, status); err == nil {
			return
		}
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}

	s.logger.WithError(err).WithFields(logrus.Fields{
		"post_id": postID,
		"status":  status,
	}).Error("failed to sync post status")
}

type pickupEventPayload struct {
	Pickup        *types.Pickup `json:"pickup"`
	NotifyPartyID string        `json:"notify_party_id"`
	Penalty       int           `json:"penalty,omitempty"`
}

func (s *Service) emit(ctx context.Context, eventType string, pickup *types.Pickup, actorID string, penalty int) {
	s.dispatcher.Emit(ctx, eventType, pickupEventPayload{
		Pickup:        pickup,
		NotifyPartyID: counterparty(pickup, actorID),
		Penalty:       penalty,
	})
}

// counterparty returns the party on the other side of the one who acted.
func counterparty(pickup *types.Pickup, actorID string) string {
	if actorID == pickup.GiverID {
		return pickup.CollectorID
	}
	return pickup.GiverID
}

func parseSchedule(dateStr, timeStr string) (time.Time, time.Time, error) {
	date, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
	if err != nil {
		return time.Time{}, time.Time{}, types.NewValidationError("invalid pickup date %q", dateStr)
	}

	clock, err := time.Parse("15:04", timeStr)
	if err != nil {
		return time.Time{}, time.Time{}, types.NewValidationError("invalid pickup time %q", timeStr)
	}

	scheduledAt := time.Date(date.Year(), date.Month(), date.Day(), clock.Hour(), clock.Minute(), 0, 0, time.Local)
	return date, scheduledAt, nil
}
