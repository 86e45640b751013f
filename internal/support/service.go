// Package support owns the Support entity: one giver's multi-material pledge
// toward an initiative, negotiated material-by-material. The aggregate status
// is always the derived value of the material statuses until a workflow event
// (pickup link, completion, cancellation) overrides it.
package support

import (
	"context"
	"errors"
	"time"

	"greenloop/internal/dispatch"
	"greenloop/internal/utils"
	"greenloop/internal/validate"
	"greenloop/pkg/types"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

type Store interface {
	Support(ctx context.Context, supportID string) (*types.Support, error)
	CreateSupport(ctx context.Context, support *types.Support) error
	UpdateSupport(ctx context.Context, support *types.Support, fromStatus types.SupportStatus) error
}

type PostRegistry interface {
	Post(ctx context.Context, postID string) (*types.Post, error)
}

type PartyDirectory interface {
	Party(ctx context.Context, partyID string) (*types.Party, error)
}

// PickupFinder is the pickup manager's read surface, consulted when a pickup
// is linked to an accepted support.
type PickupFinder interface {
	Pickup(ctx context.Context, pickupID string) (*types.Pickup, error)
}

// ProgressRecorder records accepted-material quantities toward an
// initiative's running totals; RecordOnce must be idempotent per
// (supportID, materialID).
type ProgressRecorder interface {
	RecordOnce(ctx context.Context, rec *types.MaterialProgress) error
}

type Service struct {
	logger     *logrus.Logger
	store      Store
	posts      PostRegistry
	parties    PartyDirectory
	pickups    PickupFinder
	progress   ProgressRecorder
	dispatcher dispatch.Dispatcher
	validator  *validator.Validate
	now        func() time.Time
}

func New(
	logger *logrus.Logger,
	store Store,
	posts PostRegistry,
	parties PartyDirectory,
	pickups PickupFinder,
	progress ProgressRecorder,
	dispatcher dispatch.Dispatcher,
) *Service {
	return &Service{
		logger:     logger,
		store:      store,
		posts:      posts,
		parties:    parties,
		pickups:    pickups,
		progress:   progress,
		dispatcher: dispatcher,
		validator:  validate.New(),
		now:        time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type OfferMaterial struct {
	MaterialName string  `json:"material_name" validate:"required"`
	Quantity     float64 `json:"quantity" validate:"required,gt=0"`
	Unit         string  `json:"unit" validate:"required"`
}

type OfferInput struct {
	InitiativeID string          `json:"initiative_id" validate:"required"`
	Materials    []OfferMaterial `json:"materials" validate:"required,min=1,dive"`
	Notes        string          `json:"notes"`
}

// Offer creates a Pending support against an initiative post with every
// material Pending.
func (s *Service) Offer(ctx context.Context, giverID string, input OfferInput) (*types.Support, error) {

	if err := validate.Struct(s.validator, input); err != nil {
		return nil, err
	}

	post, err := s.posts.Post(ctx, input.InitiativeID)
	if err != nil {
		return nil, err
	}

	if post.PostType != types.PostTypeInitiative {
		return nil, types.NewValidationError("support offers may only target initiative posts")
	}
	if post.Status == types.PostStatusCompleted || post.Status == types.PostStatusClosed {
		return nil, types.NewConflictError("initiative is no longer open")
	}
	if post.OwnerID == giverID {
		return nil, types.NewAuthorizationError("cannot pledge support to your own initiative")
	}

	giver, err := s.parties.Party(ctx, giverID)
	if err != nil {
		return nil, err
	}
	if !giver.IsGiver {
		return nil, types.NewAuthorizationError("only a giver may pledge support")
	}

	materials := make(types.SupportMaterials, 0, len(input.Materials))
	for _, m := range input.Materials {
		materials = append(materials, types.SupportMaterial{
			MaterialID:   utils.NanoID(),
			MaterialName: m.MaterialName,
			Quantity:     m.Quantity,
			Unit:         m.Unit,
			Status:       types.MaterialStatusPending,
		})
	}

	sup := &types.Support{
		InitiativeID:    post.ID,
		InitiativeTitle: post.Title,
		GiverID:         giverID,
		CollectorID:     post.OwnerID,
		Materials:       materials,
		Status:          types.SupportStatusPending,
	}
	if input.Notes != "" {
		sup.Notes = utils.StringPtr(input.Notes)
	}

	err = s.store.CreateSupport(ctx, sup)
	if errors.Is(err, types.ErrActiveSupportExists) {
		return nil, types.NewConflictError("you already have an open pledge for this initiative")
	}
	if err != nil {
		return nil, err
	}

	s.emit(ctx, types.EventSupportOffered, sup, sup.CollectorID)

	return sup, nil
}

// AcceptMaterial marks one pending material Accepted and re-derives the
// aggregate. Collector only; legal while the aggregate is still negotiable.
func (s *Service) AcceptMaterial(ctx context.Context, supportID, actorID, materialID string) (*types.Support, error) {
	return s.resolveMaterial(ctx, supportID, actorID, materialID, types.MaterialStatusAccepted, "")
}

// DeclineMaterial marks one pending material Declined with a required reason.
func (s *Service) DeclineMaterial(ctx context.Context, supportID, actorID, materialID, reason string) (*types.Support, error) {
	if reason == "" {
		return nil, types.NewValidationError("a reason is required to decline a material")
	}
	return s.resolveMaterial(ctx, supportID, actorID, materialID, types.MaterialStatusDeclined, reason)
}

func (s *Service) resolveMaterial(
	ctx context.Context,
	supportID, actorID, materialID string,
	to types.MaterialStatus,
	reason string,
) (*types.Support, error) {

	sup, err := s.store.Support(ctx, supportID)
	if err != nil {
		return nil, err
	}

	if sup.Status != types.SupportStatusPending && sup.Status != types.SupportStatusPartiallyAccepted {
		return nil, types.NewStateError("materials cannot be resolved while the support is %s", sup.Status)
	}

	if actorID != sup.CollectorID {
		return nil, types.NewAuthorizationError("only the initiative owner may resolve offered materials")
	}

	material := sup.Materials.ByID(materialID)
	if material == nil {
		return nil, types.NewValidationError("material %s is not part of this support", materialID)
	}
	if material.Status != types.MaterialStatusPending {
		return nil, types.NewStateError("material %s has already been resolved", materialID)
	}

	fromStatus := sup.Status

	material.Status = to
	material.RejectionReason = reason
	s.stampResolution(sup, to)
	sup.Status = DeriveStatus(sup.Materials)

	if err := s.applyTransition(ctx, sup, fromStatus); err != nil {
		return nil, err
	}

	eventType := types.EventSupportMaterialAccepted
	if to == types.MaterialStatusDeclined {
		eventType = types.EventSupportMaterialDeclined
	}
	s.emit(ctx, eventType, sup, sup.GiverID)

	// The last material resolution may settle the whole pledge.
	switch sup.Status {
	case types.SupportStatusAccepted:
		s.emit(ctx, types.EventSupportAccepted, sup, sup.GiverID)
	case types.SupportStatusDeclined:
		s.emit(ctx, types.EventSupportDeclined, sup, sup.GiverID)
	}

	return sup, nil
}

// AcceptAll accepts every material in one step. Legal only while the support
// is entirely unresolved.
func (s *Service) AcceptAll(ctx context.Context, supportID, actorID string) (*types.Support, error) {
	return s.resolveAll(ctx, supportID, actorID, types.MaterialStatusAccepted, "")
}

// DeclineAll declines every material with a single required reason.
func (s *Service) DeclineAll(ctx context.Context, supportID, actorID, reason string) (*types.Support, error) {
	if reason == "" {
		return nil, types.NewValidationError("a reason is required to decline a support")
	}
	return s.resolveAll(ctx, supportID, actorID, types.MaterialStatusDeclined, reason)
}

func (s *Service) resolveAll(
	ctx context.Context,
	supportID, actorID string,
	to types.MaterialStatus,
	reason string,
) (*types.Support, error) {

	sup, err := s.store.Support(ctx, supportID)
	if err != nil {
		return nil, err
	}

	if sup.Status != types.SupportStatusPending {
		return nil, types.NewStateError("bulk resolution is only possible while the support is %s", types.SupportStatusPending)
	}

	if actorID != sup.CollectorID {
		return nil, types.NewAuthorizationError("only the initiative owner may resolve offered materials")
	}

	for i := range sup.Materials {
		sup.Materials[i].Status = to
		sup.Materials[i].RejectionReason = reason
	}
	s.stampResolution(sup, to)
	sup.Status = DeriveStatus(sup.Materials)

	if err := s.applyTransition(ctx, sup, types.SupportStatusPending); err != nil {
		return nil, err
	}

	if to == types.MaterialStatusAccepted {
		s.emit(ctx, types.EventSupportAccepted, sup, sup.GiverID)
	} else {
		s.emit(ctx, types.EventSupportDeclined, sup, sup.GiverID)
	}

	return sup, nil
}

// LinkPickup attaches the pickup scheduled for the accepted subset and moves
// the aggregate to PickupScheduled.
func (s *Service) LinkPickup(ctx context.Context, supportID, pickupID string) (*types.Support, error) {

	sup, err := s.store.Support(ctx, supportID)
	if err != nil {
		return nil, err
	}

	if sup.Status != types.SupportStatusAccepted {
		return nil, types.NewStateError("a pickup can only be linked to a fully accepted support")
	}

	pickup, err := s.pickups.Pickup(ctx, pickupID)
	if err != nil {
		return nil, err
	}
	if pickup.PostID != sup.InitiativeID {
		return nil, types.NewValidationError("pickup %s does not belong to this initiative", pickupID)
	}

	sup.PickupID = utils.StringPtr(pickupID)
	sup.Status = types.SupportStatusPickupScheduled

	if err := s.applyTransition(ctx, sup, types.SupportStatusAccepted); err != nil {
		return nil, err
	}

	s.emit(ctx, types.EventSupportScheduled, sup, sup.GiverID)

	return sup, nil
}

// Complete settles the pledge and counts every accepted material toward the
// initiative's running totals. The progress write is idempotent per
// (supportID, materialID), so a retried completion cannot double-count.
func (s *Service) Complete(ctx context.Context, supportID, completionNotes string) (*types.Support, error) {

	sup, err := s.store.Support(ctx, supportID)
	if err != nil {
		return nil, err
	}

	if sup.Status != types.SupportStatusPickupScheduled && sup.Status != types.SupportStatusAccepted {
		return nil, types.NewStateError("support cannot be completed from status %s", sup.Status)
	}

	fromStatus := sup.Status

	sup.Status = types.SupportStatusCompleted
	sup.CompletedAt = utils.TimePtr(s.now())
	if completionNotes != "" {
		sup.CompletionNotes = utils.StringPtr(completionNotes)
	}

	if err := s.applyTransition(ctx, sup, fromStatus); err != nil {
		return nil, err
	}

	for _, m := range sup.Materials {
		if m.Status != types.MaterialStatusAccepted {
			continue
		}

		rec := &types.MaterialProgress{
			SupportID:    sup.ID,
			MaterialID:   m.MaterialID,
			InitiativeID: sup.InitiativeID,
			MaterialName: m.MaterialName,
			Quantity:     m.Quantity,
			Unit:         m.Unit,
		}
		if err := s.progress.RecordOnce(ctx, rec); err != nil {
			// The completion is committed; progress is reconciled on retry.
			s.logger.WithError(err).WithFields(logrus.Fields{
				"support_id":  sup.ID,
				"material_id": m.MaterialID,
			}).Error("failed to record material progress")
		}
	}

	s.emit(ctx, types.EventSupportCompleted, sup, sup.GiverID)

	return sup, nil
}

// Cancel ends the pledge. Either party may cancel at any point before
// completion.
func (s *Service) Cancel(ctx context.Context, supportID, actorID, reason string) (*types.Support, error) {

	if reason == "" {
		return nil, types.NewValidationError("cancellation reason is required")
	}

	sup, err := s.store.Support(ctx, supportID)
	if err != nil {
		return nil, err
	}

	if sup.Status == types.SupportStatusCompleted {
		return nil, types.NewStateError("completed supports cannot be cancelled")
	}
	if sup.Status == types.SupportStatusCancelled {
		return nil, types.NewStateError("support is already cancelled")
	}

	if !sup.Party(actorID) {
		return nil, types.NewAuthorizationError("only a party to the support may cancel it")
	}

	fromStatus := sup.Status

	sup.Status = types.SupportStatusCancelled
	sup.CancelledAt = utils.TimePtr(s.now())
	sup.CancellationBy = utils.StringPtr(actorID)
	sup.CancellationReason = utils.StringPtr(reason)

	if err := s.applyTransition(ctx, sup, fromStatus); err != nil {
		return nil, err
	}

	notify := sup.CollectorID
	if actorID == sup.CollectorID {
		notify = sup.GiverID
	}
	s.emit(ctx, types.EventSupportCancelled, sup, notify)

	return sup, nil
}

// stampResolution records the first time any material reaches a resolved
// state; later resolutions keep the original stamp.
func (s *Service) stampResolution(sup *types.Support, to types.MaterialStatus) {
	switch to {
	case types.MaterialStatusAccepted:
		if sup.AcceptedAt == nil {
			sup.AcceptedAt = utils.TimePtr(s.now())
		}
	case types.MaterialStatusDeclined:
		if sup.DeclinedAt == nil {
			sup.DeclinedAt = utils.TimePtr(s.now())
		}
	}
}

func (s *Service) applyTransition(ctx context.Context, sup *types.Support, fromStatus types.SupportStatus) error {
	err := s.store.UpdateSupport(ctx, sup, fromStatus)
	if errors.Is(err, types.ErrStatusConflict) {
		return types.NewStateError("support is no longer in status %s", fromStatus)
	}
	return err
}

type supportEventPayload struct {
	Support       *types.Support `json:"support"`
	NotifyPartyID string         `json:"notify_party_id"`
}

func (s *Service) emit(ctx context.Context, eventType string, sup *types.Support, notifyPartyID string) {
	s.dispatcher.Emit(ctx, eventType, supportEventPayload{
		Support:       sup,
		NotifyPartyID: notifyPartyID,
	})
}
