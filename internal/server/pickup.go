package server

import (
	"context"
	"net/http"

	"greenloop/internal/pickup"
	"greenloop/internal/store"
	"greenloop/pkg/types"

	"github.com/alexedwards/flow"
)

func (s *Service) handleProposePickup(w http.ResponseWriter, r *http.Request) {

	var ctx = r.Context()

	actorID, err := s.partyIDFromContext(ctx)
	if err != nil {
		s.logger.WithError(err).Error("ctx doesn't contain party")
		s.internalServerError(w)
		return
	}

	var input pickup.ProposeInput
	if !s.decodeBody(w, r, &input) {
		return
	}

	created, err := s.pickups.Propose(ctx, actorID, input)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Service) handleListPickups(w http.ResponseWriter, r *http.Request) {

	var ctx = r.Context()

	var filter store.PickupFilter
	if err := decoder.Decode(&filter, r.URL.Query()); err != nil {
		s.badRequest(w, "malformed query parameters")
		return
	}

	pickups, err := s.pickupRepo.Pickups(ctx, filter)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, pickups)
}

func (s *Service) handleGetPickup(w http.ResponseWriter, r *http.Request) {

	var ctx = r.Context()

	actorID, err := s.partyIDFromContext(ctx)
	if err != nil {
		s.internalServerError(w)
		return
	}

	found, err := s.pickupRepo.Pickup(ctx, flow.Param(ctx, "pickupID"))
	if err != nil {
		s.respondError(w, err)
		return
	}

	if !found.Party(actorID) {
		s.respondJSON(w, http.StatusForbidden, errorResponse{Error: "not a party to this pickup"})
		return
	}

	s.respondJSON(w, http.StatusOK, found)
}

func (s *Service) handleUpdatePickup(w http.ResponseWriter, r *http.Request) {

	var ctx = r.Context()

	actorID, err := s.partyIDFromContext(ctx)
	if err != nil {
		s.internalServerError(w)
		return
	}

	var input pickup.UpdateInput
	if !s.decodeBody(w, r, &input) {
		return
	}

	updated, err := s.pickups.Update(ctx, flow.Param(ctx, "pickupID"), actorID, input)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Service) handleConfirmPickup(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.pickups.Confirm)
}

func (s *Service) handleStartTransit(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.pickups.StartTransit)
}

func (s *Service) handleArrive(w http.ResponseWriter, r *http.Request) {
	s.handleTransition(w, r, s.pickups.Arrive)
}

func (s *Service) handleTransition(
	w http.ResponseWriter,
	r *http.Request,
	transition func(ctx context.Context, pickupID, actorID string) (*types.Pickup, error),
) {

	var ctx = r.Context()

	actorID, err := s.partyIDFromContext(ctx)
	if err != nil {
		s.internalServerError(w)
		return
	}

	updated, err := transition(ctx, flow.Param(ctx, "pickupID"), actorID)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Service) handleCompletePickup(w http.ResponseWriter, r *http.Request) {

	var ctx = r.Context()

	actorID, err := s.partyIDFromContext(ctx)
	if err != nil {
		s.internalServerError(w)
		return
	}

	var input pickup.CompleteInput
	if !s.decodeBody(w, r, &input) {
		return
	}

	completed, err := s.pickups.Complete(ctx, flow.Param(ctx, "pickupID"), actorID, input)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, completed)
}

type cancelBody struct {
	Reason string `json:"reason"`
}

func (s *Service) handleCancelPickup(w http.ResponseWriter, r *http.Request) {

	var ctx = r.Context()

	actorID, err := s.partyIDFromContext(ctx)
	if err != nil {
		s.internalServerError(w)
		return
	}

	var body cancelBody
	if !s.decodeBody(w, r, &body) {
		return
	}

	result, err := s.pickups.Cancel(ctx, flow.Param(ctx, "pickupID"), actorID, body.Reason)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, result)
}
