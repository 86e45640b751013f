package server

import (
	"net/http"

	"greenloop/internal/store"
	"greenloop/internal/support"

	"github.com/alexedwards/flow"
)

func (s *Service) handleOfferSupport(w http.ResponseWriter, r *http.Request) {

	var ctx = r.Context()

	giverID, err := s.partyIDFromContext(ctx)
	if err != nil {
		s.internalServerError(w)
		return
	}

	var input support.OfferInput
	if !s.decodeBody(w, r, &input) {
		return
	}

	created, err := s.supports.Offer(ctx, giverID, input)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Service) handleListSupports(w http.ResponseWriter, r *http.Request) {

	var ctx = r.Context()

	var filter store.SupportFilter
	if err := decoder.Decode(&filter, r.URL.Query()); err != nil {
		s.badRequest(w, "malformed query parameters")
		return
	}

	supports, err := s.supportRepo.Supports(ctx, filter)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, supports)
}

func (s *Service) handleGetSupport(w http.ResponseWriter, r *http.Request) {

	var ctx = r.Context()

	actorID, err := s.partyIDFromContext(ctx)
	if err != nil {
		s.internalServerError(w)
		return
	}

	found, err := s.supportRepo.Support(ctx, flow.Param(ctx, "supportID"))
	if err != nil {
		s.respondError(w, err)
		return
	}

	if !found.Party(actorID) {
		s.respondJSON(w, http.StatusForbidden, errorResponse{Error: "not a party to this support"})
		return
	}

	s.respondJSON(w, http.StatusOK, found)
}

func (s *Service) handleAcceptMaterial(w http.ResponseWriter, r *http.Request) {

	var ctx = r.Context()

	actorID, err := s.partyIDFromContext(ctx)
	if err != nil {
		s.internalServerError(w)
		return
	}

	updated, err := s.supports.AcceptMaterial(ctx, flow.Param(ctx, "supportID"), actorID, flow.Param(ctx, "materialID"))
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, updated)
}

type declineBody struct {
	Reason string `json:"reason"`
}

func (s *Service) handleDeclineMaterial(w http.ResponseWriter, r *http.Request) {

	var ctx = r.Context()

	actorID, err := s.partyIDFromContext(ctx)
	if err != nil {
		s.internalServerError(w)
		return
	}

	var body declineBody
	if !s.decodeBody(w, r, &body) {
		return
	}

	updated, err := s.supports.DeclineMaterial(ctx, flow.Param(ctx, "supportID"), actorID, flow.Param(ctx, "materialID"), body.Reason)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Service) handleAcceptAll(w http.ResponseWriter, r *http.Request) {

	var ctx = r.Context()

	actorID, err := s.partyIDFromContext(ctx)
	if err != nil {
		s.internalServerError(w)
		return
	}

	updated, err := s.supports.AcceptAll(ctx, flow.Param(ctx, "supportID"), actorID)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Service) handleDeclineAll(w http.ResponseWriter, r *http.Request) {

	var ctx = r.Context()

	actorID, err := s.partyIDFromContext(ctx)
	if err != nil {
		s.internalServerError(w)
		return
	}

	var body declineBody
	if !s.decodeBody(w, r, &body) {
		return
	}

	updated, err := s.supports.DeclineAll(ctx, flow.Param(ctx, "supportID"), actorID, body.Reason)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, updated)
}

type linkPickupBody struct {
	PickupID string `json:"pickup_id"`
}

func (s *Service) handleLinkPickup(w http.ResponseWriter, r *http.Request) {

	var ctx = r.Context()

	if _, err := s.partyIDFromContext(ctx); err != nil {
		s.internalServerError(w)
		return
	}

	var body linkPickupBody
	if !s.decodeBody(w, r, &body) {
		return
	}
	if body.PickupID == "" {
		s.badRequest(w, "pickup_id is required")
		return
	}

	updated, err := s.supports.LinkPickup(ctx, flow.Param(ctx, "supportID"), body.PickupID)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, updated)
}

type completeSupportBody struct {
	CompletionNotes string `json:"completion_notes"`
}

func (s *Service) handleCompleteSupport(w http.ResponseWriter, r *http.Request) {

	var ctx = r.Context()

	if _, err := s.partyIDFromContext(ctx); err != nil {
		s.internalServerError(w)
		return
	}

	var body completeSupportBody
	if !s.decodeBody(w, r, &body) {
		return
	}

	completed, err := s.supports.Complete(ctx, flow.Param(ctx, "supportID"), body.CompletionNotes)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, completed)
}

func (s *Service) handleCancelSupport(w http.ResponseWriter, r *http.Request) {

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

	cancelled, err := s.supports.Cancel(ctx, flow.Param(ctx, "supportID"), actorID, body.Reason)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, cancelled)
}

func (s *Service) handleInitiativeProgress(w http.ResponseWriter, r *http.Request) {

	var ctx = r.Context()

	totals, err := s.progressRepo.TotalsByInitiative(ctx, flow.Param(ctx, "postID"))
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, totals)
}
