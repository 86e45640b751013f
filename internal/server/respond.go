package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"greenloop/pkg/types"
)

type errorResponse struct {
	Kind  string `json:"kind,omitempty"`
	Error string `json:"error"`
}

func (s *Service) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("failed to encode response")
	}
}

// respondError maps the domain error taxonomy onto HTTP statuses. Anything
// unrecognized is a 500 with the detail kept out of the response body.
func (s *Service) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrPickupNotFound),
		errors.Is(err, types.ErrSupportNotFound),
		errors.Is(err, types.ErrPostNotFound),
		errors.Is(err, types.ErrPartyNotFound):
		s.respondJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}

	var domainErr *types.Error
	if errors.As(err, &domainErr) {
		status := http.StatusInternalServerError
		switch domainErr.Kind {
		case types.KindValidation:
			status = http.StatusBadRequest
		case types.KindAuthorization:
			status = http.StatusForbidden
		case types.KindState, types.KindConflict:
			status = http.StatusConflict
		case types.KindPolicy:
			status = http.StatusUnprocessableEntity
		}

		s.respondJSON(w, status, errorResponse{Kind: string(domainErr.Kind), Error: domainErr.Reason})
		return
	}

	s.logger.WithError(err).Error("request failed")
	s.internalServerError(w)
}

func (s *Service) internalServerError(w http.ResponseWriter) {
	s.respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
}

func (s *Service) badRequest(w http.ResponseWriter, reason string) {
	s.respondJSON(w, http.StatusBadRequest, errorResponse{Kind: string(types.KindValidation), Error: reason})
}

func (s *Service) unauthorized(w http.ResponseWriter, reason string) {
	s.respondJSON(w, http.StatusUnauthorized, errorResponse{Error: reason})
}

func (s *Service) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.badRequest(w, "malformed request body")
		return false
	}
	return true
}
