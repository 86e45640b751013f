package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"greenloop/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testService() *Service {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return &Service{logger: logger}
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"validation", types.NewValidationError("bad input"), http.StatusBadRequest, "VALIDATION"},
		{"authorization", types.NewAuthorizationError("not yours"), http.StatusForbidden, "AUTHORIZATION"},
		{"state", types.NewStateError("wrong status"), http.StatusConflict, "STATE"},
		{"conflict", types.NewConflictError("already claimed"), http.StatusConflict, "CONFLICT"},
		{"policy", types.NewPolicyError("window closed"), http.StatusUnprocessableEntity, "POLICY"},
		{"pickup not found", types.ErrPickupNotFound, http.StatusNotFound, ""},
		{"support not found", types.ErrSupportNotFound, http.StatusNotFound, ""},
		{"post not found", types.ErrPostNotFound, http.StatusNotFound, ""},
		{"party not found", types.ErrPartyNotFound, http.StatusNotFound, ""},
		{"unknown", errors.New("pg connection lost"), http.StatusInternalServerError, ""},
	}

	svc := testService()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			svc.respondError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body errorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantKind, body.Kind)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestRespondError_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	testService().respondError(rec, errors.New("dial tcp 10.0.0.3:5432: connection refused"))

	var body errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "internal server error", body.Error)
}

func TestRespondError_WrappedDomainError(t *testing.T) {
	rec := httptest.NewRecorder()
	wrapped := errors.Join(errors.New("handling cancel"), types.NewPolicyError("window closed"))
	testService().respondError(rec, wrapped)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
