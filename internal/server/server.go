// Package server exposes the coordination core over a JSON HTTP API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"greenloop/internal/pickup"
	"greenloop/internal/store"
	"greenloop/internal/support"
	"greenloop/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/go-playground/form/v4"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/sirupsen/logrus"
)

var decoder = form.NewDecoder()

type Service struct {
	logger *logrus.Logger
	config *types.Config

	pickups  *pickup.Service
	supports *support.Service

	pickupRepo   *store.PickupRepository
	supportRepo  *store.SupportRepository
	progressRepo *store.ProgressRepository

	jwksCache *jwk.Cache
	jwksURL   string

	server *http.Server
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	pickups *pickup.Service,
	supports *support.Service,
	pickupRepo *store.PickupRepository,
	supportRepo *store.SupportRepository,
	progressRepo *store.ProgressRepository,
	jwksCache *jwk.Cache,
	jwksURL string,
) *Service {
	mux := flow.New()

	s := &Service{
		logger:       logger,
		config:       config,
		pickups:      pickups,
		supports:     supports,
		pickupRepo:   pickupRepo,
		supportRepo:  supportRepo,
		progressRepo: progressRepo,
		jwksCache:    jwksCache,
		jwksURL:      jwksURL,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			Handler:           mux,
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	s.buildRouter(mux)

	return s
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.StripTrailingSlash)
	r.Use(s.LoggingMiddleware)

	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAuth)

		r.HandleFunc("/pickups", s.handleProposePickup, http.MethodPost)
		r.HandleFunc("/pickups", s.handleListPickups, http.MethodGet)
		r.HandleFunc("/pickups/:pickupID", s.handleGetPickup, http.MethodGet)
		r.HandleFunc("/pickups/:pickupID", s.handleUpdatePickup, http.MethodPatch)
		r.HandleFunc("/pickups/:pickupID/confirm", s.handleConfirmPickup, http.MethodPost)
		r.HandleFunc("/pickups/:pickupID/transit", s.handleStartTransit, http.MethodPost)
		r.HandleFunc("/pickups/:pickupID/arrive", s.handleArrive, http.MethodPost)
		r.HandleFunc("/pickups/:pickupID/complete", s.handleCompletePickup, http.MethodPost)
		r.HandleFunc("/pickups/:pickupID/cancel", s.handleCancelPickup, http.MethodPost)

		r.HandleFunc("/supports", s.handleOfferSupport, http.MethodPost)
		r.HandleFunc("/supports", s.handleListSupports, http.MethodGet)
		r.HandleFunc("/supports/:supportID", s.handleGetSupport, http.MethodGet)
		r.HandleFunc("/supports/:supportID/materials/:materialID/accept", s.handleAcceptMaterial, http.MethodPost)
		r.HandleFunc("/supports/:supportID/materials/:materialID/decline", s.handleDeclineMaterial, http.MethodPost)
		r.HandleFunc("/supports/:supportID/accept", s.handleAcceptAll, http.MethodPost)
		r.HandleFunc("/supports/:supportID/decline", s.handleDeclineAll, http.MethodPost)
		r.HandleFunc("/supports/:supportID/pickup", s.handleLinkPickup, http.MethodPost)
		r.HandleFunc("/supports/:supportID/complete", s.handleCompleteSupport, http.MethodPost)
		r.HandleFunc("/supports/:supportID/cancel", s.handleCancelSupport, http.MethodPost)

		r.HandleFunc("/initiatives/:postID/progress", s.handleInitiativeProgress, http.MethodGet)
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) partyIDFromContext(ctx context.Context) (string, error) {
	partyID, ok := ctx.Value(contextKeyPartyID).(string)
	if !ok {
		return "", fmt.Errorf("party id not found in context")
	}
	return partyID, nil
}
