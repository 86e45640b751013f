package support

import (
	"context"
	"sync"
	"testing"
	"time"

	"greenloop/internal/utils"
	"greenloop/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)

func cloneSupport(sup *types.Support) *types.Support {
	clone := *sup
	clone.Materials = make(types.SupportMaterials, len(sup.Materials))
	copy(clone.Materials, sup.Materials)
	return &clone
}

type fakeStore struct {
	mu       sync.Mutex
	supports map[string]*types.Support
}

func newFakeStore() *fakeStore {
	return &fakeStore{supports: make(map[string]*types.Support)}
}

func (f *fakeStore) Support(_ context.Context, supportID string) (*types.Support, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.supports[supportID]
	if !ok {
		return nil, types.ErrSupportNotFound
	}
	return cloneSupport(stored), nil
}

// CreateSupport mirrors the one-open-pledge-per-giver unique index.
func (f *fakeStore) CreateSupport(_ context.Context, sup *types.Support) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, s := range f.supports {
		if s.InitiativeID == sup.InitiativeID && s.GiverID == sup.GiverID && !s.Status.Terminal() {
			return types.ErrActiveSupportExists
		}
	}

	if sup.ID == "" {
		sup.ID = utils.NanoID()
	}
	sup.CreatedAt = testNow
	sup.UpdatedAt = testNow

	f.supports[sup.ID] = cloneSupport(sup)
	return nil
}

func (f *fakeStore) UpdateSupport(_ context.Context, sup *types.Support, fromStatus types.SupportStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.supports[sup.ID]
	if !ok {
		return types.ErrSupportNotFound
	}
	if stored.Status != fromStatus {
		return types.ErrStatusConflict
	}

	f.supports[sup.ID] = cloneSupport(sup)
	return nil
}

type fakeRegistry struct {
	posts map[string]*types.Post
}

func (f *fakeRegistry) Post(_ context.Context, postID string) (*types.Post, error) {
	post, ok := f.posts[postID]
	if !ok {
		return nil, types.ErrPostNotFound
	}
	clone := *post
	return &clone, nil
}

type fakeDirectory struct {
	parties map[string]*types.Party
}

func (f *fakeDirectory) Party(_ context.Context, partyID string) (*types.Party, error) {
	party, ok := f.parties[partyID]
	if !ok {
		return nil, types.ErrPartyNotFound
	}
	return party, nil
}

type fakePickups struct {
	pickups map[string]*types.Pickup
}

func (f *fakePickups) Pickup(_ context.Context, pickupID string) (*types.Pickup, error) {
	p, ok := f.pickups[pickupID]
	if !ok {
		return nil, types.ErrPickupNotFound
	}
	clone := *p
	return &clone, nil
}

// fakeProgress enforces the same once-per-(support, material) semantics as
// the conflict-ignoring insert.
type fakeProgress struct {
	mu      sync.Mutex
	records map[string]*types.MaterialProgress
}

func newFakeProgress() *fakeProgress {
	return &fakeProgress{records: make(map[string]*types.MaterialProgress)}
}

func (f *fakeProgress) RecordOnce(_ context.Context, rec *types.MaterialProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := rec.SupportID + "/" + rec.MaterialID
	if _, ok := f.records[key]; ok {
		return nil
	}
	f.records[key] = rec
	return nil
}

type recordedEvent struct {
	Type    string
	Payload any
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (d *recordingDispatcher) Emit(_ context.Context, eventType string, payload any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, recordedEvent{Type: eventType, Payload: payload})
}

func (d *recordingDispatcher) eventTypes() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]string, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	svc        *Service
	store      *fakeStore
	progress   *fakeProgress
	dispatcher *recordingDispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newFakeStore()
	registry := &fakeRegistry{posts: map[string]*types.Post{
		"init-1": {
			ID:       "init-1",
			OwnerID:  "col-1",
			PostType: types.PostTypeInitiative,
			Status:   types.PostStatusAvailable,
			Title:    "Barangay cleanup drive",
		},
		"post-waste": {
			ID:       "post-waste",
			OwnerID:  "giver-1",
			PostType: types.PostTypeWaste,
			Status:   types.PostStatusAvailable,
			Title:    "Mixed plastics",
		},
	}}
	directory := &fakeDirectory{parties: map[string]*types.Party{
		"giver-1": {ID: "giver-1", DisplayName: "Giver One", IsGiver: true},
		"giver-2": {ID: "giver-2", DisplayName: "Giver Two", IsGiver: true},
		"col-1":   {ID: "col-1", DisplayName: "Collector One", IsCollector: true},
	}}
	pickups := &fakePickups{pickups: map[string]*types.Pickup{
		"pickup-init": {ID: "pickup-init", PostID: "init-1", GiverID: "giver-1", CollectorID: "col-1"},
		"pickup-else": {ID: "pickup-else", PostID: "post-waste", GiverID: "giver-1", CollectorID: "col-1"},
	}}
	progress := newFakeProgress()
	dispatcher := &recordingDispatcher{}

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	svc := New(logger, store, registry, directory, pickups, progress, dispatcher).
		WithClock(func() time.Time { return testNow })

	return &fixture{svc: svc, store: store, progress: progress, dispatcher: dispatcher}
}

func validOfferInput() OfferInput {
	return OfferInput{
		InitiativeID: "init-1",
		Materials: []OfferMaterial{
			{MaterialName: "PET Bottles", Quantity: 10, Unit: "kg"},
			{MaterialName: "Aluminum Cans", Quantity: 3, Unit: "kg"},
		},
	}
}

func (fx *fixture) offer(t *testing.T) *types.Support {
	t.Helper()

	sup, err := fx.svc.Offer(context.Background(), "giver-1", validOfferInput())
	require.NoError(t, err)
	return sup
}

func TestOffer(t *testing.T) {
	fx := newFixture(t)

	sup := fx.offer(t)

	assert.Equal(t, types.SupportStatusPending, sup.Status)
	assert.Equal(t, "giver-1", sup.GiverID)
	assert.Equal(t, "col-1", sup.CollectorID, "initiative owner collects")
	assert.Equal(t, "Barangay cleanup drive", sup.InitiativeTitle)
	require.Len(t, sup.Materials, 2)
	for _, m := range sup.Materials {
		assert.Equal(t, types.MaterialStatusPending, m.Status)
		assert.NotEmpty(t, m.MaterialID)
	}
	assert.Equal(t, []string{types.EventSupportOffered}, fx.dispatcher.eventTypes())
}

func TestOffer_WastePostRejected(t *testing.T) {
	fx := newFixture(t)

	input := validOfferInput()
	input.InitiativeID = "post-waste"

	_, err := fx.svc.Offer(context.Background(), "giver-2", input)
	require.Error(t, err)
	assert.Equal(t, types.KindValidation, types.KindOf(err))
}

func TestOffer_OwnInitiativeRejected(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.svc.Offer(context.Background(), "col-1", validOfferInput())
	require.Error(t, err)
	assert.Equal(t, types.KindAuthorization, types.KindOf(err))
}

func TestOffer_EmptyMaterialsRejected(t *testing.T) {
	fx := newFixture(t)

	input := validOfferInput()
	input.Materials = nil

	_, err := fx.svc.Offer(context.Background(), "giver-1", input)
	require.Error(t, err)
	assert.Equal(t, types.KindValidation, types.KindOf(err))
}

func TestOffer_ZeroQuantityRejected(t *testing.T) {
	fx := newFixture(t)

	input := validOfferInput()
	input.Materials[0].Quantity = 0

	_, err := fx.svc.Offer(context.Background(), "giver-1", input)
	require.Error(t, err)
	assert.Equal(t, types.KindValidation, types.KindOf(err))
}

func TestOffer_SecondOpenPledgeConflicts(t *testing.T) {
	fx := newFixture(t)

	fx.offer(t)

	_, err := fx.svc.Offer(context.Background(), "giver-1", validOfferInput())
	require.Error(t, err)
	assert.Equal(t, types.KindConflict, types.KindOf(err))

	// A different giver is free to pledge in parallel.
	_, err = fx.svc.Offer(context.Background(), "giver-2", validOfferInput())
	require.NoError(t, err)
}

// A collector takes the PET bottles but has no use for the cans: the
// aggregate lands on PartiallyAccepted and stays negotiable.
func TestPartialAcceptance(t *testing.T) {
	fx := newFixture(t)
	sup := fx.offer(t)

	petID := sup.Materials[0].MaterialID
	cansID := sup.Materials[1].MaterialID

	after, err := fx.svc.AcceptMaterial(context.Background(), sup.ID, "col-1", petID)
	require.NoError(t, err)
	assert.Equal(t, types.SupportStatusPartiallyAccepted, after.Status)
	require.NotNil(t, after.AcceptedAt)
	assert.Equal(t, testNow, *after.AcceptedAt)

	after, err = fx.svc.DeclineMaterial(context.Background(), sup.ID, "col-1", cansID, "no buyer for aluminum this month")
	require.NoError(t, err)
	assert.Equal(t, types.SupportStatusPartiallyAccepted, after.Status)
	assert.Equal(t, "no buyer for aluminum this month", after.Materials.ByID(cansID).RejectionReason)

	assert.Equal(t, []string{
		types.EventSupportOffered,
		types.EventSupportMaterialAccepted,
		types.EventSupportMaterialDeclined,
	}, fx.dispatcher.eventTypes())
}

func TestAcceptMaterial_LastOneSettles(t *testing.T) {
	fx := newFixture(t)
	sup := fx.offer(t)

	for _, m := range sup.Materials {
		_, err := fx.svc.AcceptMaterial(context.Background(), sup.ID, "col-1", m.MaterialID)
		require.NoError(t, err)
	}

	stored, err := fx.store.Support(context.Background(), sup.ID)
	require.NoError(t, err)
	assert.Equal(t, types.SupportStatusAccepted, stored.Status)
	assert.Contains(t, fx.dispatcher.eventTypes(), types.EventSupportAccepted)
}

func TestDeclineMaterial_RequiresReason(t *testing.T) {
	fx := newFixture(t)
	sup := fx.offer(t)

	_, err := fx.svc.DeclineMaterial(context.Background(), sup.ID, "col-1", sup.Materials[0].MaterialID, "")
	require.Error(t, err)
	assert.Equal(t, types.KindValidation, types.KindOf(err))
}

func TestResolveMaterial_OnlyCollector(t *testing.T) {
	fx := newFixture(t)
	sup := fx.offer(t)

	_, err := fx.svc.AcceptMaterial(context.Background(), sup.ID, "giver-1", sup.Materials[0].MaterialID)
	require.Error(t, err)
	assert.Equal(t, types.KindAuthorization, types.KindOf(err))
}

func TestResolveMaterial_AlreadyResolved(t *testing.T) {
	fx := newFixture(t)
	sup := fx.offer(t)

	materialID := sup.Materials[0].MaterialID

	_, err := fx.svc.AcceptMaterial(context.Background(), sup.ID, "col-1", materialID)
	require.NoError(t, err)

	_, err = fx.svc.DeclineMaterial(context.Background(), sup.ID, "col-1", materialID, "changed my mind")
	require.Error(t, err)
	assert.Equal(t, types.KindState, types.KindOf(err))
}

func TestResolveMaterial_UnknownMaterial(t *testing.T) {
	fx := newFixture(t)
	sup := fx.offer(t)

	_, err := fx.svc.AcceptMaterial(context.Background(), sup.ID, "col-1", "no-such-material")
	require.Error(t, err)
	assert.Equal(t, types.KindValidation, types.KindOf(err))
}

func TestAcceptAll(t *testing.T) {
	fx := newFixture(t)
	sup := fx.offer(t)

	after, err := fx.svc.AcceptAll(context.Background(), sup.ID, "col-1")
	require.NoError(t, err)

	assert.Equal(t, types.SupportStatusAccepted, after.Status)
	for _, m := range after.Materials {
		assert.Equal(t, types.MaterialStatusAccepted, m.Status)
	}
}

func TestAcceptAll_OnlyWhilePending(t *testing.T) {
	fx := newFixture(t)
	sup := fx.offer(t)

	_, err := fx.svc.AcceptMaterial(context.Background(), sup.ID, "col-1", sup.Materials[0].MaterialID)
	require.NoError(t, err)

	_, err = fx.svc.AcceptAll(context.Background(), sup.ID, "col-1")
	require.Error(t, err)
	assert.Equal(t, types.KindState, types.KindOf(err))
}

func TestDeclineAll(t *testing.T) {
	fx := newFixture(t)
	sup := fx.offer(t)

	after, err := fx.svc.DeclineAll(context.Background(), sup.ID, "col-1", "initiative is already overstocked")
	require.NoError(t, err)

	assert.Equal(t, types.SupportStatusDeclined, after.Status)
	for _, m := range after.Materials {
		assert.Equal(t, types.MaterialStatusDeclined, m.Status)
		assert.Equal(t, "initiative is already overstocked", m.RejectionReason)
	}
	assert.NotNil(t, after.DeclinedAt)
}

func TestDeclineAll_RequiresReason(t *testing.T) {
	fx := newFixture(t)
	sup := fx.offer(t)

	_, err := fx.svc.DeclineAll(context.Background(), sup.ID, "col-1", "")
	require.Error(t, err)
	assert.Equal(t, types.KindValidation, types.KindOf(err))
}

func TestLinkPickup(t *testing.T) {
	fx := newFixture(t)
	sup := fx.offer(t)

	_, err := fx.svc.AcceptAll(context.Background(), sup.ID, "col-1")
	require.NoError(t, err)

	after, err := fx.svc.LinkPickup(context.Background(), sup.ID, "pickup-init")
	require.NoError(t, err)

	assert.Equal(t, types.SupportStatusPickupScheduled, after.Status)
	assert.Equal(t, "pickup-init", utils.PtrString(after.PickupID))
}

func TestLinkPickup_RequiresAcceptedSupport(t *testing.T) {
	fx := newFixture(t)
	sup := fx.offer(t)

	_, err := fx.svc.LinkPickup(context.Background(), sup.ID, "pickup-init")
	require.Error(t, err)
	assert.Equal(t, types.KindState, types.KindOf(err))
}

func TestLinkPickup_WrongInitiative(t *testing.T) {
	fx := newFixture(t)
	sup := fx.offer(t)

	_, err := fx.svc.AcceptAll(context.Background(), sup.ID, "col-1")
	require.NoError(t, err)

	_, err = fx.svc.LinkPickup(context.Background(), sup.ID, "pickup-else")
	require.Error(t, err)
	assert.Equal(t, types.KindValidation, types.KindOf(err))
}

func TestComplete_CountsAcceptedMaterialsOnce(t *testing.T) {
	fx := newFixture(t)
	sup := fx.offer(t)

	petID := sup.Materials[0].MaterialID
	cansID := sup.Materials[1].MaterialID

	_, err := fx.svc.AcceptMaterial(context.Background(), sup.ID, "col-1", petID)
	require.NoError(t, err)
	_, err = fx.svc.DeclineMaterial(context.Background(), sup.ID, "col-1", cansID, "not needed")
	require.NoError(t, err)

	// A partially accepted pledge can still be handed off and settled.
	stored, err := fx.store.Support(context.Background(), sup.ID)
	require.NoError(t, err)
	stored.Status = types.SupportStatusAccepted
	require.NoError(t, fx.store.UpdateSupport(context.Background(), stored, types.SupportStatusPartiallyAccepted))

	after, err := fx.svc.Complete(context.Background(), sup.ID, "delivered at the hall")
	require.NoError(t, err)

	assert.Equal(t, types.SupportStatusCompleted, after.Status)
	assert.NotNil(t, after.CompletedAt)
	assert.Equal(t, "delivered at the hall", utils.PtrString(after.CompletionNotes))

	// Only the accepted material reaches the ledger.
	require.Len(t, fx.progress.records, 1)
	rec := fx.progress.records[sup.ID+"/"+petID]
	require.NotNil(t, rec)
	assert.Equal(t, "PET Bottles", rec.MaterialName)
	assert.Equal(t, 10.0, rec.Quantity)
}

func TestComplete_FromPendingFails(t *testing.T) {
	fx := newFixture(t)
	sup := fx.offer(t)

	_, err := fx.svc.Complete(context.Background(), sup.ID, "")
	require.Error(t, err)
	assert.Equal(t, types.KindState, types.KindOf(err))
}

func TestCancel(t *testing.T) {
	fx := newFixture(t)
	sup := fx.offer(t)

	after, err := fx.svc.Cancel(context.Background(), sup.ID, "giver-1", "moving out of the barangay")
	require.NoError(t, err)

	assert.Equal(t, types.SupportStatusCancelled, after.Status)
	assert.Equal(t, "giver-1", utils.PtrString(after.CancellationBy))
	assert.NotNil(t, after.CancelledAt)
}

func TestCancel_CompletedBlocked(t *testing.T) {
	fx := newFixture(t)
	sup := fx.offer(t)

	_, err := fx.svc.AcceptAll(context.Background(), sup.ID, "col-1")
	require.NoError(t, err)
	_, err = fx.svc.Complete(context.Background(), sup.ID, "")
	require.NoError(t, err)

	_, err = fx.svc.Cancel(context.Background(), sup.ID, "giver-1", "too late")
	require.Error(t, err)
	assert.Equal(t, types.KindState, types.KindOf(err))
}

func TestCancel_StrangerRejected(t *testing.T) {
	fx := newFixture(t)
	sup := fx.offer(t)

	_, err := fx.svc.Cancel(context.Background(), sup.ID, "giver-2", "nope")
	require.Error(t, err)
	assert.Equal(t, types.KindAuthorization, types.KindOf(err))
}
