// Package seed loads development fixtures: parties, posts, and a spread of
// pickups and supports across lifecycle states.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"greenloop/internal/store"
	"greenloop/internal/utils"
	"greenloop/pkg/types"
)

var wasteTypes = []string{"PET Bottles", "Aluminum Cans", "Cardboard", "Glass", "Scrap Metal", "E-Waste"}

var wasteTitles = []string{
	"[seed] Mixed plastics from sari-sari store",
	"[seed] Flattened cardboard, about two sacks",
	"[seed] Aluminum cans collected over a month",
	"[seed] Old appliances and wiring",
	"[seed] Glass bottles from canteen",
}

var initiativeTitles = []string{
	"[seed] Barangay cleanup drive material collection",
	"[seed] School recycling program",
	"[seed] Community plastic bank",
}

type weightedPickupStatus struct {
	Status types.PickupStatus
	Weight int
}

var weightedStatuses = []weightedPickupStatus{
	{Status: types.PickupStatusProposed, Weight: 35},
	{Status: types.PickupStatusConfirmed, Weight: 30},
	{Status: types.PickupStatusInTransit, Weight: 10},
	{Status: types.PickupStatusArrived, Weight: 5},
	{Status: types.PickupStatusCompleted, Weight: 15},
	{Status: types.PickupStatusCancelled, Weight: 5},
}

func pickStatus(r *rand.Rand) types.PickupStatus {
	total := 0
	for _, ws := range weightedStatuses {
		total += ws.Weight
	}

	n := r.Intn(total)
	for _, ws := range weightedStatuses {
		n -= ws.Weight
		if n < 0 {
			return ws.Status
		}
	}

	return types.PickupStatusProposed
}

type Result struct {
	GiverIDs      []string
	CollectorIDs  []string
	WastePostIDs  []string
	InitiativeIDs []string
	PickupIDs     []string
	SupportIDs    []string
}

func Run(
	ctx context.Context,
	parties *store.PartyRepository,
	posts *store.PostRepository,
	pickups *store.PickupRepository,
	supports *store.SupportRepository,
) (*Result, error) {

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	result := new(Result)

	for i := 0; i < 4; i++ {
		giver := &types.Party{
			DisplayName: fmt.Sprintf("[seed] Giver %d", i+1),
			IsGiver:     true,
		}
		if err := parties.CreateParty(ctx, giver); err != nil {
			return nil, fmt.Errorf("seed giver: %w", err)
		}
		result.GiverIDs = append(result.GiverIDs, giver.ID)
	}

	for i := 0; i < 3; i++ {
		collector := &types.Party{
			DisplayName: fmt.Sprintf("[seed] Collector %d", i+1),
			IsCollector: true,
		}
		if err := parties.CreateParty(ctx, collector); err != nil {
			return nil, fmt.Errorf("seed collector: %w", err)
		}
		result.CollectorIDs = append(result.CollectorIDs, collector.ID)
	}

	for _, title := range wasteTitles {
		post := &types.Post{
			OwnerID:  result.GiverIDs[r.Intn(len(result.GiverIDs))],
			PostType: types.PostTypeWaste,
			Status:   types.PostStatusAvailable,
			Title:    title,
		}
		if err := posts.CreatePost(ctx, post); err != nil {
			return nil, fmt.Errorf("seed waste post: %w", err)
		}
		result.WastePostIDs = append(result.WastePostIDs, post.ID)
	}

	for _, title := range initiativeTitles {
		post := &types.Post{
			OwnerID:  result.CollectorIDs[r.Intn(len(result.CollectorIDs))],
			PostType: types.PostTypeInitiative,
			Status:   types.PostStatusAvailable,
			Title:    title,
		}
		if err := posts.CreatePost(ctx, post); err != nil {
			return nil, fmt.Errorf("seed initiative post: %w", err)
		}
		result.InitiativeIDs = append(result.InitiativeIDs, post.ID)
	}

	for i, postID := range result.WastePostIDs {
		if i >= 3 {
			break
		}

		post, err := posts.Post(ctx, postID)
		if err != nil {
			return nil, err
		}

		pickup := buildPickup(r, post, result.CollectorIDs[r.Intn(len(result.CollectorIDs))])
		if err := pickups.CreatePickup(ctx, pickup); err != nil {
			return nil, fmt.Errorf("seed pickup: %w", err)
		}
		result.PickupIDs = append(result.PickupIDs, pickup.ID)

		if pickup.Status == types.PickupStatusConfirmed || pickup.Status == types.PickupStatusInTransit {
			if err := posts.SetStatus(ctx, postID, types.PostStatusClaimed); err != nil {
				return nil, err
			}
		}
	}

	for _, initiativeID := range result.InitiativeIDs {
		post, err := posts.Post(ctx, initiativeID)
		if err != nil {
			return nil, err
		}

		sup := &types.Support{
			InitiativeID:    post.ID,
			InitiativeTitle: post.Title,
			GiverID:         result.GiverIDs[r.Intn(len(result.GiverIDs))],
			CollectorID:     post.OwnerID,
			Status:          types.SupportStatusPending,
			Materials: types.SupportMaterials{
				{
					MaterialID:   utils.NanoID(),
					MaterialName: wasteTypes[r.Intn(len(wasteTypes))],
					Quantity:     float64(1 + r.Intn(20)),
					Unit:         "kg",
					Status:       types.MaterialStatusPending,
				},
				{
					MaterialID:   utils.NanoID(),
					MaterialName: wasteTypes[r.Intn(len(wasteTypes))],
					Quantity:     float64(1 + r.Intn(10)),
					Unit:         "kg",
					Status:       types.MaterialStatusPending,
				},
			},
		}
		if err := supports.CreateSupport(ctx, sup); err != nil {
			return nil, fmt.Errorf("seed support: %w", err)
		}
		result.SupportIDs = append(result.SupportIDs, sup.ID)
	}

	return result, nil
}

func buildPickup(r *rand.Rand, post *types.Post, collectorID string) *types.Pickup {
	status := pickStatus(r)
	now := time.Now()
	scheduled := now.AddDate(0, 0, 1+r.Intn(7))

	pickup := &types.Pickup{
		PostID:          post.ID,
		PostType:        post.PostType,
		PostTitle:       post.Title,
		GiverID:         post.OwnerID,
		CollectorID:     collectorID,
		ProposedBy:      collectorID,
		PickupDate:      scheduled,
		PickupTime:      fmt.Sprintf("%02d:00", 8+r.Intn(9)),
		PickupLocation:  "[seed] Barangay hall, main gate",
		ContactPerson:   "Seed Contact",
		ContactNumber:   "09171234567",
		ExpectedTypes:   types.StringSlice{wasteTypes[r.Intn(len(wasteTypes))]},
		EstimatedAmount: float64(1 + r.Intn(25)),
		EstimatedUnit:   "kg",
		Status:          status,
	}

	switch status {
	case types.PickupStatusConfirmed, types.PickupStatusInTransit, types.PickupStatusArrived:
		pickup.ConfirmedAt = utils.TimePtr(now)
	case types.PickupStatusCompleted:
		pickup.ConfirmedAt = utils.TimePtr(now)
		pickup.CompletedAt = utils.TimePtr(now)
		pickup.ActualTypes = pickup.ExpectedTypes
		pickup.FinalAmount = utils.Float64Ptr(pickup.EstimatedAmount)
		pickup.FinalUnit = utils.StringPtr("kg")
		pickup.PaymentReceived = utils.Float64Ptr(float64(r.Intn(500)))
	case types.PickupStatusCancelled:
		pickup.CancelledAt = utils.TimePtr(now)
		pickup.CancellationBy = utils.StringPtr(collectorID)
		pickup.CancellationReason = utils.StringPtr("[seed] schedule conflict")
	}

	if status == types.PickupStatusInTransit {
		pickup.InTransitAt = utils.TimePtr(now)
	}
	if status == types.PickupStatusArrived {
		pickup.InTransitAt = utils.TimePtr(now)
		pickup.ArrivedAt = utils.TimePtr(now)
	}

	return pickup
}
