package pickup

import "greenloop/pkg/types"

// Role assignment flips with the post type: the owner of a waste post gives
// material to the proposing collector, while the owner of an initiative
// collects material from the proposing giver. Adding a post type means adding
// one entry here.
type roleAssignment struct {
	// assign maps (post owner, proposing actor) to (giver, collector).
	assign func(ownerID, actorID string) (giverID, collectorID string)
	// actorAllowed checks the role flag the proposing actor must hold.
	actorAllowed func(p *types.Party) bool
	actorRole    string
}

var roleAssignments = map[types.PostType]roleAssignment{
	types.PostTypeWaste: {
		assign: func(ownerID, actorID string) (string, string) {
			return ownerID, actorID
		},
		actorAllowed: func(p *types.Party) bool { return p.IsCollector },
		actorRole:    "collector",
	},
	types.PostTypeInitiative: {
		assign: func(ownerID, actorID string) (string, string) {
			return actorID, ownerID
		},
		actorAllowed: func(p *types.Party) bool { return p.IsGiver },
		actorRole:    "giver",
	},
}
