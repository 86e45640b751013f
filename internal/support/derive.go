package support

import "greenloop/pkg/types"

// DeriveStatus recomputes the aggregate support status from the material
// statuses. It is a pure function and is re-run after every per-material
// mutation; the workflow-driven PickupScheduled/Completed/Cancelled states
// are exogenous overrides it never produces.
func DeriveStatus(materials types.SupportMaterials) types.SupportStatus {
	var accepted, declined int
	for _, m := range materials {
		switch m.Status {
		case types.MaterialStatusAccepted:
			accepted++
		case types.MaterialStatusDeclined:
			declined++
		}
	}

	total := len(materials)
	switch {
	case total > 0 && accepted == total:
		return types.SupportStatusAccepted
	case total > 0 && declined == total:
		return types.SupportStatusDeclined
	case accepted > 0 || declined > 0:
		return types.SupportStatusPartiallyAccepted
	default:
		return types.SupportStatusPending
	}
}
