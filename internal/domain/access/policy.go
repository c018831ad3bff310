package access

import (
	"focus-billing/internal/domain/entitlements"
)

type Policy struct {
	State        AccessState
	Capabilities []string
}

func ComputePolicy(s entitlements.Summary) Policy {
	state := StateFor(s.Tier)
	return Policy{
		State:        state,
		Capabilities: CapabilitiesFor(state, s.Tier),
	}
}
