package access

type AccessState string

const (
	AccessPro  AccessState = "pro"
	AccessFree AccessState = "free"
)

const (
	CapabilityTimer           = "timer"
	CapabilityCustomDurations = "custom_durations"
	CapabilityStatsHistory    = "stats_history"
	CapabilityThemes          = "themes"
	CapabilityLifetimeBadge   = "lifetime_badge"
)
