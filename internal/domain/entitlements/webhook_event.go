package entitlements

import "time"

// WebhookEvent is the ledger entry for one verified provider event.
type WebhookEvent struct {
	ID              uint       `gorm:"primaryKey"`
	Provider        string     `gorm:"type:varchar(20);not null;uniqueIndex:ux_webhook_events_provider_event,priority:1"`
	ProviderEventID string     `gorm:"type:varchar(191);not null;uniqueIndex:ux_webhook_events_provider_event,priority:2"`
	EventType       string     `gorm:"type:varchar(100);not null;index"`
	PayloadJSON     string     `gorm:"type:text;not null"`
	ProcessedAt     *time.Time `gorm:"default:null"`
	ProcessingError string     `gorm:"type:text"`
	CreatedAt       time.Time  `gorm:"autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime"`
}

func (WebhookEvent) TableName() string { return "webhook_events" }

// Succeeded reports whether the event was already processed without error.
func (e *WebhookEvent) Succeeded() bool {
	return e != nil && e.ProcessedAt != nil && e.ProcessingError == ""
}
