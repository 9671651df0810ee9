package models

import "time"

// StoredSnapshot is the last-good dashboard state persisted locally, shown
// after a restart until the first fresh fetch completes.
type StoredSnapshot struct {
	ID        int             `json:"id"`
	Mode      Mode            `json:"mode"`
	Stats     AggregateResult `json:"stats"`
	Rates     RateConfig      `json:"rates"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Notification kinds surfaced to the dashboard.
const (
	NoticeNetworkFailure    = "NETWORK_FAILURE"
	NoticeMalformedResponse = "MALFORMED_RESPONSE"
	NoticeRenderFailure     = "RENDER_FAILURE"
	NoticeModeChange        = "MODE_CHANGE"
)

// Notification is one transient user-visible notice. Stale-response drops
// are deliberately never logged here.
type Notification struct {
	ID         string    `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	Kind       string    `json:"kind"`
	Message    string    `json:"message"`
}
