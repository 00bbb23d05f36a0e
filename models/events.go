package models

type EventType string

const (
	EventMonsterRegistered EventType = "monster_registered"
	EventBatchOpened       EventType = "batch_opened"
	EventBatchClosed       EventType = "batch_closed"
	EventAttackSubmitted   EventType = "attack_submitted"
	EventRevealRequested   EventType = "reveal_requested"
	EventDamageRevealed    EventType = "damage_revealed"
	EventProviderAdded     EventType = "provider_added"
	EventProviderRemoved   EventType = "provider_removed"
	EventPaused            EventType = "paused"
	EventUnpaused          EventType = "unpaused"
)

// Event is the notification record published to subscribers after a
// successful state change. Fields besides Type and Timestamp are set
// only where they apply.
type Event struct {
	Type      EventType `json:"type"`
	Caller    string    `json:"caller,omitempty"`
	MonsterID string    `json:"monster_id,omitempty"`
	BatchID   string    `json:"batch_id,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Damage    uint64    `json:"damage,omitempty"`
	Timestamp int64     `json:"timestamp"`
}
