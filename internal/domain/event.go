package domain

// EventType notification event type
type EventType string

const (
	EventFactoryCreated   EventType = "factory_created"
	EventFactoryDeleted   EventType = "factory_deleted"
	EventAlgorithmCreated EventType = "algorithm_created"
	EventAlgorithmDeleted EventType = "algorithm_deleted"
	EventModelCreated     EventType = "model_created"
	EventModelPromoted    EventType = "model_promoted"
	EventModelRolledBack  EventType = "model_rolled_back"
	EventModelArchived    EventType = "model_archived"
	EventModelDeleted     EventType = "model_deleted"
	EventFileAttached     EventType = "file_attached"
	EventFileDetached     EventType = "file_detached"
)

// Event advisory notification fanned out to connected observers.
// There is no backlog: an observer connecting after the event misses it.
type Event struct {
	Type    EventType `json:"type"`
	ModelID string    `json:"model_id,omitempty"`
	UserID  string    `json:"user_id"`
	Message string    `json:"message"`
}
