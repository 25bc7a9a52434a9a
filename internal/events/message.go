package events

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/packdrop-engine/pkg/db/models"
	"github.com/angelmondragon/packdrop-engine/pkg/enums"
)

// Message is the JSON payload published for every event row.
type Message struct {
	ID            int64                 `json:"id"`
	Action        enums.EventAction     `json:"action"`
	EntityType    enums.EventEntityType `json:"entityType"`
	EntityID      uuid.UUID             `json:"entityId"`
	UserAccountID *uuid.UUID            `json:"userAccountId,omitempty"`
	OccurredAt    time.Time             `json:"occurredAt"`
}

// Encode renders an event as a message body plus routing attributes.
func Encode(event models.Event) ([]byte, map[string]string, error) {
	body, err := json.Marshal(Message{
		ID:            event.ID,
		Action:        event.Action,
		EntityType:    event.EntityType,
		EntityID:      event.EntityID,
		UserAccountID: event.UserAccountID,
		OccurredAt:    event.CreatedAt.UTC(),
	})
	if err != nil {
		return nil, nil, err
	}
	attrs := map[string]string{
		"event_id":    strconv.FormatInt(event.ID, 10),
		"action":      string(event.Action),
		"entity_type": string(event.EntityType),
	}
	return body, attrs, nil
}
