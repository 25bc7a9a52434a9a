package enums

import "fmt"

// EventAction is the mutation recorded by an event row.
type EventAction string

const (
	EventActionCreate EventAction = "create"
	EventActionUpdate EventAction = "update"
	EventActionDelete EventAction = "delete"
)

var validEventActions = []EventAction{
	EventActionCreate,
	EventActionUpdate,
	EventActionDelete,
}

// IsValid reports whether the value is a known EventAction.
func (a EventAction) IsValid() bool {
	for _, candidate := range validEventActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// EventEntityType names the table an event row refers to.
type EventEntityType string

const (
	EventEntityBid               EventEntityType = "bid"
	EventEntityPack              EventEntityType = "pack"
	EventEntityCollectible       EventEntityType = "collectible"
	EventEntityLedgerTransaction EventEntityType = "ledger_transaction"
	EventEntityPayment           EventEntityType = "payment"
)

var validEventEntityTypes = []EventEntityType{
	EventEntityBid,
	EventEntityPack,
	EventEntityCollectible,
	EventEntityLedgerTransaction,
	EventEntityPayment,
}

// IsValid reports whether the value is a known EventEntityType.
func (e EventEntityType) IsValid() bool {
	for _, candidate := range validEventEntityTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEventEntityType converts raw input into an EventEntityType.
func ParseEventEntityType(value string) (EventEntityType, error) {
	for _, candidate := range validEventEntityTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event entity type %q", value)
}
