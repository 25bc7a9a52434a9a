package enums

import "fmt"

// NotificationType selects the template the dispatcher renders.
type NotificationType string

const (
	NotificationTypeBidOutbid   NotificationType = "bid-outbid"
	NotificationTypeBidHigh     NotificationType = "bid-high"
	NotificationTypeAuctionWon  NotificationType = "auction-won"
	NotificationTypeAuctionLost NotificationType = "auction-lost"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeBidOutbid,
	NotificationTypeBidHigh,
	NotificationTypeAuctionWon,
	NotificationTypeAuctionLost,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
