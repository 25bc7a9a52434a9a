package packs

import (
	"time"

	"github.com/angelmondragon/packdrop-engine/pkg/db/models"
	"github.com/angelmondragon/packdrop-engine/pkg/enums"
)

// DeriveStatus computes the display status of a pack from its template timing.
// Auction packs expire at AuctionUntil; other types stay active once released.
func DeriveStatus(template *models.PackTemplate, now time.Time) enums.PackStatus {
	if template == nil {
		return enums.PackStatusUpcoming
	}
	if template.ReleasedAt != nil && now.Before(*template.ReleasedAt) {
		return enums.PackStatusUpcoming
	}
	switch template.Type {
	case enums.PackTypeAuction:
		if template.AuctionUntil != nil && !now.Before(*template.AuctionUntil) {
			return enums.PackStatusExpired
		}
		return enums.PackStatusActive
	case enums.PackTypePurchase, enums.PackTypeFree, enums.PackTypeRedeem:
		return enums.PackStatusActive
	default:
		return enums.PackStatusUpcoming
	}
}

// AcceptsBids reports whether the pack is an open auction inside its window.
func AcceptsBids(pack *models.Pack, now time.Time) bool {
	if pack == nil || pack.Template == nil {
		return false
	}
	if pack.Template.Type != enums.PackTypeAuction {
		return false
	}
	if pack.AuctionStatus != enums.AuctionStatusOpen {
		return false
	}
	return DeriveStatus(pack.Template, now) == enums.PackStatusActive
}
