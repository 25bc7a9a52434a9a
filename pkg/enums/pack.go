package enums

// PackType describes how a pack is sold.
type PackType string

const (
	PackTypePurchase PackType = "purchase"
	PackTypeAuction  PackType = "auction"
	PackTypeFree     PackType = "free"
	PackTypeRedeem   PackType = "redeem"
)

var validPackTypes = []PackType{
	PackTypePurchase,
	PackTypeAuction,
	PackTypeFree,
	PackTypeRedeem,
}

func (p PackType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PackType.
func (p PackType) IsValid() bool {
	for _, candidate := range validPackTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// PackStatus is the display status derived from template timing.
type PackStatus string

const (
	PackStatusUpcoming PackStatus = "upcoming"
	PackStatusActive   PackStatus = "active"
	PackStatusExpired  PackStatus = "expired"
)

func (p PackStatus) String() string {
	return string(p)
}

// AuctionStatus records how an auction pack was settled.
type AuctionStatus string

const (
	AuctionStatusOpen     AuctionStatus = "open"
	AuctionStatusResolved AuctionStatus = "resolved"
	AuctionStatusExpired  AuctionStatus = "expired"
)

var validAuctionStatuses = []AuctionStatus{
	AuctionStatusOpen,
	AuctionStatusResolved,
	AuctionStatusExpired,
}

func (a AuctionStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AuctionStatus.
func (a AuctionStatus) IsValid() bool {
	for _, candidate := range validAuctionStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}
