package auctions

import pkgerrors "github.com/angelmondragon/packdrop-engine/pkg/errors"

// Rejections returned by AdmitBid. Callers match them with errors.Is.
var (
	ErrPackNotFound         = pkgerrors.New(pkgerrors.CodeNotFound, "pack not found")
	ErrBidTooLow            = pkgerrors.New(pkgerrors.CodeStateConflict, "bid must be higher than previous bid")
	ErrAccountNotRegistered = pkgerrors.New(pkgerrors.CodeForbidden, "user account not registered")
	ErrBiddingClosed        = pkgerrors.New(pkgerrors.CodeStateConflict, "bidding is closed for this pack")
)
