package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/packdrop-engine/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-engine/pkg/errors"
)

// ProcessorClient reports the processor's view of a transfer.
type ProcessorClient interface {
	GetTransferStatus(ctx context.Context, kind enums.PaymentKind, externalID string) (enums.PaymentStatus, error)
}

// squareStatusReader is the subset of the Square client used here.
type squareStatusReader interface {
	GetPaymentStatus(ctx context.Context, paymentID string) (string, error)
	GetPayoutStatus(ctx context.Context, payoutID string) (string, error)
}

// SquareProcessor maps Square payment and payout states onto PaymentStatus.
type SquareProcessor struct {
	client squareStatusReader
}

// NewSquareProcessor adapts a Square client to ProcessorClient.
func NewSquareProcessor(client squareStatusReader) (*SquareProcessor, error) {
	if client == nil {
		return nil, fmt.Errorf("square client required")
	}
	return &SquareProcessor{client: client}, nil
}

func (p *SquareProcessor) GetTransferStatus(ctx context.Context, kind enums.PaymentKind, externalID string) (enums.PaymentStatus, error) {
	switch kind {
	case enums.PaymentKindCard, enums.PaymentKindBank:
		raw, err := p.client.GetPaymentStatus(ctx, externalID)
		if err != nil {
			return "", err
		}
		return mapSquarePaymentStatus(raw)
	case enums.PaymentKindPayout:
		raw, err := p.client.GetPayoutStatus(ctx, externalID)
		if err != nil {
			return "", err
		}
		return mapSquarePayoutStatus(raw)
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported payment kind %q", kind))
	}
}

// Square never reports an action-required state; those rows are created that
// way by checkout and leave it through a later poll.
func mapSquarePaymentStatus(raw string) (enums.PaymentStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PENDING":
		return enums.PaymentStatusPending, nil
	case "APPROVED":
		return enums.PaymentStatusConfirmed, nil
	case "COMPLETED":
		return enums.PaymentStatusPaid, nil
	case "CANCELED", "FAILED":
		return enums.PaymentStatusFailed, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("unknown square payment status %q", raw))
	}
}

func mapSquarePayoutStatus(raw string) (enums.PaymentStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SENT":
		return enums.PaymentStatusConfirmed, nil
	case "PAID":
		return enums.PaymentStatusPaid, nil
	case "FAILED":
		return enums.PaymentStatusFailed, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("unknown square payout status %q", raw))
	}
}
