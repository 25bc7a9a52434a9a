package algod

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/algorand/go-algorand-sdk/v2/client/v2/algod"

	pkgerrors "github.com/angelmondragon/packdrop-engine/pkg/errors"
)

const defaultTimeout = 10 * time.Second

var errBaseURLRequired = errors.New("algod base url is required")

// TransactionStatus is the ledger's view of a submitted transaction. A zero
// ConfirmedRound with an empty PoolError means the transaction is still in flight.
type TransactionStatus struct {
	ConfirmedRound uint64
	AssetIndex     uint64
	PoolError      string
}

// Confirmed reports whether the transaction landed in a block.
func (s TransactionStatus) Confirmed() bool {
	return s.ConfirmedRound > 0
}

// Rejected reports whether the node dropped the transaction from its pool.
func (s TransactionStatus) Rejected() bool {
	return strings.TrimSpace(s.PoolError) != ""
}

// AccountInfo carries the balance fields used by readiness checks.
type AccountInfo struct {
	Address    string
	Amount     uint64
	MinBalance uint64
	Status     string
	Round      uint64
}

// Client wraps the algod SDK client with per-call timeouts and domain error
// mapping.
type Client struct {
	sdk     *sdk.Client
	timeout time.Duration
}

// Option configures optional client behavior.
type Option func(*Client)

// WithTimeout bounds every algod call.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// NewClient builds an algod client for the given node URL and API token.
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	client, err := sdk.MakeClient(trimmed, strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("create algod client: %w", err)
	}
	c := &Client{sdk: client, timeout: defaultTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// GetTransactionStatus looks up a transaction by id. A transaction the node no
// longer tracks in its pending pool yields a zero status rather than an error.
func (c *Client) GetTransactionStatus(ctx context.Context, txID string) (TransactionStatus, error) {
	trimmed := strings.TrimSpace(txID)
	if trimmed == "" {
		return TransactionStatus{}, pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	if c == nil || c.sdk == nil {
		return TransactionStatus{}, errNotConfigured
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	info, _, err := c.sdk.PendingTransactionInformation(trimmed).Do(callCtx)
	if err != nil {
		if isNotFound(err) {
			return TransactionStatus{}, nil
		}
		return TransactionStatus{}, mapError(callCtx, err, "pending transaction")
	}
	return TransactionStatus{
		ConfirmedRound: info.ConfirmedRound,
		AssetIndex:     info.AssetIndex,
		PoolError:      info.PoolError,
	}, nil
}

// GetAccountInfo fetches balance information for address.
func (c *Client) GetAccountInfo(ctx context.Context, address string) (AccountInfo, error) {
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return AccountInfo{}, pkgerrors.New(pkgerrors.CodeValidation, "account address is required")
	}
	if c == nil || c.sdk == nil {
		return AccountInfo{}, errNotConfigured
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	account, err := c.sdk.AccountInformation(trimmed).Exclude("all").Do(callCtx)
	if err != nil {
		if isNotFound(err) {
			return AccountInfo{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "account not found")
		}
		return AccountInfo{}, mapError(callCtx, err, "account information")
	}
	return AccountInfo{
		Address:    account.Address,
		Amount:     account.Amount,
		MinBalance: account.MinBalance,
		Status:     account.Status,
		Round:      account.Round,
	}, nil
}

var errNotConfigured = pkgerrors.New(pkgerrors.CodeDependency, "algod client not configured")

// The SDK reports non-2xx responses as "HTTP <code>: <body>".
func isNotFound(err error) bool {
	return strings.Contains(err.Error(), "HTTP 404")
}

func mapError(ctx context.Context, err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return pkgerrors.Wrap(pkgerrors.CodeTimeout, err, fmt.Sprintf("algod %s timed out", op))
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("algod %s failed", op))
}
