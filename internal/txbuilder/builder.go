// Package txbuilder assembles unsigned payment and path-payment
// transactions. It fetches the source sequence number and a base fee fresh
// on every build, stamps a fixed validity window, and produces a
// line-by-line descriptor of the operations for the user to read before
// approving a signature. Ledger-level encoding is delegated entirely to
// the transaction SDK; amounts are carried as decimal strings end to end,
// with no floating point anywhere.
package txbuilder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stellar/go/amount"
	"github.com/stellar/go/txnbuild"

	"github.com/lumenkit/lumenvault/internal/logging"
	"github.com/lumenkit/lumenvault/internal/metrics"
)

// ValidityWindow is how long a built transaction stays submittable. An
// unsigned transaction older than this is rejected by the network; a
// pending sign request may not legitimately outlive it.
const ValidityWindow = 180 * time.Second

// MinBaseFee is the fallback per-operation fee in stroops when the
// fee-stats lookup fails.
const MinBaseFee = txnbuild.MinBaseFee

// Sentinel errors returned by the builder.
var (
	// ErrDescribe is returned when a transaction cannot be rendered for
	// display. A transaction that cannot be read must not be signed.
	ErrDescribe = errors.New("cannot describe transaction")

	// ErrAmbiguousAsset is returned when an asset reference resolves to
	// neither the native asset nor a fully identified issued asset.
	ErrAmbiguousAsset = errors.New("ambiguous asset reference")

	// ErrInvalidAmount is returned for amounts that are not valid
	// 7-decimal fixed-point strings.
	ErrInvalidAmount = errors.New("invalid amount")
)

// ChainReader is the read-only view of the ledger the builder needs.
type ChainReader interface {
	// AccountSequence returns the current sequence number of an account.
	AccountSequence(ctx context.Context, accountID string) (int64, error)

	// FeeP95 returns the 95th-percentile fee charged in recent ledgers,
	// in stroops.
	FeeP95(ctx context.Context) (int64, error)
}

// PaymentParams describes a single payment.
type PaymentParams struct {
	Source      string
	Destination string
	Asset       AssetRef
	Amount      string
}

// StrictSendParams describes a path payment with a fixed source amount.
// DestMin comes from the quote with slippage already applied; the builder
// passes it through untouched.
type StrictSendParams struct {
	Source      string
	Destination string
	SendAsset   AssetRef
	SendAmount  string
	DestAsset   AssetRef
	DestMin     string
	Path        []AssetRef
}

// StrictReceiveParams describes a path payment with a fixed destination
// amount. SendMax comes from the quote with slippage already applied.
type StrictReceiveParams struct {
	Source      string
	Destination string
	SendAsset   AssetRef
	SendMax     string
	DestAsset   AssetRef
	DestAmount  string
	Path        []AssetRef
}

// BuiltTx is an unsigned transaction ready for the sign coordinator.
type BuiltTx struct {
	// XDR is the serialized unsigned transaction envelope.
	XDR string

	// Descriptor lists the operations, one human-readable line each.
	Descriptor []string

	// BaseFee is the per-operation fee in stroops the build used.
	BaseFee int64

	// SequenceNumber is the sequence the transaction consumes.
	SequenceNumber int64

	// ValidUntil is the end of the transaction's validity window.
	ValidUntil time.Time
}

// Builder constructs unsigned transactions.
type Builder struct {
	chain ChainReader
	clock clock.Clock
	log   *slog.Logger
}

// NewBuilder creates a builder over the given chain reader.
func NewBuilder(chain ChainReader, clk clock.Clock) *Builder {
	return &Builder{
		chain: chain,
		clock: clk,
		log:   logging.Component("txbuilder"),
	}
}

// BuildPayment builds an unsigned payment transaction.
func (b *Builder) BuildPayment(ctx context.Context, p PaymentParams) (*BuiltTx, error) {
	if err := validateAmount(p.Amount); err != nil {
		return nil, err
	}
	asset, err := p.Asset.Resolve()
	if err != nil {
		return nil, err
	}

	op := &txnbuild.Payment{
		Destination: p.Destination,
		Amount:      p.Amount,
		Asset:       asset,
	}
	return b.build(ctx, p.Source, "payment", op)
}

// BuildPathPaymentStrictSend builds an unsigned strict-send path payment:
// exact source amount, quoted minimum destination amount.
func (b *Builder) BuildPathPaymentStrictSend(ctx context.Context, p StrictSendParams) (*BuiltTx, error) {
	if err := validateAmount(p.SendAmount); err != nil {
		return nil, err
	}
	if err := validateAmount(p.DestMin); err != nil {
		return nil, err
	}
	sendAsset, err := p.SendAsset.Resolve()
	if err != nil {
		return nil, err
	}
	destAsset, err := p.DestAsset.Resolve()
	if err != nil {
		return nil, err
	}
	path, err := resolvePath(p.Path)
	if err != nil {
		return nil, err
	}

	op := &txnbuild.PathPaymentStrictSend{
		SendAsset:   sendAsset,
		SendAmount:  p.SendAmount,
		Destination: p.Destination,
		DestAsset:   destAsset,
		DestMin:     p.DestMin,
		Path:        path,
	}
	return b.build(ctx, p.Source, "path_payment_strict_send", op)
}

// BuildPathPaymentStrictReceive builds an unsigned strict-receive path
// payment: exact destination amount, quoted maximum source amount.
func (b *Builder) BuildPathPaymentStrictReceive(ctx context.Context, p StrictReceiveParams) (*BuiltTx, error) {
	if err := validateAmount(p.DestAmount); err != nil {
		return nil, err
	}
	if err := validateAmount(p.SendMax); err != nil {
		return nil, err
	}
	sendAsset, err := p.SendAsset.Resolve()
	if err != nil {
		return nil, err
	}
	destAsset, err := p.DestAsset.Resolve()
	if err != nil {
		return nil, err
	}
	path, err := resolvePath(p.Path)
	if err != nil {
		return nil, err
	}

	op := &txnbuild.PathPaymentStrictReceive{
		SendAsset:   sendAsset,
		SendMax:     p.SendMax,
		Destination: p.Destination,
		DestAsset:   destAsset,
		DestAmount:  p.DestAmount,
		Path:        path,
	}
	return b.build(ctx, p.Source, "path_payment_strict_receive", op)
}

// build fetches fresh sequence and fee, assembles the transaction with the
// validity window, and renders the descriptor from the serialized form.
func (b *Builder) build(ctx context.Context, source, kind string, ops ...txnbuild.Operation) (*BuiltTx, error) {
	seq, err := b.chain.AccountSequence(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("fetch sequence for %s: %w", source, err)
	}

	fee := b.baseFee(ctx)
	validUntil := b.clock.Now().Add(ValidityWindow)

	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        &txnbuild.SimpleAccount{AccountID: source, Sequence: seq},
		IncrementSequenceNum: true,
		Operations:           ops,
		BaseFee:              fee,
		Preconditions: txnbuild.Preconditions{
			TimeBounds: txnbuild.NewTimebounds(0, validUntil.Unix()),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", kind, err)
	}

	xdr, err := tx.Base64()
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", kind, err)
	}

	descriptor, err := Describe(xdr)
	if err != nil {
		return nil, err
	}

	metrics.TransactionsBuiltTotal.WithLabelValues(kind).Inc()
	b.log.Debug("built transaction",
		"kind", kind, "source", source, "fee", fee, "sequence", seq+1)

	return &BuiltTx{
		XDR:            xdr,
		Descriptor:     descriptor,
		BaseFee:        fee,
		SequenceNumber: seq + 1,
		ValidUntil:     validUntil,
	}, nil
}

// baseFee returns the 95th-percentile recent fee, degrading to MinBaseFee
// when the lookup fails. A fee-stats outage must not abort the action.
func (b *Builder) baseFee(ctx context.Context) int64 {
	p95, err := b.chain.FeeP95(ctx)
	if err != nil || p95 < MinBaseFee {
		if err != nil {
			metrics.FeeFallbacksTotal.Inc()
			b.log.Warn("fee stats unavailable, using minimum base fee", "err", err)
		}
		return MinBaseFee
	}
	return p95
}

// validateAmount rejects amounts the ledger's 7-decimal fixed-point
// convention cannot represent, and anything non-positive: the SDK parser
// accepts negative amounts. The string itself is carried verbatim into
// the operation.
func validateAmount(s string) error {
	parsed, err := amount.ParseInt64(s)
	if err != nil || parsed <= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return nil
}
