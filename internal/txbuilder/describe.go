package txbuilder

import (
	"fmt"

	"github.com/stellar/go/txnbuild"
)

// Describe parses a serialized transaction back and renders one line per
// operation: index, type, amounts, counterparties. The parse-back is the
// point: the descriptor reflects what will actually be signed, not what
// the caller meant to build. Anything that cannot be rendered faithfully
// is ErrDescribe; a blank or wrong summary must never reach the approval
// prompt.
func Describe(xdr string) ([]string, error) {
	generic, err := txnbuild.TransactionFromXDR(xdr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDescribe, err)
	}
	tx, ok := generic.Transaction()
	if !ok {
		return nil, fmt.Errorf("%w: unsupported envelope type", ErrDescribe)
	}

	ops := tx.Operations()
	if len(ops) == 0 {
		return nil, fmt.Errorf("%w: transaction has no operations", ErrDescribe)
	}

	lines := make([]string, 0, len(ops))
	for i, op := range ops {
		switch o := op.(type) {
		case *txnbuild.Payment:
			lines = append(lines, fmt.Sprintf(
				"op %d: pay %s %s to %s",
				i, o.Amount, assetLabel(o.Asset), o.Destination))
		case *txnbuild.PathPaymentStrictSend:
			lines = append(lines, fmt.Sprintf(
				"op %d: send exactly %s %s to %s, receiving at least %s %s",
				i, o.SendAmount, assetLabel(o.SendAsset),
				o.Destination, o.DestMin, assetLabel(o.DestAsset)))
		case *txnbuild.PathPaymentStrictReceive:
			lines = append(lines, fmt.Sprintf(
				"op %d: deliver exactly %s %s to %s, sending at most %s %s",
				i, o.DestAmount, assetLabel(o.DestAsset),
				o.Destination, o.SendMax, assetLabel(o.SendAsset)))
		case *txnbuild.CreateAccount:
			// Server-issued onboarding transactions fund the new account.
			lines = append(lines, fmt.Sprintf(
				"op %d: create account %s with %s XLM",
				i, o.Destination, o.Amount))
		case *txnbuild.ChangeTrust:
			lines = append(lines, fmt.Sprintf(
				"op %d: trust asset %s up to %s",
				i, assetLabel(o.Line), o.Limit))
		default:
			return nil, fmt.Errorf("%w: operation %d has unsupported type %T", ErrDescribe, i, op)
		}
	}
	return lines, nil
}
