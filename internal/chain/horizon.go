// Package chain holds the narrow adapters over the Stellar SDK: the
// read-only ledger view (sequence numbers, fee stats), transaction signing
// given a raw secret seed, and keypair generation. Nothing outside this
// package and txbuilder imports SDK client types.
package chain

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/stellar/go/clients/horizonclient"
)

// HorizonReader reads sequence numbers and fee stats from a Horizon
// instance. It implements txbuilder.ChainReader.
type HorizonReader struct {
	client *horizonclient.Client
}

// NewHorizonReader creates a reader against the given Horizon URL.
func NewHorizonReader(horizonURL string) *HorizonReader {
	return &HorizonReader{
		client: &horizonclient.Client{
			HorizonURL: horizonURL,
			HTTP:       &http.Client{Timeout: 30 * time.Second},
		},
	}
}

// AccountSequence returns the account's current sequence number.
func (r *HorizonReader) AccountSequence(_ context.Context, accountID string) (int64, error) {
	account, err := r.client.AccountDetail(horizonclient.AccountRequest{AccountID: accountID})
	if err != nil {
		return 0, fmt.Errorf("account detail for %s: %w", accountID, err)
	}
	return account.Sequence, nil
}

// FeeP95 returns the 95th-percentile fee charged in recent ledgers.
func (r *HorizonReader) FeeP95(_ context.Context) (int64, error) {
	stats, err := r.client.FeeStats()
	if err != nil {
		return 0, fmt.Errorf("fee stats: %w", err)
	}
	return stats.FeeCharged.P95, nil
}
