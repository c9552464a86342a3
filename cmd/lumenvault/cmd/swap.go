package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lumenkit/lumenvault/internal/backend"
	"github.com/lumenkit/lumenvault/internal/txbuilder"
)

var (
	swapSend        string
	swapReceive     string
	swapAmount      string
	swapExact       string
	swapSlippageBps int
)

var swapCmd = &cobra.Command{
	Use:   "swap",
	Short: "Swap one asset for another",
	Long: `Swap between assets with a path payment. The counter-amount and path come
from a relay quote with the slippage bound already applied.

By default the amount fixes what you send (strict send). With
--exact receive the amount fixes what you receive instead.

Examples:
  lumenvault swap --send XLM --receive USDC:GA5Z...R2E4 --amount 25
  lumenvault swap --send USDC:GA5Z...R2E4 --receive XLM --amount 10 --exact receive`,
	RunE: runSwap,
}

func init() {
	swapCmd.Flags().StringVar(&swapSend, "send", "", "asset to send (XLM or CODE:ISSUER)")
	swapCmd.Flags().StringVar(&swapReceive, "receive", "", "asset to receive (XLM or CODE:ISSUER)")
	swapCmd.Flags().StringVar(&swapAmount, "amount", "", "amount to swap")
	swapCmd.Flags().StringVar(&swapExact, "exact", "send", "which side the amount fixes: send or receive")
	swapCmd.Flags().IntVar(&swapSlippageBps, "slippage-bps", 50, "slippage tolerance in basis points")
	swapCmd.MarkFlagRequired("send")
	swapCmd.MarkFlagRequired("receive")
	swapCmd.MarkFlagRequired("amount")
	rootCmd.AddCommand(swapCmd)
}

func runSwap(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	sendRef, err := parseAssetRef(swapSend)
	if err != nil {
		return err
	}
	recvRef, err := parseAssetRef(swapReceive)
	if err != nil {
		return err
	}

	mode := "strict_send"
	if swapExact == "receive" {
		mode = "strict_receive"
	} else if swapExact != "send" {
		return fmt.Errorf("--exact must be send or receive, got %q", swapExact)
	}

	quote, err := a.relay.Quote(cmd.Context(), backend.QuoteRequest{
		SourceAssetCode:   sendRef.Code,
		SourceAssetIssuer: sendRef.Issuer,
		DestAssetCode:     recvRef.Code,
		DestAssetIssuer:   recvRef.Issuer,
		Amount:            swapAmount,
		Mode:              mode,
		SlippageBps:       swapSlippageBps,
	})
	if err != nil {
		return fmt.Errorf("quote: %w", err)
	}

	path := make([]txbuilder.AssetRef, len(quote.Path))
	for i, hop := range quote.Path {
		path[i] = txbuilder.AssetRef{Code: hop.Code, Issuer: hop.Issuer}
	}

	if mode == "strict_send" {
		_, err = a.svc.SwapStrictSend(cmd.Context(), txbuilder.StrictSendParams{
			SendAsset:  sendRef,
			SendAmount: swapAmount,
			DestAsset:  recvRef,
			DestMin:    quote.DestMin,
			Path:       path,
		})
	} else {
		_, err = a.svc.SwapStrictReceive(cmd.Context(), txbuilder.StrictReceiveParams{
			SendAsset:  sendRef,
			SendMax:    quote.SendMax,
			DestAsset:  recvRef,
			DestAmount: swapAmount,
			Path:       path,
		})
	}
	if err != nil {
		return err
	}
	return runSignRequest(a)
}
