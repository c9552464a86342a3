package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lumenkit/lumenvault/internal/txbuilder"
)

var sendAsset string

var sendCmd = &cobra.Command{
	Use:   "send DESTINATION AMOUNT",
	Short: "Send a payment",
	Long: `Build a payment from the current account, review it, and sign and submit
it after confirmation.

The asset defaults to the native lumen. Issued assets are written as
CODE:ISSUER.

Examples:
  lumenvault send GDUT...KLMN 10.5
  lumenvault send GDUT...KLMN 100 --asset USDC:GA5Z...R2E4`,
	Args: cobra.ExactArgs(2),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVar(&sendAsset, "asset", "XLM", "asset to send (XLM or CODE:ISSUER)")
	rootCmd.AddCommand(sendCmd)
}

// parseAssetRef parses "XLM" or "CODE:ISSUER" into an asset reference.
func parseAssetRef(s string) (txbuilder.AssetRef, error) {
	if s == "" {
		return txbuilder.AssetRef{}, nil
	}
	code, issuer, found := strings.Cut(s, ":")
	if code == "" {
		return txbuilder.AssetRef{}, fmt.Errorf("invalid asset %q", s)
	}
	if !found {
		return txbuilder.AssetRef{Code: code}, nil
	}
	return txbuilder.AssetRef{Code: code, Issuer: issuer}, nil
}

func runSend(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	asset, err := parseAssetRef(sendAsset)
	if err != nil {
		return err
	}

	if _, err := a.svc.Send(cmd.Context(), args[0], asset, args[1]); err != nil {
		return err
	}
	return runSignRequest(a)
}
