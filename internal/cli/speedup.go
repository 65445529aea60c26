package cli

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/vietddude/txguard/internal/control"
)

var speedupCmd = &cobra.Command{
	Use:   "speedup [tx_hash]",
	Short: "Resume escalation of a pending transaction sent by this wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash := common.HexToHash(args[0])
		return withApp(cmd, func(ctx context.Context, app *control.App) error {
			wallet, err := app.Wallet()
			if err != nil {
				return err
			}
			advisor := app.Advisor(wallet)

			pending, err := wallet.PendingFromHash(ctx, hash)
			if err != nil {
				return err
			}
			printf(cmd, "Tracking %s (nonce %d)\n", pending.Hash.Hex(), pending.Nonce)

			receipt, err := escalate(ctx, app, wallet, pending)
			if err != nil {
				_, err = advisor.Advise(ctx, err)
				return err
			}
			printReceipt(cmd, receipt)
			return nil
		})
	},
}

func init() {
	speedupCmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "never ask to speed up")
	rootCmd.AddCommand(speedupCmd)
}
