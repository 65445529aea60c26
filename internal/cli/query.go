package cli

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/spf13/cobra"

	"github.com/vietddude/txguard/internal/control"
)

var feesCmd = &cobra.Command{
	Use:   "fees",
	Short: "Show the gas station's suggested fees",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *control.App) error {
			fees, err := app.Oracle().CurrentFastFee(ctx)
			if err != nil {
				return err
			}
			if fees == nil {
				printf(cmd, "%s is a dev network: fee suggestions are disabled\n", app.ChainID().Name())
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			_, _ = fmt.Fprintln(w, "FIELD\tWEI\tGWEI")
			_, _ = fmt.Fprintf(w, "max fee\t%s\t%s\n", fees.MaxFeePerGas, gwei(fees.MaxFeePerGas))
			_, _ = fmt.Fprintf(w, "max priority fee\t%s\t%s\n", fees.MaxPriorityFeePerGas, gwei(fees.MaxPriorityFeePerGas))
			return w.Flush()
		})
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance [address]",
	Short: "Show an address balance (default: the wallet)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *control.App) error {
			var addr common.Address
			if len(args) == 1 {
				if !common.IsHexAddress(args[0]) {
					return fmt.Errorf("invalid address %q", args[0])
				}
				addr = common.HexToAddress(args[0])
			} else {
				wallet, err := app.Wallet()
				if err != nil {
					return err
				}
				addr = wallet.Address()
			}

			balance, err := app.Reader().Balance(ctx, addr)
			if err != nil {
				return err
			}
			printf(cmd, "%s\t%s ETH\n", addr.Hex(), formatEther(balance))
			return nil
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [from] [nonce]",
	Short: "List every recorded submission of a logical transaction",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !common.IsHexAddress(args[0]) {
			return fmt.Errorf("invalid address %q", args[0])
		}
		from := common.HexToAddress(args[0])
		nonce, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid nonce: %w", err)
		}

		return withApp(cmd, func(ctx context.Context, app *control.App) error {
			members, err := app.Journal().Members(ctx, app.ChainID(), from, nonce)
			if err != nil {
				return err
			}
			if len(members) == 0 {
				printf(cmd, "No submissions recorded for %s nonce %d\n", from.Hex(), nonce)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			_, _ = fmt.Fprintln(w, "#\tHASH\tMODEL\tMAX FEE\tPRIORITY FEE\tGAS PRICE")
			for i, m := range members {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
					i, m.Hash.Hex(), m.FeeModel(), orDash(m.MaxFeePerGas), orDash(m.MaxPriorityFeePerGas), orDash(m.GasPrice))
			}
			return w.Flush()
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the chain head and the health of every RPC endpoint",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, app *control.App) error {
			if err := app.VerifyChain(ctx); err != nil {
				return err
			}
			head, err := app.Reader().BlockNumber(ctx)
			if err != nil {
				return err
			}
			printf(cmd, "%s head %d\n", app.ChainID().Name(), head)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', tabwriter.Debug)
			_, _ = fmt.Fprintln(w, "PROVIDER\tAVAILABLE\tLATENCY\tERROR RATE\tSTATUS")
			for name, h := range app.ProviderHealth() {
				status := "-"
				if h.MonitorStats != nil {
					status = h.MonitorStats.Status.String()
				}
				_, _ = fmt.Fprintf(w, "%s\t%t\t%s\t%.2f\t%s\n", name, h.Available, h.Latency, h.ErrorRate, status)
			}
			return w.Flush()
		})
	},
}

func init() {
	rootCmd.AddCommand(feesCmd, balanceCmd, historyCmd, statusCmd)
}

func gwei(wei *big.Int) string {
	return new(big.Rat).SetFrac(wei, big.NewInt(params.GWei)).FloatString(9)
}

func orDash(v *big.Int) string {
	if v == nil {
		return "-"
	}
	return v.String()
}
