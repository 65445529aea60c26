package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/params"
	"github.com/spf13/cobra"

	"github.com/vietddude/txguard/internal/control"
	"github.com/vietddude/txguard/internal/core/domain"
	"github.com/vietddude/txguard/internal/escalation"
	"github.com/vietddude/txguard/internal/infra/chain/evm"
)

var (
	sendTo       string
	sendValue    string
	sendData     string
	sendGasLimit uint64
	noPrompt     bool
)

var errInvalidAmount = errors.New("invalid ether amount")

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a transaction and escalate its fees until it is mined",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := sendRequest()
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, app *control.App) error {
			return runSend(ctx, cmd, app, req)
		})
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendTo, "to", "", "recipient address")
	sendCmd.Flags().StringVar(&sendValue, "value", "0", "amount in ether, e.g. 0.01")
	sendCmd.Flags().StringVar(&sendData, "data", "", "hex call data")
	sendCmd.Flags().Uint64Var(&sendGasLimit, "gas-limit", 0, "gas limit (0 = estimate)")
	sendCmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "never ask to speed up")
	_ = sendCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(sendCmd)
}

func sendRequest() (domain.TxRequest, error) {
	if !common.IsHexAddress(sendTo) {
		return domain.TxRequest{}, fmt.Errorf("invalid recipient %q", sendTo)
	}
	to := common.HexToAddress(sendTo)

	value, err := parseEther(sendValue)
	if err != nil {
		return domain.TxRequest{}, err
	}

	var data []byte
	if sendData != "" {
		data, err = hexutil.Decode(sendData)
		if err != nil {
			return domain.TxRequest{}, fmt.Errorf("invalid data: %w", err)
		}
	}
	return domain.TxRequest{To: &to, Value: value, Data: data, GasLimit: sendGasLimit}, nil
}

func runSend(ctx context.Context, cmd *cobra.Command, app *control.App, req domain.TxRequest) error {
	wallet, err := app.Wallet()
	if err != nil {
		return err
	}
	if err := app.VerifyChain(ctx); err != nil {
		return err
	}
	advisor := app.Advisor(wallet)

	fees := domain.FeeOverride{MaxPriorityFeePerGas: app.Oracle().FastPriorityIfMainNet(ctx)}
	pending, err := wallet.Send(ctx, req, fees)
	if err != nil {
		_, err = advisor.Advise(ctx, err)
		return err
	}
	printf(cmd, "Sent %s (nonce %d)\n", pending.Hash.Hex(), pending.Nonce)

	receipt, err := escalate(ctx, app, wallet, pending)
	if err != nil {
		_, err = advisor.Advise(ctx, err)
		return err
	}
	printReceipt(cmd, receipt)
	return nil
}

func escalate(ctx context.Context, app *control.App, wallet *evm.Wallet, pending *domain.PendingTransaction) (*domain.Receipt, error) {
	ctrl, err := app.Controller(wallet, accelerator(app))
	if err != nil {
		return nil, err
	}
	return ctrl.KeepEscalating(ctx, pending)
}

func accelerator(app *control.App) escalation.Accelerator {
	switch {
	case noPrompt:
		return escalation.NoAccelerator{}
	case app.Config().Escalation.AutoInterval > 0:
		slog.Info("Automatic speed-up enabled", "interval", app.Config().Escalation.AutoInterval)
		return escalation.NewTimerAccelerator(app.Config().Escalation.AutoInterval)
	default:
		return escalation.NewStdinAccelerator(os.Stdin, os.Stderr)
	}
}

func printReceipt(cmd *cobra.Command, r *domain.Receipt) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintf(w, "TX\t%s\n", r.TxHash.Hex())
	_, _ = fmt.Fprintf(w, "BLOCK\t%d\n", r.BlockNumber)
	_, _ = fmt.Fprintf(w, "STATUS\t%s\n", r.Status)
	_, _ = fmt.Fprintf(w, "GAS USED\t%d\n", r.GasUsed)
	if fee := r.Fee(); fee != nil {
		_, _ = fmt.Fprintf(w, "FEE\t%s ETH\n", formatEther(fee))
	}
	_ = w.Flush()
}

// parseEther converts a decimal ether amount to wei. Amounts finer than
// one wei are rejected.
func parseEther(s string) (*big.Int, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok || r.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q", errInvalidAmount, s)
	}
	r.Mul(r, new(big.Rat).SetInt64(params.Ether))
	if !r.IsInt() {
		return nil, fmt.Errorf("%w: %q has more than 18 decimals", errInvalidAmount, s)
	}
	return new(big.Int).Set(r.Num()), nil
}

func formatEther(wei *big.Int) string {
	return new(big.Rat).SetFrac(wei, big.NewInt(params.Ether)).FloatString(18)
}
