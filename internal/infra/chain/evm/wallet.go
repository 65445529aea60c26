package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vietddude/txguard/internal/core/domain"
	"github.com/vietddude/txguard/internal/escalation"
)

var (
	ErrInvalidKey         = errors.New("invalid private key")
	ErrForeignTransaction = errors.New("transaction was not sent by this wallet")
	ErrUnknownTransaction = errors.New("transaction not found")
	ErrAlreadyMined       = errors.New("transaction already mined")
)

// WalletConfig holds signing settings.
type WalletConfig struct {
	PrivateKey string // hex, with or without 0x
	ChainID    domain.ChainID
	// Factor is the minimum growth of the fee cap between replacements.
	Factor *big.Rat
}

// Wallet signs and broadcasts transactions for a single key.
type Wallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chainID domain.ChainID
	signer  types.Signer
	factor  *big.Rat
	reader  *Reader
	log     *slog.Logger
}

// NewWallet loads the key and binds it to reader.
func NewWallet(cfg WalletConfig, reader *Reader, logger *slog.Logger) (*Wallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(cfg.PrivateKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	factor := cfg.Factor
	if factor == nil {
		factor, err = escalation.ParseFactor(escalation.DefaultFactor)
		if err != nil {
			return nil, err
		}
	}

	address := crypto.PubkeyToAddress(key.PublicKey)
	return &Wallet{
		key:     key,
		address: address,
		chainID: cfg.ChainID,
		signer:  types.LatestSignerForChainID(new(big.Int).SetUint64(uint64(cfg.ChainID))),
		factor:  factor,
		reader:  reader,
		log:     logger.With("component", "wallet", "address", address.Hex()),
	}, nil
}

func (w *Wallet) Address() common.Address {
	return w.address
}

// Balance reads the wallet balance across all bindings.
func (w *Wallet) Balance(ctx context.Context) (*big.Int, error) {
	return w.reader.Balance(ctx, w.address)
}

// Send builds, signs and broadcasts a new transaction at the next pending
// nonce. Fields left nil in fees are filled from the network.
func (w *Wallet) Send(ctx context.Context, req domain.TxRequest, fees domain.FeeOverride) (*domain.PendingTransaction, error) {
	if err := fees.Validate(); err != nil {
		return nil, err
	}

	nonce, err := w.reader.Nonce(ctx, w.address, true)
	if err != nil {
		return nil, Normalize(fmt.Errorf("read nonce: %w", err), nil)
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	draft := &domain.PendingTransaction{
		Nonce:    nonce,
		From:     w.address,
		To:       req.To,
		Value:    new(big.Int).Set(value),
		Data:     append([]byte(nil), req.Data...),
		GasLimit: req.GasLimit,
		ChainID:  w.chainID,
	}

	if err := w.price(ctx, draft, fees); err != nil {
		return nil, Normalize(err, draft)
	}

	if draft.GasLimit == 0 {
		gas, err := w.reader.EstimateGas(ctx, callMsgFor(draft))
		if err != nil {
			return nil, normalizeEstimate(err, draft)
		}
		draft.GasLimit = gas
	}

	return w.signAndBroadcast(ctx, draft)
}

// price fills the fee fields of a new transaction.
func (w *Wallet) price(ctx context.Context, draft *domain.PendingTransaction, fees domain.FeeOverride) error {
	if fees.GasPrice != nil {
		draft.GasPrice = new(big.Int).Set(fees.GasPrice)
		return nil
	}

	baseFee, err := w.reader.BaseFee(ctx)
	if err != nil {
		return fmt.Errorf("read base fee: %w", err)
	}
	if baseFee == nil {
		if !fees.IsEmpty() {
			return fmt.Errorf("%w: network has no base fee", domain.ErrMixedFeeModels)
		}
		gasPrice, err := w.reader.GasPrice(ctx)
		if err != nil {
			return fmt.Errorf("read gas price: %w", err)
		}
		draft.GasPrice = gasPrice
		return nil
	}

	tip := fees.MaxPriorityFeePerGas
	if tip == nil {
		if tip, err = w.reader.SuggestTip(ctx); err != nil {
			return fmt.Errorf("read priority fee: %w", err)
		}
	}
	feeCap := fees.MaxFeePerGas
	if feeCap == nil {
		feeCap = freshFeeCap(baseFee, tip)
	}

	draft.MaxPriorityFeePerGas = new(big.Int).Set(tip)
	draft.MaxFeePerGas = maxBig(feeCap, tip)
	return nil
}

// Resubmit signs a copy of prev with the same nonce, recipient, value, data
// and gas limit, priced with fees. The dynamic fee cap, unless given, is
// the larger of a fresh 2*baseFee+tip and prev's cap grown by the factor.
func (w *Wallet) Resubmit(ctx context.Context, prev *domain.PendingTransaction, fees domain.FeeOverride) (*domain.PendingTransaction, error) {
	if err := fees.Validate(); err != nil {
		return nil, err
	}
	if prev.From != w.address {
		return nil, fmt.Errorf("%w: %s", ErrForeignTransaction, prev.Hash.Hex())
	}

	next := prev.Clone()
	next.Hash = common.Hash{}

	switch prev.FeeModel() {
	case domain.FeeModelDynamic:
		if fees.GasPrice != nil {
			return nil, domain.ErrMixedFeeModels
		}
		tip := prev.MaxPriorityFeePerGas
		if fees.MaxPriorityFeePerGas != nil {
			tip = fees.MaxPriorityFeePerGas
		}
		feeCap := fees.MaxFeePerGas
		if feeCap == nil {
			baseFee, err := w.reader.BaseFee(ctx)
			if err != nil {
				return nil, Normalize(fmt.Errorf("read base fee: %w", err), prev)
			}
			feeCap = freshFeeCap(baseFee, tip)
			if prev.MaxFeePerGas != nil {
				feeCap = maxBig(feeCap, escalation.BumpFee(prev.MaxFeePerGas, w.factor))
			}
		}
		next.MaxPriorityFeePerGas = new(big.Int).Set(tip)
		next.MaxFeePerGas = maxBig(feeCap, tip)
		next.GasPrice = nil

	default:
		if fees.MaxFeePerGas != nil || fees.MaxPriorityFeePerGas != nil {
			return nil, domain.ErrMixedFeeModels
		}
		gasPrice := fees.GasPrice
		if gasPrice == nil {
			if prev.GasPrice == nil {
				return nil, escalation.ErrNoFeeToBump
			}
			gasPrice = escalation.BumpFee(prev.GasPrice, w.factor)
		}
		next.GasPrice = new(big.Int).Set(gasPrice)
	}

	return w.signAndBroadcast(ctx, next)
}

// PendingFromHash rebuilds a chain member from a transaction this wallet
// sent. A mined transaction is returned together with ErrAlreadyMined.
func (w *Wallet) PendingFromHash(ctx context.Context, hash common.Hash) (*domain.PendingTransaction, error) {
	tx, err := w.reader.Transaction(ctx, hash)
	if isNotFound(err) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransaction, hash.Hex())
	}
	if err != nil {
		return nil, Normalize(err, nil)
	}
	if tx.From != w.address {
		return nil, fmt.Errorf("%w: %s", ErrForeignTransaction, hash.Hex())
	}

	pending := tx.pending(w.chainID)
	if tx.BlockNumber != nil {
		return pending, fmt.Errorf("%w: %s in block %s", ErrAlreadyMined, hash.Hex(), tx.BlockNumber.ToInt())
	}
	return pending, nil
}

func (w *Wallet) signAndBroadcast(ctx context.Context, p *domain.PendingTransaction) (*domain.PendingTransaction, error) {
	var txdata types.TxData
	if p.FeeModel() == domain.FeeModelDynamic {
		txdata = &types.DynamicFeeTx{
			ChainID:   new(big.Int).SetUint64(uint64(p.ChainID)),
			Nonce:     p.Nonce,
			GasTipCap: p.MaxPriorityFeePerGas,
			GasFeeCap: p.MaxFeePerGas,
			Gas:       p.GasLimit,
			To:        p.To,
			Value:     p.Value,
			Data:      p.Data,
		}
	} else {
		txdata = &types.LegacyTx{
			Nonce:    p.Nonce,
			GasPrice: p.GasPrice,
			Gas:      p.GasLimit,
			To:       p.To,
			Value:    p.Value,
			Data:     p.Data,
		}
	}

	signed, err := types.SignNewTx(w.key, w.signer, txdata)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode transaction: %w", err)
	}
	p.Hash = signed.Hash()

	if _, err := w.reader.Broadcast(ctx, raw, p.Hash); err != nil {
		return nil, Normalize(err, p)
	}

	w.log.Info("Broadcast transaction",
		"tx_hash", p.Hash.Hex(),
		"nonce", p.Nonce,
		"fee_model", p.FeeModel(),
		"max_fee_per_gas", p.MaxFeePerGas,
		"max_priority_fee_per_gas", p.MaxPriorityFeePerGas,
		"gas_price", p.GasPrice,
	)
	return p, nil
}

func callMsgFor(p *domain.PendingTransaction) callMsg {
	return callMsg{
		From:                 p.From,
		To:                   p.To,
		Value:                toHexBig(p.Value),
		Data:                 hexutil.Bytes(p.Data),
		GasPrice:             toHexBig(p.GasPrice),
		MaxFeePerGas:         toHexBig(p.MaxFeePerGas),
		MaxPriorityFeePerGas: toHexBig(p.MaxPriorityFeePerGas),
	}
}

// freshFeeCap is 2*baseFee + tip, which survives six full blocks of base
// fee growth.
func freshFeeCap(baseFee, tip *big.Int) *big.Int {
	if baseFee == nil {
		return new(big.Int).Set(tip)
	}
	c := new(big.Int).Mul(baseFee, big.NewInt(2))
	return c.Add(c, tip)
}

func maxBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) >= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}
