package domain

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// FeeModel tells which fee fields a transaction prices itself with.
type FeeModel string

const (
	FeeModelDynamic FeeModel = "dynamic" // EIP-1559 tip + fee cap
	FeeModelLegacy  FeeModel = "legacy"  // single gas price
)

var ErrMixedFeeModels = errors.New("gas price cannot be combined with dynamic fee fields")

// PendingTransaction is one physical submission of a logical transaction.
// All members of a replacement chain share From and Nonce; only fees differ.
type PendingTransaction struct {
	Hash     common.Hash     `json:"hash"`
	Nonce    uint64          `json:"nonce"`
	From     common.Address  `json:"from"`
	To       *common.Address `json:"to,omitempty"`
	Value    *big.Int        `json:"value,omitempty"`
	Data     []byte          `json:"data,omitempty"`
	GasLimit uint64          `json:"gas_limit"`
	ChainID  ChainID         `json:"chain_id"`

	MaxFeePerGas         *big.Int `json:"max_fee_per_gas,omitempty"`
	MaxPriorityFeePerGas *big.Int `json:"max_priority_fee_per_gas,omitempty"`
	GasPrice             *big.Int `json:"gas_price,omitempty"`
}

// FeeModel reports the pricing model. A present priority fee wins.
func (tx *PendingTransaction) FeeModel() FeeModel {
	if tx.MaxPriorityFeePerGas != nil {
		return FeeModelDynamic
	}
	return FeeModelLegacy
}

// SameLogical reports whether other can replace tx.
func (tx *PendingTransaction) SameLogical(other *PendingTransaction) bool {
	return other != nil && tx.From == other.From && tx.Nonce == other.Nonce
}

// Clone returns a deep copy.
func (tx *PendingTransaction) Clone() *PendingTransaction {
	c := *tx
	if tx.To != nil {
		to := *tx.To
		c.To = &to
	}
	c.Value = copyBig(tx.Value)
	c.Data = append([]byte(nil), tx.Data...)
	c.MaxFeePerGas = copyBig(tx.MaxFeePerGas)
	c.MaxPriorityFeePerGas = copyBig(tx.MaxPriorityFeePerGas)
	c.GasPrice = copyBig(tx.GasPrice)
	return &c
}

// FeeOverride carries the fee fields a resubmission changes.
// Nil fields are left for the signer to pick.
type FeeOverride struct {
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	GasPrice             *big.Int
}

// Validate rejects overrides that mix the two fee models.
func (o FeeOverride) Validate() error {
	if o.GasPrice != nil && (o.MaxFeePerGas != nil || o.MaxPriorityFeePerGas != nil) {
		return ErrMixedFeeModels
	}
	return nil
}

// IsEmpty reports whether the override leaves every fee to the signer.
func (o FeeOverride) IsEmpty() bool {
	return o.GasPrice == nil && o.MaxFeePerGas == nil && o.MaxPriorityFeePerGas == nil
}

// TxRequest describes the content of a new transaction.
type TxRequest struct {
	To       *common.Address
	Value    *big.Int
	Data     []byte
	GasLimit uint64 // 0 = estimate
}

// Receipt is the terminal result of a mined transaction.
type Receipt struct {
	TxHash            common.Hash `json:"tx_hash"`
	BlockHash         common.Hash `json:"block_hash"`
	BlockNumber       uint64      `json:"block_number"`
	Status            TxStatus    `json:"status"`
	GasUsed           uint64      `json:"gas_used"`
	EffectiveGasPrice *big.Int    `json:"effective_gas_price,omitempty"`
}

// Succeeded reports whether execution did not revert.
func (r *Receipt) Succeeded() bool {
	return r.Status == TxStatusSuccess
}

// Fee returns gasUsed * effectiveGasPrice, or nil when the price is unknown.
func (r *Receipt) Fee() *big.Int {
	if r.EffectiveGasPrice == nil {
		return nil
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(r.GasUsed), r.EffectiveGasPrice)
}

type TxStatus string

const (
	TxStatusSuccess  TxStatus = "success"
	TxStatusReverted TxStatus = "reverted"
)

func copyBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
