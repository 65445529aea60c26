package evm

import (
	"bytes"
	"encoding/json"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/vietddude/txguard/internal/core/domain"
)

// ErrNotFound is returned when the node answers null.
var ErrNotFound = errors.New("not found")

var null = []byte("null")

// decode unmarshals a JSON-RPC result, mapping null to ErrNotFound.
func decode[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), null) {
		return v, ErrNotFound
	}
	err := json.Unmarshal(raw, &v)
	return v, err
}

type rpcTransaction struct {
	Hash                 common.Hash     `json:"hash"`
	From                 common.Address  `json:"from"`
	To                   *common.Address `json:"to"`
	Nonce                hexutil.Uint64  `json:"nonce"`
	Value                *hexutil.Big    `json:"value"`
	Input                hexutil.Bytes   `json:"input"`
	Gas                  hexutil.Uint64  `json:"gas"`
	GasPrice             *hexutil.Big    `json:"gasPrice"`
	MaxFeePerGas         *hexutil.Big    `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *hexutil.Big    `json:"maxPriorityFeePerGas"`
	ChainID              *hexutil.Big    `json:"chainId"`
	BlockNumber          *hexutil.Big    `json:"blockNumber"`
}

// pending converts a node transaction into a chain member. Dynamic-fee
// transactions keep only their dynamic fields, even though nodes also
// report an effective gasPrice for them.
func (tx *rpcTransaction) pending(chainID domain.ChainID) *domain.PendingTransaction {
	p := &domain.PendingTransaction{
		Hash:     tx.Hash,
		Nonce:    uint64(tx.Nonce),
		From:     tx.From,
		To:       tx.To,
		Value:    toBig(tx.Value),
		Data:     tx.Input,
		GasLimit: uint64(tx.Gas),
		ChainID:  chainID,
	}
	if tx.MaxPriorityFeePerGas != nil {
		p.MaxPriorityFeePerGas = toBig(tx.MaxPriorityFeePerGas)
		p.MaxFeePerGas = toBig(tx.MaxFeePerGas)
	} else {
		p.GasPrice = toBig(tx.GasPrice)
	}
	if p.Value == nil {
		p.Value = new(big.Int)
	}
	return p
}

type rpcReceipt struct {
	TransactionHash   common.Hash    `json:"transactionHash"`
	BlockHash         common.Hash    `json:"blockHash"`
	BlockNumber       hexutil.Uint64 `json:"blockNumber"`
	Status            hexutil.Uint64 `json:"status"`
	GasUsed           hexutil.Uint64 `json:"gasUsed"`
	EffectiveGasPrice *hexutil.Big   `json:"effectiveGasPrice"`
}

func (r *rpcReceipt) receipt() *domain.Receipt {
	status := domain.TxStatusReverted
	if r.Status == 1 {
		status = domain.TxStatusSuccess
	}
	return &domain.Receipt{
		TxHash:            r.TransactionHash,
		BlockHash:         r.BlockHash,
		BlockNumber:       uint64(r.BlockNumber),
		Status:            status,
		GasUsed:           uint64(r.GasUsed),
		EffectiveGasPrice: toBig(r.EffectiveGasPrice),
	}
}

type rpcHeader struct {
	Number  hexutil.Uint64 `json:"number"`
	Hash    common.Hash    `json:"hash"`
	BaseFee *hexutil.Big   `json:"baseFeePerGas"`
}

type rpcBlock struct {
	rpcHeader
	Transactions []rpcTransaction `json:"transactions"`
}

// callMsg is the eth_call / eth_estimateGas argument object.
type callMsg struct {
	From                 common.Address  `json:"from"`
	To                   *common.Address `json:"to,omitempty"`
	Value                *hexutil.Big    `json:"value,omitempty"`
	Data                 hexutil.Bytes   `json:"data,omitempty"`
	GasPrice             *hexutil.Big    `json:"gasPrice,omitempty"`
	MaxFeePerGas         *hexutil.Big    `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big    `json:"maxPriorityFeePerGas,omitempty"`
}

func toBig(v *hexutil.Big) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v.ToInt())
}

func toHexBig(v *big.Int) *hexutil.Big {
	if v == nil {
		return nil
	}
	return (*hexutil.Big)(v)
}

func blockTag(n uint64) string {
	return hexutil.EncodeUint64(n)
}
