package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/txguard/internal/core/domain"
)

// Journal keeps every member of a replacement chain in a Redis list, in
// submission order.
type Journal struct {
	client *Client
	ttl    time.Duration
}

func NewJournal(client *Client, ttl time.Duration) *Journal {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Journal{client: client, ttl: ttl}
}

// ChainKey returns the list key for one logical transaction.
func ChainKey(chainID domain.ChainID, from common.Address, nonce uint64) string {
	return fmt.Sprintf("chain:%d:%s:%d", chainID, strings.ToLower(from.Hex()), nonce)
}

// Record appends member to its chain and refreshes the TTL.
func (j *Journal) Record(ctx context.Context, member *domain.PendingTransaction) error {
	data, err := json.Marshal(member)
	if err != nil {
		return fmt.Errorf("failed to marshal chain member: %w", err)
	}

	key := ChainKey(member.ChainID, member.From, member.Nonce)
	pipe := j.client.rdb.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, j.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record chain member %s: %w", member.Hash.Hex(), err)
	}
	return nil
}

// Members returns the recorded chain, oldest first.
func (j *Journal) Members(
	ctx context.Context,
	chainID domain.ChainID,
	from common.Address,
	nonce uint64,
) ([]*domain.PendingTransaction, error) {
	raw, err := j.client.rdb.LRange(ctx, ChainKey(chainID, from, nonce), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange failed: %w", err)
	}
	return decodeMembers(raw)
}

func decodeMembers(raw []string) ([]*domain.PendingTransaction, error) {
	members := make([]*domain.PendingTransaction, 0, len(raw))
	for i, item := range raw {
		var m domain.PendingTransaction
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("decode member %d: %w", i, err)
		}
		members = append(members, &m)
	}
	return members, nil
}
