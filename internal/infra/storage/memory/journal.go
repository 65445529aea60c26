package memory

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/txguard/internal/core/domain"
)

type chainKey struct {
	chainID domain.ChainID
	from    common.Address
	nonce   uint64
}

// Journal is an in-process chain journal for runs without Redis.
type Journal struct {
	chains map[chainKey][]*domain.PendingTransaction
	mu     sync.RWMutex
}

func NewJournal() *Journal {
	return &Journal{chains: make(map[chainKey][]*domain.PendingTransaction)}
}

func (j *Journal) Record(ctx context.Context, member *domain.PendingTransaction) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	key := chainKey{member.ChainID, member.From, member.Nonce}
	j.chains[key] = append(j.chains[key], member.Clone())
	return nil
}

// Members returns copies of the recorded chain, oldest first.
func (j *Journal) Members(
	ctx context.Context,
	chainID domain.ChainID,
	from common.Address,
	nonce uint64,
) ([]*domain.PendingTransaction, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	recorded := j.chains[chainKey{chainID, from, nonce}]
	members := make([]*domain.PendingTransaction, len(recorded))
	for i, m := range recorded {
		members[i] = m.Clone()
	}
	return members, nil
}
