package escalation

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/txguard/internal/core/domain"
)

func TestStdinAccelerator(t *testing.T) {
	out := &bytes.Buffer{}
	acc := NewStdinAccelerator(strings.NewReader("\n"), out)
	tx := &domain.PendingTransaction{Hash: common.HexToHash("0xabc")}

	require.NoError(t, acc.Await(context.Background(), tx))
	assert.Contains(t, out.String(), tx.Hash.Hex())

	// Input exhausted.
	assert.ErrorIs(t, acc.Await(context.Background(), tx), ErrPromptClosed)
}

// promptWriter signals every prompt written to it.
type promptWriter struct {
	prompts chan struct{}
}

func (w promptWriter) Write(p []byte) (int, error) {
	w.prompts <- struct{}{}
	return len(p), nil
}

func TestStdinAcceleratorIgnoresEarlyEnter(t *testing.T) {
	pr, pw := io.Pipe()
	out := promptWriter{prompts: make(chan struct{}, 3)}
	acc := NewStdinAccelerator(pr, out)
	tx := &domain.PendingTransaction{Hash: common.HexToHash("0xabc")}

	enterAfterPrompt := func() {
		go func() {
			<-out.prompts
			_, _ = pw.Write([]byte("\n"))
		}()
	}

	enterAfterPrompt()
	require.NoError(t, acc.Await(context.Background(), tx))

	// Pressed while no prompt was showing.
	_, err := pw.Write([]byte("\n"))
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, acc.Await(ctx, tx), context.DeadlineExceeded)
	<-out.prompts

	enterAfterPrompt()
	require.NoError(t, acc.Await(context.Background(), tx))

	require.NoError(t, pw.Close())
	assert.ErrorIs(t, acc.Await(context.Background(), tx), ErrPromptClosed)
}

func TestChanAccelerator(t *testing.T) {
	requests := make(chan struct{}, 1)
	acc := NewChanAccelerator(requests)
	tx := &domain.PendingTransaction{}

	requests <- struct{}{}
	require.NoError(t, acc.Await(context.Background(), tx))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, acc.Await(ctx, tx), context.Canceled)

	close(requests)
	assert.ErrorIs(t, acc.Await(context.Background(), tx), ErrPromptClosed)
}

func TestTimerAccelerator(t *testing.T) {
	acc := NewTimerAccelerator(5 * time.Millisecond)
	require.NoError(t, acc.Await(context.Background(), &domain.PendingTransaction{}))

	slow := NewTimerAccelerator(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, slow.Await(ctx, &domain.PendingTransaction{}), context.DeadlineExceeded)
}

func TestNoAccelerator(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NoAccelerator{}.Await(ctx, &domain.PendingTransaction{}), context.Canceled)
}
