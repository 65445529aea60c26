package escalation

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/vietddude/txguard/internal/core/domain"
)

// ErrPromptClosed is returned by an accelerator that will never fire again.
var ErrPromptClosed = errors.New("acceleration prompt closed")

// StdinAccelerator waits for the Enter key.
//
// A single reader goroutine owns the input for the accelerator's lifetime,
// since a blocked read cannot be interrupted. Await itself always returns
// when ctx is done. Lines read before a prompt was printed do not answer it.
type StdinAccelerator struct {
	in  io.Reader
	out io.Writer

	once  sync.Once
	lines chan time.Time
}

// NewStdinAccelerator reads lines from in and writes prompts to out.
func NewStdinAccelerator(in io.Reader, out io.Writer) *StdinAccelerator {
	return &StdinAccelerator{in: in, out: out, lines: make(chan time.Time)}
}

func (a *StdinAccelerator) start() {
	go func() {
		defer close(a.lines)
		scanner := bufio.NewScanner(a.in)
		for scanner.Scan() {
			a.lines <- time.Now()
		}
	}()
}

func (a *StdinAccelerator) Await(ctx context.Context, tx *domain.PendingTransaction) error {
	prompted := time.Now()
	a.once.Do(a.start)
	fmt.Fprintf(a.out, "Press enter to speed up transaction %s\n", tx.Hash.Hex())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case read, ok := <-a.lines:
			if !ok {
				return ErrPromptClosed
			}
			if read.Before(prompted) {
				continue
			}
			return nil
		}
	}
}

// ChanAccelerator fires once per value received on its channel.
type ChanAccelerator struct {
	requests <-chan struct{}
}

func NewChanAccelerator(requests <-chan struct{}) *ChanAccelerator {
	return &ChanAccelerator{requests: requests}
}

func (a *ChanAccelerator) Await(ctx context.Context, _ *domain.PendingTransaction) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case _, ok := <-a.requests:
		if !ok {
			return ErrPromptClosed
		}
		return nil
	}
}

// TimerAccelerator speeds up automatically when a member stays pending for
// the interval.
type TimerAccelerator struct {
	interval time.Duration
}

func NewTimerAccelerator(interval time.Duration) *TimerAccelerator {
	return &TimerAccelerator{interval: interval}
}

func (a *TimerAccelerator) Await(ctx context.Context, _ *domain.PendingTransaction) error {
	timer := time.NewTimer(a.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NoAccelerator never requests a speed-up.
type NoAccelerator struct{}

func (NoAccelerator) Await(ctx context.Context, _ *domain.PendingTransaction) error {
	<-ctx.Done()
	return ctx.Err()
}
