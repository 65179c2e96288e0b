package gov

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mtlprog/snxdash/internal/domain"
)

var (
	ErrNoSelection    = errors.New("no choice selected")
	ErrNoProposal     = errors.New("no proposal hash")
	ErrInvalidChoice  = errors.New("choice out of range")
	ErrProposalClosed = errors.New("proposal closed")
	ErrInFlight       = errors.New("vote already being signed")
	ErrAlreadyVoted   = errors.New("vote already submitted")
)

// Ballot tracks the casting of one vote on a proposal.
//
// The state moves PRESUBMIT -> WAITING while the signer runs, then to SUCCESS,
// or back to PRESUBMIT with the failure kept in Err. Failures are retried only
// by calling Retry. A successful ballot accepts no new choice or submission
// until Dismiss returns it to PRESUBMIT.
type Ballot struct {
	space    string
	proposal domain.Proposal
	signer   Signer
	now      func() time.Time

	mu       sync.RWMutex
	selected *int
	state    domain.TxState
	err      error
	receipt  Receipt
}

// NewBallot creates a ballot for a proposal in space.
func NewBallot(space string, proposal domain.Proposal, signer Signer) *Ballot {
	if signer == nil {
		panic("gov.NewBallot: signer is nil")
	}
	return &Ballot{
		space:    space,
		proposal: proposal,
		signer:   signer,
		now:      time.Now,
		state:    domain.TxPresubmit,
	}
}

// Select picks the 0-based choice index. The choice is locked while a vote is
// being signed and after it succeeded.
func (b *Ballot) Select(i int) error {
	if b.proposal.Expired(b.now()) {
		return ErrProposalClosed
	}
	if n := len(b.proposal.Msg.Payload.Choices); i < 0 || i >= n {
		return fmt.Errorf("%w: %d of %d", ErrInvalidChoice, i, n)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.lockedErr(); err != nil {
		return err
	}
	b.selected = &i
	return nil
}

// lockedErr reports why the ballot cannot change. Callers hold b.mu.
func (b *Ballot) lockedErr() error {
	switch b.state {
	case domain.TxWaiting:
		return ErrInFlight
	case domain.TxSuccess:
		return ErrAlreadyVoted
	}
	return nil
}

// Submit signs and submits the selected choice. Without a proposal hash or a
// selection nothing happens and the state is unchanged.
func (b *Ballot) Submit(ctx context.Context) error {
	hash := b.proposal.AuthorIpfsHash
	if hash == "" {
		return ErrNoProposal
	}
	if b.proposal.Expired(b.now()) {
		return ErrProposalClosed
	}

	b.mu.Lock()
	if b.selected == nil {
		b.mu.Unlock()
		return ErrNoSelection
	}
	if err := b.lockedErr(); err != nil {
		b.mu.Unlock()
		return err
	}
	choice := *b.selected + 1
	b.state = domain.TxWaiting
	b.err = nil
	b.mu.Unlock()

	receipt, err := b.signer.Sign(ctx, SignRequest{
		SpaceKey: b.space,
		Type:     domain.SignatureVote,
		Payload: domain.VotePayload{
			Proposal: hash,
			Choice:   choice,
			Metadata: map[string]any{},
		},
	})

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.state = domain.TxPresubmit
		b.err = err
		return fmt.Errorf("submitting vote on %s: %w", hash, err)
	}
	b.state = domain.TxSuccess
	b.receipt = receipt
	return nil
}

// Retry submits again after a failure.
func (b *Ballot) Retry(ctx context.Context) error {
	return b.Submit(ctx)
}

// Dismiss returns a successful ballot to PRESUBMIT.
func (b *Ballot) Dismiss() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == domain.TxSuccess {
		b.state = domain.TxPresubmit
	}
}

func (b *Ballot) State() domain.TxState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Err returns the last submission failure, if any.
func (b *Ballot) Err() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.err
}

func (b *Ballot) Receipt() Receipt {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.receipt
}
