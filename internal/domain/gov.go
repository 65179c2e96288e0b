package domain

import (
	"encoding/json"
	"time"
)

// SignatureType is the kind of message submitted to a governance hub.
type SignatureType string

const (
	SignatureVote     SignatureType = "vote"
	SignatureProposal SignatureType = "proposal"
)

// TxState is the presentation state of a signature submission.
type TxState string

const (
	TxPresubmit TxState = "PRESUBMIT"
	TxWaiting   TxState = "WAITING"
	TxSuccess   TxState = "SUCCESS"
)

// VotePayload is the signed body of a vote. Choice is 1-based.
type VotePayload struct {
	Proposal string         `json:"proposal"`
	Choice   int            `json:"choice"`
	Metadata map[string]any `json:"metadata"`
}

// ProposalPayload is the content of a governance proposal.
type ProposalPayload struct {
	Name     string      `json:"name"`
	Body     string      `json:"body"`
	Choices  []string    `json:"choices"`
	Start    int64       `json:"start"`
	End      int64       `json:"end"`
	Snapshot json.Number `json:"snapshot"`
}

// ProposalMessage is the signed envelope of a proposal.
type ProposalMessage struct {
	Version   string          `json:"version"`
	Timestamp string          `json:"timestamp"`
	Space     string          `json:"space"`
	Type      string          `json:"type"`
	Payload   ProposalPayload `json:"payload"`
}

// Proposal is a governance proposal as published by the hub.
type Proposal struct {
	Address        string          `json:"address"`
	Msg            ProposalMessage `json:"msg"`
	Sig            string          `json:"sig"`
	AuthorIpfsHash string          `json:"authorIpfsHash"`
}

// Expired reports whether voting on the proposal has closed. Proposals without
// an end time never expire.
func (p Proposal) Expired(now time.Time) bool {
	end := p.Msg.Payload.End
	if end == 0 {
		return false
	}
	return now.Unix() > end
}
