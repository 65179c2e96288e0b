package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/mtlprog/snxdash/internal/domain"
	"github.com/mtlprog/snxdash/internal/gov"
)

// ProposalSource reads proposals from the governance hub.
type ProposalSource interface {
	Proposals(ctx context.Context, space string) (map[string]domain.Proposal, error)
	Proposal(ctx context.Context, space, hash string) (domain.Proposal, error)
}

// VoteObserver is notified of every finished vote submission.
type VoteObserver interface {
	ObserveVote(state string)
}

type proposalView struct {
	Hash      string   `json:"hash"`
	ShortHash string   `json:"shortHash"`
	Author    string   `json:"author"`
	Name      string   `json:"name"`
	BodyHTML  string   `json:"bodyHtml,omitempty"`
	Choices   []string `json:"choices"`
	Start     int64    `json:"start"`
	End       int64    `json:"end"`
	Snapshot  string   `json:"snapshot"`
	Expired   bool     `json:"expired"`
}

type ballotView struct {
	State   domain.TxState `json:"state"`
	Receipt *gov.Receipt   `json:"receipt,omitempty"`
	Error   string         `json:"error,omitempty"`
}

type voteRequest struct {
	Choice *int `json:"choice"`
}

// GovHandler provides governance endpoints. Ballots live for the process lifetime.
type GovHandler struct {
	proposals ProposalSource
	signer    gov.Signer
	observer  VoteObserver
	now       func() time.Time

	mu      sync.Mutex
	ballots map[string]*gov.Ballot
}

// NewGovHandler creates a governance handler. A nil signer disables voting.
func NewGovHandler(proposals ProposalSource, signer gov.Signer, observer VoteObserver) *GovHandler {
	return &GovHandler{
		proposals: proposals,
		signer:    signer,
		observer:  observer,
		now:       time.Now,
		ballots:   make(map[string]*gov.Ballot),
	}
}

func (h *GovHandler) view(hash string, p domain.Proposal, withBody bool) (proposalView, error) {
	v := proposalView{
		Hash:      hash,
		ShortHash: gov.TruncateAddress(hash),
		Author:    p.Address,
		Name:      p.Msg.Payload.Name,
		Choices:   p.Msg.Payload.Choices,
		Start:     p.Msg.Payload.Start,
		End:       p.Msg.Payload.End,
		Snapshot:  p.Msg.Payload.Snapshot.String(),
		Expired:   p.Expired(h.now()),
	}
	if withBody {
		body, err := gov.RenderBody(p.Msg.Payload.Body)
		if err != nil {
			return proposalView{}, err
		}
		v.BodyHTML = body
	}
	return v, nil
}

// ListProposals handles GET /api/v1/gov/{space}/proposals.
func (h *GovHandler) ListProposals(w http.ResponseWriter, r *http.Request) {
	space := r.PathValue("space")

	proposals, err := h.proposals.Proposals(r.Context(), space)
	if err != nil {
		slog.Error("failed to list proposals", "space", space, "error", err)
		writeError(w, http.StatusBadGateway, "failed to read proposals")
		return
	}

	views := make([]proposalView, 0, len(proposals))
	for hash, p := range proposals {
		v, _ := h.view(hash, p, false)
		views = append(views, v)
	}
	sort.Slice(views, func(i, j int) bool {
		if views[i].Start != views[j].Start {
			return views[i].Start > views[j].Start
		}
		return views[i].Hash < views[j].Hash
	})
	writeJSON(w, http.StatusOK, views)
}

// GetProposal handles GET /api/v1/gov/{space}/proposals/{hash}.
func (h *GovHandler) GetProposal(w http.ResponseWriter, r *http.Request) {
	space, hash := r.PathValue("space"), r.PathValue("hash")

	p, ok := h.loadProposal(w, r, space, hash)
	if !ok {
		return
	}

	v, err := h.view(hash, p, true)
	if err != nil {
		slog.Error("failed to render proposal", "hash", hash, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// GetVote handles GET /api/v1/gov/{space}/proposals/{hash}/vote.
func (h *GovHandler) GetVote(w http.ResponseWriter, r *http.Request) {
	b := h.existingBallot(r.PathValue("space"), r.PathValue("hash"))
	if b == nil {
		writeJSON(w, http.StatusOK, ballotView{State: domain.TxPresubmit})
		return
	}
	writeJSON(w, http.StatusOK, viewBallot(b))
}

// DismissVote handles DELETE /api/v1/gov/{space}/proposals/{hash}/vote.
func (h *GovHandler) DismissVote(w http.ResponseWriter, r *http.Request) {
	b := h.existingBallot(r.PathValue("space"), r.PathValue("hash"))
	if b == nil {
		writeJSON(w, http.StatusOK, ballotView{State: domain.TxPresubmit})
		return
	}
	b.Dismiss()
	writeJSON(w, http.StatusOK, viewBallot(b))
}

// Vote handles POST /api/v1/gov/{space}/proposals/{hash}/vote. Posting again
// after a failure retries the submission; after a success the vote must be
// dismissed first.
func (h *GovHandler) Vote(w http.ResponseWriter, r *http.Request) {
	if h.signer == nil {
		writeError(w, http.StatusServiceUnavailable, "voting is not configured")
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Choice == nil {
		writeError(w, http.StatusBadRequest, `invalid body, expected {"choice": <index>}`)
		return
	}

	space, hash := r.PathValue("space"), r.PathValue("hash")
	p, ok := h.loadProposal(w, r, space, hash)
	if !ok {
		return
	}
	if p.AuthorIpfsHash == "" {
		p.AuthorIpfsHash = hash
	}

	b := h.ballot(space, hash, p)
	if err := b.Select(*req.Choice); err != nil {
		writeBallotError(w, err)
		return
	}

	err := b.Submit(r.Context())
	rejected := errors.Is(err, gov.ErrInFlight) || errors.Is(err, gov.ErrAlreadyVoted)
	if h.observer != nil && !rejected {
		h.observer.ObserveVote(string(b.State()))
	}
	if err != nil {
		if rejected || errors.Is(err, gov.ErrProposalClosed) {
			writeBallotError(w, err)
			return
		}
		slog.Warn("vote submission failed", "space", space, "proposal", hash, "error", err)
		writeJSON(w, http.StatusBadGateway, viewBallot(b))
		return
	}
	writeJSON(w, http.StatusOK, viewBallot(b))
}

func (h *GovHandler) loadProposal(w http.ResponseWriter, r *http.Request, space, hash string) (domain.Proposal, bool) {
	p, err := h.proposals.Proposal(r.Context(), space, hash)
	if err != nil {
		if errors.Is(err, gov.ErrNotFound) {
			writeError(w, http.StatusNotFound, "proposal not found")
			return domain.Proposal{}, false
		}
		slog.Error("failed to get proposal", "space", space, "hash", hash, "error", err)
		writeError(w, http.StatusBadGateway, "failed to read proposal")
		return domain.Proposal{}, false
	}
	return p, true
}

func (h *GovHandler) ballot(space, hash string, p domain.Proposal) *gov.Ballot {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := space + "/" + hash
	b, ok := h.ballots[key]
	if !ok {
		b = gov.NewBallot(space, p, h.signer)
		h.ballots[key] = b
	}
	return b
}

func (h *GovHandler) existingBallot(space, hash string) *gov.Ballot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ballots[space+"/"+hash]
}

func viewBallot(b *gov.Ballot) ballotView {
	v := ballotView{State: b.State()}
	if v.State == domain.TxSuccess {
		receipt := b.Receipt()
		v.Receipt = &receipt
	}
	if err := b.Err(); err != nil {
		v.Error = err.Error()
	}
	return v
}

func writeBallotError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gov.ErrInvalidChoice):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, gov.ErrProposalClosed):
		writeError(w, http.StatusConflict, "proposal closed")
	case errors.Is(err, gov.ErrInFlight):
		writeError(w, http.StatusConflict, "vote already being signed")
	case errors.Is(err, gov.ErrAlreadyVoted):
		writeError(w, http.StatusConflict, "vote already submitted, dismiss it first")
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}
