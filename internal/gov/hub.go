// Package gov reads governance proposals from a Snapshot-style hub and casts
// signed votes on them.
package gov

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mtlprog/snxdash/internal/domain"
)

// ErrNotFound is returned when a proposal does not exist in a space.
var ErrNotFound = errors.New("proposal not found")

// Hub is an HTTP client for a governance hub with retry on 429.
type Hub struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
}

// NewHub creates a new hub client.
func NewHub(baseURL string, maxRetries int, baseDelay time.Duration) *Hub {
	return &Hub{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

// Proposals returns the proposals of a space keyed by IPFS hash.
func (h *Hub) Proposals(ctx context.Context, space string) (map[string]domain.Proposal, error) {
	body, err := h.do(ctx, http.MethodGet, "/api/"+url.PathEscape(space)+"/proposals", nil)
	if err != nil {
		return nil, fmt.Errorf("fetching proposals of %s: %w", space, err)
	}

	var proposals map[string]domain.Proposal
	if err := json.Unmarshal(body, &proposals); err != nil {
		return nil, fmt.Errorf("parsing proposals of %s: %w", space, err)
	}
	for hash, p := range proposals {
		if p.AuthorIpfsHash == "" {
			p.AuthorIpfsHash = hash
			proposals[hash] = p
		}
	}
	return proposals, nil
}

// Proposal returns a single proposal of a space.
func (h *Hub) Proposal(ctx context.Context, space, hash string) (domain.Proposal, error) {
	proposals, err := h.Proposals(ctx, space)
	if err != nil {
		return domain.Proposal{}, err
	}
	p, ok := proposals[hash]
	if !ok {
		return domain.Proposal{}, fmt.Errorf("%w: %s in %s", ErrNotFound, hash, space)
	}
	return p, nil
}

type messageResponse struct {
	IPFSHash         string `json:"ipfsHash"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// SendMessage posts a signed message envelope and returns its IPFS hash.
func (h *Hub) SendMessage(ctx context.Context, envelope any) (string, error) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("encoding message: %w", err)
	}

	body, err := h.do(ctx, http.MethodPost, "/api/message", payload)
	if err != nil {
		return "", fmt.Errorf("sending message: %w", err)
	}

	var resp messageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parsing message response: %w", err)
	}
	if resp.IPFSHash == "" {
		return "", fmt.Errorf("hub rejected message: %s", hubError(resp))
	}
	return resp.IPFSHash, nil
}

func hubError(resp messageResponse) string {
	switch {
	case resp.ErrorDescription != "":
		return resp.ErrorDescription
	case resp.Error != "":
		return resp.Error
	default:
		return "no ipfs hash returned"
	}
}

// do performs a request with retry on 429.
func (h *Hub) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	target := h.baseURL + path

	var lastErr error
	for attempt := range h.maxRetries + 1 {
		req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := h.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("executing request: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading response: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			return body, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("HTTP 429 at %s (attempt %d/%d)", target, attempt+1, h.maxRetries+1)
			if attempt < h.maxRetries {
				delay := h.baseDelay * time.Duration(1<<uint(attempt))
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(delay):
				}
				continue
			}
			return nil, lastErr
		}

		return nil, fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, target, string(body))
	}

	return nil, lastErr
}
