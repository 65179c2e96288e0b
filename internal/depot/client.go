// Package depot reads depot exchanges from the Synthetix depot subgraph.
package depot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/mtlprog/snxdash/internal/domain"
)

// pageSize is the subgraph's maximum page size.
const pageSize = 1000

const exchangesQuery = `query exchanges($from: String!, $first: Int!, $skip: Int!) {
  exchanges(where: {from: $from}, orderBy: timestamp, orderDirection: desc, first: $first, skip: $skip) {
    id
    from
    fromAmount
    fromCurrency
    toAmount
    toCurrency
    block
    timestamp
  }
}`

// Client is a GraphQL client for the depot subgraph with retry on 429.
type Client struct {
	url        string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	maxResults int
}

// NewClient creates a new subgraph client.
func NewClient(url string, maxRetries int, baseDelay time.Duration) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxResults: 5 * pageSize,
	}
}

type graphRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphError struct {
	Message string `json:"message"`
}

type exchangeRecord struct {
	ID           string `json:"id"`
	From         string `json:"from"`
	FromAmount   string `json:"fromAmount"`
	FromCurrency string `json:"fromCurrency"`
	ToAmount     string `json:"toAmount"`
	ToCurrency   string `json:"toCurrency"`
	Block        string `json:"block"`
	Timestamp    string `json:"timestamp"`
}

type exchangesResponse struct {
	Data struct {
		Exchanges []exchangeRecord `json:"exchanges"`
	} `json:"data"`
	Errors []graphError `json:"errors"`
}

// Exchanges returns the depot exchanges made from wallet, newest first.
func (c *Client) Exchanges(ctx context.Context, wallet string) ([]domain.DepotExchange, error) {
	from := strings.ToLower(wallet)

	var records []exchangeRecord
	for skip := 0; skip < c.maxResults; skip += pageSize {
		var resp exchangesResponse
		err := c.postJSON(ctx, graphRequest{
			Query:     exchangesQuery,
			Variables: map[string]any{"from": from, "first": pageSize, "skip": skip},
		}, &resp)
		if err != nil {
			return nil, fmt.Errorf("querying exchanges from %s: %w", from, err)
		}
		if len(resp.Errors) > 0 {
			msgs := lo.Map(resp.Errors, func(e graphError, _ int) string { return e.Message })
			return nil, fmt.Errorf("subgraph errors: %s", strings.Join(msgs, "; "))
		}

		records = append(records, resp.Data.Exchanges...)
		if len(resp.Data.Exchanges) < pageSize {
			break
		}
	}

	return lo.Map(records, func(r exchangeRecord, _ int) domain.DepotExchange {
		return toExchange(r)
	}), nil
}

// toExchange converts a subgraph record. Amounts are wei strings, timestamps unix seconds.
func toExchange(r exchangeRecord) domain.DepotExchange {
	ts := domain.SafeParse(r.Timestamp).IntPart()
	hash, _, _ := strings.Cut(r.ID, "-")
	return domain.DepotExchange{
		Hash:         hash,
		From:         r.From,
		FromAmount:   domain.SafeParse(r.FromAmount).Shift(-domain.EtherDecimals),
		FromCurrency: r.FromCurrency,
		ToAmount:     domain.SafeParse(r.ToAmount).Shift(-domain.EtherDecimals),
		ToCurrency:   r.ToCurrency,
		Block:        domain.SafeParse(r.Block).IntPart(),
		Timestamp:    ts * 1000,
		Date:         time.Unix(ts, 0).UTC(),
	}
}

// post performs a POST request with retry on 429.
func (c *Client) post(ctx context.Context, payload []byte) ([]byte, error) {
	var lastErr error
	for attempt := range c.maxRetries + 1 {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
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
			lastErr = fmt.Errorf("HTTP 429 at %s (attempt %d/%d)", c.url, attempt+1, c.maxRetries+1)
			if attempt < c.maxRetries {
				delay := c.baseDelay * time.Duration(1<<uint(attempt))
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(delay):
				}
				continue
			}
			return nil, lastErr
		}

		return nil, fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, c.url, string(body))
	}

	return nil, lastErr
}

func (c *Client) postJSON(ctx context.Context, req graphRequest, dest any) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	body, err := c.post(ctx, payload)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("parsing JSON from %s: %w", c.url, err)
	}
	return nil
}
