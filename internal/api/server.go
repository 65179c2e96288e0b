package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/mtlprog/snxdash/internal/gov"
	"github.com/mtlprog/snxdash/internal/metrics"
)

// Deps are the services behind the HTTP API.
type Deps struct {
	Balances       BalanceService
	Debt           DebtService
	FeePool        FeePoolService
	Depot          DepotService
	Rates          RatesService
	Networks       NetworkResolver
	DefaultNetwork string
	Proposals      ProposalSource // optional
	Signer         gov.Signer     // optional
}

// NewHandlerMux builds the route table. m may be nil to disable instrumentation.
func NewHandlerMux(deps Deps, m *metrics.Metrics, adminAPIKey string) *http.ServeMux {
	handler := NewHandler(deps)

	mux := http.NewServeMux()
	handle := func(pattern string, h http.Handler) {
		if m != nil {
			h = m.Middleware(pattern, h)
		}
		mux.Handle(pattern, h)
	}

	handle("GET /api/v1/wallets/{address}/balances", http.HandlerFunc(handler.GetBalances))
	handle("GET /api/v1/wallets/{address}/debt", http.HandlerFunc(handler.GetDebt))
	handle("GET /api/v1/wallets/{address}/depot/exchanges", http.HandlerFunc(handler.GetDepotExchanges))
	handle("GET /api/v1/staking/fee-pool/{period}", http.HandlerFunc(handler.GetFeePool))
	handle("GET /api/v1/rates", http.HandlerFunc(handler.GetRates))
	handle("GET /api/v1/rates/quotes", http.HandlerFunc(handler.GetQuotes))

	if deps.Proposals != nil {
		var observer VoteObserver
		if m != nil {
			observer = m
		}
		govHandler := NewGovHandler(deps.Proposals, deps.Signer, observer)
		handle("GET /api/v1/gov/{space}/proposals", http.HandlerFunc(govHandler.ListProposals))
		handle("GET /api/v1/gov/{space}/proposals/{hash}", http.HandlerFunc(govHandler.GetProposal))
		handle("GET /api/v1/gov/{space}/proposals/{hash}/vote", http.HandlerFunc(govHandler.GetVote))

		vote := http.Handler(http.HandlerFunc(govHandler.Vote))
		dismiss := http.Handler(http.HandlerFunc(govHandler.DismissVote))
		if adminAPIKey != "" {
			vote = requireAuth(adminAPIKey, vote)
			dismiss = requireAuth(adminAPIKey, dismiss)
		}
		handle("POST /api/v1/gov/{space}/proposals/{hash}/vote", vote)
		handle("DELETE /api/v1/gov/{space}/proposals/{hash}/vote", dismiss)
	}

	if m != nil {
		mux.Handle("GET /metrics", m.Handler())
	}

	return mux
}

// NewServer creates an HTTP server with all routes configured.
func NewServer(port string, deps Deps, m *metrics.Metrics, adminAPIKey string) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      NewHandlerMux(deps, m, adminAPIKey),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
