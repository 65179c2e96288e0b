package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mtlprog/snxdash/internal/domain"
	"github.com/mtlprog/snxdash/internal/network"
	"github.com/mtlprog/snxdash/internal/rates"
	"github.com/mtlprog/snxdash/internal/staking"
	"github.com/mtlprog/snxdash/internal/wallet"
)

// BalanceService returns a wallet overview.
type BalanceService interface {
	Balances(ctx context.Context, session domain.Session) (wallet.Result, error)
}

// DebtService returns a wallet's debt data.
type DebtService interface {
	WalletDebtData(ctx context.Context, session domain.Session) (domain.WalletDebtData, error)
}

// FeePoolService returns a recent fee period.
type FeePoolService interface {
	FeePoolData(ctx context.Context, session domain.Session, period string) (domain.FeePoolData, error)
}

// DepotService returns a wallet's depot exchanges.
type DepotService interface {
	Exchanges(ctx context.Context, session domain.Session) ([]domain.DepotExchange, error)
}

// RatesService returns the price table and the stored quotes.
type RatesService interface {
	Latest(ctx context.Context) (domain.ExchangeRates, error)
	Quotes(ctx context.Context) ([]rates.Quote, error)
}

// NetworkResolver looks up networks by name.
type NetworkResolver interface {
	Network(name string) (network.Network, error)
}

// Handler provides HTTP endpoints for wallet, staking and rates data.
type Handler struct {
	balances       BalanceService
	debt           DebtService
	feePool        FeePoolService
	depot          DepotService
	rates          RatesService
	networks       NetworkResolver
	defaultNetwork string
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		balances:       deps.Balances,
		debt:           deps.Debt,
		feePool:        deps.FeePool,
		depot:          deps.Depot,
		rates:          deps.Rates,
		networks:       deps.Networks,
		defaultNetwork: deps.DefaultNetwork,
	}
}

// session builds the request session from the {address} path value and the
// network query parameter. It writes an error response and returns false on invalid input.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (domain.Session, bool) {
	addr := r.PathValue("address")
	if !common.IsHexAddress(addr) {
		writeError(w, http.StatusBadRequest, "invalid wallet address")
		return domain.Session{}, false
	}

	name := r.URL.Query().Get("network")
	if name == "" {
		name = h.defaultNetwork
	}
	n, err := h.networks.Network(name)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown network")
		return domain.Session{}, false
	}

	return domain.Session{
		WalletAddress: common.HexToAddress(addr).Hex(),
		Network:       n.Domain(),
		AppReady:      true,
	}, true
}

// GetBalances handles GET /api/v1/wallets/{address}/balances.
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	res, err := h.balances.Balances(r.Context(), session)
	if err != nil {
		if errors.Is(err, wallet.ErrMissingPrice) {
			writeError(w, http.StatusServiceUnavailable, "missing price data")
			return
		}
		slog.Error("failed to get balances", "wallet", session.WalletAddress, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetDebt handles GET /api/v1/wallets/{address}/debt.
func (h *Handler) GetDebt(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	data, err := h.debt.WalletDebtData(r.Context(), session)
	if err != nil {
		slog.Error("failed to get debt data", "wallet", session.WalletAddress, "error", err)
		writeError(w, http.StatusBadGateway, "failed to read debt data")
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// GetDepotExchanges handles GET /api/v1/wallets/{address}/depot/exchanges.
func (h *Handler) GetDepotExchanges(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	exchanges, err := h.depot.Exchanges(r.Context(), session)
	if err != nil {
		slog.Error("failed to get depot exchanges", "wallet", session.WalletAddress, "error", err)
		writeError(w, http.StatusBadGateway, "failed to read depot exchanges")
		return
	}
	if exchanges == nil {
		exchanges = []domain.DepotExchange{}
	}
	writeJSON(w, http.StatusOK, exchanges)
}

// GetFeePool handles GET /api/v1/staking/fee-pool/{period}.
func (h *Handler) GetFeePool(w http.ResponseWriter, r *http.Request) {
	period := r.PathValue("period")

	data, err := h.feePool.FeePoolData(r.Context(), domain.Session{AppReady: true}, period)
	if err != nil {
		if errors.Is(err, staking.ErrInvalidPeriod) {
			writeError(w, http.StatusBadRequest, "invalid fee period, expected 0 (current) or 1 (previous)")
			return
		}
		slog.Error("failed to get fee pool data", "period", period, "error", err)
		writeError(w, http.StatusBadGateway, "failed to read fee pool data")
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// GetRates handles GET /api/v1/rates.
func (h *Handler) GetRates(w http.ResponseWriter, r *http.Request) {
	table, err := h.rates.Latest(r.Context())
	if err != nil {
		if errors.Is(err, rates.ErrNotReady) {
			writeError(w, http.StatusServiceUnavailable, "exchange rates not ready")
			return
		}
		slog.Error("failed to get rates", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, table)
}

// GetQuotes handles GET /api/v1/rates/quotes.
func (h *Handler) GetQuotes(w http.ResponseWriter, r *http.Request) {
	quotes, err := h.rates.Quotes(r.Context())
	if err != nil {
		slog.Error("failed to get quotes", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if quotes == nil {
		quotes = []rates.Quote{}
	}
	writeJSON(w, http.StatusOK, quotes)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
