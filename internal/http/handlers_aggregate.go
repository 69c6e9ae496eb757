package http

import (
	"net/http"
	"strings"

	"tally/internal/aggregate"
)

type summaryResponse struct {
	TotalIncome   float64 `json:"total_income"`
	TotalExpenses float64 `json:"total_expenses"`
	NetBalance    float64 `json:"net_balance"`
}

type dateGroupResponse struct {
	Date         string                `json:"date"`
	Total        float64               `json:"total"`
	Transactions []transactionResponse `json:"transactions"`
}

type rollupResponse struct {
	Label             string  `json:"label"`
	Amount            float64 `json:"amount"`
	PercentageOfTotal float64 `json:"percentage_of_total"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.ledger.Summary(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		TotalIncome:   summary.TotalIncome.Float(),
		TotalExpenses: summary.TotalExpenses.Float(),
		NetBalance:    summary.NetBalance.Float(),
	})
}

func parseMode(r *http.Request) (aggregate.Mode, bool) {
	v := strings.TrimSpace(r.URL.Query().Get("filter"))
	if v == "" {
		return aggregate.All, true
	}
	mode := aggregate.Mode(v)
	return mode, mode.Valid()
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	mode, ok := parseMode(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "filter must be all, expenses, or income")
		return
	}
	groups, err := s.ledger.ListDaily(r.Context(), mode)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDateGroupResponses(groups))
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	mode, ok := parseMode(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "filter must be all, expenses, or income")
		return
	}
	groups, err := s.ledger.ListMonthly(r.Context(), mode)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDateGroupResponses(groups))
}

func (s *Server) handleCategoryRollups(w http.ResponseWriter, r *http.Request) {
	rollups, err := s.ledger.RollupByCategory(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRollupResponses(rollups))
}

func (s *Server) handleMerchantRollups(w http.ResponseWriter, r *http.Request) {
	rollups, err := s.ledger.RollupByMerchant(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRollupResponses(rollups))
}

func toDateGroupResponses(groups []aggregate.DateGroup) []dateGroupResponse {
	out := make([]dateGroupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, dateGroupResponse{
			Date:         g.Date,
			Total:        g.Total.Float(),
			Transactions: toTransactionResponses(g.Transactions),
		})
	}
	return out
}

func toRollupResponses(rollups []aggregate.Rollup) []rollupResponse {
	out := make([]rollupResponse, 0, len(rollups))
	for _, r := range rollups {
		out = append(out, rollupResponse{
			Label:             r.Label,
			Amount:            r.Amount.Float(),
			PercentageOfTotal: r.Percent,
		})
	}
	return out
}
