package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/services"
	"tally/internal/storage"
)

// transactionResponse is the wire shape the client renders: unsigned
// amount next to an explicit direction tag.
type transactionResponse struct {
	ID              string  `json:"id"`
	Date            string  `json:"date"`
	Details         string  `json:"details"`
	Amount          float64 `json:"amount"`
	TransactionType string  `json:"transaction_type"`
	Category        string  `json:"category"`
	Bank            string  `json:"bank,omitempty"`
	StatementType   string  `json:"statement_type"`
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:              tx.ID,
		Date:            tx.DayKey(),
		Details:         tx.Description,
		Amount:          tx.Magnitude().Float(),
		TransactionType: string(tx.Type),
		Category:        tx.Category,
		Bank:            tx.Bank,
		StatementType:   tx.StatementType,
	}
}

func toTransactionResponses(txs []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	return out
}

type createTransactionRequest struct {
	Date            string          `json:"date"`
	Details         string          `json:"details"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionType string          `json:"transaction_type"`
	Category        string          `json:"category"`
	Bank            string          `json:"bank"`
	StatementType   string          `json:"statement_type"`
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, &core.ValidationError{Field: "date", Reason: "must be RFC 3339 or YYYY-MM-DD"}
	}
	return t, nil
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f := storage.Filter{
		Category: strings.TrimSpace(r.URL.Query().Get("category")),
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		first, err := time.Parse("2006-01", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "month must be YYYY-MM")
			return
		}
		f.From = first
		f.To = first.AddDate(0, 1, -1)
	}
	if v := strings.TrimSpace(r.URL.Query().Get("transaction_type")); v != "" {
		typ := core.TxType(v)
		if !typ.Valid() {
			writeError(w, http.StatusBadRequest, "transaction_type must be Debit or Credit")
			return
		}
		f.Type = typ
	}
	for _, bound := range []struct {
		param string
		dst   *time.Time
	}{
		{"from", &f.From},
		{"to", &f.To},
	} {
		if v := strings.TrimSpace(r.URL.Query().Get(bound.param)); v != "" {
			t, err := parseDate(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, bound.param+" must be a date")
				return
			}
			*bound.dst = t
		}
	}

	txs, err := s.ledger.List(r.Context(), f)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponses(txs))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		respondError(w, r, err)
		return
	}

	tx, err := s.ledger.Record(r.Context(), services.RecordInput{
		Date:          date,
		Amount:        req.Amount,
		Type:          core.TxType(req.TransactionType),
		Description:   req.Details,
		Category:      req.Category,
		Bank:          req.Bank,
		StatementType: req.StatementType,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.ledger.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	// The mobile client sends the new value as a query parameter; a JSON
	// body works too.
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	if category == "" {
		var req struct {
			Category string `json:"category"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		category = req.Category
	}

	tx, err := s.ledger.UpdateCategory(r.Context(), r.PathValue("id"), category)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (s *Server) handleSwitchType(w http.ResponseWriter, r *http.Request) {
	typ := strings.TrimSpace(r.URL.Query().Get("new_type"))
	if typ == "" {
		var req struct {
			TransactionType string `json:"transaction_type"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		typ = req.TransactionType
	}

	tx, err := s.ledger.SwitchType(r.Context(), r.PathValue("id"), core.TxType(typ))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (s *Server) handleRecategorize(w http.ResponseWriter, r *http.Request) {
	result, err := s.ledger.RecategorizeAll(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Total   int `json:"total"`
		Updated int `json:"updated"`
	}{Total: result.Total, Updated: result.Updated})
}

type vendorMappingRequest struct {
	Vendor   string `json:"vendor"`
	Category string `json:"category"`
}

func (s *Server) handleSetVendorMapping(w http.ResponseWriter, r *http.Request) {
	var req vendorMappingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.ledger.SetVendorMapping(r.Context(), req.Vendor, req.Category); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (s *Server) handleListVendorMappings(w http.ResponseWriter, r *http.Request) {
	mappings, err := s.ledger.VendorMappings(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if mappings == nil {
		mappings = map[string]string{}
	}
	writeJSON(w, http.StatusOK, mappings)
}

func (s *Server) handleListCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, core.Categories())
}
