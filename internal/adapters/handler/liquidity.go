package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/deltran/settlement-gateway/internal/core/domain"
)

// handleGetQuotes dispatches a liquidity quote request across providers.
// @Summary      Get liquidity quotes
// @Tags         liquidity
// @Produce      json
// @Param        from_currency  query  string  true   "Source currency"
// @Param        to_currency    query  string  true   "Destination currency"
// @Param        amount         query  string  true   "Amount, as a decimal string"
// @Param        method         query  string  false  "Settlement method"
// @Param        max_sources    query  int     false  "Max providers to dispatch"
// @Success      200  {object}  service.QuoteResponse
// @Failure      400  {object}  envelope
// @Router       /liquidity/quotes [get]
func (h *Handler) handleGetQuotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from := q.Get("from_currency")
	to := q.Get("to_currency")
	if from == "" || to == "" {
		WriteError(w, domain.NewValidationError("from_currency/to_currency", "both are required"))
		return
	}

	amount, err := domain.ParseMoney(q.Get("amount"))
	if err != nil {
		WriteError(w, domain.NewValidationError("amount", "must be a decimal string"))
		return
	}

	maxSources := 5
	if raw := q.Get("max_sources"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			maxSources = n
		}
	}

	resp, err := h.liquidity.GetQuotes(r.Context(), from, to, amount, q.Get("method"), maxSources)
	if err != nil {
		WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleGetQuote retrieves a previously issued quote by id. Quotes are
// write-once cache entries (§4.5), so this reads the cache directly
// rather than through a service method.
// @Summary      Get a quote by id
// @Tags         liquidity
// @Produce      json
// @Param        id  path  string  true  "Quote ID"
// @Success      200  {object}  domain.Quote
// @Failure      404  {object}  envelope
// @Router       /liquidity/quotes/{id} [get]
func (h *Handler) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	raw, err := h.quoteCache.Get(r.Context(), "quote:"+id)
	if err != nil {
		WriteError(w, domain.WrapError(domain.ErrCodeInternal, "failed to read quote cache", err))
		return
	}
	if raw == nil {
		WriteError(w, domain.NewNotFoundError("quote", id))
		return
	}

	var quote domain.Quote
	if err := json.Unmarshal(raw, &quote); err != nil {
		WriteError(w, domain.WrapError(domain.ErrCodeInternal, "failed to decode cached quote", err))
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

// handleExecuteQuote executes a cached quote, consuming it.
// @Summary      Execute a quote
// @Tags         liquidity
// @Produce      json
// @Param        id  path  string  true  "Quote ID"
// @Success      200  {object}  domain.Quote
// @Failure      404  {object}  envelope
// @Failure      410  {object}  envelope
// @Router       /liquidity/quotes/{id}/execute [post]
func (h *Handler) handleExecuteQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := h.liquidity.Execute(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, quote)
}
