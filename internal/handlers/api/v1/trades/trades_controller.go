// file: internal/handlers/api/v1/trades/trades_controller.go
package trades

import (
	"encoding/json"
	"net/http"

	"goldhub/internal/contextutils"
	"goldhub/internal/response"
	"goldhub/internal/services"

	"go.uber.org/zap"
)

// TradesController serves the buy, sell, redeem and ledger endpoints.
type TradesController struct {
	trades services.TradeService
	logger *zap.Logger
}

// NewTradesController creates the trades API controller.
func NewTradesController(trades services.TradeService, logger *zap.Logger) *TradesController {
	return &TradesController{trades: trades, logger: logger}
}

type buyPayload struct {
	Amount float64 `json:"amount"`
	Grams  float64 `json:"grams"`
}

type sellPayload struct {
	Grams float64 `json:"grams"`
}

type redeemPayload struct {
	Grams   float64 `json:"grams"`
	Address string  `json:"address"`
}

// Buy handles POST /api/v1/trades/buy.
func (c *TradesController) Buy(w http.ResponseWriter, r *http.Request) {
	userID := contextutils.GetUserID(r.Context())

	var payload buyPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.WriteValidationError(w, r, c.logger, "invalid request body")
		return
	}

	entry, err := c.trades.Buy(r.Context(), &services.BuyRequest{
		UserID: userID,
		Amount: payload.Amount,
		Grams:  payload.Grams,
	})
	if err != nil {
		response.WriteError(w, r, c.logger, err)
		return
	}
	response.WriteSuccess(w, r, http.StatusCreated, entry)
}

// Sell handles POST /api/v1/trades/sell.
func (c *TradesController) Sell(w http.ResponseWriter, r *http.Request) {
	userID := contextutils.GetUserID(r.Context())

	var payload sellPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.WriteValidationError(w, r, c.logger, "invalid request body")
		return
	}

	entry, err := c.trades.Sell(r.Context(), &services.SellRequest{
		UserID: userID,
		Grams:  payload.Grams,
	})
	if err != nil {
		response.WriteError(w, r, c.logger, err)
		return
	}
	response.WriteSuccess(w, r, http.StatusCreated, entry)
}

// Redeem handles POST /api/v1/trades/redeem.
func (c *TradesController) Redeem(w http.ResponseWriter, r *http.Request) {
	userID := contextutils.GetUserID(r.Context())

	var payload redeemPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.WriteValidationError(w, r, c.logger, "invalid request body")
		return
	}

	entry, err := c.trades.Redeem(r.Context(), &services.RedeemRequest{
		UserID:  userID,
		Grams:   payload.Grams,
		Address: payload.Address,
	})
	if err != nil {
		response.WriteError(w, r, c.logger, err)
		return
	}
	response.WriteSuccess(w, r, http.StatusCreated, entry)
}

// GetLedger handles GET /api/v1/trades.
func (c *TradesController) GetLedger(w http.ResponseWriter, r *http.Request) {
	userID := contextutils.GetUserID(r.Context())

	entries, err := c.trades.GetLedger(r.Context(), userID)
	if err != nil {
		response.WriteError(w, r, c.logger, err)
		return
	}
	response.WriteSuccess(w, r, http.StatusOK, entries)
}
