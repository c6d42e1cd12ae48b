package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/application/contracts"
	orderApplication "github.com/rcarvalho-pb/mycryptocheckout-go/internal/application/order"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/application/processor"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/message"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/domain/order"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/infra/logging"
	"github.com/rcarvalho-pb/mycryptocheckout-go/internal/infra/metrics"
)

const maxEnvelopeSize = 1 << 20

type MessageProcessor interface {
	ProcessMessages(ctx context.Context, body []byte) (processor.Report, error)
}

type OrderPlacer interface {
	Place(ctx context.Context, req orderApplication.PlaceOrder) (*order.Order, error)
}

type PaymentSender interface {
	Send(ctx context.Context, ref string) (int64, error)
}

type Handler struct {
	Messages MessageProcessor
	Orders   OrderPlacer
	Sender   PaymentSender
	Metrics  *metrics.Counters
	Logger   *slog.Logger
}

type envelopeResponse struct {
	Processed int    `json:"processed"`
	Applied   int    `json:"applied"`
	Failed    int    `json:"failed,omitempty"`
	Ignored   string `json:"ignored,omitempty"`
}

// ReceiveMessages accepts an envelope pushed by the payment server.
func (h *Handler) ReceiveMessages(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxEnvelopeSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read body"})
		return
	}

	report, err := h.Messages.ProcessMessages(c.Request.Context(), body)
	if err != nil {
		status := envelopeStatus(err)
		if status >= http.StatusInternalServerError {
			logging.DefaultIfNil(h.Logger).ErrorContext(c.Request.Context(), "envelope failed", logging.Error(err))
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	resp := envelopeResponse{Processed: len(report.Outcomes)}
	for _, o := range report.Outcomes {
		resp.Applied += o.Applied
		if o.Failed() {
			resp.Failed++
		}
	}
	if report.Stale != nil {
		resp.Ignored = string(report.Stale.Reason)
	}
	c.JSON(http.StatusOK, resp)
}

// envelopeStatus maps the errors that stop an envelope. Per-message failures
// are reported in the 200 body instead.
func envelopeStatus(err error) int {
	var authErr *contracts.AuthenticationError
	var unknownErr *contracts.UnknownMessageError
	var decodeErr *message.DecodeError

	switch {
	case errors.Is(err, message.ErrNotAnObject), errors.Is(err, message.ErrNoMessages):
		return http.StatusBadRequest
	case errors.As(err, &authErr):
		return http.StatusForbidden
	case errors.As(err, &unknownErr), errors.As(err, &decodeErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

type PlaceOrderRequest struct {
	Ref           string          `json:"ref" binding:"required"`
	Amount        decimal.Decimal `json:"amount"`
	Confirmations int             `json:"confirmations"`
	CurrencyID    string          `json:"currency_id" binding:"required"`
	TimeoutHours  int             `json:"timeout_hours"`
	To            string          `json:"to" binding:"required"`
	Data          map[string]any  `json:"data"`
}

func (h *Handler) PlaceOrder(c *gin.Context) {
	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	o, err := h.Orders.Place(c.Request.Context(), orderApplication.PlaceOrder{
		Ref:           req.Ref,
		Amount:        req.Amount,
		Confirmations: req.Confirmations,
		CurrencyID:    req.CurrencyID,
		TimeoutHours:  req.TimeoutHours,
		To:            req.To,
		PaymentData:   req.Data,
	})
	switch {
	case errors.Is(err, orderApplication.ErrInvalidOrder):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, orderApplication.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ref": o.Ref, "status": o.Status})
}

func (h *Handler) SendOrder(c *gin.Context) {
	ref := c.Param("ref")

	id, err := h.Sender.Send(c.Request.Context(), ref)

	var budgetErr *contracts.RetryBudgetExceededError
	var connErr *contracts.ConnectivityError
	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case errors.As(err, &budgetErr):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
		return
	case errors.As(err, &connErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment_id": id})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) Counters(c *gin.Context) {
	if h.Metrics == nil {
		c.JSON(http.StatusOK, metrics.Counters{})
		return
	}
	c.JSON(http.StatusOK, h.Metrics.Snapshot())
}
