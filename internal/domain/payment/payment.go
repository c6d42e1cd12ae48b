package payment

import (
	"errors"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusNew       Status = "NEW"
	StatusSent      Status = "SENT"
	StatusCompleted Status = "COMPLETED"
	StatusCanceled  Status = "CANCELED"
	StatusFailed    Status = "FAILED"
)

// FailedID is stored as the payment id of an order whose payment could not
// be delivered to the server within the retry budget.
const FailedID int64 = -1

var (
	ErrIDAlreadySet      = errors.New("payment id already set")
	ErrInvalidID         = errors.New("invalid payment id")
	ErrInvalidTransition = errors.New("invalid payment state transition")
)

// Tenant identifies the site a payment belongs to on multi-site installs.
type Tenant struct {
	SiteID  int64
	SiteURL string
}

type Payment struct {
	ID            int64           `json:"payment_id"`
	Amount        decimal.Decimal `json:"amount"`
	CurrencyID    string          `json:"currency_id"`
	To            string          `json:"to"`
	CreatedAt     int64           `json:"created_at"`
	TimeoutHours  int             `json:"timeout_hours"`
	Confirmations int             `json:"confirmations"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Status        Status          `json:"status"`
	Data          map[string]any  `json:"data,omitempty"`
	Attempts      int             `json:"attempts"`
}

func New() *Payment {
	return &Payment{
		Status: StatusNew,
		Data:   make(map[string]any),
	}
}

// Tag records the tenant identity in the payment data bag.
func (p *Payment) Tag(t *Tenant) {
	if t == nil {
		return
	}
	if p.Data == nil {
		p.Data = make(map[string]any)
	}
	p.Data["site_id"] = t.SiteID
	p.Data["site_url"] = t.SiteURL
}

// SetID assigns the server id. Setting the same id twice is a no-op.
func (p *Payment) SetID(id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}
	if p.ID != 0 {
		if p.ID == id {
			return nil
		}
		return ErrIDAlreadySet
	}

	p.ID = id
	if p.Status == StatusNew {
		p.Status = StatusSent
	}
	return nil
}

func (p *Payment) Complete(transactionID string) error {
	if p.Final() {
		return ErrInvalidTransition
	}

	p.TransactionID = transactionID
	p.Status = StatusCompleted
	return nil
}

func (p *Payment) Cancel() error {
	if p.Final() {
		return ErrInvalidTransition
	}

	p.Status = StatusCanceled
	return nil
}

// Abandon marks a payment that was never accepted by the server.
func (p *Payment) Abandon() error {
	if p.Status != StatusNew {
		return ErrInvalidTransition
	}

	p.ID = FailedID
	p.Status = StatusFailed
	return nil
}

func (p *Payment) Final() bool {
	switch p.Status {
	case StatusCompleted, StatusCanceled, StatusFailed:
		return true
	}
	return false
}
