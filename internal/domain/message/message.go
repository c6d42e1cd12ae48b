package message

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

type Type string

const (
	TypeRetrieveAccount Type = "retrieve_account"
	TypeCancelPayment   Type = "cancel_payment"
	TypeCompletePayment Type = "complete_payment"
	TypeUpdateAccount   Type = "update_account"

	// The server still emits the old name for completions.
	typePaymentComplete Type = "payment_complete"
)

func (t Type) normalize() Type {
	if t == typePaymentComplete {
		return TypeCompletePayment
	}
	return t
}

var (
	ErrUnknownType    = errors.New("unknown message type")
	ErrMissingPayment = errors.New("message has no payment")
)

// DecodeError reports a raw message that could not become a Message.
type DecodeError struct {
	Type Type
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %q message: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Message is one of RetrieveAccount, UpdateAccount, CancelPayment or
// CompletePayment.
type Message interface {
	Kind() Type
	isMessage()
}

type RetrieveAccount struct {
	RetrieveKey string
	Account     json.RawMessage
}

type UpdateAccount struct {
	Account json.RawMessage
}

type CancelPayment struct {
	Payment PaymentRef
}

type CompletePayment struct {
	Payment PaymentRef
}

func (RetrieveAccount) Kind() Type { return TypeRetrieveAccount }
func (UpdateAccount) Kind() Type   { return TypeUpdateAccount }
func (CancelPayment) Kind() Type   { return TypeCancelPayment }
func (CompletePayment) Kind() Type { return TypeCompletePayment }

func (RetrieveAccount) isMessage() {}
func (UpdateAccount) isMessage()   {}
func (CancelPayment) isMessage()   {}
func (CompletePayment) isMessage() {}

// PaymentRef points at a payment the server knows about. Fields keeps the
// whole payload so an unknown payment can be materialised locally.
type PaymentRef struct {
	PaymentID     int64
	TransactionID string
	Fields        json.RawMessage
}

type wireMessage struct {
	Type        Type            `json:"type"`
	RetrieveKey string          `json:"retrieve_key"`
	Account     json.RawMessage `json:"account"`
	Payment     json.RawMessage `json:"payment"`
}

// Decode turns the raw message into its variant.
func (r Raw) Decode() (Message, error) {
	var w wireMessage
	if err := json.Unmarshal(r.body, &w); err != nil {
		return nil, &DecodeError{Type: r.Type, Err: err}
	}

	switch r.Type {
	case TypeRetrieveAccount:
		return RetrieveAccount{RetrieveKey: w.RetrieveKey, Account: accountData(w.Account)}, nil
	case TypeUpdateAccount:
		return UpdateAccount{Account: accountData(w.Account)}, nil
	case TypeCancelPayment:
		ref, err := paymentRef(w.Payment)
		if err != nil {
			return nil, &DecodeError{Type: r.Type, Err: err}
		}
		return CancelPayment{Payment: ref}, nil
	case TypeCompletePayment:
		ref, err := paymentRef(w.Payment)
		if err != nil {
			return nil, &DecodeError{Type: r.Type, Err: err}
		}
		return CompletePayment{Payment: ref}, nil
	default:
		return nil, &DecodeError{Type: r.Type, Err: ErrUnknownType}
	}
}

// accountData normalises a missing account to an empty object.
func accountData(raw json.RawMessage) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return json.RawMessage("{}")
	}
	return raw
}

func paymentRef(raw json.RawMessage) (PaymentRef, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return PaymentRef{}, ErrMissingPayment
	}

	var w struct {
		PaymentID     json.RawMessage `json:"payment_id"`
		TransactionID json.RawMessage `json:"transaction_id"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return PaymentRef{}, err
	}

	id, err := strconv.ParseInt(scalarString(w.PaymentID), 10, 64)
	if err != nil || id <= 0 {
		return PaymentRef{}, fmt.Errorf("invalid payment_id %s", string(w.PaymentID))
	}

	return PaymentRef{
		PaymentID:     id,
		TransactionID: scalarString(w.TransactionID),
		Fields:        raw,
	}, nil
}
