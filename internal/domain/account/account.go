package account

import (
	"bytes"
	"encoding/json"
	"time"
)

// Account is the merchant installation's standing with the payment server.
type Account struct {
	DomainKey string
	Data      json.RawMessage
}

// Valid reports whether the server has ever sent account data.
func (a *Account) Valid() bool {
	data := bytes.TrimSpace(a.Data)
	return len(data) > 0 && !bytes.Equal(data, []byte("null"))
}

// DomainKeyOf extracts the domain key the server embeds in account payloads.
func DomainKeyOf(data json.RawMessage) string {
	var payload struct {
		DomainKey string `json:"domain_key"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	return payload.DomainKey
}

// RetrieveKey proves that a retrieve_account reply answers our own request.
type RetrieveKey struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (k RetrieveKey) Expired(now time.Time) bool {
	return !now.Before(k.ExpiresAt)
}
