package wompi

import (
	"encoding/json"
	"fmt"
)

// Event types Wompi delivers to the webhook endpoint.
const (
	EventTransactionUpdated      = "transaction.updated"
	EventNequiTokenUpdated       = "nequi_token.updated"
	EventBancolombiaTokenUpdated = "bancolombia_transfer_token.updated"
)

// Event is an inbound webhook payload. Data is kept raw because the nested
// shape depends on the event type and the checksum is computed over property
// paths the event names itself.
type Event struct {
	Event       string                 `json:"event"`
	Data        map[string]interface{} `json:"data"`
	Environment string                 `json:"environment"`
	SentAt      string                 `json:"sent_at"`
	Timestamp   int64                  `json:"timestamp"`
	Signature   EventSignature         `json:"signature"`
}

type EventSignature struct {
	Properties []string `json:"properties"`
	Checksum   string   `json:"checksum"`
}

// Transaction decodes the nested transaction payload of a transaction.updated
// event.
func (e *Event) Transaction() (*Transaction, error) {
	raw, ok := e.Data["transaction"]
	if !ok {
		return nil, fmt.Errorf("event %q has no transaction payload", e.Event)
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode transaction payload: %w", err)
	}

	var tx Transaction
	if err := json.Unmarshal(encoded, &tx); err != nil {
		return nil, fmt.Errorf("failed to decode transaction payload: %w", err)
	}
	return &tx, nil
}
