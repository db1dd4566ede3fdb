// Package events fans committed ledger calls out to external sinks.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Event describes one committed mutating call
type Event struct {
	TxID     string          `json:"tx_id"`
	Block    uint64          `json:"block"`
	Caller   string          `json:"caller"`
	Function string          `json:"function"`
	Args     json.RawMessage `json:"args"`
	Value    json.RawMessage `json:"value"`
	At       time.Time       `json:"at"`
}

// Publisher delivers events to a sink
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Multi publishes to every sink in order and joins their errors
type Multi []Publisher

// Publish sends e to every sink, even after one fails
func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event
type Discard struct{}

// Publish does nothing
func (Discard) Publish(context.Context, Event) error { return nil }
