package storage

import (
	"encoding/json"
	"time"
)

// CallRecord is one committed ledger call in the journal
type CallRecord struct {
	ID        int64           `json:"id" db:"id"`
	TxID      string          `json:"tx_id" db:"tx_id"`
	Block     uint64          `json:"block" db:"block"`
	Caller    string          `json:"caller" db:"caller"`
	Function  string          `json:"function" db:"function"`
	Args      json.RawMessage `json:"args" db:"args"`
	Result    json.RawMessage `json:"result" db:"result"` // JSON-encoded return value
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
