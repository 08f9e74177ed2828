package ir

import (
	"encoding/json"
	"fmt"
)

// Transaction is the typed view of a transaction document.
//
// Ingestion collaborators build Transactions and hand them to the store as
// documents; UUID and Priority are normally left zero and filled in by the
// store on insert.
type Transaction struct {
	UUID     string            `json:"uuid,omitempty"`
	DateTx   int64             `json:"date_tx"`
	Valuta   int64             `json:"valuta,omitempty"`
	TextTx   string            `json:"text_tx"`
	Amount   float64           `json:"amount"`
	IBAN     string            `json:"iban,omitempty"`
	Currency string            `json:"currency,omitempty"`
	Art      string            `json:"art,omitempty"`
	Parsed   map[string]string `json:"parsed,omitempty"`
	Category *string           `json:"category"`
	Tags     []string          `json:"tags"`
	Priority int               `json:"priority"`
}

// Document converts the transaction into its stored document form.
func (t Transaction) Document() (Document, error) {
	raw, err := marshalCompact(t)
	if err != nil {
		return nil, fmt.Errorf("transaction document: %w", err)
	}
	return DecodeDocument(raw)
}

// MustDocument is like Document but panics on error.
// Use only in tests or when inputs are known to be valid.
func (t Transaction) MustDocument() Document {
	d, err := t.Document()
	if err != nil {
		panic(err)
	}
	return d
}

// DecodeTransaction converts a stored document back into a Transaction.
// Unknown fields are ignored.
func DecodeTransaction(d Document) (Transaction, error) {
	raw, err := d.MarshalCompact()
	if err != nil {
		return Transaction{}, fmt.Errorf("decode transaction: %w", err)
	}
	var t Transaction
	if err := json.Unmarshal(raw, &t); err != nil {
		return Transaction{}, fmt.Errorf("decode transaction: %w", err)
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return t, nil
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
