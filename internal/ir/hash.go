package ir

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// Domain names for deterministic identity. Each domain gets its own UUIDv5
// namespace so equal payloads in different domains never collide.
// The version suffix enables future algorithm migration.
const (
	DomainTransaction = "txtag/transaction/v1"
	DomainMetadata    = "txtag/metadata/v1"
	DomainGroup       = "txtag/group/v1"
)

var (
	transactionSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte(DomainTransaction))
	metadataSpace    = uuid.NewSHA1(uuid.NameSpaceURL, []byte(DomainMetadata))
	groupSpace       = uuid.NewSHA1(uuid.NameSpaceURL, []byte(DomainGroup))
)

// hashWithDomain derives a name-based UUID from parts.
// Parts are joined with a null separator to prevent boundary ambiguity.
func hashWithDomain(space uuid.UUID, parts ...string) string {
	return uuid.NewSHA1(space, []byte(strings.Join(parts, "\x00"))).String()
}

// TransactionID computes the content-addressed ID of a transaction document.
//
// The ID covers date_tx, amount and text_tx only. Each is hashed in its
// canonical string form: numbers via FormatNumber, strings as they are and
// a missing or null field as "". The text is additionally NFC-normalized
// and reduced to ASCII letters and digits, so whitespace or punctuation
// differences between two exports of the same booking do not produce a new
// record. Everything else (tags, category, parsed fields) is mutable state
// and deliberately excluded.
func TransactionID(d Document) (string, error) {
	date, err := canonicalString(d[FieldDateTx])
	if err != nil {
		return "", fmt.Errorf("TransactionID: %s: %w", FieldDateTx, err)
	}
	amount, err := canonicalString(d[FieldAmount])
	if err != nil {
		return "", fmt.Errorf("TransactionID: %s: %w", FieldAmount, err)
	}
	text, err := canonicalString(d[FieldTextTx])
	if err != nil {
		return "", fmt.Errorf("TransactionID: %s: %w", FieldTextTx, err)
	}
	return hashWithDomain(transactionSpace, date, amount, StripText(text)), nil
}

// canonicalString renders a stored value for hashing.
func canonicalString(v any) (string, error) {
	if f, ok := ToFloat(v); ok {
		return FormatNumber(f), nil
	}
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	}
	n, err := Normalize(v)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(n)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// StripText returns text NFC-normalized with everything but [A-Za-z0-9] removed.
func StripText(text string) string {
	text = norm.NFC.String(text)
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MetadataID derives the ID of a metadata record from its type and name.
func MetadataID(metatype, name string) string {
	return hashWithDomain(metadataSpace, metatype, norm.NFC.String(name))
}

// GroupID derives the ID of an IBAN group from its name.
func GroupID(name string) string {
	return hashWithDomain(groupSpace, norm.NFC.String(name))
}
