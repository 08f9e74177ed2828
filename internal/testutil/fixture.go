// Package testutil provides deterministic fixtures shared by package tests.
package testutil

import "github.com/roach88/txtag/internal/ir"

// FixtureIBAN is the collection the fixture records are stored in.
const FixtureIBAN = "DE89370400440532013000"

// Fixture valuta dates.
const (
	ValutaDefault = int64(1684108800)
	ValutaOther   = int64(1684195200)
)

// FixtureTransactions returns the five reference bookings.
//
//	#  amount    text                        tags                  parsed
//	1  -11.63    Wucherpfennig ... KFN       -                     -
//	2  -118.94   MEIN GARTENCENTER ... KFN   -                     -
//	3  -99.58    EDEKA München ... KFN       TestTag3              -
//	4  -71.35    DM Frankfurt ... KFN        -                     -
//	5  -221.98   Stadt Halle ABGABEN         TestTag1, TestTag2    Mandatsreferenz=M1111111
//
// Record 1 is the only one whose valuta differs from ValutaDefault.
func FixtureTransactions() []ir.Transaction {
	clock := NewDayClock(0)
	return []ir.Transaction{
		{
			DateTx:   clock.Next(),
			Valuta:   ValutaOther,
			TextTx:   "Wucherpfennig sagt Danke 88//HANNOVER 2023-01-01T08:59:42 KFN 9 VJ 7777 Kartenzahlung",
			Amount:   -11.63,
			IBAN:     FixtureIBAN,
			Currency: "EUR",
			Art:      "Lastschrift",
		},
		{
			DateTx:   clock.Next(),
			Valuta:   ValutaDefault,
			TextTx:   "MEIN GARTENCENTER//Berlin 2023-01-02T12:57:02 KFN 9 VJ 7777 Kartenzahlung",
			Amount:   -118.94,
			IBAN:     FixtureIBAN,
			Currency: "EUR",
			Art:      "Lastschrift",
		},
		{
			DateTx:   clock.Next(),
			Valuta:   ValutaDefault,
			TextTx:   "EDEKA, München//München/ 2023-01-03T14:39:49 KFN 9 VJ 7777 Kartenzahlung",
			Amount:   -99.58,
			IBAN:     FixtureIBAN,
			Currency: "EUR",
			Art:      "Lastschrift",
			Tags:     []string{"TestTag3"},
		},
		{
			DateTx:   clock.Next(),
			Valuta:   ValutaDefault,
			TextTx:   "DM FIL.2222 F:1111//Frankfurt/DE 2023-01-04T13:22:16 KFN 9 VJ 7777 Kartenzahlung",
			Amount:   -71.35,
			IBAN:     FixtureIBAN,
			Currency: "EUR",
			Art:      "Lastschrift",
		},
		{
			DateTx:   clock.Next(),
			Valuta:   ValutaDefault,
			TextTx:   "Stadt Halle 0000005112 OBJEKT 0001 ABGABEN LT. BESCHEID EREF: 2023-01-00152-00000 Mandatsref: M1111111 Gläubiger-ID: DE7000100000077777 ABWE: Stadt Halle",
			Amount:   -221.98,
			IBAN:     FixtureIBAN,
			Currency: "EUR",
			Art:      "Lastschrift",
			Parsed:   map[string]string{"Mandatsreferenz": "M1111111"},
			Tags:     []string{"TestTag1", "TestTag2"},
		},
	}
}

// FixtureDocuments returns the reference bookings as documents, each with
// the fields the store fills on insert (uuid, priority, tags, category,
// parsed) already set. Matchers can run against them directly.
func FixtureDocuments() []ir.Document {
	txs := FixtureTransactions()
	docs := make([]ir.Document, 0, len(txs))
	for _, tx := range txs {
		d := tx.MustDocument()
		id, err := ir.TransactionID(d)
		if err != nil {
			panic(err)
		}
		d[ir.FieldUUID] = id
		if d[ir.FieldTags] == nil {
			d[ir.FieldTags] = []any{}
		}
		if d[ir.FieldParsed] == nil {
			d[ir.FieldParsed] = map[string]any{}
		}
		docs = append(docs, d)
	}
	return docs
}

// UUIDs returns the uuid of each document, in order.
func UUIDs(docs []ir.Document) []string {
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.UUID())
	}
	return ids
}
