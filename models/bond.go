package models

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

// Bond is one row of the bond dataset. Numeric fields are absent (Valid ==
// false) when the source cell was blank.
type Bond struct {
	Issuer       string
	AskPrice     decimal.NullDecimal
	Coupon       decimal.NullDecimal
	Yield        decimal.NullDecimal
	MaturityDate time.Time
	CreditRating string
	Currency     string
	ISIN         string

	// Extra holds source columns that have no dedicated field.
	Extra map[string]string
}

// Record returns the bond as a flat JSON-ready map. Known fields use snake
// case keys; extra columns keep their source header.
func (b Bond) Record() map[string]any {
	rec := make(map[string]any, 8+len(b.Extra))
	for k, v := range b.Extra {
		rec[k] = v
	}
	rec["issuer"] = b.Issuer
	rec["ask_price"] = nullDecimalValue(b.AskPrice)
	rec["coupon"] = nullDecimalValue(b.Coupon)
	rec["yield"] = nullDecimalValue(b.Yield)
	if b.MaturityDate.IsZero() {
		rec["maturity_date"] = nil
	} else {
		rec["maturity_date"] = b.MaturityDate.Format(DateLayout)
	}
	rec["credit_rating"] = b.CreditRating
	rec["currency"] = b.Currency
	rec["isin"] = b.ISIN
	return rec
}

func (b Bond) clone() Bond {
	if b.Extra != nil {
		b.Extra = maps.Clone(b.Extra)
	}
	return b
}

func nullDecimalValue(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.String()
}

// BondDataset is a read-only table of bonds. It is safe to share between
// goroutines: nothing can modify it after construction.
type BondDataset struct {
	bonds []Bond
	json  string
}

func NewBondDataset(bonds []Bond) (*BondDataset, error) {
	owned := make([]Bond, len(bonds))
	records := make([]map[string]any, len(bonds))
	for i, b := range bonds {
		owned[i] = b.clone()
		records[i] = owned[i].Record()
	}

	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("serialize bonds: %w", err)
	}

	return &BondDataset{
		bonds: owned,
		json:  string(data),
	}, nil
}

func (d *BondDataset) Len() int {
	return len(d.bonds)
}

// Bonds returns a copy of the rows.
func (d *BondDataset) Bonds() []Bond {
	out := make([]Bond, len(d.bonds))
	for i, b := range d.bonds {
		out[i] = b.clone()
	}
	return out
}

func (d *BondDataset) Records() []map[string]any {
	out := make([]map[string]any, len(d.bonds))
	for i, b := range d.bonds {
		out[i] = b.Record()
	}
	return out
}

// JSON returns every record serialized as a JSON array. The whole dataset
// goes into each search prompt, so prompt size grows with the table.
func (d *BondDataset) JSON() string {
	return d.json
}
