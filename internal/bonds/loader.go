// Package bonds loads the static bond table consulted by the search tool.
package bonds

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dyike/BondCortex/models"
)

var (
	ErrNoRecords  = errors.New("no bond records")
	ErrNoColumns  = errors.New("no recognised bond columns in header")
	ErrEmptyInput = errors.New("empty csv input")
)

type field int

const (
	fieldExtra field = iota
	fieldIssuer
	fieldAskPrice
	fieldCoupon
	fieldYield
	fieldMaturity
	fieldRating
	fieldCurrency
	fieldISIN
)

// headerAliases maps normalised header names to bond fields.
var headerAliases = map[string]field{
	"issuer":            fieldIssuer,
	"issuer_name":       fieldIssuer,
	"name":              fieldIssuer,
	"ask_price":         fieldAskPrice,
	"ask":               fieldAskPrice,
	"price":             fieldAskPrice,
	"coupon":            fieldCoupon,
	"coupon_rate":       fieldCoupon,
	"yield":             fieldYield,
	"ytm":               fieldYield,
	"yield_to_maturity": fieldYield,
	"maturity":          fieldMaturity,
	"maturity_date":     fieldMaturity,
	"rating":            fieldRating,
	"credit_rating":     fieldRating,
	"currency":          fieldCurrency,
	"ccy":               fieldCurrency,
	"isin":              fieldISIN,
}

var dateLayouts = []string{
	models.DateLayout,
	"2006/01/02",
	"01/02/2006",
	"02.01.2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	time.RFC3339,
}

// Load reads a bond CSV file.
func Load(path string) (*models.BondDataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bonds file: %w", err)
	}
	defer file.Close()

	ds, err := Read(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ds, nil
}

// Read parses CSV data with a header row into a dataset.
func Read(r io.Reader) (*models.BondDataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns, names := mapHeader(header)
	known := false
	for _, f := range columns {
		if f != fieldExtra {
			known = true
			break
		}
	}
	if !known {
		return nil, ErrNoColumns
	}

	var bonds []models.Bond
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if blankRecord(record) {
			continue
		}

		line, _ := reader.FieldPos(0)
		bond, err := parseRecord(record, columns, names)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bonds = append(bonds, bond)
	}

	if len(bonds) == 0 {
		return nil, ErrNoRecords
	}
	return models.NewBondDataset(bonds)
}

func mapHeader(header []string) ([]field, []string) {
	columns := make([]field, len(header))
	names := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		names[i] = h
		columns[i] = headerAliases[normalizeHeader(h)]
	}
	return columns, names
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer(" ", "_", "-", "_", ".", "").Replace(h)
	return h
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseRecord(record []string, columns []field, names []string) (models.Bond, error) {
	var bond models.Bond
	for i, raw := range record {
		value := strings.TrimSpace(raw)
		var err error
		switch columns[i] {
		case fieldIssuer:
			bond.Issuer = value
		case fieldAskPrice:
			bond.AskPrice, err = parseDecimal(value)
		case fieldCoupon:
			bond.Coupon, err = parseDecimal(value)
		case fieldYield:
			bond.Yield, err = parseDecimal(value)
		case fieldMaturity:
			bond.MaturityDate, err = parseDate(value)
		case fieldRating:
			bond.CreditRating = value
		case fieldCurrency:
			bond.Currency = strings.ToUpper(value)
		case fieldISIN:
			bond.ISIN = strings.ToUpper(value)
		default:
			if names[i] == "" {
				continue
			}
			if bond.Extra == nil {
				bond.Extra = map[string]string{}
			}
			bond.Extra[names[i]] = value
		}
		if err != nil {
			return models.Bond{}, fmt.Errorf("column %q: %w", names[i], err)
		}
	}
	return bond, nil
}

func parseDecimal(value string) (decimal.NullDecimal, error) {
	value = strings.TrimSuffix(strings.ReplaceAll(value, ",", ""), "%")
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid number %q", value)
	}
	return decimal.NewNullDecimal(d), nil
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", value)
}
