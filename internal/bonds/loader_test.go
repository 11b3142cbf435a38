package bonds

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleCSV = `Issuer,Ask Price,Coupon,Yield,Maturity Date,Credit Rating,Currency,ISIN,Sector
Bund AG,98.50,2.5,2.8%,2029-06-15,AAA,eur,DE0001102580,Government
Acme Corp,101.25,3.75,3.1,06/30/2030,A-,USD,US0000000001,Industrials

Globex,99.00,3.25,3.4,,BBB+,USD,us0000000002,Utilities
`

func TestReadParsesKnownAndExtraColumns(t *testing.T) {
	ds, err := Read(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if ds.Len() != 3 {
		t.Fatalf("expected 3 bonds, got %d", ds.Len())
	}

	bonds := ds.Bonds()
	first := bonds[0]
	if first.Issuer != "Bund AG" || first.Currency != "EUR" || first.CreditRating != "AAA" {
		t.Fatalf("unexpected first bond: %+v", first)
	}
	if !first.Yield.Valid || first.Yield.Decimal.String() != "2.8" {
		t.Fatalf("expected yield 2.8, got %+v", first.Yield)
	}
	if first.MaturityDate.Format("2006-01-02") != "2029-06-15" {
		t.Fatalf("unexpected maturity %s", first.MaturityDate)
	}
	if first.Extra["Sector"] != "Government" {
		t.Fatalf("expected extra Sector column, got %v", first.Extra)
	}

	if bonds[1].MaturityDate.Format("2006-01-02") != "2030-06-30" {
		t.Fatalf("expected US date layout to parse, got %s", bonds[1].MaturityDate)
	}
	if !bonds[2].MaturityDate.IsZero() {
		t.Fatalf("blank maturity should stay zero")
	}
	if bonds[2].ISIN != "US0000000002" {
		t.Fatalf("expected upper-cased ISIN, got %s", bonds[2].ISIN)
	}
}

func TestDatasetJSONKeepsEveryColumn(t *testing.T) {
	ds, err := Read(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	var records []map[string]any
	if err := json.Unmarshal([]byte(ds.JSON()), &records); err != nil {
		t.Fatalf("dataset JSON is not an array of objects: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0]["Sector"] != "Government" || records[0]["isin"] != "DE0001102580" {
		t.Fatalf("unexpected record: %v", records[0])
	}
	if records[2]["maturity_date"] != nil {
		t.Fatalf("blank maturity should serialize as null, got %v", records[2]["maturity_date"])
	}
}

func TestBondsReturnsCopies(t *testing.T) {
	ds, err := Read(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	before := ds.JSON()
	bonds := ds.Bonds()
	bonds[0].Issuer = "mutated"
	bonds[0].Extra["Sector"] = "mutated"

	again := ds.Bonds()
	if again[0].Issuer != "Bund AG" || again[0].Extra["Sector"] != "Government" {
		t.Fatalf("dataset was modified through Bonds(): %+v", again[0])
	}
	if ds.JSON() != before {
		t.Fatalf("serialized dataset changed")
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{name: "empty", input: "", want: ErrEmptyInput},
		{name: "header only", input: "issuer,yield\n", want: ErrNoRecords},
		{name: "unknown columns", input: "foo,bar\n1,2\n", want: ErrNoColumns},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestReadReportsLineOfBadValue(t *testing.T) {
	_, err := Read(strings.NewReader("issuer,yield\nAcme,3.1\nGlobex,high\n"))
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if !strings.Contains(err.Error(), "line 3") || !strings.Contains(err.Error(), "yield") {
		t.Fatalf("error should name line and column, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bonds.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ds, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Len() != 3 {
		t.Fatalf("expected 3 bonds, got %d", ds.Len())
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
