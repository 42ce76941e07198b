// Package payloadschema validates raw listing records before they reach the
// ingestion engine. Scraper adapters and the manual-entry handler both speak
// this payload shape.
package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed raw_record.schema.json
var rawRecordSchemaJSON string

// RawRecord is one noisy observation of an event at a venue.
type RawRecord struct {
	PayloadVersion string  `json:"payload_version"`
	Name           string  `json:"name"`
	Venue          string  `json:"venue"`
	City           *string `json:"city,omitempty"`
	Date           string  `json:"date"`
	Price          *string `json:"price,omitempty"`
	SourceTag      string  `json:"source_tag"`
}

// DateTime parses the record's RFC3339 date in UTC.
func (r *RawRecord) DateTime() (time.Time, error) {
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(r.Date))
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be RFC3339: %w", err)
	}
	return ts.UTC(), nil
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateRawRecord checks payload against the embedded v1 schema and decodes
// it.
func ValidateRawRecord(payload json.RawMessage) (*RawRecord, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var record RawRecord
	if err := json.Unmarshal(normalized, &record); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if strings.TrimSpace(record.Name) == "" {
		return nil, fmt.Errorf("name must not be blank")
	}
	if strings.TrimSpace(record.Venue) == "" {
		return nil, fmt.Errorf("venue must not be blank")
	}
	if _, err := record.DateTime(); err != nil {
		return nil, err
	}

	return &record, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("raw_record.schema.json", strings.NewReader(rawRecordSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("raw_record.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	return compiledSchema, compiledSchemaErr
}

// decodeStrictJSON rejects trailing garbage and decodes numbers losslessly.
func decodeStrictJSON(payload json.RawMessage) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := ensureEOF(decoder); err != nil {
		return nil, err
	}
	return value, nil
}

func ensureEOF(decoder *json.Decoder) error {
	if _, err := decoder.Token(); err != io.EOF {
		return fmt.Errorf("unexpected trailing JSON content")
	}
	return nil
}
