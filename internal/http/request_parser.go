// Package http serves the entry API: submissions, logs, dashboards,
// insights and export/import.
//
// This file turns request bodies into validator input.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"wellnesslog/internal/core"
)

// maxBodyBytes caps submission and import bodies.
const maxBodyBytes = 4 << 20

var errBodyTooLarge = errors.New("request body too large")

// RequestBodyParser reads a JSON or form-encoded body once and exposes it
// as raw field values.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads at most maxBodyBytes of the request body.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = errBodyTooLarge
	}
	return p
}

// Parse decodes the body as JSON when it looks like a JSON object and as
// form data otherwise.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}

	if strings.HasPrefix(trimmed, "{") || strings.Contains(p.contentType, "application/json") {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(trimmed), &p.jsonData); err != nil {
			p.err = fmt.Errorf("decode JSON body: %w", err)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(trimmed)
	return p.err
}

// RawFields returns every submitted value keyed by field name. JSON arrays
// become repeated values; null is skipped.
func (p *RequestBodyParser) RawFields() core.RawFields {
	raw := core.RawFields{}
	if p.jsonData != nil {
		for key, val := range p.jsonData {
			switch v := val.(type) {
			case nil:
			case []any:
				for _, item := range v {
					if s, ok := stringValue(item); ok {
						raw[key] = append(raw[key], sanitizeInput(s))
					}
				}
			default:
				if s, ok := stringValue(v); ok {
					raw[key] = append(raw[key], sanitizeInput(s))
				}
			}
		}
		return raw
	}
	for key, values := range p.formData {
		for _, v := range values {
			raw[key] = append(raw[key], sanitizeInput(v))
		}
	}
	return raw
}

func stringValue(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(val), true
	default:
		return "", false
	}
}

// decodeSnapshot reads an export document.
func decodeSnapshot(r *http.Request) (core.Snapshot, error) {
	var snap core.Snapshot
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&snap); err != nil {
		return core.Snapshot{}, fmt.Errorf("decode export document: %w", err)
	}
	return snap, nil
}
