package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

const maxBodyBytes = 1 << 20

var errBadBody = errors.New("request body must be a JSON object or form data")

// RequestBodyParser reads a JSON or form-encoded body once and exposes its
// fields as trimmed strings.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads up to 1 MiB of the request body.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body. JSON is detected from the first byte so clients
// that omit the Content-Type still work.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}

	body := bytes.TrimSpace(p.body)
	if len(body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if body[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = errBadBody
		}
		return p.err
	}
	if body[0] == '[' {
		p.err = errBadBody
		return p.err
	}

	p.formData, p.err = url.ParseQuery(string(body))
	if p.err != nil {
		p.err = errBadBody
	}
	return p.err
}

// Get returns the value of key, or "" when absent.
func (p *RequestBodyParser) Get(key string) string {
	v, _ := p.Lookup(key)
	return v
}

// Lookup reports whether key is present. JSON nulls count as absent.
func (p *RequestBodyParser) Lookup(key string) (string, bool) {
	if p.jsonData != nil {
		val, ok := p.jsonData[key]
		if !ok || val == nil {
			return "", false
		}
		return sanitizeInput(stringValue(val)), true
	}
	if p.formData != nil {
		if _, ok := p.formData[key]; ok {
			return sanitizeInput(p.formData.Get(key)), true
		}
	}
	return "", false
}

// Optional returns a pointer to the value of the first present key, for
// partial updates.
func (p *RequestBodyParser) Optional(keys ...string) *string {
	for _, key := range keys {
		if v, ok := p.Lookup(key); ok {
			return &v
		}
	}
	return nil
}

// First returns the value of the first present key.
func (p *RequestBodyParser) First(keys ...string) string {
	if v := p.Optional(keys...); v != nil {
		return *v
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput drops control characters other than tab and newlines, and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// pathID reads the {id} route parameter.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.NewValidationError("id", errors.New("must be a positive integer"))
	}
	return id, nil
}

// windowFromQuery reads the optional from/to bounds.
func windowFromQuery(q url.Values) (*core.Window, error) {
	return services.ParseWindow(q.Get("from"), q.Get("to"))
}

func queryInt(q url.Values, key string) (int, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, core.NewValidationError(key, errors.New("must be an integer"))
	}
	return n, nil
}
