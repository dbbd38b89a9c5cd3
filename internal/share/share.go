// Package share turns results into compact codes and links and back.
//
// A code is the unpadded base64url encoding of a small JSON envelope
// {"v":1,"result":{...}}. Decoded payloads are validated against an embedded
// JSON schema before they are trusted.
package share

import (
	"bytes"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/verte-zerg/typetest/internal/model"
)

// QueryParam is the link query parameter carrying the code.
const QueryParam = "r"

const version = 1

// ErrInvalidCode is returned for codes that fail to decode or validate.
var ErrInvalidCode = errors.New("invalid share code")

//go:embed result.schema.json
var schemaJSON string

var schema = jsonschema.MustCompileString("result.schema.json", schemaJSON)

type envelope struct {
	V      int           `json:"v"`
	Result model.Results `json:"result"`
}

// Encode returns the share code for res.
func Encode(res model.Results) (string, error) {
	data, err := json.Marshal(envelope{V: version, Result: res})
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode parses and validates a share code.
func Decode(code string) (model.Results, error) {
	code = strings.TrimRight(strings.TrimSpace(code), "=")
	if code == "" {
		return model.Results{}, fmt.Errorf("%w: empty code", ErrInvalidCode)
	}
	data, err := base64.RawURLEncoding.DecodeString(code)
	if err != nil {
		return model.Results{}, fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return model.Results{}, fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	if err := schema.Validate(doc); err != nil {
		return model.Results{}, fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return model.Results{}, fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	return env.Result, nil
}

// Link returns a share link for res rooted at baseURL. Existing query
// parameters of baseURL are kept.
func Link(baseURL string, res model.Results) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse share base url: %w", err)
	}
	code, err := Encode(res)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set(QueryParam, code)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Parse accepts either a full share link or a bare code.
func Parse(linkOrCode string) (model.Results, error) {
	s := strings.TrimSpace(linkOrCode)
	if strings.Contains(s, "://") || strings.Contains(s, "?") {
		u, err := url.Parse(s)
		if err != nil {
			return model.Results{}, fmt.Errorf("%w: %v", ErrInvalidCode, err)
		}
		code := u.Query().Get(QueryParam)
		if code == "" {
			return model.Results{}, fmt.Errorf("%w: link has no %q parameter", ErrInvalidCode, QueryParam)
		}
		return Decode(code)
	}
	return Decode(s)
}
