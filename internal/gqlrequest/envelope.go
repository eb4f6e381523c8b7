package gqlrequest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// Envelope is the transport-level payload of a GraphQL request.
type Envelope struct {
	Query         string
	OperationName string
	Variables     json.RawMessage

	SizeBytes int
}

// DecodeEnvelope reads the GraphQL payload from a GET query string or a POST
// body. The body is restored so the executing handler can read it again.
func DecodeEnvelope(r *http.Request) (Envelope, error) {
	if r == nil {
		return Envelope{}, fmt.Errorf("request is nil")
	}

	var env Envelope
	switch r.Method {
	case http.MethodGet:
		values := r.URL.Query()
		env.Query = values.Get("query")
		env.OperationName = values.Get("operationName")
		if raw := values.Get("variables"); raw != "" {
			env.Variables = json.RawMessage(raw)
		}
	case http.MethodPost:
		if r.Body == nil {
			return env, nil
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return env, fmt.Errorf("failed to read request body: %w", err)
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		if err := decodeBody(&env, r.Header.Get("Content-Type"), body); err != nil {
			return env, err
		}
	}

	env.SizeBytes = len(env.Query)
	return env, nil
}

func decodeBody(env *Envelope, contentType string, body []byte) error {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(contentType)
	}
	if mediaType == "application/graphql" {
		env.Query = string(body)
		return nil
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil
	}
	var payload struct {
		Query         string          `json:"query"`
		OperationName string          `json:"operationName"`
		Variables     json.RawMessage `json:"variables"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("invalid GraphQL request body: %w", err)
	}
	env.Query = payload.Query
	env.OperationName = payload.OperationName
	if vars := bytes.TrimSpace(payload.Variables); len(vars) > 0 && !bytes.Equal(vars, []byte("null")) {
		env.Variables = append(json.RawMessage(nil), vars...)
	}
	return nil
}
