package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies the remote error types the storage layer reacts
// to. Everything else is KindUnknown and passes through untouched.
type ErrorKind int

const (
	// KindUnknown covers every unrecognized or unparseable error body.
	KindUnknown ErrorKind = iota

	// KindConditionFailed means a conditional write's predicate did
	// not hold (optimistic-concurrency violation).
	KindConditionFailed

	// KindResourceNotFound means the table does not exist.
	KindResourceNotFound

	// KindResourceInUse means the table is being created or altered.
	KindResourceInUse
)

// CallError is a non-2xx response from the remote service. The raw
// body is preserved verbatim for upstream diagnostics.
type CallError struct {
	StatusCode int
	TypeName   string
	Kind       ErrorKind
	Body       []byte
}

func (e *CallError) Error() string {
	if e.TypeName != "" {
		return fmt.Sprintf("stratum: remote error %s (http %d)", e.TypeName, e.StatusCode)
	}
	return fmt.Sprintf("stratum: remote error http %d: %s", e.StatusCode, e.Body)
}

// newCallError decodes the error-type discriminator out of a response
// body. DynamoDB reports errors as {"__type":"<namespace>#<Name>",
// "message":...}; an unparseable body yields KindUnknown.
func newCallError(status int, body []byte) *CallError {
	e := &CallError{StatusCode: status, Kind: KindUnknown, Body: body}

	var payload struct {
		Type string `json:"__type"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Type == "" {
		return e
	}

	name := payload.Type
	if i := strings.LastIndexByte(name, '#'); i >= 0 {
		name = name[i+1:]
	}
	e.TypeName = name

	switch name {
	case "ConditionalCheckFailedException":
		e.Kind = KindConditionFailed
	case "ResourceNotFoundException":
		e.Kind = KindResourceNotFound
	case "ResourceInUseException":
		e.Kind = KindResourceInUse
	}
	return e
}

// Kind extracts the error kind from any error returned by Call.
// Transport failures and local errors report KindUnknown.
func Kind(err error) ErrorKind {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}
