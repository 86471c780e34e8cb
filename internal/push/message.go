// Package push carries change notifications from the server to every session
// of a household. Messages only name what changed; clients refetch the data.
package push

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Lifecycle message types. Any other message that names a resource is an
// invalidation.
const (
	TypeConnected  = "connected"
	TypeRejected   = "rejected"
	TypeInvalidate = "invalidate"
)

type Data struct {
	Dates []string `json:"dates,omitempty"`
}

// Message is the wire format of the push channel.
type Message struct {
	Type     string `json:"type,omitempty"`
	Resource string `json:"resource,omitempty"`
	Data     *Data  `json:"data,omitempty"`
}

// Invalidation builds the message announcing a change to resource, scoped to
// dates when given.
func Invalidation(resource string, dates ...string) Message {
	m := Message{Type: TypeInvalidate, Resource: resource}
	if len(dates) > 0 {
		m.Data = &Data{Dates: dates}
	}
	return m
}

func Decode(b []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("decode push message: %w", err)
	}
	return m, nil
}

func (m Message) IsInvalidation() bool {
	return m.Type != TypeConnected && m.Type != TypeRejected && m.Resource != ""
}

// Dates returns the date scope of the message, nil for the whole resource.
func (m Message) Dates() []string {
	if m.Data == nil {
		return nil
	}
	return m.Data.Dates
}

// BearerToken extracts the token of an Authorization header.
func BearerToken(header string) string {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
