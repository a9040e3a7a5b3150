package gateway

import (
	"bytes"
	"encoding/json"
	"strconv"
)

const (
	MsgChallenge  = "connect.challenge"
	MsgConnect    = "connect"
	MsgHelloOK    = "hello-ok"
	MsgHelloError = "hello-error"
	MsgCall       = "call"
)

const (
	MethodAgentsList     = "agents.list"
	MethodChannelsList   = "channels.list"
	MethodModelsList     = "models.list"
	MethodSystemPresence = "system-presence"
)

const Role = "operator"

// Scopes requested by every session
var Scopes = []string{"operator.read"}

// Message is an inbound frame. Responses to calls carry the call id.
type Message struct {
	Type    string          `json:"type,omitempty"`
	ID      string          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  map[string]any  `json:"params,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type callMessage struct {
	Type   string         `json:"type"`
	ID     string         `json:"id"`
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

// Challenge is the payload of connect.challenge. Timestamp is kept as sent
// (string or number) so it can be echoed back verbatim.
type Challenge struct {
	Nonce     string `json:"nonce"`
	Timestamp any    `json:"timestamp"`
}

// TimestampText is the textual form of the timestamp used in the signed string
func (c *Challenge) TimestampText() string {
	switch v := c.Timestamp.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		raw, _ := json.Marshal(v)
		return string(raw)
	}
}

// ConnectRequest is the payload of the connect message
type ConnectRequest struct {
	Role        string   `json:"role"`
	Scopes      []string `json:"scopes"`
	Signature   string   `json:"signature"`
	Timestamp   any      `json:"timestamp"`
	Nonce       string   `json:"nonce"`
	DeviceToken string   `json:"deviceToken,omitempty"`
}

type helloOK struct {
	DeviceToken string `json:"deviceToken,omitempty"`
}

type listPayload struct {
	Items []any `json:"items"`
}

// decodePayload decodes with UseNumber so numeric timestamps keep their exact text
func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}
