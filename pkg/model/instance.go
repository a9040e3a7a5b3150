package model

import (
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

type InstanceStatus string

const (
	InstanceStatusRegistered  InstanceStatus = "registered"
	InstanceStatusOnline      InstanceStatus = "online"
	InstanceStatusReachable   InstanceStatus = "reachable"
	InstanceStatusUnreachable InstanceStatus = "unreachable"
)

// Validate checks if the status is one of the known values
func (s InstanceStatus) Validate() error {
	switch s {
	case InstanceStatusRegistered, InstanceStatusOnline, InstanceStatusReachable, InstanceStatusUnreachable:
		return nil
	default:
		return goerr.Wrap(ErrValidation, "invalid instance status", goerr.V("status", s))
	}
}

// NewInstanceRecord builds a registered instance record. The token field is
// omitted when empty.
func NewInstanceRecord(title, url, token string) (*Record, error) {
	if strings.TrimSpace(url) == "" {
		return nil, goerr.Wrap(ErrValidation, "url is required")
	}

	fields := map[string]any{
		"url":    url,
		"status": string(InstanceStatusRegistered),
	}
	if token != "" {
		fields["token"] = token
	}
	if title == "" {
		title = url
	}

	rec := NewRecord(TypeInstance, title, fields)
	def, _ := LookupType(TypeInstance)
	if err := def.Validate(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// InstanceStatusOf returns the status field of an instance record
func InstanceStatusOf(r *Record) InstanceStatus {
	return InstanceStatus(r.String("status"))
}

// Endpoint is the connection information resolved from an instance record
type Endpoint struct {
	URL              string
	Token            string
	DevicePrivateKey string
}

// EndpointOf extracts connection information from an instance record
func EndpointOf(r *Record) Endpoint {
	return Endpoint{
		URL:              r.String("url"),
		Token:            r.String("token"),
		DevicePrivateKey: r.String("devicePrivateKey"),
	}
}

// PingResultFields returns the fields persisted after a successful ping
func PingResultFields(at time.Time, latency time.Duration) map[string]any {
	return map[string]any{
		"status":            string(InstanceStatusOnline),
		"lastPingAt":        at.UTC().Format(time.RFC3339Nano),
		"lastPingLatencyMs": latency.Milliseconds(),
	}
}
