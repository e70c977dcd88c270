// Package secrets fetches the secure parameter set the gateway needs to
// reach the PLC. Values are fetched fresh per invocation and never cached.
package secrets

import (
	"context"
	"fmt"
)

// Logical parameter names, resolved under the provider's namespace.
const (
	KeyPLCAddress = "ip-address"
	KeyMQTTTopic  = "mqtt-topic"
	KeyGatewayID  = "gateway-id"
)

// DefaultNamespace is the parameter prefix for the PLC secrets.
const DefaultNamespace = "/plc/secure"

// Params is the complete secure parameter set. A partial set is treated as
// an error by providers; the gateway fails closed rather than passing
// undefined values to the action.
type Params struct {
	PLCAddress string
	MQTTTopic  string
	GatewayID  string
}

// FetchError is returned when the parameter set cannot be retrieved in full.
type FetchError struct {
	Missing []string
	Err     error
}

func (e *FetchError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("secrets: incomplete parameter set, missing %v", e.Missing)
	}
	return fmt.Sprintf("secrets: fetch failed: %v", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Provider retrieves the secure parameter set.
type Provider interface {
	Fetch(ctx context.Context) (*Params, error)
}

// Static is a fixed in-memory provider for tests and local development.
type Static struct {
	Params Params
}

// Fetch returns a copy of the configured parameters.
func (s *Static) Fetch(ctx context.Context) (*Params, error) {
	p := s.Params
	return &p, nil
}
