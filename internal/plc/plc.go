// Package plc defines the PLC command contract and the action boundary the
// gateway invokes. The actual device protocol lives behind the Action
// interface; this package ships a stub executor.
package plc

import (
	"context"
	"time"

	"github.com/markb/plcgate/internal/secrets"
)

// Command is the payload submitted by an operator.
type Command struct {
	Command string `json:"command"`
	Area    string `json:"area,omitempty"`
	Address string `json:"address,omitempty"`
	Value   string `json:"value"`
}

// Result is the device-level outcome of a command.
type Result struct {
	Value   string `json:"value"`
	Message string `json:"message"`
}

// Outcome is the structured result of an action invocation.
type Outcome struct {
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
	Command   Command `json:"command"`
	Result    Result  `json:"result"`
}

// Caller identifies the authenticated operator on whose behalf a command runs.
type Caller struct {
	UserID string
	Email  string
}

// Action executes a privileged command against the device. Implementations
// return an Outcome with a status for ordinary business failures and reserve
// the error return for transport or infrastructure failures.
type Action interface {
	Execute(ctx context.Context, params *secrets.Params, caller Caller, cmd Command) (*Outcome, error)
}

// StubExecutor simulates command execution. It stands in for the MQTT/PLC
// transport until the device integration lands.
type StubExecutor struct{}

// NewStubExecutor creates a stub action.
func NewStubExecutor() *StubExecutor {
	return &StubExecutor{}
}

// Execute returns a successful outcome without touching any device.
func (e *StubExecutor) Execute(ctx context.Context, params *secrets.Params, caller Caller, cmd Command) (*Outcome, error) {
	return &Outcome{
		Status:    "success",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   cmd,
		Result: Result{
			Value:   "OK",
			Message: "Command executed successfully",
		},
	}, nil
}
