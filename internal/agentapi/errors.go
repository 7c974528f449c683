package agentapi

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport covers network failures talking to the agent.
	ErrTransport = errors.New("agentapi: transport failure")
	// ErrMalformed is returned when a response is not the JSON shape the
	// endpoint promises.
	ErrMalformed = errors.New("agentapi: malformed response")
	// ErrNoPath means the pathfinder answered but found no route.
	ErrNoPath = errors.New("agentapi: no path")
)

// RemoteError is an error reported by the remote side, either as a non-2xx
// status or as an {"error": "..."} body.
type RemoteError struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("agentapi: %s returned status %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("agentapi: %s (status %d): %s", e.Endpoint, e.Status, e.Message)
}
