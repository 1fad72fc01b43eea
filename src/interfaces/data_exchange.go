package interfaces

import "context"

// -----------------------------------------------------------------------------
// IDataExchanger is an outer surface serving dashboard sessions (HTTP/WebSocket).
// -----------------------------------------------------------------------------

type IDataExchanger interface {

	// -----------------------------------------------------------------------------
	// Start the server, blocking until it stops
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop(ctx context.Context) error
}
