package models

// MClientCommand is sent by WebSocket clients.
type MClientCommand struct {
	Command string    `json:"command"` // set_input | refresh
	Input   InputName `json:"input,omitempty"`
	Value   any       `json:"value,omitempty"`
}

// MSessionUpdate is pushed to WebSocket clients of a session.
type MSessionUpdate struct {
	Type      string                     `json:"type"` // INITIAL | STATE | OUTPUTS | ERROR
	SessionID string                     `json:"session_id"`
	Inputs    MDashboardInputs           `json:"inputs"`
	States    map[OutputName]OutputState `json:"states"`
	Outputs   []MOutput                  `json:"outputs,omitempty"`
	Error     string                     `json:"error,omitempty"`
	Timestamp int64                      `json:"timestamp"`
}

// MMarketStatus reports the trading calendar state for a ticker's exchange.
type MMarketStatus struct {
	Ticker     string `json:"ticker"`
	Exchange   string `json:"exchange"`
	TradingDay bool   `json:"trading_day"`
	Open       bool   `json:"open"`
	Timestamp  int64  `json:"timestamp"`
}
