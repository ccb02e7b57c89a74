package base

import "time"

// Default timeouts by tool weight
const (
	LookupTimeout         = 30 * time.Second
	CommandTimeout        = 60 * time.Second
	BackendTimeout        = 600 * time.Second
	ConsensusTimeout      = 900 * time.Second
	SuperconsensusTimeout = 1800 * time.Second
)

// BaseTool provides common functionality for tools
type BaseTool struct {
	ToolName    string
	ToolDesc    string
	ToolTimeout time.Duration
}

// Name returns the tool name
func (b *BaseTool) Name() string {
	return b.ToolName
}

// Description returns the tool description
func (b *BaseTool) Description() string {
	return b.ToolDesc
}

// Timeout returns the declared timeout, LookupTimeout when unset
func (b *BaseTool) Timeout() time.Duration {
	if b.ToolTimeout <= 0 {
		return LookupTimeout
	}
	return b.ToolTimeout
}
