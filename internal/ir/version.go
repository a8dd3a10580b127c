package ir

// Version constants for the fixture model and tooling.
const (
	// IRVersion is the canonical fixture schema version.
	IRVersion = "1"

	// ToolVersion is the clafer tool version.
	ToolVersion = "0.1.0"
)
