package ir

// Version constants for the compiled artifact format and the toolchain.
const (
	// ArtifactVersion is the schema version of Compiled JSON output.
	ArtifactVersion = "1"

	// ToolVersion is the arrpc compiler version stamped into generated code.
	ToolVersion = "0.1.0"
)
