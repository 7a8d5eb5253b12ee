package constants

var (
	Version     = "dev"
	CompileTime = "unknown"
)
