package app

// set with -ldflags at build time
var (
	ClientID  = "mscd"
	GitTag    = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)
