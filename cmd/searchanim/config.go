package main

// Flag names for Viper binding
const (
	// Global flags
	FlagVerbose = "verbose"
	FlagConfig  = "config"
	FlagLogFile = "log-file"

	// Run command flags
	FlagQuery          = "query"
	FlagSearchType     = "search-type"
	FlagLatency        = "latency"
	FlagResponseTime   = "response-time"
	FlagFail           = "fail"
	FlagMobile         = "mobile"
	FlagReducedMotion  = "reduced-motion"
	FlagNoAcceleration = "no-acceleration"
	FlagAwait          = "await"
	FlagTUI            = "tui"
	FlagMetricsAddr    = "metrics-addr"

	// Events command flags
	FlagCount = "count"

	// Output format flags
	FlagJSON   = "json"
	FlagFormat = "format"
)
