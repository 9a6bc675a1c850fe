package debug

import (
	"log"
	"os"
)

// EnvVar gates diagnostic logging of full LLM requests and responses.
const EnvVar = "BORK_ENABLE_DEBUG_LOG"

var logger = log.New(os.Stderr, "[bork debug] ", log.LstdFlags)

// Enabled reports whether debug logging is turned on.
func Enabled() bool {
	return os.Getenv(EnvVar) == "1"
}

// Logf writes a formatted line to the diagnostic stream when enabled.
func Logf(format string, args ...any) {
	if !Enabled() {
		return
	}
	logger.Printf(format, args...)
}

// LogRequest emits the full LLM request payload when enabled.
func LogRequest(model, prompt string) {
	if !Enabled() {
		return
	}
	logger.Printf("LLM request (model=%s, %d bytes):\n%s", model, len(prompt), prompt)
}

// LogResponse emits the full LLM response when enabled.
func LogResponse(model, reply string) {
	if !Enabled() {
		return
	}
	logger.Printf("LLM response (model=%s, %d bytes):\n%s", model, len(reply), reply)
}
