package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Adapter defines the interface for LLM providers. The model is an opaque
// text-in / text-out oracle; its reply is treated as adversarial input by
// the rest of the harness.
type Adapter interface {
	// Complete sends one prompt and returns the raw textual reply.
	Complete(ctx context.Context, prompt string) (string, error)

	// ModelName returns the current model name.
	ModelName() string

	// Available checks if the adapter is properly configured.
	Available() bool
}

// AdapterConfig contains common configuration for LLM adapters.
type AdapterConfig struct {
	Model           string
	APIKey          string
	BaseURL         string
	Timeout         time.Duration
	ReasoningEffort string
}

// DefaultTimeout for LLM requests. Reconciliation prompts carry the whole
// repository, so responses can take a long time.
const DefaultTimeout = time.Hour

// DefaultModel is used when neither the --model flag nor BORK_MODEL is set.
const DefaultModel = "openai:gpt-5.3-codex"

// DefaultReasoningEffort is the effort requested from reasoning-capable
// models. Reconciling a whole repository against its specs is the hard case;
// the harness wants the model thinking as hard as it can.
const DefaultReasoningEffort = "high"

// ErrUnreachable indicates a transport-level failure talking to the model
// endpoint. Fatal for the reconciliation run.
var ErrUnreachable = errors.New("LLM unreachable")

// ErrRefused indicates the model returned no usable output (policy refusal
// or empty reply).
var ErrRefused = errors.New("LLM refused the request")

// Options selects and configures the model endpoint for one reconciliation
// run. Credentials stay opaque to the core: they are read from the
// provider's environment variable and passed straight through.
type Options struct {
	// Model is "provider:model", or a bare model name which defaults to
	// the openai provider. Empty falls back to $BORK_MODEL, then
	// DefaultModel.
	Model string

	// APIKey overrides the credential from the environment.
	APIKey string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// ReasoningEffort overrides DefaultReasoningEffort; must be one of
	// low, medium, high.
	ReasoningEffort string
}

// New resolves opts to a configured adapter.
func New(opts Options) (Adapter, error) {
	modelStr := opts.Model
	if modelStr == "" {
		modelStr = os.Getenv("BORK_MODEL")
	}
	if modelStr == "" {
		modelStr = DefaultModel
	}

	provider, model, qualified := strings.Cut(modelStr, ":")
	if !qualified {
		provider, model = "openai", modelStr
	}
	if model == "" {
		return nil, fmt.Errorf("no model name in %q", modelStr)
	}

	effort := opts.ReasoningEffort
	if effort == "" {
		effort = DefaultReasoningEffort
	}
	switch effort {
	case "low", "medium", "high":
	default:
		return nil, fmt.Errorf("invalid reasoning effort %q (want low, medium or high)", effort)
	}

	config := AdapterConfig{
		Model:           model,
		APIKey:          opts.APIKey,
		BaseURL:         opts.BaseURL,
		Timeout:         DefaultTimeout,
		ReasoningEffort: effort,
	}

	switch provider {
	case "openai":
		if config.APIKey == "" {
			config.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if config.APIKey == "" {
			return nil, fmt.Errorf("no OpenAI credential for model %q: set OPENAI_API_KEY", model)
		}
		return NewOpenAIAdapter(config), nil

	case "ollama":
		// Local models take no credential and ignore reasoning effort.
		return NewOllamaAdapter(config), nil
	}

	return nil, fmt.Errorf("unknown LLM provider %q in model %q", provider, modelStr)
}
