// Package model holds the providers, variants, analysis records and run
// states shared across the analyzer.
package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Provider identifies an LLM vendor.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// DefaultProvider is used when no provider is requested and by the evaluator.
const DefaultProvider = ProviderOpenAI

// Providers lists the supported providers in display order.
func Providers() []Provider {
	return []Provider{ProviderOpenAI, ProviderAnthropic}
}

// ParseProvider maps a user-supplied name onto a Provider. An empty string
// yields DefaultProvider. "claude" is accepted as an alias for anthropic.
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultProvider, nil
	case "openai":
		return ProviderOpenAI, nil
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	default:
		return "", eris.Errorf("model: unsupported provider %q (supported: openai, anthropic)", s)
	}
}

// Variant selects which fixed prompt/response shape a pipeline runs.
type Variant string

const (
	// VariantFee simulates fee scenarios from an exchange fee schedule.
	// It supports provider selection and the anthropic->openai fallback.
	VariantFee Variant = "fee"
	// VariantDocument summarizes a document and runs the evaluator loop.
	// It always uses the default provider.
	VariantDocument Variant = "document"
)

// ParseVariant maps a user-supplied name onto a Variant. An empty string
// yields VariantDocument.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "document", "doc":
		return VariantDocument, nil
	case "fee", "fees", "fee-schedule":
		return VariantFee, nil
	default:
		return "", eris.Errorf("model: unsupported variant %q (supported: fee, document)", s)
	}
}
