package core

import (
	"sort"
	"strings"
	"sync"
)

// ProviderFactory implements provider-specific construction.
type ProviderFactory func(ProviderConfig) (Provider, error)

var (
	mu         sync.RWMutex
	providers  = map[string]ProviderFactory{}
	defaultKey = "openai"
)

// RegisterProvider registers a provider factory under one or more names.
func RegisterProvider(name string, factory ProviderFactory, aliases ...string) {
	mu.Lock()
	defer mu.Unlock()

	all := append([]string{name}, aliases...)
	for _, n := range all {
		providers[strings.ToLower(n)] = factory
	}
}

// RegisteredProviders lists every registered name, aliases included.
func RegisteredProviders() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(providers))
	for name := range providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// NewProvider builds the provider named by cfg.Provider (openai when empty).
func NewProvider(cfg ProviderConfig) (Provider, error) {
	providerName := cfg.Provider
	if strings.TrimSpace(providerName) == "" {
		providerName = defaultKey
	}

	mu.RLock()
	factory := providers[strings.ToLower(providerName)]
	mu.RUnlock()

	if factory == nil {
		return nil, &ConfigError{Provider: providerName, Reason: "provider not registered"}
	}
	cfg.Provider = strings.ToLower(providerName)
	return factory(cfg)
}
