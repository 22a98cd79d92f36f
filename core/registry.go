package core

import (
	"fmt"
	"sort"
	"strings"
)

// Registry is the fixed table of provider strategies. It is built once at
// startup and never mutated afterwards.
type Registry struct {
	strategies map[string]Strategy
}

func NewRegistry(strategies ...Strategy) (*Registry, error) {
	r := &Registry{strategies: make(map[string]Strategy, len(strategies))}
	for _, strategy := range strategies {
		if strategy == nil {
			return nil, fmt.Errorf("core: strategy is nil")
		}
		key := NormalizeProviderKey(strategy.Key())
		if key == "" {
			return nil, fmt.Errorf("core: provider key is required")
		}
		if _, exists := r.strategies[key]; exists {
			return nil, fmt.Errorf("core: provider already registered: %s", key)
		}
		if err := strategy.Config().Validate(); err != nil {
			return nil, fmt.Errorf("core: provider %s config invalid: %w", key, err)
		}
		r.strategies[key] = strategy
	}
	return r, nil
}

func (r *Registry) Lookup(providerKey string) (Strategy, error) {
	key := NormalizeProviderKey(providerKey)
	if r != nil && key != "" {
		if strategy, ok := r.strategies[key]; ok {
			return strategy, nil
		}
	}
	return nil, NewError(ErrorUnknownProvider, fmt.Sprintf("core: provider %q is not registered", key), map[string]any{
		"provider": key,
	})
}

func (r *Registry) Keys() []string {
	if r == nil {
		return nil
	}
	keys := make([]string, 0, len(r.strategies))
	for key := range r.strategies {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (r *Registry) Views() []PlatformView {
	keys := r.Keys()
	views := make([]PlatformView, 0, len(keys))
	for _, key := range keys {
		views = append(views, r.strategies[key].Config().View())
	}
	return views
}

func NormalizeProviderKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
