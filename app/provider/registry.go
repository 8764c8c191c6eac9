package provider

import (
	"errors"
	"sort"
	"strings"
)

var ErrProviderNotSupported = errors.New("provider is not supported")

type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	items := make(map[string]Provider, len(providers))
	for _, p := range providers {
		if p == nil {
			continue
		}
		items[p.Code()] = p
	}
	return &Registry{providers: items}
}

func (r *Registry) Get(code string) (Provider, error) {
	provider, ok := r.providers[strings.ToLower(strings.TrimSpace(code))]
	if !ok {
		return nil, ErrProviderNotSupported
	}
	return provider, nil
}

func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.providers))
	for code := range r.providers {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
