package chain

import (
	"errors"
	"fmt"

	"tokenscope/internal/infra"
)

// ErrUnknownChain is returned for chain IDs absent from configuration.
var ErrUnknownChain = errors.New("unknown chain id")

// Registry holds one RPC client per configured chain.
type Registry struct {
	clients map[int64]*Client
}

// NewRegistry builds clients for every configured chain.
func NewRegistry(chains []infra.ChainConfig) *Registry {
	clients := make(map[int64]*Client, len(chains))
	for _, cfg := range chains {
		clients[cfg.ID] = NewClient(cfg)
	}
	return &Registry{clients: clients}
}

// Client returns the client for a chain ID.
func (r *Registry) Client(chainID int64) (*Client, error) {
	c, ok := r.clients[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownChain, chainID)
	}
	return c, nil
}

// ChainIDs lists the configured chains.
func (r *Registry) ChainIDs() []int64 {
	ids := make([]int64, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	return ids
}
