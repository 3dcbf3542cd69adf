// Package memory provides an in-memory credential registry for tests and dev
// mode. It models the behaviors keygate depends on — admin-gated mint and
// status updates, duplicate-grant rejection, the holder/standing split —
// without reimplementing a full credential authority.
package memory

import (
	"context"
	"fmt"
	"sync"

	"keygate/internal/registry/ports"
	id "keygate/pkg/domain"
)

type holderRecord struct {
	holder       bool
	goodStanding bool
}

type policyState struct {
	admins  map[id.Address]bool
	holders map[id.Address]holderRecord
}

// Registry stores credential state in memory.
type Registry struct {
	mu       sync.RWMutex
	policies map[id.PolicyID]*policyState
}

// New constructs an empty registry.
func New() *Registry {
	return &Registry{policies: make(map[id.PolicyID]*policyState)}
}

// AddPolicyAdmin grants admin position over a policy. This models the
// out-of-band administrative hierarchy that provisions a binding's restricted
// capability.
func (r *Registry) AddPolicyAdmin(policyID id.PolicyID, admin id.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statePolicyLocked(policyID).admins[admin] = true
}

func (r *Registry) Mint(_ context.Context, caller id.Address, policyID id.PolicyID, principal id.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := r.statePolicyLocked(policyID)
	if !state.admins[caller] {
		return fmt.Errorf("mint policy %d: %w", policyID, ports.ErrNotAdmin)
	}
	// Duplicate grants are rejected before anything else, matching the
	// registry's documented ordering.
	if rec, ok := state.holders[principal]; ok && rec.holder {
		return fmt.Errorf("mint policy %d: %w", policyID, ports.ErrAlreadyHolder)
	}
	state.holders[principal] = holderRecord{holder: true, goodStanding: true}
	return nil
}

func (r *Registry) SetHolderStatus(_ context.Context, caller id.Address, policyID id.PolicyID, principal id.Address, holder, goodStanding bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := r.statePolicyLocked(policyID)
	if !state.admins[caller] {
		return fmt.Errorf("set holder status policy %d: %w", policyID, ports.ErrNotAdmin)
	}
	state.holders[principal] = holderRecord{holder: holder, goodStanding: goodStanding}
	return nil
}

func (r *Registry) IsHolder(_ context.Context, policyID id.PolicyID, principal id.Address) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.policies[policyID]
	if !ok {
		return false, nil
	}
	return state.holders[principal].holder, nil
}

func (r *Registry) InGoodStanding(_ context.Context, policyID id.PolicyID, principal id.Address) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.policies[policyID]
	if !ok {
		return true, nil
	}
	rec, ok := state.holders[principal]
	if !ok {
		return true, nil
	}
	return rec.goodStanding, nil
}

func (r *Registry) statePolicyLocked(policyID id.PolicyID) *policyState {
	state, ok := r.policies[policyID]
	if !ok {
		state = &policyState{
			admins:  make(map[id.Address]bool),
			holders: make(map[id.Address]holderRecord),
		}
		r.policies[policyID] = state
	}
	return state
}
