package amm

import (
	"stellarlend/crypto"
)

// pendingNonce is one issued, not yet consumed callback authorization.
type pendingNonce struct {
	Nonce    uint64
	Deadline uint64
}

// issueNonce mints the next nonce for the protocol and records it as pending
// until the deadline. Nonces start at 1; zero is never valid.
func (r *Router) issueNonce(protocol crypto.Address, deadline int64) (uint64, error) {
	counterKey := []byte(nonceCounterKey + protocol.String())
	var counter uint64
	if _, err := r.store.KVGet(counterKey, &counter); err != nil {
		return 0, err
	}
	counter++
	if err := r.store.KVPut(counterKey, counter); err != nil {
		return 0, err
	}
	if deadline < 0 {
		deadline = 0
	}
	pendingKey := []byte(noncePendingKey + protocol.String())
	var pending []pendingNonce
	if err := r.store.KVGetList(pendingKey, &pending); err != nil {
		return 0, err
	}
	pending = append(pending, pendingNonce{Nonce: counter, Deadline: uint64(deadline)})
	if err := r.store.KVPutList(pendingKey, pending); err != nil {
		return 0, err
	}
	return counter, nil
}

// IssueCallbackNonce mints a deadline-scoped callback nonce for a registered,
// enabled protocol outside the swap path, for venues that confirm in several
// legs.
func (r *Router) IssueCallbackNonce(protocol crypto.Address, deadline int64) (uint64, error) {
	if r == nil || r.store == nil {
		return 0, ErrNilStorage
	}
	config, err := r.loadProtocol(protocol)
	if err != nil {
		return 0, err
	}
	if config == nil {
		return 0, ErrProtocolNotRegistered
	}
	if !config.Enabled {
		return 0, ErrProtocolDisabled
	}
	if deadline < r.now().Unix() {
		return 0, ErrDeadlineExpired
	}
	return r.issueNonce(protocol, deadline)
}

// ValidateCallback authenticates a venue's swap confirmation. The caller must
// be a registered and enabled protocol, the nonce must have been issued and
// never consumed, and its deadline must not have passed. A valid nonce is
// consumed; a nonce that was never issued or was already consumed is stale
// and permanently invalid. Expired pending nonces are pruned so the pending
// set stays bounded.
func (r *Router) ValidateCallback(protocol crypto.Address, nonce uint64) error {
	if r == nil || r.store == nil {
		return ErrNilStorage
	}
	config, err := r.loadProtocol(protocol)
	if err != nil {
		return err
	}
	if config == nil {
		return ErrProtocolNotRegistered
	}
	if !config.Enabled {
		return ErrProtocolDisabled
	}
	pendingKey := []byte(noncePendingKey + protocol.String())
	var pending []pendingNonce
	if err := r.store.KVGetList(pendingKey, &pending); err != nil {
		return err
	}
	now := uint64(r.now().Unix())
	kept := pending[:0]
	found := false
	expired := false
	for _, entry := range pending {
		if entry.Nonce == nonce {
			found = true
			if entry.Deadline < now {
				expired = true
			}
			// Consumed or expired either way: drop the entry.
			continue
		}
		if entry.Deadline < now {
			continue
		}
		kept = append(kept, entry)
	}
	if err := r.store.KVPutList(pendingKey, kept); err != nil {
		return err
	}
	if !found {
		return ErrStaleNonce
	}
	if expired {
		return ErrDeadlineExpired
	}
	return nil
}

// MustValidateCallback is the aborting form of ValidateCallback.
func (r *Router) MustValidateCallback(protocol crypto.Address, nonce uint64) {
	if err := r.ValidateCallback(protocol, nonce); err != nil {
		panic(err)
	}
}
