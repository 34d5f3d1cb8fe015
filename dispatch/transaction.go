package dispatch

// Transaction is the short-lived, exclusively-owned unit binding one entity
// snapshot and one signal for the duration of a single handler invocation.
//
// It is created when the dispatch endpoint begins processing a pair, mutated
// only by the handler invocation it wraps, and destroyed on commit (state
// handed to the repository) or on abort (state discarded, the stored entity
// version untouched). It is never partially committed.
type Transaction struct {
	entity    Entity
	stateJSON []byte
	modified  bool
}

// BeginTransaction snapshots the entity's current state and version.
func BeginTransaction(entity Entity) *Transaction {
	snapshot := make([]byte, len(entity.StateJSON))
	copy(snapshot, entity.StateJSON)

	return &Transaction{
		entity:    entity,
		stateJSON: snapshot,
	}
}

// StateJSON returns the state the handler operates on.
func (tx *Transaction) StateJSON() []byte {
	return tx.stateJSON
}

// SetStateJSON replaces the in-transaction state and marks the transaction modified.
func (tx *Transaction) SetStateJSON(stateJSON []byte) {
	tx.stateJSON = stateJSON
	tx.modified = true
}

// IsModified reports whether the handler changed the state within this transaction.
func (tx *Transaction) IsModified() bool {
	return tx.modified
}

// Version returns the entity version read when the transaction began.
// A commit is conditioned on this version still being the stored one.
func (tx *Transaction) Version() EntityVersionUint {
	return tx.entity.Version
}

// Entity returns the entity snapshot with the in-transaction state applied,
// ready for a version-checked store.
func (tx *Transaction) Entity() Entity {
	committed := tx.entity
	committed.StateJSON = tx.stateJSON

	return committed
}
