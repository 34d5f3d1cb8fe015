package core

// AccountState is the persisted state of one account aggregate.
type AccountState struct {
	Opened       bool   `json:"opened"`
	Owner        string `json:"owner"`
	BalanceCents int64  `json:"balance_cents"`
}

// SettlementState is the persisted state of one settlement process manager,
// tracking the withdrawals it has observed for one account.
type SettlementState struct {
	AccountID        string `json:"account_id"`
	SettledCount     int    `json:"settled_count"`
	SettledCents     int64  `json:"settled_cents"`
	DeclinedCount    int    `json:"declined_count"`
	PendingReviewFor int64  `json:"pending_review_for"`
	Halted           bool   `json:"halted"`
}

// BalancesState is the persisted state of the tenant-wide balances
// projection: a read model summing all movements.
type BalancesState struct {
	AccountCount      int   `json:"account_count"`
	TotalBalanceCents int64 `json:"total_balance_cents"`
	MovementCount     int   `json:"movement_count"`
}

// UnmarshalAccountState deserializes account state.
func UnmarshalAccountState(data []byte) (AccountState, error) {
	var state AccountState
	err := json.Unmarshal(data, &state)

	return state, err
}

// UnmarshalSettlementState deserializes settlement state.
func UnmarshalSettlementState(data []byte) (SettlementState, error) {
	var state SettlementState
	err := json.Unmarshal(data, &state)

	return state, err
}

// UnmarshalBalancesState deserializes balances state.
func UnmarshalBalancesState(data []byte) (BalancesState, error) {
	var state BalancesState
	err := json.Unmarshal(data, &state)

	return state, err
}
