package core

import (
	jsoniter "github.com/json-iterator/go"
)

// Target types of the example.
const (
	AccountTargetType    = "account"
	SettlementTargetType = "settlement"
	BalancesTargetType   = "balances"
)

// Command signal types handled by the account aggregate.
const (
	OpenAccountCommandType   = "OpenAccount"
	DepositFundsCommandType  = "DepositFunds"
	WithdrawFundsCommandType = "WithdrawFunds"
)

// Event signal types produced by the account aggregate.
const (
	AccountOpenedEventType  = "AccountOpened"
	FundsDepositedEventType = "FundsDeposited"
	FundsWithdrawnEventType = "FundsWithdrawn"
)

// SettlementDueEventType is posted by the surrounding system to trigger a
// settlement run for one account; it creates the settlement process manager
// on first contact.
const SettlementDueEventType = "SettlementDue"

// WithdrawalDeclinedRejectionType is raised when a withdrawal would overdraw
// the account.
const WithdrawalDeclinedRejectionType = "WithdrawalDeclined"

var json = jsoniter.ConfigFastest

// OpenAccountPayload carries the data of an OpenAccount command.
type OpenAccountPayload struct {
	AccountID string `json:"account_id"`
	Owner     string `json:"owner"`
}

// MoneyMovementPayload carries the data of deposit and withdrawal commands
// and of the events they produce.
type MoneyMovementPayload struct {
	AccountID   string `json:"account_id"`
	AmountCents int64  `json:"amount_cents"`
}

// SettlementDuePayload carries the data of a SettlementDue event.
type SettlementDuePayload struct {
	AccountID   string `json:"account_id"`
	AmountCents int64  `json:"amount_cents"`
}

// WithdrawalDeclinedPayload carries the data of a WithdrawalDeclined rejection.
type WithdrawalDeclinedPayload struct {
	AccountID    string `json:"account_id"`
	AmountCents  int64  `json:"amount_cents"`
	BalanceCents int64  `json:"balance_cents"`
	Reason       string `json:"reason"`
}

// MustMarshal serializes a payload or state struct to JSON, panicking on
// failure. The example structs contain only scalar fields, so marshaling
// cannot fail at runtime.
func MustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	return data
}

// UnmarshalOpenAccountPayload deserializes an OpenAccount payload.
func UnmarshalOpenAccountPayload(data []byte) (OpenAccountPayload, error) {
	var payload OpenAccountPayload
	err := json.Unmarshal(data, &payload)

	return payload, err
}

// UnmarshalMoneyMovementPayload deserializes a deposit or withdrawal payload.
func UnmarshalMoneyMovementPayload(data []byte) (MoneyMovementPayload, error) {
	var payload MoneyMovementPayload
	err := json.Unmarshal(data, &payload)

	return payload, err
}

// UnmarshalSettlementDuePayload deserializes a SettlementDue payload.
func UnmarshalSettlementDuePayload(data []byte) (SettlementDuePayload, error) {
	var payload SettlementDuePayload
	err := json.Unmarshal(data, &payload)

	return payload, err
}

// UnmarshalWithdrawalDeclinedPayload deserializes a WithdrawalDeclined payload.
func UnmarshalWithdrawalDeclinedPayload(data []byte) (WithdrawalDeclinedPayload, error) {
	var payload WithdrawalDeclinedPayload
	err := json.Unmarshal(data, &payload)

	return payload, err
}
