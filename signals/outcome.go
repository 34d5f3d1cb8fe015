package signals

// InterruptionReason explains why a dispatch attempt was interrupted without being applied.
type InterruptionReason uint8

const (
	// InterruptionNone is the zero value; a non-interrupted Outcome carries it.
	InterruptionNone InterruptionReason = iota

	// InterruptionNoHandler means no operation is registered for the (target type, signal kind/type) pair.
	InterruptionNoHandler

	// InterruptionTargetArchived means the target exists but declined to handle because it is archived.
	InterruptionTargetArchived

	// InterruptionTargetNotFound means the target does not exist and the signal kind does not permit creation.
	InterruptionTargetNotFound
)

// String returns a stable lowercase name for the InterruptionReason.
func (r InterruptionReason) String() string {
	switch r {
	case InterruptionNoHandler:
		return "no_handler"
	case InterruptionTargetArchived:
		return "target_archived"
	case InterruptionTargetNotFound:
		return "target_not_found"
	default:
		return "none"
	}
}

type outcomeKind uint8

const (
	outcomeSuccess outcomeKind = iota
	outcomeError
	outcomeInterrupted
)

// Outcome is the tagged result of one dispatch attempt.
//
// A success carries exactly one of: a list of produced events, a list of
// produced commands, or a single rejection signal. The factory methods
// enforce that exclusivity; an Outcome is never constructed directly.
type Outcome struct {
	kind      outcomeKind
	events    Signals
	commands  Signals
	rejection *Signal
	err       error
	reason    InterruptionReason
}

// SuccessOutcome builds a success Outcome that produced no derived signals.
func SuccessOutcome() Outcome {
	return Outcome{kind: outcomeSuccess}
}

// SuccessWithEvents builds a success Outcome carrying the produced events.
func SuccessWithEvents(events ...Signal) Outcome {
	return Outcome{kind: outcomeSuccess, events: events}
}

// SuccessWithCommands builds a success Outcome carrying the produced commands.
func SuccessWithCommands(commands ...Signal) Outcome {
	return Outcome{kind: outcomeSuccess, commands: commands}
}

// SuccessWithRejection builds a success Outcome carrying a single domain rejection.
// A rejection is a legitimate business outcome, not a failure.
func SuccessWithRejection(rejection Signal) Outcome {
	return Outcome{kind: outcomeSuccess, rejection: &rejection}
}

// ErrorOutcome builds an Outcome describing a technical failure of the dispatch attempt.
func ErrorOutcome(err error) Outcome {
	return Outcome{kind: outcomeError, err: err}
}

// InterruptedOutcome builds an Outcome for an attempt that was a no-op for this target.
func InterruptedOutcome(reason InterruptionReason) Outcome {
	return Outcome{kind: outcomeInterrupted, reason: reason}
}

// IsSuccess reports whether the attempt was applied (including rejection outcomes).
func (o Outcome) IsSuccess() bool {
	return o.kind == outcomeSuccess
}

// IsError reports whether the attempt failed with a technical error.
func (o Outcome) IsError() bool {
	return o.kind == outcomeError
}

// IsInterrupted reports whether the attempt was a no-op for this target.
func (o Outcome) IsInterrupted() bool {
	return o.kind == outcomeInterrupted
}

// Events returns the produced events of a success Outcome, nil otherwise.
func (o Outcome) Events() Signals {
	return o.events
}

// Commands returns the produced commands of a success Outcome, nil otherwise.
func (o Outcome) Commands() Signals {
	return o.commands
}

// Rejection returns the rejection signal of a success Outcome and whether one was raised.
func (o Outcome) Rejection() (Signal, bool) {
	if o.rejection == nil {
		return Signal{}, false
	}

	return *o.rejection, true
}

// Err returns the technical error of an error Outcome, nil otherwise.
func (o Outcome) Err() error {
	return o.err
}

// Reason returns the interruption reason, InterruptionNone for non-interrupted outcomes.
func (o Outcome) Reason() InterruptionReason {
	return o.reason
}
