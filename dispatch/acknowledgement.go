package dispatch

// Stage identifies the pipeline stage that produced an acknowledgement status.
type Stage uint8

const (
	StageNone Stage = iota
	StageFilters
	StageValidation
	StageDeadSignal
	StageRouting
	StageDelivery
)

// String returns a stable lowercase name for the Stage, suitable for log attributes.
func (s Stage) String() string {
	switch s {
	case StageFilters:
		return "filters"
	case StageValidation:
		return "validation"
	case StageDeadSignal:
		return "dead_signal"
	case StageRouting:
		return "routing"
	case StageDelivery:
		return "delivery"
	default:
		return "none"
	}
}

// Acknowledgement is the synchronous answer of the posting pipeline.
//
// It reports whether a signal was admitted to delivery; a rejected signal
// never reaches delivery and the acknowledgement carries the stage and
// reason of the rejection. The offending signal itself is not retained.
type Acknowledgement struct {
	accepted bool
	stage    Stage
	reason   string
}

// Acknowledged builds the acknowledgement for a signal that was validated and enqueued.
func Acknowledged() Acknowledgement {
	return Acknowledgement{accepted: true}
}

// Rejected builds the acknowledgement for a signal rejected at the given stage.
func Rejected(stage Stage, reason string) Acknowledgement {
	return Acknowledgement{accepted: false, stage: stage, reason: reason}
}

// IsAccepted reports whether the signal was admitted to delivery.
func (a Acknowledgement) IsAccepted() bool {
	return a.accepted
}

// Stage returns the stage that rejected the signal, StageNone when accepted.
func (a Acknowledgement) Stage() Stage {
	return a.stage
}

// Reason returns the rejection reason, empty when accepted.
func (a Acknowledgement) Reason() string {
	return a.reason
}
