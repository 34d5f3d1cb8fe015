package dispatch

import (
	"errors"
)

var ErrVersionConflict = errors.New("version conflict, no rows were affected")
var ErrHandlerFailed = errors.New("handler reported a technical failure")
var ErrDispatchTimedOut = errors.New("dispatch attempt exceeded its deadline")
var ErrDuplicateRegistration = errors.New("operation already registered for target type and signal type")
var ErrNilOperationSupplied = errors.New("nil operation supplied")
var ErrEmptyTargetTypeSupplied = errors.New("empty targetType supplied")
var ErrEmptySignalTypeSupplied = errors.New("empty signalType supplied")
var ErrUnknownTargetType = errors.New("no endpoint registered for target type")
var ErrLaneCapacityExceeded = errors.New("delivery lane capacity exceeded")
var ErrDeliveryStopped = errors.New("delivery has been stopped")
var ErrNilRepositorySupplied = errors.New("nil entity repository supplied")
var ErrNilLedgerSupplied = errors.New("nil applied-signal ledger supplied")
var ErrNilResolverSupplied = errors.New("nil handler resolver supplied")
var ErrEntityDeleted = errors.New("entity is marked deleted")
var ErrEntityNotFound = errors.New("no entity found for target")
