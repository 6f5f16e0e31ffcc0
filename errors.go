package landkeeper

import "fmt"

// Reevaluation compatibility codes. Stable across versions so external
// tooling can branch on them without string matching.
const (
	CodeLandTypeMismatch     = 2001
	CodeSchemaMismatch       = 2002
	CodeRecordVersionMismatch = 2003
)

// AlreadyJoinedError is returned by LandKeeper.Join when the player is
// already connected.
type AlreadyJoinedError struct {
	Player PlayerID
}

func (e *AlreadyJoinedError) Error() string {
	return fmt.Sprintf("landkeeper: player %q already joined", e.Player)
}

// NotJoinedError is returned by LandKeeper.Leave and action submission
// when the player is not currently connected.
type NotJoinedError struct {
	Player PlayerID
}

func (e *NotJoinedError) Error() string {
	return fmt.Sprintf("landkeeper: player %q is not joined", e.Player)
}

// UnknownActionError is returned when an action envelope names a type the
// land definition never registered.
type UnknownActionError struct {
	ActionType string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("landkeeper: unknown action type %q", e.ActionType)
}

// QueueFullError is returned when an action or client event can't be
// enqueued because its tick's queue is already at capacity.
type QueueFullError struct {
	Kind string // "action" or "client event"
	Type string
}

func (e *QueueFullError) Error() string {
	return fmt.Sprintf("landkeeper: %s queue full, %q dropped", e.Kind, e.Type)
}

// LandStoppedError is the response every action future still pending at
// shutdown is completed with.
type LandStoppedError struct{}

func (e *LandStoppedError) Error() string {
	return "landkeeper: land stopped"
}

// EncodingError wraps a failure to extract or diff a snapshot.
type EncodingError struct {
	Path string
	Err  error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("landkeeper: encoding error at %q: %v", e.Path, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// ResolverExecutionError reports that a context resolver failed while an
// action was being submitted, or that a replayed action has no recorded
// output for one of its resolvers.
type ResolverExecutionError struct {
	ResolverName string
	Err          error
}

func (e *ResolverExecutionError) Error() string {
	return fmt.Sprintf("landkeeper: resolver %q failed: %v", e.ResolverName, e.Err)
}

func (e *ResolverExecutionError) Unwrap() error {
	return e.Err
}

// CompatibilityError reports that a recorded reevaluation cannot be
// replayed against the currently registered land definition.
type CompatibilityError struct {
	Code    int
	Message string
}

func (e *CompatibilityError) Error() string {
	return fmt.Sprintf("landkeeper: reevaluation incompatible (code %d): %s", e.Code, e.Message)
}

// LandTypeMismatchError reports the recorded land type differs from the
// land definition being replayed against.
func LandTypeMismatchError(recorded, actual string) *CompatibilityError {
	return &CompatibilityError{
		Code:    CodeLandTypeMismatch,
		Message: fmt.Sprintf("recorded land type %q does not match %q", recorded, actual),
	}
}

// SchemaMismatchError reports the recorded schema fingerprint differs
// from the current schema's.
func SchemaMismatchError(recorded, actual string) *CompatibilityError {
	return &CompatibilityError{
		Code:    CodeSchemaMismatch,
		Message: fmt.Sprintf("recorded schema fingerprint %q does not match %q", recorded, actual),
	}
}

// RecordVersionMismatchError reports an unsupported record format version.
func RecordVersionMismatchError(recorded, supported int) *CompatibilityError {
	return &CompatibilityError{
		Code:    CodeRecordVersionMismatch,
		Message: fmt.Sprintf("record version %d is not compatible with supported version %d", recorded, supported),
	}
}

// DivergenceError reports a tick-by-tick state hash mismatch during
// reevaluation.
type DivergenceError struct {
	Tick         uint64
	ExpectedHash uint32
	ActualHash   uint32
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("landkeeper: state diverged at tick %d: expected hash %08x, got %08x", e.Tick, e.ExpectedHash, e.ActualHash)
}

// DefinitionError reports an invalid LandDefinition, such as a
// negative tick interval.
type DefinitionError struct {
	msg string
}

func (e *DefinitionError) Error() string {
	return "landkeeper: " + e.msg
}
