package landkeeper

// PolicyKind distinguishes the variants of SyncPolicy.
type PolicyKind uint8

const (
	// PolicyServerOnly never leaves the authoritative process.
	PolicyServerOnly PolicyKind = iota
	// PolicyBroadcast is visible, unfiltered, to every observer.
	PolicyBroadcast
	// PolicyPerPlayer is computed independently for each observer.
	PolicyPerPlayer
	// PolicyMasked applies the same value transform for every observer,
	// derived from the current value rather than a fixed substitute.
	PolicyMasked
	// PolicyCustom delegates both visibility and value transformation to a
	// user function.
	PolicyCustom
)

// PerPlayerFunc computes the value a given observer should see. Returning
// ok=false omits the field entirely for that observer.
type PerPlayerFunc func(viewer PlayerID, value interface{}) (out interface{}, ok bool)

// MaskFunc derives the masked value shown identically to every observer
// from the current raw value, e.g. truncating a secret string to a
// fixed-length prefix plus an ellipsis.
type MaskFunc func(value interface{}) interface{}

// CustomFunc has full control: it receives the unfiltered value and
// returns the per-viewer value plus whether it should be emitted at all.
type CustomFunc func(viewer PlayerID, value interface{}) (out interface{}, ok bool)

// SyncPolicy governs what an observer's snapshot contains for a given
// field: the raw value (ServerOnly never included, Broadcast always),
// a per-player computation, or a masked substitute.
type SyncPolicy struct {
	kind      PolicyKind
	perPlayer PerPlayerFunc
	mask      MaskFunc
	custom    CustomFunc
}

// ServerOnly constructs a policy that never reaches any observer.
func ServerOnly() SyncPolicy {
	return SyncPolicy{kind: PolicyServerOnly}
}

// Broadcast constructs a policy visible identically to every observer.
func Broadcast() SyncPolicy {
	return SyncPolicy{kind: PolicyBroadcast}
}

// PerPlayer constructs a policy computed independently per observer.
func PerPlayer(fn PerPlayerFunc) SyncPolicy {
	return SyncPolicy{kind: PolicyPerPlayer, perPlayer: fn}
}

// Masked constructs a policy that shows every observer the same value,
// computed from the current value by mask.
func Masked(mask MaskFunc) SyncPolicy {
	return SyncPolicy{kind: PolicyMasked, mask: mask}
}

// Custom constructs a policy with full per-viewer control.
func Custom(fn CustomFunc) SyncPolicy {
	return SyncPolicy{kind: PolicyCustom, custom: fn}
}

// Kind reports which variant this policy is.
func (p SyncPolicy) Kind() PolicyKind {
	return p.kind
}

// Resolve computes what a specific viewer should see of value under this
// policy. ok=false means the field is omitted from that viewer's
// snapshot/diff entirely.
func (p SyncPolicy) Resolve(viewer PlayerID, value interface{}) (out interface{}, ok bool) {
	switch p.kind {
	case PolicyServerOnly:
		return nil, false
	case PolicyBroadcast:
		return value, true
	case PolicyPerPlayer:
		if p.perPlayer == nil {
			return nil, false
		}
		return p.perPlayer(viewer, value)
	case PolicyMasked:
		if p.mask == nil {
			return nil, false
		}
		return p.mask(value), true
	case PolicyCustom:
		if p.custom == nil {
			return nil, false
		}
		return p.custom(viewer, value)
	default:
		return nil, false
	}
}
