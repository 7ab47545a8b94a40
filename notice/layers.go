package notice

// LayerMutingChanged reports layers that were muted or unmuted.
type LayerMutingChanged struct {
	muted   []string
	unmuted []string
}

// NewLayerMutingChanged builds a notice from newly muted and newly unmuted
// layer identifiers.
func NewLayerMutingChanged(muted, unmuted []string) *LayerMutingChanged {
	return &LayerMutingChanged{
		muted:   append([]string(nil), muted...),
		unmuted: append([]string(nil), unmuted...),
	}
}

func (*LayerMutingChanged) TypeID() string  { return TypeLayerMutingChanged }
func (*LayerMutingChanged) Mergeable() bool { return true }

// Copy returns a deep copy.
func (n *LayerMutingChanged) Copy() Notice {
	return NewLayerMutingChanged(n.muted, n.unmuted)
}

// Merge absorbs another *LayerMutingChanged.
func (n *LayerMutingChanged) Merge(other Notice) error {
	o, ok := other.(*LayerMutingChanged)
	if !ok {
		return mismatch(n, other)
	}
	n.Absorb(o)
	return nil
}

// Absorb folds other into n. Muting and unmuting are inverse operations, so
// a layer muted by other cancels a pending unmute of that layer in n and
// vice versa; only the net effect survives. Cancellation only considers the
// entries n held before this call, which keeps a layer that other itself
// both muted and unmuted in both lists. A layer already listed is not
// appended twice.
func (n *LayerMutingChanged) Absorb(other *LayerMutingChanged) {
	unmutedBefore := len(n.unmuted)
	mutedBefore := len(n.muted)

	for _, layer := range other.muted {
		if i := indexOf(n.unmuted[:unmutedBefore], layer); i >= 0 {
			n.unmuted = append(n.unmuted[:i], n.unmuted[i+1:]...)
			unmutedBefore--
			continue
		}
		if indexOf(n.muted, layer) < 0 {
			n.muted = append(n.muted, layer)
		}
	}

	for _, layer := range other.unmuted {
		if i := indexOf(n.muted[:mutedBefore], layer); i >= 0 {
			n.muted = append(n.muted[:i], n.muted[i+1:]...)
			mutedBefore--
			continue
		}
		if indexOf(n.unmuted, layer) < 0 {
			n.unmuted = append(n.unmuted, layer)
		}
	}
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

// MutedLayers returns the newly muted layer identifiers.
func (n *LayerMutingChanged) MutedLayers() []string {
	return append([]string(nil), n.muted...)
}

// UnmutedLayers returns the newly unmuted layer identifiers.
func (n *LayerMutingChanged) UnmutedLayers() []string {
	return append([]string(nil), n.unmuted...)
}
