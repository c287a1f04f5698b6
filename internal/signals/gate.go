package signals

// DedupState is the last emitted direction per directional kind plus the squeeze latch.
// It is a value: the gate returns an updated copy instead of mutating shared state.
type DedupState struct {
	Cross     Verdict
	Confirmed Verdict
	Reversion Verdict
	// SqueezeLatched is one-way. Nothing in this package clears it; a new process starts false.
	SqueezeLatched bool
}

func (s DedupState) last(kind Kind) Verdict {
	switch kind {
	case KindCross:
		return s.Cross
	case KindConfirmed:
		return s.Confirmed
	case KindReversion:
		return s.Reversion
	default:
		return Unknown
	}
}

func (s DedupState) with(kind Kind, v Verdict) DedupState {
	switch kind {
	case KindCross:
		s.Cross = v
	case KindConfirmed:
		s.Confirmed = v
	case KindReversion:
		s.Reversion = v
	}
	return s
}

// NotifyIfChanged fires when verdict is a direction different from the stored one.
// Unknown and no-signal verdicts never fire and leave the state untouched.
func NotifyIfChanged(kind Kind, verdict Verdict, state DedupState) (bool, DedupState) {
	if !verdict.IsDirection() {
		return false, state
	}
	if state.last(kind) == verdict {
		return false, state
	}
	return true, state.with(kind, verdict)
}

// NotifySqueeze fires only on the latch's false to true transition.
func NotifySqueeze(sq Squeeze, state DedupState) (bool, DedupState) {
	if !sq.Known || !sq.Active || state.SqueezeLatched {
		return false, state
	}
	state.SqueezeLatched = true
	return true, state
}

// Firing is one gated notification to deliver.
type Firing struct {
	Kind    Kind
	Verdict Verdict
}

// Gate runs every kind of ev through the dedup rules and returns the firings
// in notification order along with the next state.
func Gate(ev Evaluation, state DedupState) ([]Firing, DedupState) {
	var out []Firing
	for _, kind := range DirectionalKinds {
		var fire bool
		v := ev.Verdict(kind)
		fire, state = NotifyIfChanged(kind, v, state)
		if fire {
			out = append(out, Firing{Kind: kind, Verdict: v})
		}
	}
	var fire bool
	fire, state = NotifySqueeze(ev.Squeeze, state)
	if fire {
		out = append(out, Firing{Kind: KindSqueeze})
	}
	return out, state
}
