package signals

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func countFires(kind Kind, seq []Verdict) int {
	var state DedupState
	fires := 0
	for _, v := range seq {
		var fire bool
		fire, state = NotifyIfChanged(kind, v, state)
		if fire {
			fires++
		}
	}
	return fires
}

func TestDedupIdempotence(t *testing.T) {
	assert.Equal(t, 1, countFires(KindCross, []Verdict{Long, Long, Long}))
	assert.Equal(t, 1, countFires(KindCross, []Verdict{Long, Long, Long, Long, Long, Long}))
}

func TestDedupRetrigger(t *testing.T) {
	assert.Equal(t, 3, countFires(KindConfirmed, []Verdict{Long, Short, Long}))
}

func TestNoSignalIsInert(t *testing.T) {
	assert.Equal(t, 1, countFires(KindReversion, []Verdict{Long, NoSignal, Long}))
	assert.Equal(t, 1, countFires(KindReversion, []Verdict{Long, Unknown, Long}))
	assert.Equal(t, 0, countFires(KindReversion, []Verdict{NoSignal, Unknown, NoSignal}))
}

func TestNotifyIfChangedUpdatesOnlyItsKind(t *testing.T) {
	fire, state := NotifyIfChanged(KindCross, Long, DedupState{})
	assert.True(t, fire)
	assert.Equal(t, Long, state.Cross)
	assert.Equal(t, Unknown, state.Confirmed)
	assert.Equal(t, Unknown, state.Reversion)

	fire, next := NotifyIfChanged(KindCross, NoSignal, state)
	assert.False(t, fire)
	assert.Equal(t, state, next)
}

func TestVolatilityLatchOneWay(t *testing.T) {
	th := DefaultThresholds()
	var state DedupState
	fires := 0
	for _, width := range []float64{0.01, 0.01, 0.03, 0.01} {
		sq := Squeeze{Known: true, Bandwidth: width, Active: width < th.SqueezeMaxWidth}
		var fire bool
		fire, state = NotifySqueeze(sq, state)
		if fire {
			fires++
		}
	}
	assert.Equal(t, 1, fires)
	assert.True(t, state.SqueezeLatched)
}

func TestUnknownSqueezeDoesNotLatch(t *testing.T) {
	fire, state := NotifySqueeze(Squeeze{Active: true}, DedupState{})
	assert.False(t, fire)
	assert.False(t, state.SqueezeLatched)
}

func TestGateOrderAndState(t *testing.T) {
	ev := Evaluation{Cross: Long, Confirmed: NoSignal, Reversion: Short, Squeeze: Squeeze{Known: true, Active: true}}

	firings, state := Gate(ev, DedupState{})
	assert.Equal(t, []Firing{
		{Kind: KindCross, Verdict: Long},
		{Kind: KindReversion, Verdict: Short},
		{Kind: KindSqueeze},
	}, firings)

	firings, _ = Gate(ev, state)
	assert.Empty(t, firings)
}
