package scheduler

import (
	"testing"
	"time"
)

func TestStepRunsFastSystemEveryTick(t *testing.T) {
	s := New()
	var calls int
	s.RegisterSystem("fast.sys", RateFast, func(tick uint64, dt time.Duration) { calls++ })

	s.step()
	s.step()
	s.step()
	if calls != 3 {
		t.Fatalf("expected a fast system to run every tick, got %d calls over 3 ticks", calls)
	}
}

func TestStepRunsMediumAndSlowOnTheirOwnCadence(t *testing.T) {
	s := New()
	var medium, slow int
	s.RegisterSystem("medium.sys", RateMedium, func(tick uint64, dt time.Duration) { medium++ })
	s.RegisterSystem("slow.sys", RateSlow, func(tick uint64, dt time.Duration) { slow++ })

	mediumEvery := rateEveryFastTicks[RateMedium]
	slowEvery := rateEveryFastTicks[RateSlow]

	for i := uint64(0); i < slowEvery; i++ {
		s.step()
	}
	if medium != int(slowEvery/mediumEvery) {
		t.Fatalf("expected medium system to fire every %d ticks, got %d calls over %d ticks", mediumEvery, medium, slowEvery)
	}
	if slow != 1 {
		t.Fatalf("expected slow system to fire exactly once over %d ticks, got %d", slowEvery, slow)
	}
}

func TestWithEnabledGatesSystemPerTick(t *testing.T) {
	s := New()
	enabled := false
	var calls int
	s.RegisterSystem("gated.sys", RateFast, func(tick uint64, dt time.Duration) { calls++ }, WithEnabled(func() bool { return enabled }))

	s.step()
	if calls != 0 {
		t.Fatalf("expected disabled system to be skipped, got %d calls", calls)
	}

	enabled = true
	s.step()
	if calls != 1 {
		t.Fatalf("expected enabled system to run once re-enabled, got %d calls", calls)
	}
}

func TestWithMinEntitiesGatesOnLiveCount(t *testing.T) {
	s := New()
	count := 0
	s.SetHooks(nil, nil, func() int { return count })

	var calls int
	s.RegisterSystem("crowd.sys", RateFast, func(tick uint64, dt time.Duration) { calls++ }, WithMinEntities(2))

	s.step()
	if calls != 0 {
		t.Fatalf("expected system below minEntities to be skipped, got %d calls", calls)
	}

	count = 2
	s.step()
	if calls != 1 {
		t.Fatalf("expected system at minEntities threshold to run, got %d calls", calls)
	}
}

func TestDtScalesWithSpeed(t *testing.T) {
	s := New()
	var gotDt time.Duration
	s.RegisterSystem("dt.sys", RateFast, func(tick uint64, dt time.Duration) { gotDt = dt })

	s.step()
	base := gotDt

	s.SetSpeed(2.0)
	s.step()
	if gotDt != base/2 {
		t.Fatalf("expected dt to halve at 2x speed: base=%v got=%v", base, gotDt)
	}
}

func TestPanickingSystemIsRecoveredAndDoesNotBlockOthers(t *testing.T) {
	s := New()
	var ranAfter bool
	s.RegisterSystem("boom.sys", RateFast, func(tick uint64, dt time.Duration) { panic("boom") })
	s.RegisterSystem("after.sys", RateFast, func(tick uint64, dt time.Duration) { ranAfter = true })

	s.step()
	if !ranAfter {
		t.Fatal("expected a system after a panicking one to still run")
	}
}

func TestSetHooksRunsPreAndPostWithCurrentTick(t *testing.T) {
	s := New()
	var preTick, postTick uint64
	s.SetHooks(
		func(tick uint64) { preTick = tick },
		func(tick uint64) { postTick = tick },
		nil,
	)

	s.step()
	if preTick != 1 || postTick != 1 {
		t.Fatalf("expected both hooks called with tick 1, got pre=%d post=%d", preTick, postTick)
	}
}
