package models

import (
	"testing"
	"time"
)

func TestRaffleStateNormalized(t *testing.T) {
	cases := []struct {
		in   RaffleState
		want RaffleState
	}{
		{"completado", StateCompleted},
		{"activo", StatePublished},
		{"pausado", StatePublished},
		{StateDraft, StateDraft},
		{StatePublished, StatePublished},
		{StateWaiting, StateWaiting},
		{StateLive, StateLive},
		{StateCompleted, StateCompleted},
	}
	for _, c := range cases {
		if got := c.in.Normalized(); got != c.want {
			t.Errorf("Normalized(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRaffleStateValid(t *testing.T) {
	for _, s := range []RaffleState{StateDraft, StatePublished, StateWaiting, StateLive, StateCompleted, "completado", "activo", "pausado"} {
		if !s.Valid() {
			t.Errorf("Valid(%q) = false, want true", s)
		}
	}
	for _, s := range []RaffleState{"", "archived", "LIVE"} {
		if s.Valid() {
			t.Errorf("Valid(%q) = true, want false", s)
		}
	}
}

func TestRaffleNormalize(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	local := time.Date(2026, 3, 1, 12, 0, 0, 0, loc)
	r := &Raffle{
		State:            "activo",
		CloseAt:          local,
		WaitingEnteredAt: &local,
	}
	r.Normalize()

	if r.State != StatePublished {
		t.Errorf("state = %q, want published", r.State)
	}
	if r.CloseAt.Location() != time.UTC {
		t.Error("closeAt not in UTC")
	}
	if !r.CloseAt.Equal(local) {
		t.Error("closeAt instant changed")
	}
	if r.WaitingEnteredAt.Location() != time.UTC {
		t.Error("waitingEnteredAt not in UTC")
	}
	if r.WaitingUntil != nil {
		t.Error("nil timestamps must stay nil")
	}
}

func TestHasStageWinners(t *testing.T) {
	r := &Raffle{Winners: []WinnerEntry{{Stage: 1}, {Stage: 2}}}
	if !r.HasStageWinners(1) || !r.HasStageWinners(2) {
		t.Error("existing stages not detected")
	}
	if r.HasStageWinners(3) {
		t.Error("stage 3 has no winners")
	}

	single := &Raffle{Winners: []WinnerEntry{{Stage: 0}}}
	if !single.HasStageWinners(0) {
		t.Error("single-prize winners live at stage 0")
	}
}

func TestStageByNumber(t *testing.T) {
	r := &Raffle{Stages: []Stage{{Number: 1}, {Number: 2}}}
	if s := r.StageByNumber(2); s == nil || s.Number != 2 {
		t.Errorf("StageByNumber(2) = %+v", s)
	}
	if r.StageByNumber(0) != nil || r.StageByNumber(3) != nil {
		t.Error("out-of-range stage lookups must return nil")
	}
	if !r.IsFinalStage(2) || r.IsFinalStage(1) {
		t.Error("IsFinalStage misjudged the stage order")
	}
}
