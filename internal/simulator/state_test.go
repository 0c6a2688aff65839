package simulator

import (
	"testing"
	"time"
)

func TestTickKeepsOddsInsideClamp(t *testing.T) {
	s := NewState(StaticCatalog(time.Now()), 0.05, 1.01, 10.00)

	for i := 0; i < 200; i++ {
		for _, u := range s.Tick() {
			if u.TeamAOdds < 1.01 || u.TeamAOdds > 10.00 ||
				u.TeamBOdds < 1.01 || u.TeamBOdds > 10.00 {
				t.Fatalf("odd fora do grampo no tick %d: %+v", i, u)
			}
			if u.DrawOdds != nil && (*u.DrawOdds < 1.01 || *u.DrawOdds > 10.00) {
				t.Fatalf("draw fora do grampo: %+v", u)
			}
		}
	}
}

func TestTickAdvancesCurrentOdds(t *testing.T) {
	s := NewState(StaticCatalog(time.Now()), 0.05, 1.01, 10.00)
	before := s.Odds()

	// com ±5% por tick, 50 ticks têm que mexer em alguma odd
	for i := 0; i < 50; i++ {
		s.Tick()
	}
	after := s.Odds()

	changed := false
	for i := range before {
		if before[i].TeamAOdds != after[i].TeamAOdds {
			changed = true
		}
	}
	if !changed {
		t.Fatal("odds correntes não andaram")
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	s := NewState(StaticCatalog(time.Now()), 0.05, 1.01, 10.00)

	ms := s.Matches()
	ms[0].TeamA = "alterado"
	if s.Matches()[0].TeamA == "alterado" {
		t.Fatal("Matches deveria devolver cópia")
	}

	if len(s.Odds()) != 4 {
		t.Fatalf("catálogo estático tem 4 odds, veio %d", len(s.Odds()))
	}
}
