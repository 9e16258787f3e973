package logger

import "testing"

func TestKeySamplerFirstThenEveryN(t *testing.T) {
	s := newKeySampler(3)
	type step struct {
		keep bool
		held int
	}
	want := []step{{true, 0}, {false, 0}, {false, 0}, {true, 2}, {false, 0}, {false, 0}, {true, 2}}
	for i, w := range want {
		keep, held := s.allow("skip.self")
		if keep != w.keep || held != w.held {
			t.Fatalf("call %d = (%v, %d), want (%v, %d)", i, keep, held, w.keep, w.held)
		}
	}
	if keep, _ := s.allow("skip.unknown_command"); !keep {
		t.Fatal("first line of a new key must pass")
	}
}

func TestKeySamplerDisabled(t *testing.T) {
	s := newKeySampler(50)
	s.setEvery(1)
	for i := 0; i < 5; i++ {
		if keep, held := s.allow("http.healthz"); !keep || held != 0 {
			t.Fatalf("call %d = (%v, %d)", i, keep, held)
		}
	}
}

func TestSampleEveryDefault(t *testing.T) {
	if got := sampleEvery(nil); got != defaultSampleEvery {
		t.Fatalf("nil config = %d", got)
	}
}
