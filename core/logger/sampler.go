package logger

import "sync"

// keySampler thins out repetitive log lines per key. The first line of a key always
// passes; after that one in every `every` passes and reports how many were held back
// since the previous pass.
type keySampler struct {
	mu     sync.Mutex
	every  int
	counts map[string]int
}

func newKeySampler(every int) *keySampler {
	return &keySampler{every: every, counts: make(map[string]int)}
}

// setEvery changes the ratio. Values below 2 let every line through.
func (s *keySampler) setEvery(every int) {
	s.mu.Lock()
	s.every = every
	s.counts = make(map[string]int)
	s.mu.Unlock()
}

func (s *keySampler) allow(key string) (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.every < 2 {
		return true, 0
	}
	n := s.counts[key]
	s.counts[key] = n + 1
	if n == 0 {
		return true, 0
	}
	if n%s.every == 0 {
		return true, s.every - 1
	}
	return false, 0
}
