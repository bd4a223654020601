package domain

import (
	"sync"
	"time"
)

// Status is written by the sync driver only and read by anyone.
type Status struct {
	lock       *sync.RWMutex
	lastCheck  time.Time
	lastUpdate time.Time
	running    bool
}

type StatusView struct {
	LastCheck  time.Time `json:"last_check"`
	LastUpdate time.Time `json:"last_update"`
	Running    bool      `json:"running"`
}

func NewStatus() *Status {
	return &Status{lock: &sync.RWMutex{}}
}

func (s *Status) View() StatusView {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return StatusView{LastCheck: s.lastCheck, LastUpdate: s.lastUpdate, Running: s.running}
}

func (s *Status) begin(now time.Time) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.running = true
	s.lastCheck = now
}

func (s *Status) finish(now time.Time, updated bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.running = false
	if updated {
		s.lastUpdate = now
	}
}
