package bot

import (
	"sync"
)

// ScanState is the runtime scan switch and group allow-list. Changes made
// through /aiscan live in memory only and reset on restart.
type ScanState struct {
	mu      sync.RWMutex
	enabled bool
	groups  []int64
}

func NewScanState(enabled bool, groups []int64) *ScanState {
	s := &ScanState{enabled: enabled}
	for _, g := range groups {
		s.addLocked(g)
	}
	return s
}

func (s *ScanState) Enabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

func (s *ScanState) SetEnabled(enabled bool) {
	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()
}

// Groups returns the allow-list in insertion order. Empty means every group.
func (s *ScanState) Groups() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]int64(nil), s.groups...)
}

// Covers reports whether chatID is in scope of the allow-list.
func (s *ScanState) Covers(chatID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.groups) == 0 {
		return true
	}
	return s.indexLocked(chatID) >= 0
}

// AddGroup reports false when the group was already listed.
func (s *ScanState) AddGroup(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(chatID)
}

// RemoveGroup reports false when the group was not listed.
func (s *ScanState) RemoveGroup(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(chatID)
	if i < 0 {
		return false
	}
	s.groups = append(s.groups[:i], s.groups[i+1:]...)
	return true
}

func (s *ScanState) addLocked(chatID int64) bool {
	if s.indexLocked(chatID) >= 0 {
		return false
	}
	s.groups = append(s.groups, chatID)
	return true
}

func (s *ScanState) indexLocked(chatID int64) int {
	for i, g := range s.groups {
		if g == chatID {
			return i
		}
	}
	return -1
}
