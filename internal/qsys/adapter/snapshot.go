package adapter

import (
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-qsys/internal/qsys"
)

// MatchChangedFunc receives the matching snapshot number, 0 when none matches.
type MatchChangedFunc func(componentName string, number int)

// Snapshot drives a snapshot bank: recall, store and match indication.
type Snapshot struct {
	base

	mu             sync.RWMutex
	bank           int
	loadSlots      []*qsys.ControlSlot
	saveSlots      []*qsys.ControlSlot
	matchSlots     []*qsys.ControlSlot
	match          int
	onMatchChanged MatchChangedFunc
}

// NewSnapshot creates a Snapshot that resolves its Core through dir.
func NewSnapshot(dir *qsys.Directory, logger Logger) *Snapshot {
	s := &Snapshot{}
	s.base.configure(KindSnapshot, dir, logger, s.rebind)
	return s
}

// MaxBank is the largest snapshot bank an adapter accepts.
const MaxBank = 64

// Initialize binds the Snapshot to a bank of size snapshots of
// componentName on coreID. Only the first call has an effect.
func (s *Snapshot) Initialize(coreID, componentName string, bank int) error {
	return s.initialize(coreID, componentName, func() error {
		if bank < 1 || bank > MaxBank {
			return fmt.Errorf("%w: snapshot bank size %d (1..%d)", ErrInvalidIndex, bank, MaxBank)
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		s.bank = bank
		s.loadSlots = make([]*qsys.ControlSlot, bank)
		s.saveSlots = make([]*qsys.ControlSlot, bank)
		s.matchSlots = make([]*qsys.ControlSlot, bank)
		for i := 0; i < bank; i++ {
			n := i + 1
			s.loadSlots[i] = qsys.NewControlSlot(nil)
			s.saveSlots[i] = qsys.NewControlSlot(nil)
			s.matchSlots[i] = qsys.NewControlSlot(func(e qsys.StateEvent) {
				s.handleMatch(n, e)
			})
		}
		return nil
	})
}

// Bank returns the number of snapshots in the bank.
func (s *Snapshot) Bank() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bank
}

// ControlNames returns the controls the Snapshot resolves.
func (s *Snapshot) ControlNames() []string {
	bank := s.Bank()
	names := make([]string, 0, 3*bank)
	for n := 1; n <= bank; n++ {
		names = append(names, SnapshotLoadName(n), SnapshotSaveName(n), SnapshotMatchName(n))
	}
	return names
}

// SetOnMatchChanged sets the callback for match feedback.
func (s *Snapshot) SetOnMatchChanged(fn MatchChangedFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onMatchChanged = fn
}

// CurrentMatch returns the snapshot that currently matches, or 0.
func (s *Snapshot) CurrentMatch() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.match
}

// LoadSnapshot recalls snapshot number.
func (s *Snapshot) LoadSnapshot(number int) error {
	return s.trigger(number, func() []*qsys.ControlSlot { return s.loadSlots })
}

// SaveSnapshot stores the live state into snapshot number.
func (s *Snapshot) SaveSnapshot(number int) error {
	return s.trigger(number, func() []*qsys.ControlSlot { return s.saveSlots })
}

func (s *Snapshot) trigger(number int, slots func() []*qsys.ControlSlot) error {
	if !s.Initialized() {
		return ErrNotInitialized
	}

	s.mu.RLock()
	bank := s.bank
	list := slots()
	s.mu.RUnlock()

	if number < 1 || number > bank {
		return fmt.Errorf("%w: snapshot %d of %d", ErrInvalidIndex, number, bank)
	}
	return s.send(list[number-1], func(c *qsys.Control) error {
		return c.SendChangeDoubleValue(1)
	})
}

func (s *Snapshot) rebind(component *qsys.Component) {
	s.mu.RLock()
	loads, saves, matches := s.loadSlots, s.saveSlots, s.matchSlots
	s.mu.RUnlock()

	for i := range loads {
		n := i + 1
		if component == nil {
			loads[i].Bind(nil)
			saves[i].Bind(nil)
			matches[i].Bind(nil)
			continue
		}
		// Triggers need no feedback.
		loads[i].Bind(component.LazyLoadControl(SnapshotLoadName(n), false))
		saves[i].Bind(component.LazyLoadControl(SnapshotSaveName(n), false))
		matches[i].Bind(component.LoadControl(SnapshotMatchName(n)))
	}
}

// handleMatch tracks which snapshot matches. A snapshot that stops matching
// clears the match only if it was the current one.
func (s *Snapshot) handleMatch(number int, e qsys.StateEvent) {
	s.mu.Lock()
	previous := s.match
	switch {
	case e.State.BoolValue:
		s.match = number
	case s.match == number:
		s.match = 0
	}
	current := s.match
	fn := s.onMatchChanged
	s.mu.Unlock()

	if fn != nil && current != previous {
		fn(s.ComponentName(), current)
	}
}
