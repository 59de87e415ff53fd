package mapview

import "fmt"

// SlotHooks are called around the lifecycle of the engine held by a Slot.
type SlotHooks struct {
	OnAcquire func(Engine)
	OnDispose func(Engine, error)
}

// Slot owns at most one engine for a mount point. The previous engine is always disposed
// before a new one is created.
type Slot struct {
	mount  string
	engine Engine
	hooks  SlotHooks
}

// NewSlot creates an empty slot for the mount point.
func NewSlot(mount string, hooks SlotHooks) *Slot {
	return &Slot{mount: mount, hooks: hooks}
}

// Acquire disposes the current engine, if any, and creates a new one. A failed removal
// is reported to OnDispose only; the slot is empty by then and the new engine is created.
func (s *Slot) Acquire(factory EngineFactory, opts EngineOptions) (Engine, error) {
	_ = s.Dispose()

	engine, err := factory.NewEngine(s.mount, opts)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	s.engine = engine
	if s.hooks.OnAcquire != nil {
		s.hooks.OnAcquire(engine)
	}
	return engine, nil
}

// Dispose removes the held engine. Safe to call on an empty slot.
// The slot is empty afterwards even if removal fails.
func (s *Slot) Dispose() error {
	if s.engine == nil {
		return nil
	}
	engine := s.engine
	s.engine = nil

	err := engine.Remove()
	if s.hooks.OnDispose != nil {
		s.hooks.OnDispose(engine, err)
	}
	return err
}

// Engine returns the held engine, or nil.
func (s *Slot) Engine() Engine {
	return s.engine
}

// Mount returns the mount point of the slot.
func (s *Slot) Mount() string {
	return s.mount
}
