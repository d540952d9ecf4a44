package fsm

import (
	"sync"

	"github.com/codehud/codehud-core/internal/logging"
)

// Machine holds the current State behind a mutex and applies one
// transition per Dispatch call. An event that the current state does not
// accept is logged and ignored — the state does not change and Dispatch
// returns ok=false.
type Machine struct {
	mu     sync.Mutex
	state  State
	logger *logging.Logger
}

// NewMachine creates a Machine in the Ready state.
func NewMachine(logger *logging.Logger) *Machine {
	return &Machine{state: Ready(), logger: logger}
}

// Current returns the machine's current state.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Dispatch attempts to transition the machine on event. Reset is accepted
// from any state, including terminal ones. Every other transition is only
// accepted from the state the pipeline expects it in.
func (m *Machine) Dispatch(event Event) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if event.Kind == EventReset {
		m.state = Ready()
		return m.state, true
	}

	next, ok := transition(m.state, event)
	if !ok {
		m.logger.Warn("invalid FSM transition, ignored", map[string]interface{}{
			"state": m.state.Kind,
			"event": event.Kind,
		})
		return m.state, false
	}
	m.state = next
	return m.state, true
}

func transition(current State, event Event) (State, bool) {
	switch {
	case current.Kind == KindReady && event.Kind == EventStartFileScan:
		return State{Kind: KindFilePickerMode}, true

	case current.Kind == KindFilePickerMode && event.Kind == EventFileSelected:
		return State{Kind: KindScanningFile, Path: event.Path}, true

	case current.Kind == KindReady && event.Kind == EventStartProjectScan:
		return State{Kind: KindCrateGrouping}, true

	case current.Kind == KindCrateGrouping && event.Kind == EventProjectSelected:
		return State{Kind: KindCrateGrouping, Root: event.Root}, true

	case current.Kind == KindCrateGrouping && event.Kind == EventPhase1Complete,
		current.Kind == KindCratePhase3Summary && event.Kind == EventPhase1Complete:
		return State{
			Kind:           KindCratePhase1Files,
			CrateName:      event.CrateName,
			ProcessedFiles: event.ProcessedFiles,
			RemainingFiles: event.RemainingFiles,
		}, true

	case current.Kind == KindCratePhase1Files && event.Kind == EventPhase2Complete:
		return State{Kind: KindCratePhase2Subcrates, CrateName: event.CrateName}, true

	case current.Kind == KindCratePhase2Subcrates && event.Kind == EventPhase3Complete:
		return State{Kind: KindCratePhase3Summary, CrateName: event.CrateName}, true

	case current.Kind == KindCratePhase3Summary && event.Kind == EventAllCratesDone:
		return State{Kind: KindGeneratingFinal, CrateSummaries: event.CrateSummaries}, true

	case current.Kind == KindGeneratingFinal && event.Kind == EventSynthesisDone:
		return State{Kind: KindComplete, Result: event.Result}, true

	case current.Kind == KindScanningFile && event.Kind == EventSynthesisDone:
		return State{Kind: KindComplete, Result: event.Result}, true

	case event.Kind == EventErrorRaised && !isTerminal(current.Kind):
		return State{Kind: KindError, Message: event.Message}, true
	}
	return State{}, false
}
