package fsm

import "github.com/codehud/codehud-core/internal/summarize"

// EventKind identifies which variant of Event carries meaningful payload.
type EventKind string

const (
	EventStartFileScan    EventKind = "start_file_scan"
	EventFileSelected     EventKind = "file_selected"
	EventStartProjectScan EventKind = "start_project_scan"
	EventProjectSelected  EventKind = "project_selected"
	EventPhase1Complete   EventKind = "phase1_complete"
	EventPhase2Complete   EventKind = "phase2_complete"
	EventPhase3Complete   EventKind = "phase3_complete"
	EventAllCratesDone    EventKind = "all_crates_done"
	EventSynthesisDone    EventKind = "synthesis_done"
	EventErrorRaised      EventKind = "error"
	EventReset            EventKind = "reset"
)

// Event is dispatched to a Machine to attempt a state transition.
type Event struct {
	Kind EventKind

	Path string // FileSelected

	Root string // ProjectSelected

	CrateName      string // phase-completion events
	ProcessedFiles int
	RemainingFiles int

	CrateSummaries []summarize.CrateSummary // AllCratesDone -> GeneratingFinal
	Result         ScanResult               // SynthesisDone -> Complete

	Message string // ErrorRaised
}
