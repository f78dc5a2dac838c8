package registry

import "strings"

// ProgressInterpreter maps free-form executor output to progress milestones.
// Substring matching on process output is fragile against executor changes,
// so it lives behind this interface; a structured-event executor protocol
// can replace it without touching the state machine.
type ProgressInterpreter interface {
	Interpret(line string) (percent int, ok bool)
}

type milestone struct {
	substring string
	percent   int
}

// MilestoneInterpreter detects well-known phases of the erase tool's output.
type MilestoneInterpreter struct {
	milestones []milestone
}

var _ ProgressInterpreter = (*MilestoneInterpreter)(nil)

func NewMilestoneInterpreter() *MilestoneInterpreter {
	return &MilestoneInterpreter{
		milestones: []milestone{
			{"starting erase", 5},
			{"unmounting", 10},
			{"writing pass 1", 25},
			{"writing pass 2", 45},
			{"writing pass 3", 65},
			{"verifying", 85},
			{"finalizing", 95},
			{"erase complete", 100},
		},
	}
}

func (m *MilestoneInterpreter) Interpret(line string) (int, bool) {
	lower := strings.ToLower(line)
	for _, ms := range m.milestones {
		if strings.Contains(lower, ms.substring) {
			return ms.percent, true
		}
	}
	return 0, false
}
