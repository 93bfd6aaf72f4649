package models

import dErrors "dlvery/pkg/domain-errors"

// Priority orders deliveries on the agent dashboard.
type Priority string

const (
	PriorityEmergency  Priority = "EMERGENCY"
	PriorityPerishable Priority = "PERISHABLE"
	PriorityEssential  Priority = "ESSENTIAL"
	PriorityStandard   Priority = "STANDARD"
	PriorityLow        Priority = "LOW"
)

var priorityLevels = map[Priority]int{
	PriorityEmergency:  1,
	PriorityPerishable: 2,
	PriorityEssential:  3,
	PriorityStandard:   4,
	PriorityLow:        5,
}

// ParsePriority validates s. An empty value defaults to STANDARD.
func ParsePriority(s string) (Priority, error) {
	if s == "" {
		return PriorityStandard, nil
	}
	p := Priority(s)
	if _, ok := priorityLevels[p]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid delivery priority: "+s)
	}
	return p, nil
}

// Level is the sort key; lower is more urgent. Unknown priorities sort last.
func (p Priority) Level() int {
	if l, ok := priorityLevels[p]; ok {
		return l
	}
	return len(priorityLevels) + 1
}
