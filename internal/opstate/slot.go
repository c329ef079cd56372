// Package opstate tracks the lifecycle state of every named asynchronous
// operation in the app: loading, transient success, and sticky failure.
package opstate

import "time"

// Priority orders slots for aggregate queries and loading messages.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

// String returns the lowercase name of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	default:
		return "low"
	}
}

// Slot identifies a class of asynchronous work. Slots are a fixed set known
// at build time, not one per request: two concurrent invocations of the same
// operation share one tracked state and the most recent transition wins.
// This mirrors the mobile client and is a documented limitation, not a bug.
type Slot int

const (
	SlotSearchJobs Slot = iota
	SlotJobDetails
	SlotToggleFavorite
	SlotLoadFavorites
	SlotSaveSearch
	SlotLoadSavedSearches
	SlotTrackApplication
	SlotLoadApplications
	SlotCheckAlerts

	numSlots
)

type slotSpec struct {
	name        string
	display     string
	priority    Priority
	timeout     time.Duration
	maxAttempts int
}

var slotSpecs = [numSlots]slotSpec{
	SlotSearchJobs:        {"search_jobs", "Searching jobs", PriorityCritical, 30 * time.Second, 3},
	SlotJobDetails:        {"job_details", "Loading job details", PriorityHigh, 30 * time.Second, 3},
	SlotToggleFavorite:    {"toggle_favorite", "Updating favorite", PriorityMedium, 10 * time.Second, 2},
	SlotLoadFavorites:     {"load_favorites", "Loading favorites", PriorityHigh, 10 * time.Second, 2},
	SlotSaveSearch:        {"save_search", "Saving search", PriorityMedium, 10 * time.Second, 2},
	SlotLoadSavedSearches: {"load_saved_searches", "Loading saved searches", PriorityHigh, 10 * time.Second, 2},
	SlotTrackApplication:  {"track_application", "Updating application", PriorityMedium, 10 * time.Second, 2},
	SlotLoadApplications:  {"load_applications", "Loading applications", PriorityHigh, 10 * time.Second, 2},
	SlotCheckAlerts:       {"check_alerts", "Checking saved searches", PriorityLow, 60 * time.Second, 3},
}

// Slots returns every defined slot in declaration order.
func Slots() []Slot {
	out := make([]Slot, numSlots)
	for i := range out {
		out[i] = Slot(i)
	}
	return out
}

// String returns the stable snake_case identifier of the slot.
func (s Slot) String() string {
	if s < 0 || s >= numSlots {
		return "invalid"
	}
	return slotSpecs[s].name
}

// DisplayName returns the human-readable loading message for the slot.
func (s Slot) DisplayName() string { return slotSpecs[s].display }

// Priority returns the slot's priority tier.
func (s Slot) Priority() Priority { return slotSpecs[s].priority }

// Timeout returns how long the slot may stay Loading before the executor
// forces a timeout failure.
func (s Slot) Timeout() time.Duration { return slotSpecs[s].timeout }

// MaxAttempts returns the default retry ceiling for work run under the slot.
func (s Slot) MaxAttempts() int { return slotSpecs[s].maxAttempts }
