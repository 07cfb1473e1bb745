// Package state holds the single canonical dashboard snapshot: locations,
// their machines and each machine's jobs, plus the client-side rename
// overlay. Its mutators are the only way the tree changes.
package state

import (
	"errors"
	"fmt"

	"machine-dashboard-client/internal/model"
)

// ErrMachineNotFound is returned when a patch targets an unknown machine id.
var ErrMachineNotFound = errors.New("machine not found")

// Placement says where a new-job event landed.
type Placement int

const (
	PlacedCurrent Placement = iota + 1
	PlacedNext
)

func (p Placement) String() string {
	switch p {
	case PlacedCurrent:
		return "current"
	case PlacedNext:
		return "next"
	}
	return "none"
}

// Action names accepted by ApplyActionResult.
const (
	ActionStart  = "start"
	ActionPause  = "pause"
	ActionStop   = "stop"
	ActionRename = "rename"
)

var actionStatus = map[string]model.MachineStatus{
	ActionStart: model.StatusRunning,
	ActionPause: model.StatusPaused,
	ActionStop:  model.StatusStopped,
}

// ValidAction reports whether action is one of start, pause or stop.
func ValidAction(action string) bool {
	_, ok := actionStatus[action]
	return ok
}

// State is not safe for concurrent use. It is owned by the dashboard
// event loop.
type State struct {
	locations  []model.Location
	workOrders []model.WorkOrder
	overlays   map[model.MachineID]string
	loaded     bool
}

// New returns an empty state.
func New() *State {
	return &State{overlays: make(map[model.MachineID]string)}
}

// Loaded reports whether at least one snapshot has been applied.
func (s *State) Loaded() bool {
	return s.loaded
}

// Locations returns the live tree. Callers must treat it as read-only.
func (s *State) Locations() []model.Location {
	return s.locations
}

// WorkOrders returns the last work-order list received.
func (s *State) WorkOrders() []model.WorkOrder {
	return s.workOrders
}

// SetWorkOrders replaces the cached work-order list.
func (s *State) SetWorkOrders(orders []model.WorkOrder) {
	s.workOrders = orders
}

// ReplaceSnapshot swaps the whole location tree. Rename overlays are
// re-applied by machine id. It returns the ids that were present before and
// are gone now, so their countdowns can be stopped.
func (s *State) ReplaceSnapshot(locations []model.Location) []model.MachineID {
	previous := make(map[model.MachineID]struct{})
	for _, loc := range s.locations {
		for _, m := range loc.Machines {
			previous[m.ID] = struct{}{}
		}
	}

	for li := range locations {
		machines := locations[li].Machines
		for mi := range machines {
			s.applyOverlay(&machines[mi])
			delete(previous, machines[mi].ID)
		}
	}
	s.locations = locations
	s.loaded = true

	removed := make([]model.MachineID, 0, len(previous))
	for id := range previous {
		removed = append(removed, id)
	}
	return removed
}

// ApplyNewJob routes a new-job event to its machine: an idle or jobless
// machine gets it as the current job, a busy one gets it queued as next.
func (s *State) ApplyNewJob(ev model.NewJobEvent) (Placement, error) {
	m, _ := s.find(ev.MachineID)
	if m == nil {
		return 0, fmt.Errorf("new job %s for machine %s: %w", ev.WorkOrder, ev.MachineID, ErrMachineNotFound)
	}

	if m.Job == nil || m.Status == model.StatusIdle {
		m.Job = &model.Job{
			WorkOrder:            ev.WorkOrder,
			Size:                 ev.PipeSize,
			CompletedQty:         0,
			TotalQty:             ev.Qty,
			RemainingTimeSeconds: ev.ETASeconds,
			ProgressPercent:      0,
		}
		return PlacedCurrent, nil
	}

	m.NextJob = &model.QueuedJob{
		MachineID:            ev.MachineID,
		WorkOrder:            ev.WorkOrder,
		Size:                 ev.PipeSize,
		TotalQty:             ev.Qty,
		RemainingTimeSeconds: ev.ETASeconds,
	}
	return PlacedNext, nil
}

// ApplyActionResult replaces one machine's record at its current position.
// When the backend only acknowledged the action, the status implied by the
// action is applied instead.
func (s *State) ApplyActionResult(action, location string, id model.MachineID, updated *model.Machine) (model.Machine, error) {
	m := s.findIn(location, id)
	if m == nil {
		return model.Machine{}, fmt.Errorf("%s on %s/%s: %w", action, location, id, ErrMachineNotFound)
	}

	if updated != nil {
		next := *updated
		next.ID = id
		*m = next
	} else if status, ok := actionStatus[action]; ok {
		m.Status = status
	}
	s.applyOverlay(m)
	return *m, nil
}

// SetRenameOverlay sets the display name for a machine. The overlay
// survives snapshot replacement until it is replaced or cleared.
func (s *State) SetRenameOverlay(id model.MachineID, name string) {
	s.overlays[id] = name
	if m, _ := s.find(id); m != nil {
		m.DisplayName = name
	}
}

// ClearOverlays drops all rename overlays (logout).
func (s *State) ClearOverlays() {
	s.overlays = make(map[model.MachineID]string)
	for li := range s.locations {
		for mi := range s.locations[li].Machines {
			s.applyOverlay(&s.locations[li].Machines[mi])
		}
	}
}

// Machine returns a copy of the machine and the location that holds it.
func (s *State) Machine(id model.MachineID) (model.Machine, string, bool) {
	m, loc := s.find(id)
	if m == nil {
		return model.Machine{}, "", false
	}
	return *m, loc, true
}

func (s *State) applyOverlay(m *model.Machine) {
	if name, ok := s.overlays[m.ID]; ok && name != "" {
		m.DisplayName = name
		return
	}
	m.DisplayName = m.Name
}

// find scans every location; machine counts are small.
func (s *State) find(id model.MachineID) (*model.Machine, string) {
	for li := range s.locations {
		machines := s.locations[li].Machines
		for mi := range machines {
			if machines[mi].ID == id {
				return &machines[mi], s.locations[li].Name
			}
		}
	}
	return nil, ""
}

func (s *State) findIn(location string, id model.MachineID) *model.Machine {
	if location == "" {
		m, _ := s.find(id)
		return m
	}
	for li := range s.locations {
		if s.locations[li].Name != location {
			continue
		}
		machines := s.locations[li].Machines
		for mi := range machines {
			if machines[mi].ID == id {
				return &machines[mi]
			}
		}
	}
	return nil
}
