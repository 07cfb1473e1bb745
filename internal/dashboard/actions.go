package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"machine-dashboard-client/internal/model"
	"machine-dashboard-client/internal/render"
	"machine-dashboard-client/internal/state"
)

var (
	// ErrUnknownAction is returned for anything but start, pause, stop.
	ErrUnknownAction = errors.New("unknown action")
	// ErrNotPermitted is returned when the session lacks the capability.
	ErrNotPermitted = errors.New("not permitted for this session")
	// ErrEmptyName is returned for a blank rename.
	ErrEmptyName = errors.New("new name is empty")
)

// target is what an action resolves to on the loop before the request goes
// out.
type target struct {
	machine   model.Machine
	location  string
	requestID string
}

// resolve checks the machine and the session capability on the loop and
// registers a pending request id for echo suppression.
func (d *Dashboard) resolve(ctx context.Context, location string, id model.MachineID, allowed func(model.Session, string) bool) (target, error) {
	var t target
	var rerr error
	err := d.do(ctx, func() {
		m, loc, ok := d.state.Machine(id)
		if !ok || (location != "" && loc != location) {
			rerr = fmt.Errorf("machine %s in %q: %w", id, location, state.ErrMachineNotFound)
			return
		}
		if !allowed(d.session, loc) {
			rerr = ErrNotPermitted
			return
		}
		t = target{machine: m, location: loc, requestID: uuid.NewString()}
		d.pending.SetDefault(t.requestID, id)
	})
	if err != nil {
		return t, err
	}
	return t, rerr
}

// failed surfaces a request error and forgets the pending id. State is not
// touched.
func (d *Dashboard) failed(ctx context.Context, t target, verb string, err error) error {
	werr := fmt.Errorf("%s %s: %w", verb, t.machine.Label(), err)
	_ = d.do(ctx, func() {
		d.pending.Delete(t.requestID)
		d.feed.Raise(model.SeverityError, "Failed to "+verb+" "+t.machine.Label()+": "+err.Error())
	})
	log.WithError(err).WithFields(logrus.Fields{"machine": t.machine.ID, "action": verb}).Warn("action failed")
	return werr
}

// Dispatch sends start, pause or stop for one machine. On success the
// returned record is applied and only that machine's card is re-rendered,
// without waiting for the next snapshot. On failure an error alert is
// raised and the state is left as it was.
func (d *Dashboard) Dispatch(ctx context.Context, action, location string, id model.MachineID) (model.Machine, error) {
	if !state.ValidAction(action) {
		return model.Machine{}, fmt.Errorf("%q: %w", action, ErrUnknownAction)
	}

	t, err := d.resolve(ctx, location, id, render.CanControl)
	if err != nil {
		return model.Machine{}, err
	}

	updated, err := d.backend.MachineAction(ctx, action, t.location, id, t.requestID)
	if err != nil {
		return model.Machine{}, d.failed(ctx, t, action, err)
	}

	var result model.Machine
	var aerr error
	err = d.do(ctx, func() {
		m, err := d.state.ApplyActionResult(action, t.location, id, updated)
		if err != nil {
			// The machine left the board while the request was in flight.
			aerr = err
			return
		}
		result = m
		d.renderOne(t.location, m)
		for _, a := range d.engine.Observe(t.location, m) {
			d.feed.Push(a)
		}
	})
	if err != nil {
		return model.Machine{}, err
	}
	if aerr != nil {
		return model.Machine{}, aerr
	}

	log.WithFields(logrus.Fields{"machine": id, "action": action, "status": result.Status}).Info("action applied")
	return result, nil
}

// Rename sets a new display name for one machine. The name is kept as a
// client-side overlay that survives later snapshots.
func (d *Dashboard) Rename(ctx context.Context, location string, id model.MachineID, newName string) (model.Machine, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return model.Machine{}, ErrEmptyName
	}

	t, err := d.resolve(ctx, location, id, func(s model.Session, _ string) bool { return render.CanRename(s) })
	if err != nil {
		return model.Machine{}, err
	}

	if err := d.backend.Rename(ctx, t.location, id, newName, t.requestID); err != nil {
		return model.Machine{}, d.failed(ctx, t, "rename", err)
	}

	var result model.Machine
	err = d.do(ctx, func() {
		d.state.SetRenameOverlay(id, newName)
		m, loc, ok := d.state.Machine(id)
		if !ok {
			return
		}
		result = m
		d.renderOne(loc, m)
	})
	if err != nil {
		return model.Machine{}, err
	}

	log.WithFields(logrus.Fields{"machine": id, "name": newName}).Info("machine renamed")
	return result, nil
}
