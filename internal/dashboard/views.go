package dashboard

import (
	"context"

	"machine-dashboard-client/internal/model"
	"machine-dashboard-client/internal/render"
)

// Session returns the current session. The zero value means logged out.
func (d *Dashboard) Session(ctx context.Context) (model.Session, error) {
	var sess model.Session
	err := d.do(ctx, func() { sess = d.session })
	return sess, err
}

// SetSession installs sess and renders the board for it.
func (d *Dashboard) SetSession(ctx context.Context, sess model.Session) error {
	return d.do(ctx, func() {
		d.session = sess
		d.rerender(true)
	})
}

// Logout tears the view down: every card and countdown goes, rename
// overlays and alert history are dropped.
func (d *Dashboard) Logout(ctx context.Context) error {
	return d.do(ctx, func() {
		d.session = model.Session{}
		d.filters = render.Filters{}
		d.state.ClearOverlays()
		d.renderer.Clear()
		d.countdowns.StopAll()
		d.engine.Reset()
		d.feed.Clear()
		d.view = render.View{}
		d.rendered = false
	})
}

// Board returns the rendered board for f. The board is only rebuilt when
// the filters differ from the previous request; otherwise the live cards,
// whose countdown text keeps moving, are returned as they are.
func (d *Dashboard) Board(ctx context.Context, f render.Filters) (render.View, bool, error) {
	var view render.View
	var loaded bool
	err := d.do(ctx, func() {
		loaded = d.state.Loaded()
		if !d.rendered || f != d.filters {
			d.filters = f
			d.rerender(false)
		}
		view = d.view
	})
	return view, loaded, err
}

// Machine returns one machine from the state.
func (d *Dashboard) Machine(ctx context.Context, id model.MachineID) (model.Machine, string, bool, error) {
	var (
		m   model.Machine
		loc string
		ok  bool
	)
	err := d.do(ctx, func() { m, loc, ok = d.state.Machine(id) })
	return m, loc, ok, err
}

// ProductionLogs fetches the most recent production log rows.
func (d *Dashboard) ProductionLogs(ctx context.Context) ([]model.ProductionLog, error) {
	logs, err := d.backend.ProductionLogs(ctx, d.opts.ProductionLogLimit)
	if err != nil {
		log.WithError(err).Warn("failed to fetch production logs")
		return nil, err
	}
	return logs, nil
}

// WorkOrders fetches the ERP work orders and caches them in the state.
// When the backend is unreachable the last list received is returned
// together with the error.
func (d *Dashboard) WorkOrders(ctx context.Context) ([]model.WorkOrder, error) {
	orders, ferr := d.backend.WorkOrders(ctx)
	err := d.do(ctx, func() {
		if ferr == nil {
			d.state.SetWorkOrders(orders)
			return
		}
		orders = d.state.WorkOrders()
	})
	if err != nil {
		return nil, err
	}
	if ferr != nil {
		log.WithError(ferr).Warn("failed to fetch work orders; serving cached list")
	}
	return orders, ferr
}
