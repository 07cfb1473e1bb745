package dashboard

import (
	"machine-dashboard-client/internal/alert"
	"machine-dashboard-client/internal/model"
)

// OnOpen implements transport.Handler.
func (d *Dashboard) OnOpen() {
	d.pushOpen.Store(true)
	d.post(func() {
		d.feed.Raise(model.SeveritySuccess, "Connected to live updates")
	})
}

// OnClose implements transport.Handler.
func (d *Dashboard) OnClose(err error) {
	wasOpen := d.pushOpen.Swap(false)
	d.post(func() {
		d.feed.Raise(model.SeverityWarn, "Live updates disconnected, reconnecting")
	})
	if wasOpen && d.fallback != nil {
		d.fallback()
	}
}

// OnMalformed implements transport.Handler.
func (d *Dashboard) OnMalformed(err error) {
	d.post(func() {
		d.feed.Raise(model.SeverityError, "Malformed live update: "+err.Error())
	})
}

// OnMessage implements transport.Handler. A snapshot and a new-job event in
// the same message are applied in that order. A message carrying the
// request id of one of our own pending actions is the backend echoing that
// action and is skipped.
func (d *Dashboard) OnMessage(msg model.PushMessage) {
	d.post(func() {
		if msg.RequestID != "" {
			if _, ok := d.pending.Get(msg.RequestID); ok {
				d.pending.Delete(msg.RequestID)
				log.WithField("request_id", msg.RequestID).Debug("skipping echo of own action")
				return
			}
		}

		if msg.HasLocations {
			d.applySnapshot(msg.Locations)
		}
		if msg.HasWorkOrders {
			d.state.SetWorkOrders(msg.WorkOrders)
		}
		if msg.NewJob != nil {
			d.applyNewJob(*msg.NewJob)
		}
		if msg.Alert != nil {
			if !d.engine.Acknowledge(msg.Alert.MachineID, msg.Alert.Level) {
				log.WithField("machine", msg.Alert.MachineID).Debug("band already alerted")
				return
			}
			_, location, _ := d.state.Machine(msg.Alert.MachineID)
			d.feed.Push(alert.FromBackend(*msg.Alert, location))
		}
	})
}
