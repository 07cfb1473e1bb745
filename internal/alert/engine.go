// Package alert derives progress alerts from dashboard state and keeps the
// short-lived alert feed shown to the user.
package alert

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"machine-dashboard-client/internal/model"
)

var log = logrus.WithField("component", "alert")

// Band is a half-open progress interval with its own alert.
type Band int

const (
	BandNone     Band = iota // [0,75)
	BandWarning              // [75,90)
	BandCritical             // [90,100)
	BandComplete             // [100,inf)
)

// BandFor classifies a progress percentage.
func BandFor(percent float64) Band {
	switch {
	case percent >= 100:
		return BandComplete
	case percent >= 90:
		return BandCritical
	case percent >= 75:
		return BandWarning
	default:
		return BandNone
	}
}

// Severity returns the alert severity of the band.
func (b Band) Severity() model.Severity {
	switch b {
	case BandWarning:
		return model.SeverityWarn
	case BandCritical:
		return model.SeverityError
	case BandComplete:
		return model.SeveritySuccess
	}
	return model.SeverityInfo
}

func bandMessage(b Band, name string, percent float64) string {
	switch b {
	case BandWarning:
		return fmt.Sprintf("%s Warning %.1f%%", name, percent)
	case BandCritical:
		return fmt.Sprintf("%s CRITICAL %.1f%%", name, percent)
	case BandComplete:
		return fmt.Sprintf("Machine %s COMPLETED", name)
	}
	return ""
}

// Engine remembers the last band alerted per machine so a machine that
// stays in a band does not alert again on every snapshot.
type Engine struct {
	last map[model.MachineID]Band
}

// NewEngine returns an engine with no history.
func NewEngine() *Engine {
	return &Engine{last: make(map[model.MachineID]Band)}
}

// Derive scans every machine with an active job and returns one alert per
// machine whose band changed since the previous evaluation. Falling below
// 75% or losing the job clears the history for that machine.
func (e *Engine) Derive(locations []model.Location) []model.Alert {
	var alerts []model.Alert
	seen := make(map[model.MachineID]struct{})

	for _, loc := range locations {
		for _, m := range loc.Machines {
			seen[m.ID] = struct{}{}
			if m.Job == nil {
				delete(e.last, m.ID)
				continue
			}
			band := BandFor(m.Job.ProgressPercent)
			if band == e.last[m.ID] {
				continue
			}
			e.last[m.ID] = band
			if band == BandNone {
				continue
			}
			alerts = append(alerts, model.Alert{
				Message:   bandMessage(band, m.Label(), m.Job.ProgressPercent),
				Severity:  band.Severity(),
				MachineID: m.ID,
				Location:  loc.Name,
			})
		}
	}

	for id := range e.last {
		if _, ok := seen[id]; !ok {
			delete(e.last, id)
		}
	}
	return alerts
}

// Observe evaluates a single machine after a patch.
func (e *Engine) Observe(location string, m model.Machine) []model.Alert {
	if m.Job == nil {
		delete(e.last, m.ID)
		return nil
	}
	band := BandFor(m.Job.ProgressPercent)
	if band == e.last[m.ID] {
		return nil
	}
	e.last[m.ID] = band
	if band == BandNone {
		return nil
	}
	return []model.Alert{{
		Message:   bandMessage(band, m.Label(), m.Job.ProgressPercent),
		Severity:  band.Severity(),
		MachineID: m.ID,
		Location:  location,
	}}
}

// Acknowledge records a band alert broadcast by the backend's own progress
// loop, whose levels 1-3 are the warning, critical and complete bands. It
// reports false when the band was already alerted for the machine, locally
// or by an earlier broadcast. Levels outside the bands are always news.
func (e *Engine) Acknowledge(id model.MachineID, level int) bool {
	band := Band(level)
	if band <= BandNone || band > BandComplete {
		return true
	}
	if e.last[id] == band {
		return false
	}
	e.last[id] = band
	return true
}

// Reset forgets all history.
func (e *Engine) Reset() {
	e.last = make(map[model.MachineID]Band)
}

// FromBackend converts an alert broadcast by the backend.
func FromBackend(a model.BackendAlert, location string) model.Alert {
	sev := model.SeverityInfo
	switch a.Level {
	case 1:
		sev = model.SeverityWarn
	case 2:
		sev = model.SeverityError
	case 3:
		sev = model.SeveritySuccess
	}
	return model.Alert{
		Message:   a.Message,
		Severity:  sev,
		MachineID: a.MachineID,
		Location:  location,
	}
}
