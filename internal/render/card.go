package render

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"machine-dashboard-client/internal/model"
)

// Progress bar colours.
const (
	ColorNormal   = "#28a745"
	ColorWarning  = "#ffc107"
	ColorCritical = "#dc3545"
)

// ProgressColor maps a progress percentage to its bar colour.
func ProgressColor(percent float64) string {
	switch {
	case percent >= 90:
		return ColorCritical
	case percent >= 75:
		return ColorWarning
	default:
		return ColorNormal
	}
}

func clampPercent(percent float64) float64 {
	if math.IsNaN(percent) || percent < 0 {
		return 0
	}
	return math.Min(percent, 100)
}

// Controls lists which buttons a card shows.
type Controls struct {
	Start  bool `json:"start"`
	Pause  bool `json:"pause"`
	Stop   bool `json:"stop"`
	Rename bool `json:"rename"`
}

// JobView is the rendered current job.
type JobView struct {
	WorkOrder        string  `json:"work_order"`
	Size             string  `json:"size"`
	CompletedQty     float64 `json:"completed_qty"`
	TotalQty         float64 `json:"total_qty"`
	Progress         string  `json:"progress"`
	ProgressWidth    float64 `json:"progress_width"`
	ProgressColor    string  `json:"progress_color"`
	RemainingSeconds float64 `json:"remaining_seconds"`
	ERPStatus        string  `json:"erp_status,omitempty"`
}

// NextJobView is the rendered queued job.
type NextJobView struct {
	WorkOrder string  `json:"work_order"`
	Size      string  `json:"size"`
	TotalQty  float64 `json:"total_qty"`
	ETA       string  `json:"eta"`
}

// CardContent is everything a card shows except the live countdown text.
type CardContent struct {
	MachineID model.MachineID `json:"machine_id"`
	Location  string          `json:"location"`
	Name      string          `json:"name"`
	Status    string          `json:"status"`
	Job       *JobView        `json:"job,omitempty"`
	NextJob   *NextJobView    `json:"next_job,omitempty"`
	Controls  Controls        `json:"controls"`
}

func buildContent(location string, m model.Machine, sess model.Session) CardContent {
	control := CanControl(sess, location)
	c := CardContent{
		MachineID: m.ID,
		Location:  location,
		Name:      m.Label(),
		Status:    string(m.Status),
		Controls: Controls{
			Start:  control,
			Pause:  control,
			Stop:   control,
			Rename: CanRename(sess),
		},
	}
	if m.Job != nil {
		c.Job = &JobView{
			WorkOrder:        m.Job.WorkOrder,
			Size:             string(m.Job.Size),
			CompletedQty:     m.Job.CompletedQty,
			TotalQty:         m.Job.TotalQty,
			Progress:         fmt.Sprintf("%.1f", clampPercent(m.Job.ProgressPercent)),
			ProgressWidth:    clampPercent(m.Job.ProgressPercent),
			ProgressColor:    ProgressColor(m.Job.ProgressPercent),
			RemainingSeconds: m.Job.RemainingTimeSeconds,
			ERPStatus:        m.Job.ERPStatus,
		}
	}
	if m.NextJob != nil {
		c.NextJob = &NextJobView{
			WorkOrder: m.NextJob.WorkOrder,
			Size:      string(m.NextJob.Size),
			TotalQty:  m.NextJob.TotalQty,
			ETA:       FormatTime(m.NextJob.RemainingTimeSeconds),
		}
	}
	return c
}

// Card is the stable, per-machine element of the board. Its identity
// survives re-renders; only its content is replaced.
type Card struct {
	ID model.MachineID

	mu        sync.RWMutex
	content   CardContent
	remaining string
	detached  bool
	updates   int
}

func newCard(id model.MachineID) *Card {
	return &Card{ID: id, remaining: FormatTime(0)}
}

func (c *Card) replace(content CardContent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.content = content
	c.detached = false
	c.updates++
	if content.Job == nil {
		c.remaining = ""
	}
}

func (c *Card) detach() {
	c.mu.Lock()
	c.detached = true
	c.mu.Unlock()
}

// SetRemaining updates the countdown text. It returns false once the card
// has been removed from the board.
func (c *Card) SetRemaining(seconds float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detached {
		return false
	}
	c.remaining = FormatTime(seconds)
	return true
}

// Remaining returns the countdown text currently on the card.
func (c *Card) Remaining() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.remaining
}

// Content returns a copy of the card content.
func (c *Card) Content() CardContent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.content
}

// Detached reports whether the card has left the board.
func (c *Card) Detached() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.detached
}

// Updates counts in-place content replacements.
func (c *Card) Updates() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updates
}

// MarshalJSON flattens content and countdown text.
func (c *Card) MarshalJSON() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return json.Marshal(struct {
		CardContent
		Remaining string `json:"remaining,omitempty"`
	}{c.content, c.remaining})
}
