// Package render projects dashboard state, filters and the session into a
// board of per-machine cards.
package render

import "machine-dashboard-client/internal/model"

// LocationView is one location container on the board.
type LocationView struct {
	Name  string  `json:"name"`
	Cards []*Card `json:"machines"`
}

// View is a rendered board.
type View struct {
	Session   model.Session  `json:"session"`
	Filters   Filters        `json:"filters"`
	Locations []LocationView `json:"locations"`
}

// Result describes one render pass.
type Result struct {
	View View
	// Shown holds the cards placed on the board in this pass, in order.
	Shown []*Card
	// Removed holds machines whose cards left the board.
	Removed []model.MachineID
}

// Renderer keeps the cards between passes so a machine keeps the same
// card for as long as it stays on the board.
type Renderer struct {
	cards map[model.MachineID]*Card
}

// NewRenderer returns an empty board.
func NewRenderer() *Renderer {
	return &Renderer{cards: make(map[model.MachineID]*Card)}
}

// Render rebuilds every location container. Filters apply in order:
// location, status, free-text search. Locations outside the session's
// scope are never shown. The locations slice is only read.
func (r *Renderer) Render(locations []model.Location, f Filters, sess model.Session) Result {
	res := Result{View: View{Session: sess, Filters: f}}
	seen := make(map[model.MachineID]struct{})

	for _, loc := range locations {
		if !CanSeeLocation(sess, loc.Name) || !f.MatchLocation(loc.Name) {
			continue
		}
		lv := LocationView{Name: loc.Name}
		for _, m := range loc.Machines {
			if !f.MatchMachine(m) {
				continue
			}
			card, ok := r.cards[m.ID]
			if !ok {
				card = newCard(m.ID)
				r.cards[m.ID] = card
			}
			card.replace(buildContent(loc.Name, m, sess))
			seen[m.ID] = struct{}{}
			lv.Cards = append(lv.Cards, card)
			res.Shown = append(res.Shown, card)
		}
		if len(lv.Cards) > 0 {
			res.View.Locations = append(res.View.Locations, lv)
		}
	}

	for id, card := range r.cards {
		if _, ok := seen[id]; ok {
			continue
		}
		card.detach()
		delete(r.cards, id)
		res.Removed = append(res.Removed, id)
	}
	return res
}

// RenderMachine replaces a single card's content in place. It returns
// false when the machine has no card on the board.
func (r *Renderer) RenderMachine(location string, m model.Machine, sess model.Session) (*Card, bool) {
	card, ok := r.cards[m.ID]
	if !ok {
		return nil, false
	}
	card.replace(buildContent(location, m, sess))
	return card, true
}

// Card returns the card for id if it is on the board.
func (r *Renderer) Card(id model.MachineID) (*Card, bool) {
	card, ok := r.cards[id]
	return card, ok
}

// Clear removes every card (view teardown).
func (r *Renderer) Clear() []model.MachineID {
	removed := make([]model.MachineID, 0, len(r.cards))
	for id, card := range r.cards {
		card.detach()
		removed = append(removed, id)
	}
	r.cards = make(map[model.MachineID]*Card)
	return removed
}
