// Package dispatch maps UI events to view state mutations and to the
// page regions those mutations invalidate.
package dispatch

import (
	"errors"
	"fmt"

	"github.com/gaetan-pardon/ISEN/internal/render"
	"github.com/gaetan-pardon/ISEN/internal/viewstate"
)

// Event types.
const (
	Click  = "click"
	Change = "change"
)

// Event targets.
const (
	TargetSectionToggle = "section-toggle"
	TargetFilterTech    = "filter-tech"
	TargetClearFilters  = "clear-filters"
	TargetProjectCard   = "project-card"
	TargetCloseDetail   = "close-detail"
)

var ErrNoHandler = errors.New("no handler for event")

// Event is one user interaction. Value carries the section id, filter
// value or project id, depending on the target.
type Event struct {
	Type   string `form:"type"`
	Target string `form:"target"`
	Value  string `form:"value"`
}

type key struct {
	typ    string
	target string
}

// Handler mutates v for ev and returns the regions to render again. An
// empty result means nothing changed.
type Handler func(v *viewstate.ViewState, ev Event) []render.Region

type Dispatcher struct {
	table map[key]Handler
}

// New returns a dispatcher holding the portfolio page's dispatch table.
func New() *Dispatcher {
	d := &Dispatcher{table: make(map[key]Handler)}
	d.Handle(Click, TargetSectionToggle, toggleSection)
	d.Handle(Change, TargetFilterTech, setFilter)
	d.Handle(Click, TargetClearFilters, clearFilters)
	d.Handle(Click, TargetProjectCard, selectProject)
	d.Handle(Click, TargetCloseDetail, closeDetail)
	return d
}

// Handle registers h for events of the given type and target, replacing
// any previous handler.
func (d *Dispatcher) Handle(typ, target string, h Handler) {
	d.table[key{typ, target}] = h
}

// Dispatch applies ev to v.
func (d *Dispatcher) Dispatch(v *viewstate.ViewState, ev Event) ([]render.Region, error) {
	h, ok := d.table[key{ev.Type, ev.Target}]
	if !ok {
		return nil, fmt.Errorf("%w: %s on %q", ErrNoHandler, ev.Type, ev.Target)
	}
	return h(v, ev), nil
}

func toggleSection(v *viewstate.ViewState, ev Event) []render.Region {
	if !v.ToggleSection(ev.Value) {
		return nil
	}
	return []render.Region{render.RegionSectionControls, render.RegionContent}
}

func setFilter(v *viewstate.ViewState, ev Event) []render.Region {
	if err := v.SetTechFilter(ev.Value); err != nil {
		return nil
	}
	return []render.Region{render.RegionProjectList, render.RegionProjectDetail}
}

func clearFilters(v *viewstate.ViewState, _ Event) []render.Region {
	v.ClearFilters()
	return []render.Region{render.RegionProjectFilters, render.RegionProjectList, render.RegionProjectDetail}
}

func selectProject(v *viewstate.ViewState, ev Event) []render.Region {
	v.SelectProject(ev.Value)
	return []render.Region{render.RegionProjectList, render.RegionProjectDetail}
}

func closeDetail(v *viewstate.ViewState, _ Event) []render.Region {
	v.SelectProject("")
	return []render.Region{render.RegionProjectList, render.RegionProjectDetail}
}
