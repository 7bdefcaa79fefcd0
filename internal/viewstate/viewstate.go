// Package viewstate holds the mutable UI state of one visitor's page:
// the active technology filter, the selected project and which
// sections are shown.
package viewstate

import (
	"errors"
	"fmt"

	"github.com/gaetan-pardon/ISEN/internal/content"
)

// All is the filter value that matches every project.
const All = "All"

var ErrUnknownFilter = errors.New("unknown tech filter")

// ViewState is not safe for concurrent use; callers serialize access.
type ViewState struct {
	store    *content.Store
	tech     string
	selected string
	visible  map[string]bool
}

// New returns the page-load state: every section visible, no filter,
// nothing selected.
func New(store *content.Store) *ViewState {
	sections := store.Sections()
	visible := make(map[string]bool, len(sections))
	for _, s := range sections {
		visible[s.ID] = true
	}
	return &ViewState{
		store:   store,
		tech:    All,
		visible: visible,
	}
}

func (v *ViewState) Store() *content.Store { return v.store }

// ToggleSection flips the visibility of a section. It reports false and
// changes nothing when the id is unknown.
func (v *ViewState) ToggleSection(id string) bool {
	shown, ok := v.visible[id]
	if !ok {
		return false
	}
	v.visible[id] = !shown
	return true
}

// SectionVisible reports whether a section is shown. Unknown ids are
// reported as hidden.
func (v *ViewState) SectionVisible(id string) bool {
	return v.visible[id]
}

func (v *ViewState) SetTechFilter(value string) error {
	if value != All && !v.store.HasTech(value) {
		return fmt.Errorf("%w: %q", ErrUnknownFilter, value)
	}
	v.tech = value
	return nil
}

func (v *ViewState) ClearFilters() {
	v.tech = All
}

func (v *ViewState) TechFilter() string { return v.tech }

// SelectProject sets the selected project. An empty or unknown id clears
// the selection. Whether the project survives the current filter is
// checked when the project list is rendered.
func (v *ViewState) SelectProject(id string) {
	if _, ok := v.store.Project(id); !ok {
		v.selected = ""
		return
	}
	v.selected = id
}

func (v *ViewState) SelectedProject() string { return v.selected }
