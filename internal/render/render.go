// Package render turns the portfolio content and a visitor's view state
// into HTML. Every region is rendered whole, wrapper element included,
// so a fresh render always replaces the previous one completely.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"slices"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/gaetan-pardon/ISEN/internal/content"
	"github.com/gaetan-pardon/ISEN/internal/viewstate"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var StaticFS embed.FS

// Region names a page region. The value doubles as the DOM id of the
// region's wrapper element.
type Region string

const (
	RegionHeader          Region = "header"
	RegionSectionControls Region = "section-controls"
	RegionContent         Region = "content"
	RegionProjectFilters  Region = "project-filters"
	RegionProjectList     Region = "project-list"
	RegionProjectDetail   Region = "project-detail"
	RegionFooter          Region = "footer"
)

// pageOrder is the order regions appear in the document. It also fixes
// render order: the project list runs before the detail panel.
var pageOrder = []Region{
	RegionHeader,
	RegionSectionControls,
	RegionContent,
	RegionProjectFilters,
	RegionProjectList,
	RegionProjectDetail,
	RegionFooter,
}

type Renderer struct {
	tmpl *template.Template
	lang language.Tag
}

// New parses the embedded templates. Project titles are ordered with the
// collation rules of lang.
func New(lang language.Tag) (*Renderer, error) {
	tmpl, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return &Renderer{tmpl: tmpl, lang: lang}, nil
}

// Templates exposes the parsed set so the HTTP layer can hand it to gin.
func (r *Renderer) Templates() *template.Template { return r.tmpl }

var funcs = template.FuncMap{
	"query": url.QueryEscape,
	"when": func(ms int64) string {
		return time.UnixMilli(ms).Local().Format("02/01/2006 15:04:05")
	},
}

// FilterProjects keeps the projects matching tech (every project for
// viewstate.All) and orders them by title using lang's collation.
// Projects with equal titles keep their relative order.
func FilterProjects(projects []content.Project, tech string, lang language.Tag) []content.Project {
	out := make([]content.Project, 0, len(projects))
	for _, p := range projects {
		if tech == viewstate.All || p.Uses(tech) {
			out = append(out, p)
		}
	}
	col := collate.New(lang)
	slices.SortStableFunc(out, func(a, b content.Project) int {
		return col.CompareString(a.Title, b.Title)
	})
	return out
}

// visibleProjects filters the project list for v and drops a selection
// the filter no longer shows.
func (r *Renderer) visibleProjects(v *viewstate.ViewState) []content.Project {
	projects := FilterProjects(v.Store().Projects(), v.TechFilter(), r.lang)
	if sel := v.SelectedProject(); sel != "" {
		found := slices.ContainsFunc(projects, func(p content.Project) bool { return p.ID == sel })
		if !found {
			v.SelectProject("")
		}
	}
	return projects
}

type regionData struct {
	OOB  bool
	Data any
}

type sectionToggle struct {
	ID      string
	Title   string
	Pressed bool
}

type sectionBlock struct {
	content.Section
	Hidden bool
}

type filterControls struct {
	Techs  []string
	Active string
}

type projectCard struct {
	content.Project
	Selected bool
}

type projectDetail struct {
	Project *content.Project
}

func (r *Renderer) regionData(v *viewstate.ViewState, region Region) (any, error) {
	store := v.Store()
	switch region {
	case RegionHeader:
		return store.Header(), nil
	case RegionSectionControls:
		sections := store.Sections()
		out := make([]sectionToggle, 0, len(sections))
		for _, s := range sections {
			out = append(out, sectionToggle{ID: s.ID, Title: s.Title, Pressed: v.SectionVisible(s.ID)})
		}
		return out, nil
	case RegionContent:
		sections := store.Sections()
		out := make([]sectionBlock, 0, len(sections))
		for _, s := range sections {
			out = append(out, sectionBlock{Section: s, Hidden: !v.SectionVisible(s.ID)})
		}
		return out, nil
	case RegionProjectFilters:
		return filterControls{Techs: store.Techs(), Active: v.TechFilter()}, nil
	case RegionProjectList:
		projects := r.visibleProjects(v)
		out := make([]projectCard, 0, len(projects))
		for _, p := range projects {
			out = append(out, projectCard{Project: p, Selected: p.ID == v.SelectedProject()})
		}
		return out, nil
	case RegionProjectDetail:
		r.visibleProjects(v)
		var d projectDetail
		if p, ok := store.Project(v.SelectedProject()); ok {
			d.Project = &p
		}
		return d, nil
	case RegionFooter:
		return store.Footer(), nil
	default:
		return nil, fmt.Errorf("unknown region %q", region)
	}
}

// Region writes a single region. With oob set the wrapper is marked for
// an htmx out-of-band swap.
func (r *Renderer) Region(w io.Writer, v *viewstate.ViewState, region Region, oob bool) error {
	data, err := r.regionData(v, region)
	if err != nil {
		return err
	}
	if err := r.tmpl.ExecuteTemplate(w, string(region), regionData{OOB: oob, Data: data}); err != nil {
		return fmt.Errorf("rendering %s: %w", region, err)
	}
	return nil
}

// Regions writes the requested regions as out-of-band fragments, in page
// order, each at most once.
func (r *Renderer) Regions(w io.Writer, v *viewstate.ViewState, regions ...Region) error {
	want := make(map[Region]bool, len(regions))
	for _, rg := range regions {
		want[rg] = true
	}
	var buf bytes.Buffer
	for _, rg := range pageOrder {
		if !want[rg] {
			continue
		}
		if err := r.Region(&buf, v, rg, true); err != nil {
			return err
		}
	}
	_, err := buf.WriteTo(w)
	return err
}

type pageData struct {
	Lang    string
	Title   string
	Regions []template.HTML
}

// Page writes the full portfolio document.
func (r *Renderer) Page(w io.Writer, v *viewstate.ViewState) error {
	data := pageData{Lang: r.lang.String(), Title: v.Store().Header().Title}
	for _, rg := range pageOrder {
		var buf bytes.Buffer
		if err := r.Region(&buf, v, rg, false); err != nil {
			return err
		}
		// Region output was produced by html/template and is already escaped.
		data.Regions = append(data.Regions, template.HTML(buf.String()))
	}
	if err := r.tmpl.ExecuteTemplate(w, "portfolio.html", data); err != nil {
		return fmt.Errorf("rendering page: %w", err)
	}
	return nil
}
