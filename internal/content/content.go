// Package content holds the static portfolio data: header, sections,
// projects and footer. The data is compiled into the binary and never
// changes while the server runs.
package content

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed portfolio.yaml
var embeddedPortfolio []byte

type Header struct {
	Title string `yaml:"title"`
	Badge string `yaml:"badge"`
	Intro string `yaml:"intro"`
}

// Group is a titled set of tags inside a skills section.
type Group struct {
	Title string   `yaml:"title"`
	Tags  []string `yaml:"tags"`
}

// Section is a block of biography or skills content. Exactly one of
// Content, Items or Groups is populated.
type Section struct {
	ID      string   `yaml:"id"`
	Title   string   `yaml:"title"`
	Content string   `yaml:"content,omitempty"`
	Items   []string `yaml:"items,omitempty"`
	Groups  []Group  `yaml:"groups,omitempty"`
}

type Project struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Year        string   `yaml:"year"`
	Tech        []string `yaml:"tech"`
	Type        string   `yaml:"type"`
	Description string   `yaml:"description"`
}

// Uses reports whether the project lists the given technology.
func (p Project) Uses(tech string) bool {
	for _, t := range p.Tech {
		if t == tech {
			return true
		}
	}
	return false
}

type document struct {
	Header   Header    `yaml:"header"`
	Sections []Section `yaml:"sections"`
	Projects []Project `yaml:"projects"`
	Footer   string    `yaml:"footer"`
}

// Store gives read-only access to the portfolio content.
type Store struct {
	doc      document
	sections map[string]int
	projects map[string]int
	techs    []string
	techSet  map[string]bool
}

var defaultStore = mustParseEmbedded()

// Default returns the store built from the embedded portfolio document.
func Default() *Store {
	return defaultStore
}

func mustParseEmbedded() *Store {
	s, err := Parse(embeddedPortfolio)
	if err != nil {
		panic(fmt.Sprintf("content: embedded portfolio: %v", err))
	}
	return s
}

// Parse decodes and checks a YAML portfolio document.
func Parse(data []byte) (*Store, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding portfolio: %w", err)
	}

	s := &Store{
		doc:      doc,
		sections: make(map[string]int, len(doc.Sections)),
		projects: make(map[string]int, len(doc.Projects)),
		techSet:  make(map[string]bool),
	}

	for i, sec := range doc.Sections {
		if sec.ID == "" {
			return nil, fmt.Errorf("section %d: missing id", i)
		}
		if _, dup := s.sections[sec.ID]; dup {
			return nil, fmt.Errorf("section %q: duplicate id", sec.ID)
		}
		if err := checkBody(sec); err != nil {
			return nil, fmt.Errorf("section %q: %w", sec.ID, err)
		}
		s.sections[sec.ID] = i
	}

	for i, p := range doc.Projects {
		if p.ID == "" {
			return nil, fmt.Errorf("project %d: missing id", i)
		}
		if _, dup := s.projects[p.ID]; dup {
			return nil, fmt.Errorf("project %q: duplicate id", p.ID)
		}
		s.projects[p.ID] = i
		for _, t := range p.Tech {
			if !s.techSet[t] {
				s.techSet[t] = true
				s.techs = append(s.techs, t)
			}
		}
	}
	sort.Strings(s.techs)

	return s, nil
}

func checkBody(sec Section) error {
	populated := 0
	if sec.Content != "" {
		populated++
	}
	if len(sec.Items) > 0 {
		populated++
	}
	if len(sec.Groups) > 0 {
		populated++
	}
	switch populated {
	case 1:
		return nil
	case 0:
		return errors.New("no content, items or groups")
	default:
		return errors.New("more than one of content, items and groups")
	}
}

func (s *Store) Header() Header { return s.doc.Header }

func (s *Store) Footer() string { return s.doc.Footer }

// Sections returns the sections in document order.
func (s *Store) Sections() []Section {
	out := make([]Section, len(s.doc.Sections))
	copy(out, s.doc.Sections)
	return out
}

// Projects returns the projects in document order.
func (s *Store) Projects() []Project {
	out := make([]Project, len(s.doc.Projects))
	copy(out, s.doc.Projects)
	return out
}

func (s *Store) Section(id string) (Section, bool) {
	i, ok := s.sections[id]
	if !ok {
		return Section{}, false
	}
	return s.doc.Sections[i], true
}

func (s *Store) Project(id string) (Project, bool) {
	i, ok := s.projects[id]
	if !ok {
		return Project{}, false
	}
	return s.doc.Projects[i], true
}

// Techs returns every technology used by a project, de-duplicated and
// sorted in ascending byte order.
func (s *Store) Techs() []string {
	out := make([]string, len(s.techs))
	copy(out, s.techs)
	return out
}

func (s *Store) HasTech(tech string) bool { return s.techSet[tech] }
