package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultStore(t *testing.T) {
	s := Default()

	assert.Equal(t, "Portfolio de Gaétan", s.Header().Title)
	assert.Len(t, s.Sections(), 4)
	assert.Len(t, s.Projects(), 4)
	assert.NotEmpty(t, s.Footer())

	sec, ok := s.Section("competences")
	require.True(t, ok)
	assert.Len(t, sec.Groups, 4)

	_, ok = s.Section("missing")
	assert.False(t, ok)
}

func TestTechsSortedAndUnique(t *testing.T) {
	s := Default()

	want := []string{"Arduino C", "C", "Linux", "Nginx", "Python", "Transformers"}
	assert.Equal(t, want, s.Techs())
	assert.True(t, s.HasTech("Python"))
	assert.False(t, s.HasTech("Go"))
}

func TestAccessorsReturnCopies(t *testing.T) {
	s := Default()

	projects := s.Projects()
	projects[0].Title = "changed"
	techs := s.Techs()
	techs[0] = "changed"

	p, ok := s.Project(projects[0].ID)
	require.True(t, ok)
	assert.NotEqual(t, "changed", p.Title)
	assert.NotEqual(t, "changed", s.Techs()[0])
}

func TestProjectUses(t *testing.T) {
	p := Project{Tech: []string{"C", "Arduino C"}}
	assert.True(t, p.Uses("C"))
	assert.False(t, p.Uses("C++"))
}

func TestParseRejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "duplicate section",
			doc: `
sections:
  - {id: a, title: A, content: x}
  - {id: a, title: B, content: y}
`,
		},
		{
			name: "section without body",
			doc: `
sections:
  - {id: a, title: A}
`,
		},
		{
			name: "section with two bodies",
			doc: `
sections:
  - {id: a, title: A, content: x, items: [y]}
`,
		},
		{
			name: "duplicate project",
			doc: `
projects:
  - {id: p, title: P}
  - {id: p, title: Q}
`,
		},
		{
			name: "project without id",
			doc: `
projects:
  - {title: P}
`,
		},
		{
			name: "not yaml",
			doc:  "sections: [",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestParseCollectsTechsAcrossProjects(t *testing.T) {
	s, err := Parse([]byte(`
projects:
  - {id: a, title: A, tech: [Zig, Go]}
  - {id: b, title: B, tech: [Go, Ada]}
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"Ada", "Go", "Zig"}, s.Techs())
}
