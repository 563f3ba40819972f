package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneIsIndependent(t *testing.T) {
	orig := FileContent{
		FileIndex: FileIndex{
			ID:       "abc",
			Path:     "/guide",
			Sections: []string{"guide"},
			Fields:   map[string]any{"title": "Guide"},
		},
		Headings: []Heading{{Level: 2, Text: "Intro", ID: "intro"}},
		Extra:    map[string]any{"k": "v"},
	}

	c := orig.Clone()
	c.Sections[0] = "changed"
	c.Fields["title"] = "Other"
	c.Headings[0].Text = "Changed"
	c.Extra["k"] = "w"

	assert.Equal(t, "guide", orig.Sections[0])
	assert.Equal(t, "Guide", orig.FieldString("title"))
	assert.Equal(t, "Intro", orig.Headings[0].Text)
	assert.Equal(t, "v", orig.Extra["k"])
}

func TestCloneNormalizesNilCollections(t *testing.T) {
	c := FileIndex{ID: "x"}.Clone()
	assert.NotNil(t, c.Sections)
	assert.NotNil(t, c.Fields)
	assert.Empty(t, c.FieldString("missing"))
}
