package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitTitle(t *testing.T) {
	cases := []struct {
		raw    string
		title  string
		artist string
	}{
		{"Queen - Bohemian Rhapsody (Official Video)", "Bohemian Rhapsody", "Queen"},
		{"Queen – Bohemian Rhapsody", "Bohemian Rhapsody", "Queen"},
		{"Soda Stereo: De Música Ligera", "De Música Ligera", "Soda Stereo"},
		{"ABBA | Dancing Queen [Karaoke]", "Dancing Queen", "ABBA"},
		{"Bohemian Rhapsody [Karaoke Version]", "Bohemian Rhapsody", ""},
		{"Bohemian Rhapsody", "Bohemian Rhapsody", ""},
		// A leading delimiter leaves no artist on the left; the whole
		// string stays the title.
		{" - Bohemian Rhapsody", "- Bohemian Rhapsody", ""},
		{"", "", ""},
	}
	for _, tc := range cases {
		title, artist := SplitTitle(tc.raw)
		assert.Equal(t, tc.title, title, "title of %q", tc.raw)
		assert.Equal(t, tc.artist, artist, "artist of %q", tc.raw)
	}
}

func TestStripAnnotationsHandlesNesting(t *testing.T) {
	assert.Equal(t, "Song", stripAnnotations("Song (Live (Remastered))"))
	assert.Equal(t, "Song Name", stripAnnotations("Song [x (y)] Name"))
	assert.Equal(t, "Song stray", stripAnnotations("Song )stray("))
}

func TestKeyNormalizes(t *testing.T) {
	assert.Equal(t, Key("Bohemian Rhapsody", "Queen"), Key("bohemian RHAPSODY", "queen"))
	assert.Equal(t, "dont stop me now queen", Key("Don't Stop Me Now", "Queen"))
	assert.Equal(t, Key("Song!", "A.B."), Key("Song", "AB"))
	assert.NotEqual(t, Key("Song", "Queen"), Key("Song", "ABBA"))
}
