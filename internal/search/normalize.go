package search

import "strings"

// Raw provider titles come in shapes like "Queen - Bohemian Rhapsody
// (Official Video)" or "Bohemian Rhapsody [Karaoke Version]".  The
// heuristics below split them into {title, artist} and produce the
// normalized key used to dedupe provider results against catalog entries.

var splitDelimiters = []string{" - ", " – ", ": ", " | "}

// stripAnnotations removes bracketed and parenthesized chunks such as
// "(Official Video)" or "[Karaoke]" and collapses the remaining spaces.
func stripAnnotations(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 {
				b.WriteRune(r)
			}
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// SplitTitle turns a raw external title into {title, artist}.  The
// delimiters are tried in order on the annotation-stripped string; the
// left side of the first match becomes the artist, the right side the
// title.  When no delimiter matches the whole string is the title and the
// artist stays empty.
func SplitTitle(raw string) (title, artist string) {
	clean := stripAnnotations(raw)
	for _, delim := range splitDelimiters {
		if idx := strings.Index(clean, delim); idx > 0 {
			artist = strings.TrimSpace(clean[:idx])
			title = strings.TrimSpace(clean[idx+len(delim):])
			if title != "" {
				return title, artist
			}
		}
	}
	return clean, ""
}

// Key builds the case-insensitive, punctuation-stripped dedup key for a
// title+artist pair.
func Key(title, artist string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title + " " + artist) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == ' ' {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
