package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/liferepo/internal/client/models"
)

// GetSimpleText prints a prompt to w and reads the next line from sc, with
// surrounding whitespace trimmed. It returns io.EOF when input is exhausted.
//
// Example prompt format:
//
//	Prompt text
//	> _
func GetSimpleText(sc *bufio.Scanner, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(sc.Text()), nil
}

// ParseTags reads a comma separated tag list. A trailing "*" marks a tag as
// featured: "beach*, sunset" yields a featured "beach" and a plain "sunset".
// Empty items are skipped.
func ParseTags(s string) []models.Tag {
	tags := []models.Tag{}
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		featured := strings.HasSuffix(item, "*")
		item = strings.TrimSpace(strings.TrimSuffix(item, "*"))
		if item == "" {
			continue
		}
		tags = append(tags, models.Tag{Label: item, Featured: featured})
	}
	return tags
}

// FormatTags is the inverse of ParseTags.
func FormatTags(tags []models.Tag) string {
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = t.Label
		if t.Featured {
			parts[i] += "*"
		}
	}
	return strings.Join(parts, ", ")
}

// splitFlag removes every occurrence of name from args and reports whether
// it was present.
func splitFlag(args []string, name string) ([]string, bool) {
	rest := make([]string, 0, len(args))
	found := false
	for _, a := range args {
		if a == name {
			found = true
			continue
		}
		rest = append(rest, a)
	}
	return rest, found
}
