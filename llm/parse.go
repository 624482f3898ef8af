package llm

import (
	"regexp"
	"strings"
)

var (
	fencedBlock  = regexp.MustCompile("(?s)^```[A-Za-z0-9_-]*[ \t]*\n?(.*?)\n?[ \t]*```$")
	openingFence = regexp.MustCompile("^```[A-Za-z0-9_-]*[ \t]*\n?")
)

// StripCodeFence removes a markdown code fence wrapping the whole text, with or without a
// language tag. A truncated fence loses only its opening line. Applying it twice is the
// same as applying it once.
func StripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	if m := fencedBlock.FindStringSubmatch(t); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(openingFence.ReplaceAllString(t, ""))
}

// parseBulletLines salvages "- item" and "• item" lines from free text.
func parseBulletLines(s string) []string {
	points := []string{}
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		var rest string
		switch {
		case strings.HasPrefix(line, "-"):
			rest = strings.TrimPrefix(line, "-")
		case strings.HasPrefix(line, "•"):
			rest = strings.TrimPrefix(line, "•")
		default:
			continue
		}
		// Horizontal rules like "---" or "- - -" are not points.
		if rest = strings.TrimSpace(rest); strings.Trim(rest, "-•*_= ") != "" {
			points = append(points, rest)
		}
	}
	return points
}

// stripLeadingTitle drops a first line that only repeats the chapter title.
func stripLeadingTitle(text, title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return text
	}
	lines := strings.SplitN(text, "\n", 2)
	first := strings.Trim(strings.TrimSpace(lines[0]), "#*_: ")
	if !strings.EqualFold(first, title) {
		return text
	}
	if len(lines) == 1 {
		return ""
	}
	return strings.TrimSpace(lines[1])
}

func cleanStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
