package core

import (
	"strings"

	"github.com/santiagomed/quill/llm"
)

// Step is a wizard screen. Steps only move forward through Next.
type Step int

const (
	StepTopicAndOutline Step = iota
	StepChapterDetails
	StepDrafting
	StepFinalize
)

func (s Step) String() string {
	switch s {
	case StepTopicAndOutline:
		return "Topic & outline"
	case StepChapterDetails:
		return "Chapter details"
	case StepDrafting:
		return "Drafting"
	case StepFinalize:
		return "Finalize"
	default:
		return "Unknown"
	}
}

// MissingContentPlaceholder stands in for a chapter without content in the assembled document.
const MissingContentPlaceholder = "_No content was generated for this chapter._"

// ChapterDetail is the working state of one chapter.
type ChapterDetail struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Points       []string `json:"points"`
	Content      string   `json:"content"`
	ChartImage   string   `json:"chart_image,omitempty"`
	IsGenerating bool     `json:"is_generating"`

	// Latest request token issued per field; zero means none outstanding or ever issued.
	pointsToken  uint64
	contentToken uint64
	pointsBusy   bool
	contentBusy  bool
}

func (d *ChapterDetail) syncBusy() {
	d.IsGenerating = d.pointsBusy || d.contentBusy
}

// PointsBusy reports whether a point generation for this chapter is outstanding.
func (d ChapterDetail) PointsBusy() bool {
	return d.pointsBusy
}

// HasPoints reports whether at least one non-blank point exists.
func (d ChapterDetail) HasPoints() bool {
	for _, p := range d.Points {
		if strings.TrimSpace(p) != "" {
			return true
		}
	}
	return false
}

func (d ChapterDetail) clone() ChapterDetail {
	out := d
	out.Points = append([]string(nil), d.Points...)
	return out
}

// Session is the whole application state of one wizard run.
type Session struct {
	Step            Step                `json:"step"`
	Topic           string              `json:"topic"`
	StyleHint       string              `json:"style_hint"`
	Outlines        []llm.OutlineOption `json:"outlines"`
	SelectedOutline int                 `json:"selected_outline"`
	Style           string              `json:"style"`
	StyleDetails    string              `json:"style_details"`
	ChapterTitles   []string            `json:"chapter_titles"`
	Chapters        []ChapterDetail     `json:"chapters"`
	Document        string              `json:"document"`
	OutlinesLoading bool                `json:"outlines_loading"`

	draftingVisited bool
}

func newSession() Session {
	return Session{Step: StepTopicAndOutline, SelectedOutline: -1}
}

func (s Session) clone() Session {
	out := s
	out.Outlines = make([]llm.OutlineOption, len(s.Outlines))
	for i, o := range s.Outlines {
		o.Chapters = append([]string(nil), o.Chapters...)
		out.Outlines[i] = o
	}
	out.ChapterTitles = append([]string(nil), s.ChapterTitles...)
	out.Chapters = make([]ChapterDetail, len(s.Chapters))
	for i, ch := range s.Chapters {
		out.Chapters[i] = ch.clone()
	}
	return out
}

// StyleDescriptor combines the style label and its instructions for content prompts.
func (s Session) StyleDescriptor() string {
	label := strings.TrimSpace(s.Style)
	details := strings.TrimSpace(s.StyleDetails)
	switch {
	case label == "":
		return details
	case details == "":
		return label
	default:
		return label + ": " + details
	}
}

// AssembleDocument concatenates chapter titles and contents in order.
func AssembleDocument(chapters []ChapterDetail) string {
	var sb strings.Builder
	for i, ch := range chapters {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		content := strings.TrimSpace(ch.Content)
		if content == "" {
			content = MissingContentPlaceholder
		}
		sb.WriteString("## ")
		sb.WriteString(strings.TrimSpace(ch.Title))
		sb.WriteString("\n\n")
		sb.WriteString(content)
	}
	if sb.Len() > 0 {
		sb.WriteString("\n")
	}
	return sb.String()
}
