package llm

import (
	"fmt"
	"strings"
)

const connectionProbePrompt = "Reply with the single word OK."

func getSystemPrompt() string {
	return `You are an experienced editor and professional writer helping a user draft a structured document chapter by chapter.

Follow the requested format exactly. When JSON is requested, return a single JSON object and nothing else. When prose is requested, write clean markdown paragraphs without preamble or closing remarks.`
}

func getOutlinesPrompt(topic, styleHint string) string {
	var style string
	if styleHint != "" {
		style = fmt.Sprintf(`The user would like the document to read in this style: "%s".
At least two of the three outlines must follow that style closely. The remaining outline should offer a deliberately different take.`, styleHint)
	} else {
		style = `The user has no style preference. Make the three outlines span clearly different tones (for example formal, conversational and narrative), each with a distinct style label.`
	}

	return fmt.Sprintf(`Propose three alternative outlines for a document about: "%s"

%s

For each outline provide:
1. style: a short label for its tone, two to four words
2. description: two or three sentences describing how the document reads and who it is for
3. chapters: between %d and %d chapter titles, in reading order

Return a JSON object with exactly this shape:
{"outlines": [{"style": "...", "description": "...", "chapters": ["...", "..."]}]}
The "outlines" array must contain exactly %d items.`, topic, style, minChapters, maxChapters, OutlineCount)
}

func getChapterPointsPrompt(topic, chapterTitle string, otherChapters []string) string {
	var context string
	if len(otherChapters) > 0 {
		context = fmt.Sprintf(`The document also contains these chapters, which cover their own material:
- %s

Avoid repeating what belongs in those chapters.`, strings.Join(otherChapters, "\n- "))
	} else {
		context = "This is the only chapter of the document."
	}

	return fmt.Sprintf(`We are writing a document about: "%s"

%s

Plan the content of the chapter titled "%s" as between %d and %d concise bullet points. Each point should name one concrete idea, fact or argument the chapter will develop.

Return a JSON object with exactly this shape:
{"details": ["...", "..."]}`, topic, context, chapterTitle, minPoints, maxPoints)
}

func getChapterContentPrompt(r ContentRequest, withImage bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "We are writing a document about: \"%s\"\n\n", r.Topic)
	if r.Style != "" {
		fmt.Fprintf(&sb, "Writing style: %s\n\n", r.Style)
	}
	fmt.Fprintf(&sb, "Write the chapter titled \"%s\". Cover these points:\n", r.ChapterTitle)
	for _, p := range r.Points {
		fmt.Fprintf(&sb, "- %s\n", p)
	}
	sb.WriteString(`
Write cohesive, well-structured paragraphs that flow naturally from one point to the next. Do not repeat the chapter title at the start of your output and do not add a heading for it. Return plain markdown text only.`)
	if withImage {
		sb.WriteString(`

A chart image is attached. Analyze its visual content carefully and weave the specific numbers, trends and comparisons it shows into the prose where they support the points above.`)
	}
	return sb.String()
}

func getRefinePrompt(content, instruction string) string {
	return fmt.Sprintf(`Rewrite the following text according to this instruction: "%s"

Preserve the original meaning and any facts it contains unless the instruction says otherwise. Return only the rewritten text as plain markdown, without commentary.

Text:
%s`, instruction, content)
}
