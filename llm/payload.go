package llm

import (
	"encoding/base64"
	"regexp"
	"strings"
)

var dataURIPattern = regexp.MustCompile(`(?s)^data:([^;]+);base64,(.+)$`)

// InlineImage is an image carried inside a prompt. Data is base64 encoded.
type InlineImage struct {
	MIMEType string
	Data     string
}

// Bytes decodes the base64 payload.
func (i InlineImage) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(i.Data)
}

// DataURI renders the image as data:<mime>;base64,<payload>.
func (i InlineImage) DataURI() string {
	return "data:" + i.MIMEType + ";base64," + i.Data
}

// Part is one fragment of a multimodal prompt: either Text or Image is set.
type Part struct {
	Text  string
	Image *InlineImage
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func ImagePart(img InlineImage) Part {
	return Part{Image: &img}
}

// Prompt is either a plain string or an ordered list of parts.
type Prompt struct {
	text  string
	parts []Part
}

func TextPrompt(text string) Prompt {
	return Prompt{text: text}
}

func PartsPrompt(parts ...Part) Prompt {
	return Prompt{parts: parts}
}

// IsMultimodal reports whether the prompt was built from parts.
func (p Prompt) IsMultimodal() bool {
	return p.parts != nil
}

// Parts returns the prompt as parts; a plain prompt becomes a single text part.
func (p Prompt) Parts() []Part {
	if p.parts != nil {
		return p.parts
	}
	return []Part{TextPart(p.text)}
}

// Text returns the plain prompt, or the text parts joined by blank lines.
func (p Prompt) Text() string {
	if p.parts == nil {
		return p.text
	}
	var texts []string
	for _, part := range p.parts {
		if part.Image == nil {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "\n\n")
}

// EncodeDataURI builds a data URI from raw bytes.
func EncodeDataURI(mimeType string, data []byte) string {
	return InlineImage{MIMEType: mimeType, Data: base64.StdEncoding.EncodeToString(data)}.DataURI()
}

// ParseDataURI splits data:<mime>;base64,<payload>. ok is false when s does not have that shape.
func ParseDataURI(s string) (InlineImage, bool) {
	m := dataURIPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return InlineImage{}, false
	}
	return InlineImage{MIMEType: m[1], Data: m[2]}, true
}
