package core

import (
	"strconv"
	"strings"

	"github.com/santiagomed/quill/llm"
)

// Request describes one headless drafting run: topic in, document out.
type Request struct {
	Topic        string
	StyleHint    string
	OutlineIndex int
	// ChartImages maps a chapter (1-based number or exact title) to an image path.
	ChartImages map[string]string
	OutputDir   string
	Bundle      bool

	Provider llm.ProviderConfig
}

func NewRequest(topic, styleHint string, outline int, outDir string, bundle bool, provider llm.ProviderConfig) *Request {
	return &Request{
		Topic:        topic,
		StyleHint:    styleHint,
		OutlineIndex: outline,
		ChartImages:  make(map[string]string),
		OutputDir:    outDir,
		Bundle:       bundle,
		Provider:     provider,
	}
}

// chartFor returns the image path registered for the chapter at index i, if any.
func (r *Request) chartFor(i int, title string) (string, bool) {
	if path, ok := r.ChartImages[strconv.Itoa(i+1)]; ok {
		return path, true
	}
	for key, path := range r.ChartImages {
		if strings.EqualFold(strings.TrimSpace(key), strings.TrimSpace(title)) {
			return path, true
		}
	}
	return "", false
}
