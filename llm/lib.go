package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/santiagomed/quill/logger"
	"github.com/santiagomed/quill/utils"
)

const (
	OutlineCount = 3
	minChapters  = 5
	maxChapters  = 8
	minPoints    = 4
	maxPoints    = 6

	rawPreviewLength = 2000
)

// OutlineOption is one proposed structure for the document.
type OutlineOption struct {
	ID          string   `json:"id"`
	Style       string   `json:"style"`
	Description string   `json:"description"`
	Chapters    []string `json:"chapters"`
}

// ContentRequest carries what a chapter draft is built from. ChartImage is an optional
// data:<mime>;base64,<payload> string.
type ContentRequest struct {
	Topic        string   `json:"topic"`
	ChapterTitle string   `json:"chapter_title"`
	Points       []string `json:"points"`
	Style        string   `json:"style"`
	ChartImage   string   `json:"chart_image,omitempty"`
}

// Service implements the drafting operations on top of a Gateway.
type Service struct {
	gateway Gateway
	logger  logger.Logger
}

func NewService(g Gateway, l logger.Logger) *Service {
	if l == nil {
		l = logger.NewNullLogger()
	}
	return &Service{gateway: g, logger: l}
}

// TestConnection sends a tiny prompt with cfg. Gateway errors are returned unchanged.
func (s *Service) TestConnection(ctx context.Context, cfg ProviderConfig) error {
	_, err := s.gateway.Call(ctx, cfg, Request{
		Prompt:   TextPrompt(connectionProbePrompt),
		MIMEType: MIMETypeText,
	})
	return err
}

// GenerateOutlines asks for three outlines. Anything but a well-formed answer is ErrInvalidOutput.
func (s *Service) GenerateOutlines(ctx context.Context, cfg ProviderConfig, topic, styleHint string) ([]OutlineOption, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, ErrEmptyTopic
	}

	response, err := s.gateway.Call(ctx, cfg, Request{
		Prompt:            TextPrompt(getOutlinesPrompt(topic, strings.TrimSpace(styleHint))),
		SystemInstruction: getSystemPrompt(),
		MIMEType:          MIMETypeJSON,
		Schema:            outlinesSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate outlines: %w", err)
	}

	outlines, err := parseOutlines(response)
	if err != nil {
		s.logger.WithField("raw", utils.TruncateString(response, rawPreviewLength)).
			Error(fmt.Sprintf("Failed to parse outlines: %v", err))
		return nil, ErrInvalidOutput
	}
	return outlines, nil
}

func parseOutlines(raw string) ([]OutlineOption, error) {
	var payload struct {
		Outlines []OutlineOption `json:"outlines"`
	}
	if err := json.Unmarshal([]byte(StripCodeFence(raw)), &payload); err != nil {
		return nil, fmt.Errorf("error parsing outlines: %w", err)
	}
	if len(payload.Outlines) != OutlineCount {
		return nil, fmt.Errorf("expected %d outlines, got %d", OutlineCount, len(payload.Outlines))
	}

	outlines := make([]OutlineOption, 0, OutlineCount)
	for i, o := range payload.Outlines {
		o.ID = uuid.NewString()
		o.Style = strings.TrimSpace(o.Style)
		o.Description = strings.TrimSpace(o.Description)
		o.Chapters = cleanStrings(o.Chapters)
		if o.Style == "" || o.Description == "" {
			return nil, fmt.Errorf("outline %d is missing a style or description", i)
		}
		if n := len(o.Chapters); n < minChapters || n > maxChapters {
			return nil, fmt.Errorf("outline %d has %d chapters, want %d to %d", i, n, minChapters, maxChapters)
		}
		outlines = append(outlines, o)
	}
	return outlines, nil
}

// GenerateChapterPoints plans one chapter as bullet points. otherChapters gives context; the
// target title is filtered out of it. An unparseable answer is scraped for bullet lines
// instead of failing, so the result may be empty.
func (s *Service) GenerateChapterPoints(ctx context.Context, cfg ProviderConfig, topic, chapterTitle string, otherChapters []string) ([]string, error) {
	var others []string
	for _, title := range cleanStrings(otherChapters) {
		if title != strings.TrimSpace(chapterTitle) {
			others = append(others, title)
		}
	}

	response, err := s.gateway.Call(ctx, cfg, Request{
		Prompt:            TextPrompt(getChapterPointsPrompt(topic, chapterTitle, others)),
		SystemInstruction: getSystemPrompt(),
		MIMEType:          MIMETypeJSON,
		Schema:            detailsSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate chapter points: %w", err)
	}

	var payload struct {
		Details []string `json:"details"`
	}
	if err := json.Unmarshal([]byte(StripCodeFence(response)), &payload); err != nil {
		s.logger.WithField("raw", utils.TruncateString(response, rawPreviewLength)).
			Warn(fmt.Sprintf("Chapter points were not valid JSON, salvaging bullet lines: %v", err))
		return parseBulletLines(response), nil
	}
	return cleanStrings(payload.Details), nil
}

// GenerateChapterContent drafts the prose for one chapter. A chart image that is not a base64
// data URI is dropped and the chapter is drafted from text alone.
func (s *Service) GenerateChapterContent(ctx context.Context, cfg ProviderConfig, r ContentRequest) (string, error) {
	prompt := TextPrompt(getChapterContentPrompt(r, false))
	if r.ChartImage != "" {
		if img, ok := ParseDataURI(r.ChartImage); ok {
			prompt = PartsPrompt(ImagePart(img), TextPart(getChapterContentPrompt(r, true)))
		} else {
			s.logger.Debug(fmt.Sprintf("Chart image for chapter %q is not a data URI, ignoring it", r.ChapterTitle))
		}
	}

	response, err := s.gateway.Call(ctx, cfg, Request{
		Prompt:            prompt,
		SystemInstruction: getSystemPrompt(),
		MIMEType:          MIMETypeText,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate content for chapter %q: %w", r.ChapterTitle, err)
	}
	return stripLeadingTitle(strings.TrimSpace(response), r.ChapterTitle), nil
}

// Refine rewrites content according to instruction. Each call is independent.
func (s *Service) Refine(ctx context.Context, cfg ProviderConfig, content, instruction string) (string, error) {
	instruction = strings.TrimSpace(instruction)
	if instruction == "" {
		return "", ErrEmptyInstruction
	}

	response, err := s.gateway.Call(ctx, cfg, Request{
		Prompt:            TextPrompt(getRefinePrompt(content, instruction)),
		SystemInstruction: getSystemPrompt(),
		MIMEType:          MIMETypeText,
	})
	if err != nil {
		return "", fmt.Errorf("failed to refine content: %w", err)
	}
	return strings.TrimSpace(response), nil
}
