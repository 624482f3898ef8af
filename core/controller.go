package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/santiagomed/quill/llm"
	"github.com/santiagomed/quill/logger"
)

var (
	ErrOutlineNotSelected = errors.New("select an outline before continuing")
	ErrNoChapters         = errors.New("the outline needs at least one chapter title")
	ErrMissingPoints      = errors.New("every chapter needs at least one point")
	ErrResetNotConfirmed  = errors.New("reset must be confirmed")
	ErrChapterNotFound    = errors.New("chapter not found")
	ErrOutlineNotFound    = errors.New("outline not found")
	ErrNoContent          = errors.New("chapter has no content to refine")
	ErrWrongStep          = errors.New("action is not available on this step")
	ErrLastStep           = errors.New("already on the last step")
)

// Writer is the set of drafting operations the controller drives.
type Writer interface {
	TestConnection(ctx context.Context, cfg llm.ProviderConfig) error
	GenerateOutlines(ctx context.Context, cfg llm.ProviderConfig, topic, styleHint string) ([]llm.OutlineOption, error)
	GenerateChapterPoints(ctx context.Context, cfg llm.ProviderConfig, topic, chapterTitle string, otherChapters []string) ([]string, error)
	GenerateChapterContent(ctx context.Context, cfg llm.ProviderConfig, r llm.ContentRequest) (string, error)
	Refine(ctx context.Context, cfg llm.ProviderConfig, content, instruction string) (string, error)
}

// Ticket identifies one outstanding request. A response is applied only if its ticket is
// still the latest issued for the same field of the same chapter.
type Ticket struct {
	ChapterID string
	Config    llm.ProviderConfig
	token     uint64
}

type OutlinesJob struct {
	Ticket
	Topic     string
	StyleHint string
}

type PointsJob struct {
	Ticket
	Topic       string
	Title       string
	OtherTitles []string
}

type ContentJob struct {
	Ticket
	Request llm.ContentRequest
}

type RefineJob struct {
	Ticket
	Content     string
	Instruction string
}

// Controller owns the wizard session and is the only thing that mutates it.
type Controller struct {
	mu            sync.Mutex
	session       Session
	config        llm.ProviderConfig
	writer        Writer
	logger        logger.Logger
	seq           uint64
	outlinesToken uint64
	autoDraft     []int
}

func NewController(w Writer, cfg llm.ProviderConfig, l logger.Logger) *Controller {
	if l == nil {
		l = logger.NewNullLogger()
	}
	return &Controller{
		session: newSession(),
		config:  cfg,
		writer:  w,
		logger:  l,
	}
}

func (c *Controller) nextToken() uint64 {
	c.seq++
	return c.seq
}

// Session returns a deep copy of the current state.
func (c *Controller) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.clone()
}

func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Step
}

// ---- provider configuration ----

func (c *Controller) ProviderConfig() llm.ProviderConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config
}

// SetProviderConfig replaces the configuration after a local check; no network call.
func (c *Controller) SetProviderConfig(cfg llm.ProviderConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.config = cfg
	c.mu.Unlock()
	c.logger.Info(fmt.Sprintf("Provider set to %s", cfg))
	return nil
}

// TestConnection probes cfg without committing it.
func (c *Controller) TestConnection(ctx context.Context, cfg llm.ProviderConfig) error {
	return c.writer.TestConnection(ctx, cfg)
}

// ApplyProviderConfig probes cfg and commits it only if the probe succeeds.
func (c *Controller) ApplyProviderConfig(ctx context.Context, cfg llm.ProviderConfig) error {
	if err := c.TestConnection(ctx, cfg); err != nil {
		return err
	}
	return c.SetProviderConfig(cfg)
}

// ---- step 1: topic and outline ----

func (c *Controller) SetTopic(topic, styleHint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.Topic = topic
	c.session.StyleHint = styleHint
}

// BeginOutlines validates the topic and marks outlines as loading.
func (c *Controller) BeginOutlines() (OutlinesJob, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if strings.TrimSpace(c.session.Topic) == "" {
		return OutlinesJob{}, llm.ErrEmptyTopic
	}
	c.outlinesToken = c.nextToken()
	c.session.OutlinesLoading = true
	return OutlinesJob{
		Ticket:    Ticket{Config: c.config, token: c.outlinesToken},
		Topic:     c.session.Topic,
		StyleHint: c.session.StyleHint,
	}, nil
}

func (c *Controller) ExecuteOutlines(ctx context.Context, job OutlinesJob) ([]llm.OutlineOption, error) {
	return c.writer.GenerateOutlines(ctx, job.Config, job.Topic, job.StyleHint)
}

// ApplyOutlines stores a successful result. It reports false when the response was stale.
func (c *Controller) ApplyOutlines(t Ticket, outlines []llm.OutlineOption, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.token == 0 || t.token != c.outlinesToken {
		c.logger.Debug("Discarding stale outline response")
		return false
	}
	c.outlinesToken = 0
	c.session.OutlinesLoading = false
	if err != nil {
		return true
	}
	c.session.Outlines = outlines
	c.session.SelectedOutline = -1
	return true
}

func (c *Controller) GenerateOutlines(ctx context.Context) ([]llm.OutlineOption, error) {
	job, err := c.BeginOutlines()
	if err != nil {
		return nil, err
	}
	outlines, err := c.ExecuteOutlines(ctx, job)
	c.ApplyOutlines(job.Ticket, outlines, err)
	return outlines, err
}

// SelectOutline copies the outline into the editable style and chapter fields.
func (c *Controller) SelectOutline(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.session.Outlines) {
		return ErrOutlineNotFound
	}
	o := c.session.Outlines[i]
	c.session.SelectedOutline = i
	c.session.Style = o.Style
	c.session.StyleDetails = o.Description
	c.session.ChapterTitles = append([]string(nil), o.Chapters...)
	return nil
}

func (c *Controller) SetStyle(label, details string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.Style = label
	c.session.StyleDetails = details
}

func (c *Controller) SetChapterTitles(titles []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.ChapterTitles = append([]string(nil), titles...)
}

// ---- transitions ----

// CanAdvance reports whether Next would succeed from the current step.
func (c *Controller) CanAdvance() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.advanceError() == nil
}

func (c *Controller) advanceError() error {
	switch c.session.Step {
	case StepTopicAndOutline:
		if c.session.SelectedOutline < 0 {
			return ErrOutlineNotSelected
		}
		if len(nonBlank(c.session.ChapterTitles)) == 0 {
			return ErrNoChapters
		}
		return nil
	case StepChapterDetails:
		if len(c.session.Chapters) == 0 {
			return ErrNoChapters
		}
		for _, ch := range c.session.Chapters {
			if !ch.HasPoints() {
				return ErrMissingPoints
			}
		}
		return nil
	case StepDrafting:
		return nil
	default:
		return ErrLastStep
	}
}

// Next moves one step forward if the current step is complete.
func (c *Controller) Next() (Step, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.advanceError(); err != nil {
		return c.session.Step, err
	}

	switch c.session.Step {
	case StepTopicAndOutline:
		c.buildChapters()
	case StepChapterDetails:
		if !c.session.draftingVisited {
			c.session.draftingVisited = true
			c.autoDraft = c.autoDraft[:0]
			for i, ch := range c.session.Chapters {
				if strings.TrimSpace(ch.Content) == "" && !ch.contentBusy {
					c.autoDraft = append(c.autoDraft, i)
				}
			}
		}
	case StepDrafting:
		c.session.Document = AssembleDocument(c.session.Chapters)
	}
	c.session.Step++
	c.logger.Debug(fmt.Sprintf("Advanced to step %v", c.session.Step))
	return c.session.Step, nil
}

// buildChapters turns the edited chapter titles into chapter details, keeping the work of
// any existing chapter with the same title.
func (c *Controller) buildChapters() {
	existing := make(map[string][]ChapterDetail)
	for _, ch := range c.session.Chapters {
		existing[ch.Title] = append(existing[ch.Title], ch)
	}

	titles := nonBlank(c.session.ChapterTitles)
	chapters := make([]ChapterDetail, 0, len(titles))
	for _, title := range titles {
		if prev := existing[title]; len(prev) > 0 {
			chapters = append(chapters, prev[0])
			existing[title] = prev[1:]
			continue
		}
		chapters = append(chapters, ChapterDetail{ID: uuid.NewString(), Title: title, Points: []string{}})
	}
	c.session.Chapters = chapters
}

// AutoDraftTargets returns, once, the chapters to draft automatically on the first visit to
// the drafting step.
func (c *Controller) AutoDraftTargets() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := append([]int(nil), c.autoDraft...)
	c.autoDraft = nil
	return out
}

// Back moves one step backward. Nothing is discarded.
func (c *Controller) Back() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.Step > StepTopicAndOutline {
		c.session.Step--
	}
	return c.session.Step
}

// Reset clears the session. Provider configuration is kept. In-flight responses are dropped
// when they arrive.
func (c *Controller) Reset(confirmed bool) error {
	if !confirmed {
		return ErrResetNotConfirmed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = newSession()
	c.outlinesToken = 0
	c.autoDraft = nil
	c.logger.Info("Session reset")
	return nil
}

// ---- step 2: chapter points ----

func (c *Controller) chapter(i int) (*ChapterDetail, error) {
	if i < 0 || i >= len(c.session.Chapters) {
		return nil, fmt.Errorf("%w: %d", ErrChapterNotFound, i)
	}
	return &c.session.Chapters[i], nil
}

func (c *Controller) chapterByID(id string) *ChapterDetail {
	for i := range c.session.Chapters {
		if c.session.Chapters[i].ID == id {
			return &c.session.Chapters[i]
		}
	}
	return nil
}

// editPoints applies fn to chapter i's points. A manual edit supersedes any pending generation.
func (c *Controller) editPoints(i int, fn func([]string) ([]string, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, err := c.chapter(i)
	if err != nil {
		return err
	}
	points, err := fn(append([]string(nil), ch.Points...))
	if err != nil {
		return err
	}
	ch.Points = points
	ch.pointsToken = c.nextToken()
	ch.pointsBusy = false
	ch.syncBusy()
	return nil
}

func (c *Controller) SetPoints(i int, points []string) error {
	return c.editPoints(i, func([]string) ([]string, error) {
		return append([]string{}, points...), nil
	})
}

func (c *Controller) AddPoint(i int, point string) error {
	return c.editPoints(i, func(points []string) ([]string, error) {
		return append(points, point), nil
	})
}

func (c *Controller) UpdatePoint(i, j int, point string) error {
	return c.editPoints(i, func(points []string) ([]string, error) {
		if j < 0 || j >= len(points) {
			return nil, fmt.Errorf("point %d out of range", j)
		}
		points[j] = point
		return points, nil
	})
}

func (c *Controller) RemovePoint(i, j int) error {
	return c.editPoints(i, func(points []string) ([]string, error) {
		if j < 0 || j >= len(points) {
			return nil, fmt.Errorf("point %d out of range", j)
		}
		return append(points[:j], points[j+1:]...), nil
	})
}

func (c *Controller) BeginPoints(i int) (PointsJob, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, err := c.chapter(i)
	if err != nil {
		return PointsJob{}, err
	}
	var others []string
	for j, other := range c.session.Chapters {
		if j != i {
			others = append(others, other.Title)
		}
	}
	ch.pointsToken = c.nextToken()
	ch.pointsBusy = true
	ch.syncBusy()
	return PointsJob{
		Ticket:      Ticket{ChapterID: ch.ID, Config: c.config, token: ch.pointsToken},
		Topic:       c.session.Topic,
		Title:       ch.Title,
		OtherTitles: others,
	}, nil
}

func (c *Controller) ExecutePoints(ctx context.Context, job PointsJob) ([]string, error) {
	return c.writer.GenerateChapterPoints(ctx, job.Config, job.Topic, job.Title, job.OtherTitles)
}

// ApplyPoints stores generated points. On error the previous points stay. It reports false
// when the response was stale and therefore ignored.
func (c *Controller) ApplyPoints(t Ticket, points []string, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := c.chapterByID(t.ChapterID)
	if ch == nil || t.token == 0 || ch.pointsToken != t.token {
		c.logger.Debug(fmt.Sprintf("Discarding stale points response for chapter %s", t.ChapterID))
		return false
	}
	ch.pointsBusy = false
	ch.syncBusy()
	if err != nil {
		c.logger.Warn(fmt.Sprintf("Point generation for %q failed: %v", ch.Title, err))
		return true
	}
	ch.Points = append([]string{}, points...)
	return true
}

func (c *Controller) GenerateChapterPoints(ctx context.Context, i int) ([]string, error) {
	job, err := c.BeginPoints(i)
	if err != nil {
		return nil, err
	}
	points, err := c.ExecutePoints(ctx, job)
	c.ApplyPoints(job.Ticket, points, err)
	return points, err
}

// ---- step 3: drafting ----

func (c *Controller) SetChartImage(i int, dataURI string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, err := c.chapter(i)
	if err != nil {
		return err
	}
	ch.ChartImage = dataURI
	return nil
}

func (c *Controller) ClearChartImage(i int) error {
	return c.SetChartImage(i, "")
}

// SetContent replaces chapter content by hand, superseding any pending generation.
func (c *Controller) SetContent(i int, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, err := c.chapter(i)
	if err != nil {
		return err
	}
	ch.Content = content
	ch.contentToken = c.nextToken()
	ch.contentBusy = false
	ch.syncBusy()
	return nil
}

func (c *Controller) beginContent(ch *ChapterDetail) Ticket {
	ch.contentToken = c.nextToken()
	ch.contentBusy = true
	ch.syncBusy()
	return Ticket{ChapterID: ch.ID, Config: c.config, token: ch.contentToken}
}

func (c *Controller) BeginContent(i int) (ContentJob, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, err := c.chapter(i)
	if err != nil {
		return ContentJob{}, err
	}
	return ContentJob{
		Ticket: c.beginContent(ch),
		Request: llm.ContentRequest{
			Topic:        c.session.Topic,
			ChapterTitle: ch.Title,
			Points:       nonBlank(ch.Points),
			Style:        c.session.StyleDescriptor(),
			ChartImage:   ch.ChartImage,
		},
	}, nil
}

func (c *Controller) ExecuteContent(ctx context.Context, job ContentJob) (string, error) {
	return c.writer.GenerateChapterContent(ctx, job.Config, job.Request)
}

func (c *Controller) BeginRefine(i int, instruction string) (RefineJob, error) {
	if strings.TrimSpace(instruction) == "" {
		return RefineJob{}, llm.ErrEmptyInstruction
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	ch, err := c.chapter(i)
	if err != nil {
		return RefineJob{}, err
	}
	if strings.TrimSpace(ch.Content) == "" {
		return RefineJob{}, ErrNoContent
	}
	return RefineJob{
		Ticket:      c.beginContent(ch),
		Content:     ch.Content,
		Instruction: instruction,
	}, nil
}

func (c *Controller) ExecuteRefine(ctx context.Context, job RefineJob) (string, error) {
	return c.writer.Refine(ctx, job.Config, job.Content, job.Instruction)
}

// ApplyContent replaces the chapter content with a generated or refined result. On error the
// previous content stays. It reports false when the response was stale and therefore ignored.
func (c *Controller) ApplyContent(t Ticket, content string, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := c.chapterByID(t.ChapterID)
	if ch == nil || t.token == 0 || ch.contentToken != t.token {
		c.logger.Debug(fmt.Sprintf("Discarding stale content response for chapter %s", t.ChapterID))
		return false
	}
	ch.contentBusy = false
	ch.syncBusy()
	if err != nil {
		c.logger.Warn(fmt.Sprintf("Content generation for %q failed: %v", ch.Title, err))
		return true
	}
	ch.Content = content
	return true
}

func (c *Controller) GenerateChapterContent(ctx context.Context, i int) (string, error) {
	job, err := c.BeginContent(i)
	if err != nil {
		return "", err
	}
	content, err := c.ExecuteContent(ctx, job)
	c.ApplyContent(job.Ticket, content, err)
	return content, err
}

func (c *Controller) RefineChapter(ctx context.Context, i int, instruction string) (string, error) {
	job, err := c.BeginRefine(i, instruction)
	if err != nil {
		return "", err
	}
	content, err := c.ExecuteRefine(ctx, job)
	c.ApplyContent(job.Ticket, content, err)
	return content, err
}

// ---- step 4: finalize ----

// AssembleDocument recomputes the document from the current chapters without storing it.
func (c *Controller) AssembleDocument() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return AssembleDocument(c.session.Chapters)
}

// SetDocument stores a hand-edited document. Only valid on the final step.
func (c *Controller) SetDocument(doc string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.Step != StepFinalize {
		return ErrWrongStep
	}
	c.session.Document = doc
	return nil
}

func (c *Controller) Document() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Document
}

func nonBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
