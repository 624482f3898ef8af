package core

import (
	"context"
	"errors"
	"testing"

	"github.com/santiagomed/quill/llm"
	"github.com/santiagomed/quill/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) TestConnection(ctx context.Context, cfg llm.ProviderConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

func (m *MockWriter) GenerateOutlines(ctx context.Context, cfg llm.ProviderConfig, topic, styleHint string) ([]llm.OutlineOption, error) {
	args := m.Called(ctx, cfg, topic, styleHint)
	outlines, _ := args.Get(0).([]llm.OutlineOption)
	return outlines, args.Error(1)
}

func (m *MockWriter) GenerateChapterPoints(ctx context.Context, cfg llm.ProviderConfig, topic, chapterTitle string, otherChapters []string) ([]string, error) {
	args := m.Called(ctx, cfg, topic, chapterTitle, otherChapters)
	points, _ := args.Get(0).([]string)
	return points, args.Error(1)
}

func (m *MockWriter) GenerateChapterContent(ctx context.Context, cfg llm.ProviderConfig, r llm.ContentRequest) (string, error) {
	args := m.Called(ctx, cfg, r)
	return args.String(0), args.Error(1)
}

func (m *MockWriter) Refine(ctx context.Context, cfg llm.ProviderConfig, content, instruction string) (string, error) {
	args := m.Called(ctx, cfg, content, instruction)
	return args.String(0), args.Error(1)
}

func sampleOutlines() []llm.OutlineOption {
	return []llm.OutlineOption{
		{ID: "a", Style: "Formal", Description: "Precise and structured", Chapters: []string{"Intro", "Menu", "Staffing", "Marketing", "Outlook"}},
		{ID: "b", Style: "Casual", Description: "Friendly and light", Chapters: []string{"Hello", "Beans", "People", "Word of mouth", "Next"}},
		{ID: "c", Style: "Narrative", Description: "Told as a story", Chapters: []string{"Dawn", "Roast", "Crew", "Crowd", "Dusk"}},
	}
}

func newTestController(w Writer) *Controller {
	return NewController(w, llm.DefaultProviderConfig(), logger.NewNullLogger())
}

// toDrafting walks a controller to the drafting step with two chapters that have points.
func toDrafting(t *testing.T, c *Controller) {
	t.Helper()
	c.SetTopic("Coffee shop guide", "")
	c.session.Outlines = sampleOutlines()
	require.NoError(t, c.SelectOutline(0))
	c.SetChapterTitles([]string{"Intro", "Menu"})
	_, err := c.Next()
	require.NoError(t, err)
	require.NoError(t, c.SetPoints(0, []string{"why coffee"}))
	require.NoError(t, c.SetPoints(1, []string{"espresso"}))
	step, err := c.Next()
	require.NoError(t, err)
	require.Equal(t, StepDrafting, step)
}

func TestController_OutlineGate(t *testing.T) {
	w := new(MockWriter)
	ctx := context.Background()
	w.On("GenerateOutlines", ctx, llm.DefaultProviderConfig(), "Coffee shop guide", "").Return(sampleOutlines(), nil).Once()

	c := newTestController(w)
	assert.False(t, c.CanAdvance())

	_, err := c.GenerateOutlines(ctx)
	assert.ErrorIs(t, err, llm.ErrEmptyTopic)
	w.AssertNotCalled(t, "GenerateOutlines", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	c.SetTopic("Coffee shop guide", "")
	outlines, err := c.GenerateOutlines(ctx)
	require.NoError(t, err)
	assert.Len(t, outlines, 3)
	assert.False(t, c.Session().OutlinesLoading)

	step, err := c.Next()
	assert.ErrorIs(t, err, ErrOutlineNotSelected)
	assert.Equal(t, StepTopicAndOutline, step)

	require.NoError(t, c.SelectOutline(1))
	sess := c.Session()
	assert.Equal(t, "Casual", sess.Style)
	assert.Equal(t, "Friendly and light", sess.StyleDetails)
	assert.Equal(t, []string{"Hello", "Beans", "People", "Word of mouth", "Next"}, sess.ChapterTitles)

	c.SetChapterTitles([]string{" ", ""})
	_, err = c.Next()
	assert.ErrorIs(t, err, ErrNoChapters)

	c.SetChapterTitles([]string{"Hello", " ", "Beans"})
	step, err = c.Next()
	require.NoError(t, err)
	assert.Equal(t, StepChapterDetails, step)

	sess = c.Session()
	require.Len(t, sess.Chapters, 2)
	assert.Equal(t, "Hello", sess.Chapters[0].Title)
	assert.NotEmpty(t, sess.Chapters[0].ID)
	assert.NotEqual(t, sess.Chapters[0].ID, sess.Chapters[1].ID)
	assert.Empty(t, sess.Chapters[0].Points)
	w.AssertExpectations(t)
}

func TestController_SelectOutlineOutOfRange(t *testing.T) {
	c := newTestController(new(MockWriter))
	assert.ErrorIs(t, c.SelectOutline(0), ErrOutlineNotFound)
	assert.Equal(t, -1, c.Session().SelectedOutline)
}

func TestController_PointsGate(t *testing.T) {
	w := new(MockWriter)
	ctx := context.Background()
	cfg := llm.DefaultProviderConfig()
	w.On("GenerateChapterPoints", ctx, cfg, "Coffee shop guide", "Intro", []string{"Menu"}).Return([]string{"a", "b", "c", "d"}, nil).Once()
	w.On("GenerateChapterPoints", ctx, cfg, "Coffee shop guide", "Menu", []string{"Intro"}).Return([]string{"e", "f", "g", "h"}, nil).Once()

	c := newTestController(w)
	c.SetTopic("Coffee shop guide", "")
	c.session.Outlines = sampleOutlines()
	require.NoError(t, c.SelectOutline(0))
	c.SetChapterTitles([]string{"Intro", "Menu"})
	_, err := c.Next()
	require.NoError(t, err)

	_, err = c.Next()
	assert.ErrorIs(t, err, ErrMissingPoints)

	_, err = c.GenerateChapterPoints(ctx, 0)
	require.NoError(t, err)
	assert.False(t, c.CanAdvance())

	_, err = c.GenerateChapterPoints(ctx, 1)
	require.NoError(t, err)
	assert.True(t, c.CanAdvance())

	require.NoError(t, c.RemovePoint(1, 0))
	require.NoError(t, c.UpdatePoint(1, 0, "  "))
	require.NoError(t, c.AddPoint(1, "extra"))
	assert.Equal(t, []string{"  ", "g", "h", "extra"}, c.Session().Chapters[1].Points)
	assert.Error(t, c.RemovePoint(1, 9))

	require.NoError(t, c.SetPoints(1, []string{" "}))
	assert.False(t, c.CanAdvance())
	w.AssertExpectations(t)
}

func TestController_PointsErrorKeepsPrevious(t *testing.T) {
	w := new(MockWriter)
	w.On("GenerateChapterPoints", mock.Anything, mock.Anything, mock.Anything, "Intro", mock.Anything).
		Return(nil, llm.ErrInvalidOutput).Once()

	c := newTestController(w)
	toDrafting(t, c)
	c.Back()

	_, err := c.GenerateChapterPoints(context.Background(), 0)
	assert.ErrorIs(t, err, llm.ErrInvalidOutput)

	ch := c.Session().Chapters[0]
	assert.Equal(t, []string{"why coffee"}, ch.Points)
	assert.False(t, ch.IsGenerating)
}

func TestController_AutoDraftOnce(t *testing.T) {
	c := newTestController(new(MockWriter))
	toDrafting(t, c)

	assert.Equal(t, []int{0, 1}, c.AutoDraftTargets())
	assert.Empty(t, c.AutoDraftTargets())

	assert.Equal(t, StepChapterDetails, c.Back())
	_, err := c.Next()
	require.NoError(t, err)
	assert.Empty(t, c.AutoDraftTargets())
}

func TestController_AutoDraftSkipsChaptersWithContent(t *testing.T) {
	c := newTestController(new(MockWriter))
	c.SetTopic("Coffee shop guide", "")
	c.session.Outlines = sampleOutlines()
	require.NoError(t, c.SelectOutline(0))
	c.SetChapterTitles([]string{"Intro", "Menu"})
	_, err := c.Next()
	require.NoError(t, err)
	require.NoError(t, c.SetPoints(0, []string{"x"}))
	require.NoError(t, c.SetPoints(1, []string{"y"}))
	require.NoError(t, c.SetContent(0, "already written"))

	_, err = c.Next()
	require.NoError(t, err)
	assert.Equal(t, []int{1}, c.AutoDraftTargets())
}

func TestController_ContentRequestCarriesStyleAndImage(t *testing.T) {
	w := new(MockWriter)
	ctx := context.Background()
	want := llm.ContentRequest{
		Topic:        "Coffee shop guide",
		ChapterTitle: "Intro",
		Points:       []string{"why coffee"},
		Style:        "Formal: Precise and structured",
		ChartImage:   "data:image/png;base64,AAAA",
	}
	w.On("GenerateChapterContent", ctx, llm.DefaultProviderConfig(), want).Return("Body text.", nil).Once()

	c := newTestController(w)
	toDrafting(t, c)
	require.NoError(t, c.SetChartImage(0, "data:image/png;base64,AAAA"))

	content, err := c.GenerateChapterContent(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "Body text.", content)

	ch := c.Session().Chapters[0]
	assert.Equal(t, "Body text.", ch.Content)
	assert.False(t, ch.IsGenerating)
	w.AssertExpectations(t)
}

func TestController_StaleContentDiscarded(t *testing.T) {
	c := newTestController(new(MockWriter))
	toDrafting(t, c)

	first, err := c.BeginContent(0)
	require.NoError(t, err)
	assert.True(t, c.Session().Chapters[0].IsGenerating)

	second, err := c.BeginContent(0)
	require.NoError(t, err)

	assert.True(t, c.ApplyContent(second.Ticket, "newer", nil))
	assert.False(t, c.ApplyContent(first.Ticket, "older", nil))

	ch := c.Session().Chapters[0]
	assert.Equal(t, "newer", ch.Content)
	assert.False(t, ch.IsGenerating)
}

func TestController_ManualEditSupersedesPending(t *testing.T) {
	c := newTestController(new(MockWriter))
	toDrafting(t, c)

	job, err := c.BeginContent(1)
	require.NoError(t, err)
	require.NoError(t, c.SetContent(1, "typed by hand"))

	assert.False(t, c.ApplyContent(job.Ticket, "generated", nil))
	assert.Equal(t, "typed by hand", c.Session().Chapters[1].Content)
}

func TestController_ChaptersGenerateIndependently(t *testing.T) {
	c := newTestController(new(MockWriter))
	toDrafting(t, c)

	job0, err := c.BeginContent(0)
	require.NoError(t, err)
	job1, err := c.BeginContent(1)
	require.NoError(t, err)

	assert.True(t, c.ApplyContent(job1.Ticket, "second chapter", nil))
	sess := c.Session()
	assert.True(t, sess.Chapters[0].IsGenerating)
	assert.False(t, sess.Chapters[1].IsGenerating)

	assert.True(t, c.ApplyContent(job0.Ticket, "first chapter", nil))
	assert.Equal(t, "first chapter", c.Session().Chapters[0].Content)
}

func TestController_RefineTwiceReplaces(t *testing.T) {
	w := new(MockWriter)
	ctx := context.Background()
	cfg := llm.DefaultProviderConfig()
	w.On("Refine", ctx, cfg, "v1", "shorter").Return("v2", nil).Once()
	w.On("Refine", ctx, cfg, "v2", "add an example").Return("v3", nil).Once()

	c := newTestController(w)
	toDrafting(t, c)

	_, err := c.RefineChapter(ctx, 0, "shorter")
	assert.ErrorIs(t, err, ErrNoContent)

	require.NoError(t, c.SetContent(0, "v1"))
	_, err = c.RefineChapter(ctx, 0, "   ")
	assert.ErrorIs(t, err, llm.ErrEmptyInstruction)

	_, err = c.RefineChapter(ctx, 0, "shorter")
	require.NoError(t, err)
	_, err = c.RefineChapter(ctx, 0, "add an example")
	require.NoError(t, err)

	assert.Equal(t, "v3", c.Session().Chapters[0].Content)
	w.AssertExpectations(t)
}

func TestController_ErrorLeavesContent(t *testing.T) {
	w := new(MockWriter)
	w.On("Refine", mock.Anything, mock.Anything, "original", "rewrite").
		Return("", &llm.APIError{StatusCode: 500, Body: "boom"}).Once()

	c := newTestController(w)
	toDrafting(t, c)
	require.NoError(t, c.SetContent(0, "original"))

	_, err := c.RefineChapter(context.Background(), 0, "rewrite")
	var apiErr *llm.APIError
	assert.True(t, errors.As(err, &apiErr))

	ch := c.Session().Chapters[0]
	assert.Equal(t, "original", ch.Content)
	assert.False(t, ch.IsGenerating)
}

func TestController_ResetRequiresConfirmation(t *testing.T) {
	c := newTestController(new(MockWriter))
	custom := llm.ProviderConfig{Provider: llm.ProviderOpenAI, ModelName: "m", APIKey: "k", BaseURL: "http://x"}
	require.NoError(t, c.SetProviderConfig(custom))
	toDrafting(t, c)

	assert.ErrorIs(t, c.Reset(false), ErrResetNotConfirmed)
	assert.Equal(t, StepDrafting, c.Step())
	assert.Len(t, c.Session().Chapters, 2)

	pending, err := c.BeginContent(0)
	require.NoError(t, err)

	require.NoError(t, c.Reset(true))
	sess := c.Session()
	assert.Equal(t, StepTopicAndOutline, sess.Step)
	assert.Empty(t, sess.Topic)
	assert.Empty(t, sess.Chapters)
	assert.Equal(t, -1, sess.SelectedOutline)
	assert.Equal(t, custom, c.ProviderConfig())

	assert.False(t, c.ApplyContent(pending.Ticket, "late", nil))
}

func TestController_ResetDiscardsPendingOutlines(t *testing.T) {
	c := newTestController(new(MockWriter))
	c.SetTopic("Coffee shop guide", "")
	job, err := c.BeginOutlines()
	require.NoError(t, err)
	assert.True(t, c.Session().OutlinesLoading)

	require.NoError(t, c.Reset(true))
	assert.False(t, c.ApplyOutlines(job.Ticket, sampleOutlines(), nil))
	assert.Empty(t, c.Session().Outlines)
}

func TestController_BackPreservesState(t *testing.T) {
	c := newTestController(new(MockWriter))
	toDrafting(t, c)
	require.NoError(t, c.SetContent(0, "kept"))

	assert.Equal(t, StepChapterDetails, c.Back())
	assert.Equal(t, StepTopicAndOutline, c.Back())
	assert.Equal(t, StepTopicAndOutline, c.Back())

	sess := c.Session()
	assert.Equal(t, "Coffee shop guide", sess.Topic)
	assert.Equal(t, 0, sess.SelectedOutline)
	assert.Equal(t, "kept", sess.Chapters[0].Content)

	// Re-finalizing the same titles keeps the chapter work.
	_, err := c.Next()
	require.NoError(t, err)
	assert.Equal(t, "kept", c.Session().Chapters[0].Content)
}

func TestController_FinalizeAssemblesDocument(t *testing.T) {
	c := newTestController(new(MockWriter))
	toDrafting(t, c)
	require.NoError(t, c.SetContent(0, "Welcome."))

	assert.ErrorIs(t, c.SetDocument("early"), ErrWrongStep)

	step, err := c.Next()
	require.NoError(t, err)
	assert.Equal(t, StepFinalize, step)
	assert.Equal(t, "## Intro\n\nWelcome.\n\n## Menu\n\n"+MissingContentPlaceholder+"\n", c.Document())

	_, err = c.Next()
	assert.ErrorIs(t, err, ErrLastStep)

	require.NoError(t, c.SetDocument("edited"))
	assert.Equal(t, "edited", c.Document())
}

func TestController_ApplyProviderConfig(t *testing.T) {
	w := new(MockWriter)
	bad := llm.ProviderConfig{Provider: llm.ProviderOpenAI, ModelName: "m", APIKey: "k", BaseURL: "http://bad"}
	good := llm.ProviderConfig{Provider: llm.ProviderOpenAI, ModelName: "m", APIKey: "k", BaseURL: "http://good"}
	w.On("TestConnection", mock.Anything, bad).Return(&llm.TransportError{Err: errors.New("refused")}).Once()
	w.On("TestConnection", mock.Anything, good).Return(nil).Once()

	c := newTestController(w)
	assert.Error(t, c.ApplyProviderConfig(context.Background(), bad))
	assert.Equal(t, llm.DefaultProviderConfig(), c.ProviderConfig())

	require.NoError(t, c.ApplyProviderConfig(context.Background(), good))
	assert.Equal(t, good, c.ProviderConfig())

	assert.ErrorIs(t, c.SetProviderConfig(llm.ProviderConfig{Provider: "other"}), llm.ErrUnknownProvider)
	w.AssertExpectations(t)
}

func TestAssembleDocument(t *testing.T) {
	assert.Equal(t, "", AssembleDocument(nil))
	doc := AssembleDocument([]ChapterDetail{{Title: " One ", Content: "  first \n"}})
	assert.Equal(t, "## One\n\nfirst\n", doc)
}
