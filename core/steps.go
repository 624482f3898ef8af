package core

import (
	"context"
	"fmt"

	"github.com/santiagomed/quill/fs"
)

type StepManager interface {
	GetSteps() []StepType
	GetStep(StepType) PipelineStep
}

type DefaultStepManager struct {
	steps   []StepType
	stepMap map[StepType]PipelineStep
}

func NewDefaultStepManager() *DefaultStepManager {
	return &DefaultStepManager{
		steps: []StepType{
			GenerateOutlines,
			SelectOutline,
			GenerateChapterPoints,
			AttachChartImages,
			GenerateChapterContents,
			AssembleDocumentStep,
			ExportDocument,
			Done,
		},
		stepMap: map[StepType]PipelineStep{
			GenerateOutlines:        &generateOutlinesStep{},
			SelectOutline:           &selectOutlineStep{},
			GenerateChapterPoints:   &generateChapterPointsStep{},
			AttachChartImages:       &attachChartImagesStep{},
			GenerateChapterContents: &generateChapterContentsStep{},
			AssembleDocumentStep:    &assembleDocumentStep{},
			ExportDocument:          &exportDocumentStep{},
			Done:                    &doneStep{},
		},
	}
}

func (sm *DefaultStepManager) GetSteps() []StepType {
	return sm.steps
}

func (sm *DefaultStepManager) GetStep(t StepType) PipelineStep {
	return sm.stepMap[t]
}

type generateOutlinesStep struct{}

func (s *generateOutlinesStep) Execute(ctx context.Context, state *State) error {
	state.Logger.Debug("Generating outlines.")
	state.Controller.SetTopic(state.Request.Topic, state.Request.StyleHint)
	outlines, err := state.Controller.GenerateOutlines(ctx)
	if err != nil {
		return fmt.Errorf("failed to generate outlines: %w", err)
	}
	for i, o := range outlines {
		state.Logger.Debug(fmt.Sprintf("Outline %d: %s (%d chapters)", i+1, o.Style, len(o.Chapters)))
	}
	return nil
}

type selectOutlineStep struct{}

func (s *selectOutlineStep) Execute(ctx context.Context, state *State) error {
	if err := state.Controller.SelectOutline(state.Request.OutlineIndex); err != nil {
		return fmt.Errorf("failed to select outline %d: %w", state.Request.OutlineIndex+1, err)
	}
	if _, err := state.Controller.Next(); err != nil {
		return err
	}
	return nil
}

type generateChapterPointsStep struct{}

func (s *generateChapterPointsStep) Execute(ctx context.Context, state *State) error {
	sess := state.Controller.Session()
	for i, ch := range sess.Chapters {
		if ch.HasPoints() {
			continue
		}
		state.Logger.Debug(fmt.Sprintf("Generating points for chapter %q.", ch.Title))
		if _, err := state.Controller.GenerateChapterPoints(ctx, i); err != nil {
			return fmt.Errorf("failed to generate points for chapter %q: %w", ch.Title, err)
		}
	}
	if _, err := state.Controller.Next(); err != nil {
		return err
	}
	return nil
}

type attachChartImagesStep struct{}

func (s *attachChartImagesStep) Execute(ctx context.Context, state *State) error {
	if len(state.Request.ChartImages) == 0 {
		return nil
	}
	if state.Assets == nil {
		return fmt.Errorf("chart images given but no file system to read them from")
	}
	for i, ch := range state.Controller.Session().Chapters {
		path, ok := state.Request.chartFor(i, ch.Title)
		if !ok {
			continue
		}
		uri, err := state.Assets.ReadImage(path)
		if err != nil {
			return err
		}
		if err := state.Controller.SetChartImage(i, uri); err != nil {
			return err
		}
		state.Logger.Debug(fmt.Sprintf("Attached %s to chapter %q.", path, ch.Title))
	}
	return nil
}

type generateChapterContentsStep struct{}

func (s *generateChapterContentsStep) Execute(ctx context.Context, state *State) error {
	sess := state.Controller.Session()
	for _, i := range state.Controller.AutoDraftTargets() {
		title := sess.Chapters[i].Title
		state.Logger.Debug(fmt.Sprintf("Drafting chapter %q.", title))
		if _, err := state.Controller.GenerateChapterContent(ctx, i); err != nil {
			return fmt.Errorf("failed to draft chapter %q: %w", title, err)
		}
	}
	return nil
}

type assembleDocumentStep struct{}

func (s *assembleDocumentStep) Execute(ctx context.Context, state *State) error {
	if _, err := state.Controller.Next(); err != nil {
		return err
	}
	return nil
}

type exportDocumentStep struct{}

func (s *exportDocumentStep) Execute(ctx context.Context, state *State) error {
	if state.Output == nil {
		return nil
	}
	sess := state.Controller.Session()
	var (
		path string
		err  error
	)
	if state.Request.Bundle {
		chapters := make([]fs.BundleChapter, len(sess.Chapters))
		for i, ch := range sess.Chapters {
			chapters[i] = fs.BundleChapter{Title: ch.Title, Content: ch.Content, ChartImage: ch.ChartImage}
		}
		path, err = state.Output.ExportBundle(state.Request.OutputDir, sess.Document, chapters)
	} else {
		path, err = state.Output.ExportDocument(state.Request.OutputDir, sess.Document)
	}
	if err != nil {
		return err
	}
	state.ExportPath = path
	return nil
}

type doneStep struct{}

func (s *doneStep) Execute(ctx context.Context, state *State) error {
	state.Logger.Debug("Document drafted.")
	return nil
}
