package core

import (
	"context"
	"fmt"
	"time"

	"github.com/santiagomed/quill/fs"
	"github.com/santiagomed/quill/logger"
)

type PipelineStep interface {
	Execute(ctx context.Context, state *State) error
}

type StepType int

const (
	GenerateOutlines StepType = iota
	SelectOutline
	GenerateChapterPoints
	AttachChartImages
	GenerateChapterContents
	AssembleDocumentStep
	ExportDocument
	Done
)

func (s StepType) String() string {
	switch s {
	case GenerateOutlines:
		return "GenerateOutlines"
	case SelectOutline:
		return "SelectOutline"
	case GenerateChapterPoints:
		return "GenerateChapterPoints"
	case AttachChartImages:
		return "AttachChartImages"
	case GenerateChapterContents:
		return "GenerateChapterContents"
	case AssembleDocumentStep:
		return "AssembleDocument"
	case ExportDocument:
		return "ExportDocument"
	case Done:
		return "Done"
	default:
		return fmt.Sprintf("StepType(%d)", int(s))
	}
}

type State struct {
	Request    *Request
	Controller *Controller
	// Output receives the exported document; Assets is where chart images are read from.
	Output     *fs.FileSystem
	Assets     *fs.FileSystem
	Logger     logger.Logger
	ExportPath string
}

type Pipeline struct {
	stepManager StepManager
	state       *State
	publisher   StepPublisher
}

func NewPipeline(r *Request, w Writer, sm StepManager, pub StepPublisher, out, assets *fs.FileSystem, l logger.Logger) (*Pipeline, error) {
	if err := r.Provider.Validate(); err != nil {
		return nil, err
	}
	if l == nil {
		l = logger.NewNullLogger()
	}
	if pub == nil {
		pub = &DefaultStepPublisher{}
	}
	return &Pipeline{
		state: &State{
			Request:    r,
			Controller: NewController(w, r.Provider, l),
			Output:     out,
			Assets:     assets,
			Logger:     l,
		},
		publisher:   pub,
		stepManager: sm,
	}, nil
}

// ExportPath is where the document was written once the pipeline has completed.
func (p *Pipeline) ExportPath() string {
	return p.state.ExportPath
}

// Session returns a snapshot of the drafting session the pipeline drives.
func (p *Pipeline) Session() Session {
	return p.state.Controller.Session()
}

func (p *Pipeline) Execute(ctx context.Context) error {
	steps := p.stepManager.GetSteps()
	p.state.Logger.Info("Starting pipeline execution")
	for i, stepType := range steps {
		select {
		case <-ctx.Done():
			p.state.Logger.Info("Pipeline execution cancelled")
			return ctx.Err()
		default:
		}

		p.state.Logger.Debug(fmt.Sprintf("Attempting to execute step %d: %v", i, stepType))
		step := p.stepManager.GetStep(stepType)
		if step == nil {
			p.state.Logger.Error(fmt.Sprintf("Step %v not found", stepType))
			p.publisher.Error(stepType, fmt.Errorf("step %v not found", stepType))
			return fmt.Errorf("step %v not found", stepType)
		}

		startTime := time.Now()
		if err := step.Execute(ctx, p.state); err != nil {
			p.state.Logger.Error(fmt.Sprintf("Error executing step %v: %v", stepType, err))
			p.publisher.Error(stepType, err)
			return err
		}
		p.state.Logger.Info(fmt.Sprintf("Step %v completed in %v", stepType, time.Since(startTime)))
		p.publisher.PublishStep(stepType)

		if i < len(steps)-1 {
			p.state.Logger.Debug(fmt.Sprintf("Transitioning from step %v to step %v", stepType, steps[i+1]))
		}
	}

	p.state.Logger.Info("Pipeline execution completed")
	return nil
}

type StepPublisher interface {
	PublishStep(step StepType)
	Error(step StepType, err error)
}

type DefaultStepPublisher struct{}

func (p *DefaultStepPublisher) PublishStep(step StepType) {}

func (p *DefaultStepPublisher) Error(step StepType, err error) {}
