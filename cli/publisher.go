package cli

import (
	"fmt"

	"github.com/santiagomed/quill/core"
	"github.com/santiagomed/quill/logger"
)

// stepFailure pairs a failed pipeline step with its error.
type stepFailure struct {
	step core.StepType
	err  error
}

func (f stepFailure) Error() string {
	return fmt.Sprintf("%v: %v", f.step, f.err)
}

func (f stepFailure) Unwrap() error {
	return f.err
}

type CliStepPublisher struct {
	stepChan  chan core.StepType
	errorChan chan stepFailure
	logger    logger.Logger
}

func NewCliStepPublisher(logger logger.Logger) *CliStepPublisher {
	return &CliStepPublisher{
		stepChan:  make(chan core.StepType, 100),
		errorChan: make(chan stepFailure, 10),
		logger:    logger,
	}
}

func (p *CliStepPublisher) PublishStep(step core.StepType) {
	select {
	case p.stepChan <- step:
		p.logger.Debug(fmt.Sprintf("Successfully published step: %v", step))
	default:
		p.logger.Warn(fmt.Sprintf("Failed to publish step: %v. Channel full.", step))
	}
}

func (p *CliStepPublisher) Error(step core.StepType, err error) {
	select {
	case p.errorChan <- stepFailure{step: step, err: err}:
		p.logger.Debug(fmt.Sprintf("Successfully published error for step: %v", step))
	default:
		p.logger.Warn(fmt.Sprintf("Failed to publish error for step: %v. Channel full.", step))
	}
}
