package cli

import (
	"errors"
	"testing"

	"github.com/santiagomed/quill/core"
	"github.com/santiagomed/quill/logger"
	"github.com/stretchr/testify/assert"
)

func TestCliStepPublisher_PublishStep(t *testing.T) {
	p := NewCliStepPublisher(logger.NewNullLogger())
	p.PublishStep(core.GenerateOutlines)
	p.PublishStep(core.SelectOutline)

	assert.Equal(t, core.GenerateOutlines, <-p.stepChan)
	assert.Equal(t, core.SelectOutline, <-p.stepChan)
}

func TestCliStepPublisher_FullChannelDoesNotBlock(t *testing.T) {
	p := NewCliStepPublisher(logger.NewNullLogger())
	for i := 0; i < cap(p.errorChan)+5; i++ {
		p.Error(core.ExportDocument, errors.New("disk full"))
	}
	assert.Len(t, p.errorChan, cap(p.errorChan))
}

func TestStepFailure(t *testing.T) {
	cause := errors.New("disk full")
	f := stepFailure{step: core.ExportDocument, err: cause}
	assert.Equal(t, "ExportDocument: disk full", f.Error())
	assert.ErrorIs(t, f, cause)
}
