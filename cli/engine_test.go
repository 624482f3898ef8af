package cli

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/santiagomed/quill/core"
	"github.com/santiagomed/quill/fs"
	"github.com/santiagomed/quill/llm"
	"github.com/santiagomed/quill/logger"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func draftingWriter() *MockWriter {
	w := new(MockWriter)
	w.On("GenerateOutlines", mock.Anything, mock.Anything, "Coffee", "").Return(sampleOutlines(), nil)
	w.On("GenerateChapterPoints", mock.Anything, mock.Anything, "Coffee", mock.Anything, mock.Anything).Return([]string{"a point"}, nil)
	w.On("GenerateChapterContent", mock.Anything, mock.Anything, mock.Anything).Return("body", nil)
	return w
}

func TestEngine_RunsRequest(t *testing.T) {
	out := fs.NewMemoryFileSystem()
	pub := NewCliStepPublisher(logger.NewNullLogger())
	e := NewDraftEngine(pub, draftingWriter(), nil, 2, out, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.Start(ctx)
	defer e.Shutdown(time.Second)

	req := core.NewRequest("Coffee", "", 1, "docs", false, llm.DefaultProviderConfig())
	res := <-e.AddRequest(req)

	require.NoError(t, res.Err)
	assert.Equal(t, "docs/document.md", res.ExportPath)
	assert.Equal(t, "Casual", res.Session.Style)
	assert.Equal(t, core.StepFinalize, res.Session.Step)

	data, err := afero.ReadFile(out.Fs, "docs/document.md")
	require.NoError(t, err)
	assert.Equal(t, "## Hello\n\nbody\n\n## Beans\n\nbody\n", string(data))

	var steps []core.StepType
	for len(pub.stepChan) > 0 {
		steps = append(steps, <-pub.stepChan)
	}
	assert.Equal(t, core.NewDefaultStepManager().GetSteps(), steps)
}

func TestEngine_InvalidProvider(t *testing.T) {
	e := NewDraftEngine(NewCliStepPublisher(logger.NewNullLogger()), new(MockWriter), nil, 1, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.Start(ctx)
	defer e.Shutdown(time.Second)

	req := core.NewRequest("Coffee", "", 0, ".", false, llm.ProviderConfig{Provider: llm.ProviderOpenAI})
	res := <-e.AddRequest(req)
	assert.ErrorIs(t, res.Err, llm.ErrMissingAPIKey)
}

func TestEngine_StepErrorIsPublished(t *testing.T) {
	w := new(MockWriter)
	boom := errors.New("boom")
	w.On("GenerateOutlines", mock.Anything, mock.Anything, "Coffee", "").Return(nil, boom)

	pub := NewCliStepPublisher(logger.NewNullLogger())
	e := NewDraftEngine(pub, w, nil, 1, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.Start(ctx)
	defer e.Shutdown(time.Second)

	res := <-e.AddRequest(core.NewRequest("Coffee", "", 0, ".", false, llm.DefaultProviderConfig()))
	require.ErrorIs(t, res.Err, boom)

	select {
	case f := <-pub.errorChan:
		assert.Equal(t, core.GenerateOutlines, f.step)
		assert.ErrorIs(t, f, boom)
	default:
		t.Fatal("expected a published step error")
	}
}

func TestEngine_ShutdownStopsWorkers(t *testing.T) {
	e := NewDraftEngine(NewCliStepPublisher(logger.NewNullLogger()), new(MockWriter), nil, 3, nil, nil)
	e.Start(context.Background())

	done := make(chan struct{})
	go func() {
		e.Shutdown(time.Second)
		e.Shutdown(time.Second)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not return")
	}
}
