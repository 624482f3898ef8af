package cli

import (
	"context"
	"sync"
	"time"

	"github.com/santiagomed/quill/core"
	"github.com/santiagomed/quill/fs"
	"github.com/santiagomed/quill/logger"
)

// ExecutionResult is what a worker reports once a draft request has finished.
type ExecutionResult struct {
	ExportPath string
	Session    core.Session
	Err        error
}

type ExecutionRequest struct {
	Request    *core.Request
	ResultChan chan ExecutionResult
	CreatedAt  time.Time
}

// Engine runs drafting pipelines on a fixed pool of workers.
type Engine struct {
	pub          core.StepPublisher
	writer       core.Writer
	logger       logger.Logger
	requests     chan ExecutionRequest
	workers      int
	workerWG     sync.WaitGroup
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	out          *fs.FileSystem
	assets       *fs.FileSystem
}

func NewDraftEngine(pub core.StepPublisher, w core.Writer, l logger.Logger, workers int, out, assets *fs.FileSystem) *Engine {
	if l == nil {
		l = logger.NewNullLogger()
	}
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		pub:          pub,
		writer:       w,
		logger:       l,
		requests:     make(chan ExecutionRequest, 100),
		workers:      workers,
		shutdownChan: make(chan struct{}),
		out:          out,
		assets:       assets,
	}
}

func (e *Engine) Start(ctx context.Context) {
	for i := 0; i < e.workers; i++ {
		e.workerWG.Add(1)
		go e.worker(ctx)
	}
}

func (e *Engine) worker(ctx context.Context) {
	defer e.workerWG.Done()
	for {
		select {
		case req := <-e.requests:
			req.ResultChan <- e.run(ctx, req.Request)
			close(req.ResultChan)
		case <-ctx.Done():
			return
		case <-e.shutdownChan:
			return
		}
	}
}

func (e *Engine) run(ctx context.Context, r *core.Request) ExecutionResult {
	pipeline, err := core.NewPipeline(r, e.writer, core.NewDefaultStepManager(), e.pub, e.out, e.assets, e.logger)
	if err != nil {
		return ExecutionResult{Err: err}
	}
	err = pipeline.Execute(ctx)
	return ExecutionResult{
		ExportPath: pipeline.ExportPath(),
		Session:    pipeline.Session(),
		Err:        err,
	}
}

func (e *Engine) AddRequest(request *core.Request) chan ExecutionResult {
	resultChan := make(chan ExecutionResult, 1)
	e.requests <- ExecutionRequest{
		Request:    request,
		ResultChan: resultChan,
		CreatedAt:  time.Now(),
	}
	return resultChan
}

func (e *Engine) Shutdown(timeout time.Duration) {
	e.shutdownOnce.Do(func() { close(e.shutdownChan) })

	done := make(chan struct{})
	go func() {
		e.workerWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("All workers shut down gracefully")
	case <-time.After(timeout):
		e.logger.Warn("Shutdown timed out, some workers may still be running")
	}
}
