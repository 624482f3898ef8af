package llm

import (
	"fmt"

	"github.com/santiagomed/quill/logger"
	tellm "github.com/santiagomed/tellm/sdk"
)

type tellmClient interface {
	Log(batch, prompt, response string) error
}

// TellmCallLogger ships every successful call to a tellm collector. The collector only
// stores prompt and response; model and token usage go to the debug log.
type TellmCallLogger struct {
	client  tellmClient
	batchID string
	logger  logger.Logger
}

func NewTellmCallLogger(url, batchID string, l logger.Logger) *TellmCallLogger {
	if l == nil {
		l = logger.NewNullLogger()
	}
	return &TellmCallLogger{
		client:  tellm.NewClient(url),
		batchID: EnsureBatchID(batchID),
		logger:  l,
	}
}

func (t *TellmCallLogger) BatchID() string {
	return t.batchID
}

func (t *TellmCallLogger) Log(model, prompt string, c Completion) {
	t.logger.Debug(fmt.Sprintf("tellm batch %s: model=%s input_tokens=%d output_tokens=%d",
		t.batchID, model, c.Usage.InputTokens, c.Usage.OutputTokens))
	if err := t.client.Log(t.batchID, prompt, c.Text); err != nil {
		t.logger.WithField("warning", err).Warn("failed to log to tellm")
	}
}
