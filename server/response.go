package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/santiagomed/quill/core"
	"github.com/santiagomed/quill/llm"
)

// Response wraps every successful payload.
type Response[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

type ErrorDetail struct {
	Kind    string `json:"kind"`
	Details string `json:"details,omitempty"`
}

type ErrorResponse struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

func Success[T any](c *gin.Context, data T) {
	c.JSON(http.StatusOK, Response[T]{Code: http.StatusOK, Message: "success", Data: data})
}

func Created[T any](c *gin.Context, data T) {
	c.JSON(http.StatusCreated, Response[T]{Code: http.StatusCreated, Message: "created", Data: data})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, ErrorResponse{Code: code, Message: message})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

// Fail maps err to a status code and writes it with its kind.
func Fail(c *gin.Context, err error) {
	code := statusFor(err)
	c.JSON(code, ErrorResponse{
		Code:    code,
		Message: err.Error(),
		Error:   &ErrorDetail{Kind: llm.Classify(err).String()},
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, llm.ErrEmptyTopic), errors.Is(err, llm.ErrEmptyInstruction):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrChapterNotFound), errors.Is(err, core.ErrOutlineNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrOutlineNotSelected),
		errors.Is(err, core.ErrNoChapters),
		errors.Is(err, core.ErrMissingPoints),
		errors.Is(err, core.ErrResetNotConfirmed),
		errors.Is(err, core.ErrNoContent),
		errors.Is(err, core.ErrWrongStep),
		errors.Is(err, core.ErrLastStep):
		return http.StatusConflict
	}

	switch llm.Classify(err) {
	case llm.KindConfig:
		return http.StatusBadRequest
	case llm.KindTransport:
		return http.StatusBadGateway
	case llm.KindOutput:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
