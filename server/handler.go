package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/santiagomed/quill/core"
	"github.com/santiagomed/quill/fs"
	"github.com/santiagomed/quill/llm"
	"github.com/santiagomed/quill/logger"
)

type Handler struct {
	writer   core.Writer
	defaults llm.ProviderConfig
	sessions *SessionStore
	timeout  time.Duration
	logger   logger.Logger
}

func NewHandler(w core.Writer, defaults llm.ProviderConfig, timeout time.Duration, l logger.Logger) *Handler {
	if l == nil {
		l = logger.NewNullLogger()
	}
	return &Handler{
		writer:   w,
		defaults: defaults,
		sessions: NewSessionStore(w, l),
		timeout:  timeout,
		logger:   l,
	}
}

func (h *Handler) context(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout > 0 {
		return context.WithTimeout(c.Request.Context(), h.timeout)
	}
	return context.WithCancel(c.Request.Context())
}

func (h *Handler) providerConfig(p *llm.ProviderConfig) llm.ProviderConfig {
	if p == nil {
		return h.defaults
	}
	return *p
}

// ---- stateless endpoints ----

type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Sessions: h.sessions.Len()})
}

func (h *Handler) Presets(c *gin.Context) {
	Success(c, llm.Presets())
}

type ConnectionTestResponse struct {
	OK       bool   `json:"ok"`
	Provider string `json:"provider"`
}

func (h *Handler) TestConnection(c *gin.Context) {
	var cfg llm.ProviderConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		BadRequest(c, err.Error())
		return
	}
	ctx, cancel := h.context(c)
	defer cancel()

	if err := h.writer.TestConnection(ctx, cfg); err != nil {
		h.logger.Warn(fmt.Sprintf("Connection test for %s failed: %v", cfg, err))
		Fail(c, err)
		return
	}
	Success(c, ConnectionTestResponse{OK: true, Provider: cfg.String()})
}

type OutlinesRequest struct {
	Provider  *llm.ProviderConfig `json:"provider"`
	Topic     string              `json:"topic"`
	StyleHint string              `json:"style_hint"`
}

func (h *Handler) GenerateOutlines(c *gin.Context) {
	var req OutlinesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	ctx, cancel := h.context(c)
	defer cancel()

	outlines, err := h.writer.GenerateOutlines(ctx, h.providerConfig(req.Provider), req.Topic, req.StyleHint)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, outlines)
}

type PointsRequest struct {
	Provider      *llm.ProviderConfig `json:"provider"`
	Topic         string              `json:"topic" binding:"required"`
	ChapterTitle  string              `json:"chapter_title" binding:"required"`
	OtherChapters []string            `json:"other_chapters"`
}

func (h *Handler) GenerateChapterPoints(c *gin.Context) {
	var req PointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	ctx, cancel := h.context(c)
	defer cancel()

	points, err := h.writer.GenerateChapterPoints(ctx, h.providerConfig(req.Provider), req.Topic, req.ChapterTitle, req.OtherChapters)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, points)
}

type ContentRequest struct {
	Provider     *llm.ProviderConfig `json:"provider"`
	Topic        string              `json:"topic" binding:"required"`
	ChapterTitle string              `json:"chapter_title" binding:"required"`
	Points       []string            `json:"points"`
	Style        string              `json:"style"`
	ChartImage   string              `json:"chart_image"`
}

type ContentResponse struct {
	Content string `json:"content"`
}

func (h *Handler) GenerateChapterContent(c *gin.Context) {
	var req ContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	ctx, cancel := h.context(c)
	defer cancel()

	content, err := h.writer.GenerateChapterContent(ctx, h.providerConfig(req.Provider), llm.ContentRequest{
		Topic:        req.Topic,
		ChapterTitle: req.ChapterTitle,
		Points:       req.Points,
		Style:        req.Style,
		ChartImage:   req.ChartImage,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, ContentResponse{Content: content})
}

type RefineRequest struct {
	Provider    *llm.ProviderConfig `json:"provider"`
	Content     string              `json:"content" binding:"required"`
	Instruction string              `json:"instruction"`
}

func (h *Handler) Refine(c *gin.Context) {
	var req RefineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	ctx, cancel := h.context(c)
	defer cancel()

	content, err := h.writer.Refine(ctx, h.providerConfig(req.Provider), req.Content, req.Instruction)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, ContentResponse{Content: content})
}

// ---- sessions ----

type SessionResponse struct {
	ID      string       `json:"id"`
	Session core.Session `json:"session"`
}

type CreateSessionRequest struct {
	Provider  *llm.ProviderConfig `json:"provider"`
	Topic     string              `json:"topic"`
	StyleHint string              `json:"style_hint"`
}

func (h *Handler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, err.Error())
			return
		}
	}
	cfg := h.providerConfig(req.Provider)
	if err := cfg.Validate(); err != nil {
		Fail(c, err)
		return
	}

	id, ctrl := h.sessions.Create(cfg)
	ctrl.SetTopic(req.Topic, req.StyleHint)
	h.logger.Info(fmt.Sprintf("Created session %s", id))
	Created(c, SessionResponse{ID: id, Session: ctrl.Session()})
}

// session resolves the :id parameter, writing a 404 when it is unknown.
func (h *Handler) session(c *gin.Context) (string, *core.Controller, bool) {
	id := c.Param("id")
	ctrl, ok := h.sessions.Get(id)
	if !ok {
		NotFound(c, "session not found")
		return "", nil, false
	}
	return id, ctrl, true
}

func chapterIndex(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil {
		BadRequest(c, "chapter index must be a number")
		return 0, false
	}
	return n, true
}

func (h *Handler) GetSession(c *gin.Context) {
	id, ctrl, ok := h.session(c)
	if !ok {
		return
	}
	Success(c, SessionResponse{ID: id, Session: ctrl.Session()})
}

func (h *Handler) DeleteSession(c *gin.Context) {
	if !h.sessions.Delete(c.Param("id")) {
		NotFound(c, "session not found")
		return
	}
	c.Status(http.StatusNoContent)
}

type TopicRequest struct {
	Topic     string `json:"topic"`
	StyleHint string `json:"style_hint"`
}

func (h *Handler) SessionOutlines(c *gin.Context) {
	id, ctrl, ok := h.session(c)
	if !ok {
		return
	}
	if c.Request.ContentLength > 0 {
		var req TopicRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, err.Error())
			return
		}
		ctrl.SetTopic(req.Topic, req.StyleHint)
	}
	ctx, cancel := h.context(c)
	defer cancel()

	if _, err := ctrl.GenerateOutlines(ctx); err != nil {
		Fail(c, err)
		return
	}
	Success(c, SessionResponse{ID: id, Session: ctrl.Session()})
}

type SelectOutlineRequest struct {
	Index         *int     `json:"index" binding:"required"`
	ChapterTitles []string `json:"chapter_titles"`
	Style         *string  `json:"style"`
	StyleDetails  *string  `json:"style_details"`
}

func (h *Handler) SelectOutline(c *gin.Context) {
	id, ctrl, ok := h.session(c)
	if !ok {
		return
	}
	var req SelectOutlineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if err := ctrl.SelectOutline(*req.Index); err != nil {
		Fail(c, err)
		return
	}
	if req.ChapterTitles != nil {
		ctrl.SetChapterTitles(req.ChapterTitles)
	}
	if req.Style != nil || req.StyleDetails != nil {
		sess := ctrl.Session()
		label, details := sess.Style, sess.StyleDetails
		if req.Style != nil {
			label = *req.Style
		}
		if req.StyleDetails != nil {
			details = *req.StyleDetails
		}
		ctrl.SetStyle(label, details)
	}
	Success(c, SessionResponse{ID: id, Session: ctrl.Session()})
}

func (h *Handler) SessionGeneratePoints(c *gin.Context) {
	id, ctrl, ok := h.session(c)
	if !ok {
		return
	}
	n, ok := chapterIndex(c)
	if !ok {
		return
	}
	ctx, cancel := h.context(c)
	defer cancel()

	if _, err := ctrl.GenerateChapterPoints(ctx, n); err != nil {
		Fail(c, err)
		return
	}
	Success(c, SessionResponse{ID: id, Session: ctrl.Session()})
}

type SetPointsRequest struct {
	Points []string `json:"points"`
}

func (h *Handler) SessionSetPoints(c *gin.Context) {
	id, ctrl, ok := h.session(c)
	if !ok {
		return
	}
	n, ok := chapterIndex(c)
	if !ok {
		return
	}
	var req SetPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if err := ctrl.SetPoints(n, req.Points); err != nil {
		Fail(c, err)
		return
	}
	Success(c, SessionResponse{ID: id, Session: ctrl.Session()})
}

func (h *Handler) SessionGenerateContent(c *gin.Context) {
	id, ctrl, ok := h.session(c)
	if !ok {
		return
	}
	n, ok := chapterIndex(c)
	if !ok {
		return
	}
	ctx, cancel := h.context(c)
	defer cancel()

	if _, err := ctrl.GenerateChapterContent(ctx, n); err != nil {
		Fail(c, err)
		return
	}
	Success(c, SessionResponse{ID: id, Session: ctrl.Session()})
}

type SetContentRequest struct {
	Content    *string `json:"content"`
	ChartImage *string `json:"chart_image"`
}

func (h *Handler) SessionSetContent(c *gin.Context) {
	id, ctrl, ok := h.session(c)
	if !ok {
		return
	}
	n, ok := chapterIndex(c)
	if !ok {
		return
	}
	var req SetContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if req.ChartImage != nil {
		if *req.ChartImage != "" {
			if _, ok := llm.ParseDataURI(*req.ChartImage); !ok {
				BadRequest(c, "chart_image must be a base64 data URI")
				return
			}
		}
		if err := ctrl.SetChartImage(n, *req.ChartImage); err != nil {
			Fail(c, err)
			return
		}
	}
	if req.Content != nil {
		if err := ctrl.SetContent(n, *req.Content); err != nil {
			Fail(c, err)
			return
		}
	}
	Success(c, SessionResponse{ID: id, Session: ctrl.Session()})
}

type SessionRefineRequest struct {
	Instruction string `json:"instruction"`
}

func (h *Handler) SessionRefine(c *gin.Context) {
	id, ctrl, ok := h.session(c)
	if !ok {
		return
	}
	n, ok := chapterIndex(c)
	if !ok {
		return
	}
	var req SessionRefineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	ctx, cancel := h.context(c)
	defer cancel()

	if _, err := ctrl.RefineChapter(ctx, n, req.Instruction); err != nil {
		Fail(c, err)
		return
	}
	Success(c, SessionResponse{ID: id, Session: ctrl.Session()})
}

func (h *Handler) Next(c *gin.Context) {
	id, ctrl, ok := h.session(c)
	if !ok {
		return
	}
	if _, err := ctrl.Next(); err != nil {
		Fail(c, err)
		return
	}
	Success(c, SessionResponse{ID: id, Session: ctrl.Session()})
}

func (h *Handler) Back(c *gin.Context) {
	id, ctrl, ok := h.session(c)
	if !ok {
		return
	}
	ctrl.Back()
	Success(c, SessionResponse{ID: id, Session: ctrl.Session()})
}

type ResetRequest struct {
	Confirmed bool `json:"confirmed"`
}

func (h *Handler) Reset(c *gin.Context) {
	id, ctrl, ok := h.session(c)
	if !ok {
		return
	}
	var req ResetRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, err.Error())
			return
		}
	}
	if err := ctrl.Reset(req.Confirmed); err != nil {
		Fail(c, err)
		return
	}
	Success(c, SessionResponse{ID: id, Session: ctrl.Session()})
}

// Document serves the assembled document as a markdown download.
func (h *Handler) Document(c *gin.Context) {
	_, ctrl, ok := h.session(c)
	if !ok {
		return
	}
	if ctrl.Step() != core.StepFinalize {
		Fail(c, core.ErrWrongStep)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fs.DocumentFileName))
	c.Data(http.StatusOK, fs.MarkdownMIMEType+"; charset=utf-8", []byte(ctrl.Document()))
}
