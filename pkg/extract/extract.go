// Package extract turns raw source bytes into plain text. Engines are
// registered per extraction method; the coordinator resolves the method
// from the MIME type and dispatches.
package extract

import (
	"context"
	"strings"
	"time"

	"github.com/coursebrain/coursebrain/pkg/errors"
	"github.com/coursebrain/coursebrain/pkg/filestore"
	"github.com/coursebrain/coursebrain/pkg/i18n"
	"github.com/coursebrain/coursebrain/pkg/types"
	"github.com/coursebrain/coursebrain/pkg/utils"
)

const (
	DefaultTimeout             = time.Minute * 5
	DefaultConfidenceThreshold = 0.5
)

// Result is what an engine hands back. Optional fields stay empty when
// the engine cannot produce them.
type Result struct {
	Content     string
	ContentType string
	Language    string
	Title       string
	Description string
	Confidence  float64
}

type Engine interface {
	Name() string
	Extract(ctx context.Context, file *filestore.File) (Result, error)
}

// ResolveMethod maps a MIME type to the extraction method used for it.
func ResolveMethod(mimeType string) (types.ExtractionMethod, error) {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}

	switch {
	case mt == "application/pdf":
		return types.EXTRACTION_METHOD_PDF, nil
	case strings.HasPrefix(mt, "image/"):
		return types.EXTRACTION_METHOD_OCR, nil
	case strings.HasPrefix(mt, "audio/"), strings.HasPrefix(mt, "video/"):
		return types.EXTRACTION_METHOD_SPEECH, nil
	case mt == "text/html", mt == "application/xhtml+xml":
		return types.EXTRACTION_METHOD_HTML, nil
	case mt == "text/markdown", mt == "text/x-markdown":
		return types.EXTRACTION_METHOD_MARKDOWN, nil
	case strings.HasPrefix(mt, "text/"), mt == "application/json":
		return types.EXTRACTION_METHOD_PLAINTEXT, nil
	default:
		return "", errors.New("extract.ResolveMethod", i18n.ERROR_UNSUPPORTED_MIME_TYPE, nil).Code(400)
	}
}

// SupportedMimeType reports whether ingestion should accept the type at
// request time.
func SupportedMimeType(mimeType string) bool {
	_, err := ResolveMethod(mimeType)
	return err == nil
}

type Coordinator struct {
	engines             map[types.ExtractionMethod]Engine
	timeout             time.Duration
	confidenceThreshold float64
}

func NewCoordinator(timeout time.Duration, confidenceThreshold float64) *Coordinator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if confidenceThreshold <= 0 {
		confidenceThreshold = DefaultConfidenceThreshold
	}
	return &Coordinator{
		engines:             make(map[types.ExtractionMethod]Engine),
		timeout:             timeout,
		confidenceThreshold: confidenceThreshold,
	}
}

func (c *Coordinator) RegisterEngine(method types.ExtractionMethod, engine Engine) {
	c.engines[method] = engine
}

func (c *Coordinator) ConfidenceThreshold() float64 {
	return c.confidenceThreshold
}

// Extract resolves the method for the file unless one was requested
// explicitly, then runs the engine under the extraction timeout. The
// result language falls back to detection over the extracted text.
func (c *Coordinator) Extract(ctx context.Context, file *filestore.File, method types.ExtractionMethod) (Result, types.ExtractionMethod, error) {
	if method == "" {
		resolved, err := ResolveMethod(file.MimeType)
		if err != nil {
			return Result{}, "", err
		}
		method = resolved
	}

	engine, ok := c.engines[method]
	if !ok {
		return Result{}, method, errors.New("extract.Coordinator.Extract", i18n.ERROR_UNSUPPORTED_MIME_TYPE, nil).Code(400)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := engine.Extract(ctx, file)
	if err != nil {
		return Result{}, method, errors.New("extract.Coordinator.Extract", i18n.ERROR_EXTRACTION_FAILED, err)
	}

	if strings.TrimSpace(result.Content) == "" {
		return Result{}, method, errors.New("extract.Coordinator.Extract", i18n.ERROR_EMPTY_CONTENT, nil)
	}

	if result.Language == "" {
		result.Language = utils.WhatLang(result.Content)
	}

	return result, method, nil
}
