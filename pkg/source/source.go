// Package source resolves ingestion requests into content drafts. Each
// source type has an adapter; the registry dispatches on the requested
// type so callers never branch on it themselves.
package source

import (
	"context"

	"github.com/coursebrain/coursebrain/pkg/errors"
	"github.com/coursebrain/coursebrain/pkg/i18n"
	"github.com/coursebrain/coursebrain/pkg/types"
)

// IngestArgs is the normalized ingestion request after transport-level
// binding.
type IngestArgs struct {
	SourceType       types.SourceType
	SourceID         string
	Title            string
	Description      string
	Content          string
	ContentType      string
	FileName         string
	// Size is the payload size in bytes when the caller knows it.
	Size             int64
	Tags             []string
	Categories       []string
	CourseID         string
	ModuleID         string
	Metadata         types.RawJSON
	ExtractionMethod types.ExtractionMethod
}

// Draft is one unit of content a source yields. Prefilling sources set
// Content directly, file-backed sources leave it empty for extraction.
type Draft struct {
	SourceID    string
	Title       string
	Description string
	Content     string
	ContentType string
	Language    string
	Metadata    types.RawJSON
}

type Adapter interface {
	Type() types.SourceType
	// Validate runs synchronously at request time. A failure rejects the
	// request before any record is created.
	Validate(ctx context.Context, args IngestArgs) error
	// Resolve runs inside the asynchronous pipeline and may reach out to
	// the network. One request can yield several drafts.
	Resolve(ctx context.Context, args IngestArgs) ([]Draft, error)
}

type Registry struct {
	adapters map[types.SourceType]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{
		adapters: make(map[types.SourceType]Adapter),
	}
	for _, a := range adapters {
		r.adapters[a.Type()] = a
	}
	return r
}

func (r *Registry) Register(a Adapter) {
	r.adapters[a.Type()] = a
}

func (r *Registry) Get(t types.SourceType) (Adapter, error) {
	a, ok := r.adapters[t]
	if !ok {
		return nil, errors.New("source.Registry.Get", i18n.ERROR_UNSUPPORTED_SOURCE, nil).Code(400)
	}
	return a, nil
}
