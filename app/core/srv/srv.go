package srv

import (
	"github.com/coursebrain/coursebrain/pkg/ai"
)

type Srv struct {
	ai ai.EmbeddingDriver
}

type ApplyFunc func(s *Srv)

func SetupSrvs(opts ...ApplyFunc) *Srv {
	a := &Srv{}

	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (s *Srv) AI() ai.EmbeddingDriver {
	return s.ai
}
