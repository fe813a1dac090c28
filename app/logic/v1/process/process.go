package process

import (
	"github.com/coursebrain/coursebrain/app/core"
)

// Process owns the background side of the service: the content worker
// pool and its flush loop.
type Process struct {
	core   *core.Core
	cancel func()
}

func NewProcess(core *core.Core) *Process {
	return &Process{
		core: core,
	}
}

func (p *Process) Core() *core.Core {
	return p.core
}

func (p *Process) Start() {
	p.cancel = StartContentProcess(p.core, p.core.Cfg().Pipeline.WorkerCount())
}

func (p *Process) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
}
