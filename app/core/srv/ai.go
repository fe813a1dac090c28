package srv

import (
	"fmt"

	"github.com/coursebrain/coursebrain/pkg/ai"
	"github.com/coursebrain/coursebrain/pkg/ai/openai"
)

type AIConfig struct {
	Driver string       `toml:"driver"`
	Token  string       `toml:"token"`
	Proxy  string       `toml:"proxy"`
	Model  ai.ModelName `toml:"model"`
}

func SetupAI(cfg AIConfig) (ai.EmbeddingDriver, error) {
	switch cfg.Driver {
	case openai.NAME, "":
		return openai.New(cfg.Token, cfg.Proxy, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown ai driver %q", cfg.Driver)
	}
}

func ApplyAI(cfg AIConfig) ApplyFunc {
	return func(s *Srv) {
		driver, err := SetupAI(cfg)
		if err != nil {
			panic(err)
		}
		s.ai = driver
	}
}
