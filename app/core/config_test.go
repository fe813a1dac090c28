package core

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupConfigFromEnv(t *testing.T) {
	addr := "localhost:11111"
	os.Setenv("CB_API_SERVICE_ADDRESS", addr)

	cfg := LoadBaseConfigFromENV()

	assert.Equal(t, cfg.Addr, addr)
}

func TestPipelineConfigDefaults(t *testing.T) {
	var p PipelineConfig

	assert.Equal(t, 10, p.BatchSize())
	assert.Equal(t, 3, p.MaxRetries())
	assert.Equal(t, 500, p.ChunkerOptions().ChunkSize)
	assert.Equal(t, 4, p.WorkerCount())
}
