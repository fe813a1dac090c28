package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFmtFixer(t *testing.T) {
	assert.Equal(t, "a_b_c", FmtFixer("a.b-c"))
	assert.Equal(t, "plain", FmtFixer("plain"))
}

func TestDuplicateRegistrationIsTolerated(t *testing.T) {
	SetupMetricsManager("svc", "test", prometheus.NewRegistry())

	assert.NotPanics(t, func() {
		first := NewCounterVec("dup_counter", []string{"label"})
		second := NewCounterVec("dup_counter", []string{"label"})
		require.NotNil(t, first)
		require.NotNil(t, second)
	})
}
