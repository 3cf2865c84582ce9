package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserve(t *testing.T) {
	before := testutil.ToFloat64(runsTotal.WithLabelValues(RunConfigError))
	ObserveRun(RunConfigError)
	assert.Equal(t, before+1, testutil.ToFloat64(runsTotal.WithLabelValues(RunConfigError)))

	before = testutil.ToFloat64(evaluationsTotal.WithLabelValues("failed"))
	ObserveEvaluation("failed")
	assert.Equal(t, before+1, testutil.ToFloat64(evaluationsTotal.WithLabelValues("failed")))

	ObserveProviderCall("test-model", 300*time.Millisecond, errors.New("boom"))
	assert.Equal(t, 1, testutil.CollectAndCount(providerLatency, "judge_provider_request_duration_seconds"))
}
