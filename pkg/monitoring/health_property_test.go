package monitoring

import (
	"math"
	"sort"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestProperty_HealthRatesComplementary verifies that for any mix of
// successes and failures the success and error rates always sum to 100 and
// stay within [0, 100].
func TestProperty_HealthRatesComplementary(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("successRate + errorRate == 100", prop.ForAll(
		func(statuses []int) bool {
			if len(statuses) == 0 {
				return true
			}
			store := NewCallStore(len(statuses))
			agg := NewHealthAggregator(store)
			now := time.Now()

			var h *EndpointHealth
			for _, status := range statuses {
				r := makeCall("GET", "/api/users", status, 10, now)
				store.Append(r)
				h = agg.OnCall(r, now)
			}

			sum := h.SuccessRate + h.ErrorRate
			return math.Abs(sum-100) < 1e-9 &&
				h.SuccessRate >= 0 && h.SuccessRate <= 100 &&
				h.ErrorRate >= 0 && h.ErrorRate <= 100
		},
		gen.SliceOf(gen.OneConstOf(200, 201, 204, 400, 404, 500, 503)),
	))

	properties.TestingRun(t)
}

// TestProperty_PercentileOrdering verifies that for any duration set the
// percentiles are ordered (p95 <= p99) and both are actual observed values
// bounded by the min and max duration.
func TestProperty_PercentileOrdering(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("p95 <= p99 and both within observed range", prop.ForAll(
		func(durations []int64) bool {
			if len(durations) == 0 {
				return true
			}
			store := NewCallStore(len(durations))
			agg := NewHealthAggregator(store)
			now := time.Now()

			var h *EndpointHealth
			for _, d := range durations {
				r := makeCall("GET", "/api/items", 200, d, now)
				store.Append(r)
				h = agg.OnCall(r, now)
			}

			sorted := make([]float64, len(durations))
			for i, d := range durations {
				sorted[i] = float64(d)
			}
			sort.Float64s(sorted)

			return h.P95ResponseTimeMs <= h.P99ResponseTimeMs &&
				h.P95ResponseTimeMs >= sorted[0] &&
				h.P99ResponseTimeMs <= sorted[len(sorted)-1]
		},
		gen.SliceOf(gen.Int64Range(0, 10000)),
	))

	properties.TestingRun(t)
}
