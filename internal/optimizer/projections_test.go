package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormWeightedProjection(t *testing.T) {
	assert.InDelta(t, 5.0, FormWeightedProjection(4.0, 6.0, 0.5), 1e-9)
	assert.InDelta(t, 4.0, FormWeightedProjection(4.0, 6.0, 0.0), 1e-9)
	assert.InDelta(t, 6.0, FormWeightedProjection(4.0, 6.0, 1.0), 1e-9)

	// Out-of-range weights clamp rather than extrapolate.
	assert.InDelta(t, 4.0, FormWeightedProjection(4.0, 6.0, -0.5), 1e-9)
	assert.InDelta(t, 6.0, FormWeightedProjection(4.0, 6.0, 1.5), 1e-9)
}
