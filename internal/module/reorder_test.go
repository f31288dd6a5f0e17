package module

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/live-request-queue/internal/repository"
)

func TestValidateReorder(t *testing.T) {
	active := []uint64{10, 20, 30}

	assert.NoError(t, ValidateReorder(active, []uint64{30, 10, 20}))
	assert.NoError(t, ValidateReorder(active, []uint64{10, 20, 30}))
	assert.NoError(t, ValidateReorder(nil, []uint64{}))

	cases := map[string][]uint64{
		"too short":  {10, 20},
		"too long":   {10, 20, 30, 40},
		"duplicate":  {10, 10, 20},
		"foreign id": {10, 20, 99},
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			err := ValidateReorder(active, payload)
			de, ok := repository.AsDomain(err)
			require.True(t, ok)
			assert.Equal(t, repository.KindQueueMismatch, de.Kind)
		})
	}
}
