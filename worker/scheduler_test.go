package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerStartStop(t *testing.T) {
	s := NewScheduler("Pacific/Auckland", nil, nil, nil, nil, nil, nil)
	require.NoError(t, s.Start())
	s.Stop()
}

func TestSchedulerUnknownTimezoneFallsBack(t *testing.T) {
	s := NewScheduler("Not/AZone", nil, nil, nil, nil, nil, nil)
	assert.NotNil(t, s)
	require.NoError(t, s.Start())
	s.Stop()
}
