package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/maternal-risk/pkg/common/models"
)

func TestNewEvent(t *testing.T) {
	event, err := NewEvent(models.EventRiskAssessed, "risk-service", map[string]string{"risk_level": "High"})
	require.NoError(t, err)

	assert.Equal(t, models.EventRiskAssessed, event.Type)
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.Timestamp.IsZero())

	var payload map[string]string
	require.NoError(t, event.Decode(&payload))
	assert.Equal(t, "High", payload["risk_level"])
}

func TestNewEventRejectsUnencodable(t *testing.T) {
	_, err := NewEvent(models.EventRiskAssessed, "risk-service", make(chan int))
	assert.Error(t, err)
}
