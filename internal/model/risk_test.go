package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskLevel_Ordering(t *testing.T) {
	levels := []RiskLevel{RiskVeryLow, RiskLow, RiskMedium, RiskHigh, RiskVeryHigh}
	for i := 1; i < len(levels); i++ {
		assert.True(t, levels[i-1] < levels[i], "%s should rank below %s", levels[i-1], levels[i])
	}
}

func TestRiskLevel_JSON(t *testing.T) {
	factor := RiskFactor{Parameter: DimensionSpeed, RiskLevel: RiskVeryHigh}

	data, err := json.Marshal(factor)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"riskLevel":"Very High"`)

	var decoded RiskFactor
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, RiskVeryHigh, decoded.RiskLevel)

	var lvl RiskLevel
	assert.Error(t, lvl.UnmarshalText([]byte("extreme")))
	_, err = RiskLevel(9).MarshalText()
	assert.Error(t, err)
}

func TestTripRecord_Temporal(t *testing.T) {
	trip := TripRecord{Date: "2024-03-09", Time: "11:30:15 PM"}

	ts, ok := trip.Timestamp()
	require.True(t, ok)
	assert.Equal(t, "2024-03-09 23:30:15", ts.Format("2006-01-02 15:04:05"))

	hour, ok := trip.Hour()
	require.True(t, ok)
	assert.Equal(t, 23, hour)

	weekend, ok := trip.IsWeekend()
	require.True(t, ok)
	assert.True(t, weekend, "2024-03-09 is a Saturday")

	_, ok = TripRecord{Date: "", Time: "08:00:00 AM"}.Timestamp()
	assert.False(t, ok)
}

func TestRawTripRecord_IsBlank(t *testing.T) {
	assert.True(t, RawTripRecord{Position: 3}.IsBlank())
	assert.True(t, RawTripRecord{Extra: map[string]string{"tag": ""}}.IsBlank())
	assert.False(t, RawTripRecord{Extra: map[string]string{"tag": "123"}}.IsBlank())
	assert.False(t, RawTripRecord{Amount: "4"}.IsBlank())
}
