package consent

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "consentd/pkg/domain-errors"
)

func TestNewAcceptAllEnablesEverything(t *testing.T) {
	now := time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)
	r := NewAcceptAll(now)

	assert.True(t, r.Essential)
	assert.True(t, r.Functional)
	assert.True(t, r.Analytics)
	assert.True(t, r.Marketing)
	assert.Equal(t, now.UnixMilli(), r.Timestamp)
	assert.Equal(t, RecordVersion, r.Version)
	require.NoError(t, r.Validate())
}

func TestNewRejectAllKeepsEssential(t *testing.T) {
	r := NewRejectAll(time.Now())

	assert.True(t, r.Essential)
	assert.False(t, r.Functional)
	assert.False(t, r.Analytics)
	assert.False(t, r.Marketing)
	require.NoError(t, r.Validate())
}

// Essential must survive every possible partial selection.
func TestNewCustomAlwaysForcesEssential(t *testing.T) {
	for _, cats := range []Categories{
		{},
		{Functional: true},
		{Analytics: true},
		{Marketing: true},
		{Functional: true, Analytics: true},
		{Functional: true, Marketing: true},
		{Analytics: true, Marketing: true},
		{Functional: true, Analytics: true, Marketing: true},
	} {
		r := NewCustom(cats, time.Now())
		assert.True(t, r.Essential, "categories %+v", cats)
		assert.Equal(t, cats, r.Categories())
		require.NoError(t, r.Validate())
	}
}

func TestValidateRejectsIncompleteRecords(t *testing.T) {
	tests := []struct {
		name   string
		record Record
	}{
		{"zero value", Record{}},
		{"missing essential", Record{Timestamp: 1, Version: RecordVersion}},
		{"missing timestamp", Record{Essential: true, Version: RecordVersion}},
		{"negative timestamp", Record{Essential: true, Timestamp: -5, Version: RecordVersion}},
		{"missing version", Record{Essential: true, Timestamp: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeMalformedRecord))
		})
	}
}

func TestEqualIgnoresTimestamp(t *testing.T) {
	a := NewAcceptAll(time.Unix(100, 0))
	b := NewAcceptAll(time.Unix(200, 0))

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(NewRejectAll(time.Unix(100, 0))))
}

func TestRecordJSONShape(t *testing.T) {
	r := NewCustom(Categories{Analytics: true}, time.UnixMilli(1700000000000))
	data, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, true, decoded["essential"])
	assert.Equal(t, false, decoded["functional"])
	assert.Equal(t, true, decoded["analytics"])
	assert.Equal(t, false, decoded["marketing"])
	assert.Equal(t, float64(1700000000000), decoded["timestamp"])
	assert.Equal(t, "1.0.0", decoded["version"])
}

func TestDescribeError(t *testing.T) {
	t.Run("nil error yields nil descriptor", func(t *testing.T) {
		assert.Nil(t, DescribeError(nil))
	})

	t.Run("storage error is recoverable", func(t *testing.T) {
		d := DescribeError(dErrors.New(dErrors.CodeStorageError, "quota exceeded"))
		require.NotNil(t, d)
		assert.Equal(t, "storage_error", d.Code)
		assert.True(t, d.Recoverable)
	})

	t.Run("logic fault is fatal", func(t *testing.T) {
		d := DescribeError(dErrors.New(dErrors.CodeLogicFault, "invariant violated"))
		require.NotNil(t, d)
		assert.False(t, d.Recoverable)
	})
}
