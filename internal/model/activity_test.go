package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeActivityDetail(t *testing.T) {
	d, err := DecodeActivityDetail(ActivityReferral, []byte(`{"agency":"Food Bank","reason":"pantry"}`))
	require.NoError(t, err)
	ref, ok := d.(*Referral)
	require.True(t, ok)
	assert.Equal(t, "Food Bank", ref.Agency)

	_, err = DecodeActivityDetail(ActivityNote, []byte(`{}`))
	assert.ErrorContains(t, err, "body is required")

	_, err = DecodeActivityDetail("memo", []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnknownActivity)

	_, err = DecodeActivityDetail(ActivityDocument, []byte(`not json`))
	assert.Error(t, err)
}

func TestActivityRoundTrip(t *testing.T) {
	a, err := NewActivity("100", Alert{Message: "Do not disclose location", Severity: "high"}, "u1")
	require.NoError(t, err)
	assert.Equal(t, ActivityAlert, a.Type)

	d, err := a.Decode()
	require.NoError(t, err)
	assert.Equal(t, "Do not disclose location", d.(*Alert).Message)

	b, err := json.Marshal(a)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "alert", out["type"])
	assert.Equal(t, map[string]any{"message": "Do not disclose location", "severity": "high"}, out["detail"])

	_, err = NewActivity("100", Note{}, "u1")
	assert.Error(t, err)
}

func TestCaseDisplayName(t *testing.T) {
	assert.Equal(t, "Maria J Lopez", Case{FirstName: "Maria", MiddleName: " J ", LastName: "Lopez"}.DisplayName())
	assert.Equal(t, "Case 7", Case{ID: "7"}.DisplayName())
}
