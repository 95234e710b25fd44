package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetaUnmarshal_Object(t *testing.T) {
	var rec NotificationRecord
	payload := `{"id":"n1","title":"t","type":"comment","createdAt":1700000000000,"meta":{"campaignId":"42","solutionId":"7","commentId":"9"}}`

	err := json.Unmarshal([]byte(payload), &rec)
	require.NoError(t, err)

	assert.Equal(t, FlexID("42"), rec.Meta.CampaignID)
	assert.Equal(t, FlexID("7"), rec.Meta.SolutionID)
	assert.Equal(t, FlexID("9"), rec.Meta.CommentID)
}

func TestMetaUnmarshal_StringEncoded(t *testing.T) {
	var rec NotificationRecord
	payload := `{"id":"n1","title":"t","type":"comment","createdAt":1700000000000,"meta":"{\"campaignId\":\"42\",\"solutionId\":\"7\"}"}`

	err := json.Unmarshal([]byte(payload), &rec)
	require.NoError(t, err)

	assert.Equal(t, FlexID("42"), rec.Meta.CampaignID)
	assert.Equal(t, FlexID("7"), rec.Meta.SolutionID)
	assert.Equal(t, FlexID(""), rec.Meta.CommentID)
}

func TestMetaUnmarshal_Degraded(t *testing.T) {
	tests := []struct {
		name string
		meta string
	}{
		{name: "null", meta: `null`},
		{name: "malformed object", meta: `{"campaignId":}`},
		{name: "string holding garbage", meta: `"not json at all"`},
		{name: "string holding malformed object", meta: `"{\"campaignId\":"`},
		{name: "wrong scalar type", meta: `12345`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec NotificationRecord
			payload := `{"id":"n1","title":"t","type":"comment","createdAt":1,"meta":` + tt.meta + `}`

			err := json.Unmarshal([]byte(payload), &rec)
			require.NoError(t, err, "bad meta must not fail the record")
			assert.Equal(t, Meta{}, rec.Meta)
			assert.Equal(t, "n1", rec.ID)
		})
	}
}

func TestFlexIDUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  FlexID
	}{
		{name: "string", input: `"abc"`, want: "abc"},
		{name: "integer", input: `42`, want: "42"},
		{name: "large integer stays exact", input: `9007199254740993`, want: "9007199254740993"},
		{name: "null", input: `null`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FlexID
			err := json.Unmarshal([]byte(tt.input), &f)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f)
		})
	}
}

func TestFlexIDMarshal(t *testing.T) {
	out, err := json.Marshal(Meta{CampaignID: "42"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"campaignId":"42"}`, string(out))
}

func TestNotificationRecordUnread(t *testing.T) {
	rec := NotificationRecord{ID: "n1"}
	assert.True(t, rec.Unread())

	ts := int64(1700000000000)
	rec.ReadAt = &ts
	assert.False(t, rec.Unread())
}
