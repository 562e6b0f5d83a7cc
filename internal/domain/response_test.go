package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseDataSetJSON(t *testing.T) {
	pkg := &ActivityPackage{ID: "p1", Kind: KindEvent, Parameters: map[string]string{"event_token": "abcdef"}}
	r := NewResponseData(pkg)
	r.Outcome = OutcomeSuccess

	r.SetJSON(map[string]string{
		"message":       "event tracked",
		"timestamp":     "2026-01-01T00:00:00Z",
		"adid":          "adid-1",
		"deeplink":      "myapp://promo",
		"tracker_token": "tt",
		"tracker_name":  "Organic",
	}, `{"message":"event tracked"}`)

	assert.Equal(t, "p1", r.PackageID)
	assert.Equal(t, "abcdef", r.EventToken)
	assert.Equal(t, "event tracked", r.Message)
	assert.Equal(t, "myapp://promo", r.Deeplink)
	require.NotNil(t, r.Attribution)
	assert.Equal(t, "Organic", r.Attribution.TrackerName)

	ev := r.EventSuccess()
	assert.Equal(t, "abcdef", ev.EventToken)
	assert.Equal(t, "adid-1", ev.Adid)
	assert.Equal(t, "event tracked", ev.Message)
}

func TestResponseDataNilJSON(t *testing.T) {
	r := NewResponseData(nil)
	r.SetJSON(nil, "")
	assert.NotNil(t, r.JSON)
	assert.Nil(t, r.Attribution)
	assert.True(t, r.WillRetry())
	assert.False(t, r.Success())
}

func TestResponseFailureMessageFallsBackToError(t *testing.T) {
	r := NewResponseData(&ActivityPackage{Kind: KindSession})
	r.Error = "connection refused"
	r.SetJSON(map[string]string{}, "")

	f := r.SessionFailure()
	assert.Equal(t, "connection refused", f.Message)
	assert.True(t, f.WillRetry)

	r.Outcome = OutcomePermanentFailure
	assert.False(t, r.SessionFailure().WillRetry)
	assert.False(t, r.EventFailure().WillRetry)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "success", OutcomeSuccess.String())
	assert.Equal(t, "permanent_failure", OutcomePermanentFailure.String())
	assert.Equal(t, "retryable_failure", OutcomeRetryableFailure.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}

func TestAttributionEqual(t *testing.T) {
	a := &Attribution{TrackerToken: "t"}
	b := &Attribution{TrackerToken: "t"}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(nil))
	assert.True(t, (*Attribution)(nil).Equal(nil))
	assert.Nil(t, AttributionFromJSON(map[string]string{"message": "ok"}))
}
