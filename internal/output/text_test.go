package output

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vburojevic/adjust/internal/domain"
)

func TestTextWriteState(t *testing.T) {
	buf := &bytes.Buffer{}
	now := time.Date(2025, 12, 14, 22, 15, 0, 0, time.UTC)

	NewTextWriter(buf).WriteState(sampleState(), &domain.Attribution{TrackerName: "Organic"}, now)

	out := buf.String()
	assert.Contains(t, out, "Activity State")
	assert.Contains(t, out, "uuid-1")
	assert.Contains(t, out, "5m0s")
	assert.Contains(t, out, "1m30s")
	assert.Contains(t, out, "15 minutes ago")
	assert.Contains(t, out, "5 minutes ago")
	assert.Contains(t, out, "Attribution")
	assert.Contains(t, out, "Organic")
}

func TestTextWriteStateNil(t *testing.T) {
	buf := &bytes.Buffer{}
	NewTextWriter(buf).WriteState(nil, nil, time.Now())
	assert.Contains(t, buf.String(), "No session has been tracked yet.")
}

func TestTextWritePackages(t *testing.T) {
	buf := &bytes.Buffer{}
	now := time.Unix(1700000060, 0)

	pkgs := []*domain.ActivityPackage{
		{ID: "pkg-a", Kind: domain.KindSession, Path: "/startup", CreatedAt: 1700000000},
		{ID: "pkg-b", Kind: domain.KindClick, Path: "/sdk_click"},
	}
	require.NoError(t, NewTextWriter(buf).WritePackages(pkgs, now))

	out := buf.String()
	assert.Contains(t, out, "Package Queue (2)")
	assert.Contains(t, out, "/startup")
	assert.Contains(t, out, "/sdk_click")
	assert.Contains(t, out, "pkg-a")
	assert.Contains(t, out, "1 minute ago")
}

func TestTextWritePackagesEmpty(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, NewTextWriter(buf).WritePackages(nil, time.Now()))
	assert.Contains(t, buf.String(), "Queue is empty.")
}

func TestTextWriteResult(t *testing.T) {
	tests := []struct {
		pending int
		offline bool
		want    string
	}{
		{0, false, "event delivered; queue is empty"},
		{1, false, "event queued; 1 package still waiting for delivery"},
		{3, true, "event queued; offline, 3 packages waiting"},
	}
	for _, tt := range tests {
		buf := &bytes.Buffer{}
		NewTextWriter(buf).WriteResult("event", tt.pending, tt.offline)
		assert.Contains(t, buf.String(), tt.want)
	}
}

func TestTextError(t *testing.T) {
	buf := &bytes.Buffer{}
	NewTextWriter(buf).Error("BAD", "went wrong", "try again")
	assert.Contains(t, buf.String(), "Error [BAD]:")
	assert.Contains(t, buf.String(), "went wrong (hint: try again)")
}
