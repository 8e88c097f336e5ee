package exchange

import (
	"testing"
	"time"

	"github.com/cuemby/aaesync/pkg/clients"
	"github.com/cuemby/aaesync/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPlan_AllScopeAllSync(t *testing.T) {
	plan := BuildPlan(types.ScopeAll, types.AllSync, 3, 3, types.BucketID{}, time.Now())

	require.False(t, plan.Rejected)
	assert.Equal(t, 3, plan.LocalNVal)
	assert.Equal(t, 3, plan.RemoteNVal)
	assert.Equal(t, "full", plan.Ref)
	assert.Nil(t, plan.Range)
}

func TestBuildPlan_AllScopeRejectsHourAndDay(t *testing.T) {
	for _, kind := range []types.WorkItemKind{types.HourSync, types.DaySync} {
		plan := BuildPlan(types.ScopeAll, kind, 3, 3, types.BucketID{}, time.Now())
		assert.True(t, plan.Rejected, "kind=%s", kind)
	}
}

func TestBuildPlan_BucketScopeHourSync(t *testing.T) {
	now := time.Now()
	bucket := types.BucketID{Bucket: []byte("b"), BucketType: []byte("t")}
	plan := BuildPlan(types.ScopeBucket, types.HourSync, 0, 0, bucket, now)

	require.False(t, plan.Rejected)
	require.NotNil(t, plan.Range)
	assert.Equal(t, clients.TreeSizeSmall, plan.Range.TreeSize)
	require.NotNil(t, plan.Range.ModRange)
	assert.Equal(t, hourWindow, now.Sub(plan.Range.ModRange.Start))
	assert.True(t, plan.RotateBucket)
}

func TestBuildPlan_BucketScopeDaySync(t *testing.T) {
	now := time.Now()
	bucket := types.BucketID{Bucket: []byte("b")}
	plan := BuildPlan(types.ScopeBucket, types.DaySync, 0, 0, bucket, now)

	require.NotNil(t, plan.Range)
	assert.Equal(t, clients.TreeSizeMedium, plan.Range.TreeSize)
	assert.Equal(t, dayWindow, now.Sub(plan.Range.ModRange.Start))
}

func TestBuildPlan_BucketScopeAllSyncHasNoModRange(t *testing.T) {
	bucket := types.BucketID{Bucket: []byte("b")}
	plan := BuildPlan(types.ScopeBucket, types.AllSync, 0, 0, bucket, time.Now())

	require.NotNil(t, plan.Range)
	assert.Equal(t, clients.TreeSizeLarge, plan.Range.TreeSize)
	assert.Nil(t, plan.Range.ModRange)
}

func TestBuildPlan_NoSyncAlwaysRejected(t *testing.T) {
	plan := BuildPlan(types.ScopeAll, types.NoSync, 3, 3, types.BucketID{}, time.Now())
	assert.True(t, plan.Rejected)
}

func TestBuildPlan_DisabledScopeRejected(t *testing.T) {
	plan := BuildPlan(types.ScopeDisabled, types.AllSync, 0, 0, types.BucketID{}, time.Now())
	assert.True(t, plan.Rejected)
}
