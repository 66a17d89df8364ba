package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/keyreg/internal/domain/models"
	"github.com/turtacn/keyreg/pkg/constants"
	"github.com/turtacn/keyreg/pkg/errors"
)

func TestKeySorter_StableInBothDirections(t *testing.T) {
	records := fixtureKeys()
	sorter := KeySorter()

	asc, err := sorter.Sort(records, models.SortSpec{Key: KeyFieldAlgorithm, Direction: constants.SortAscending})
	require.NoError(t, err)
	// AES-256-GCM ties keep k2 before k5.
	assert.Equal(t, []string{"k2", "k5", "k3", "k1", "k4"}, ids(asc))

	desc, err := sorter.Sort(records, models.SortSpec{Key: KeyFieldAlgorithm, Direction: constants.SortDescending})
	require.NoError(t, err)
	assert.Equal(t, []string{"k4", "k1", "k3", "k2", "k5"}, ids(desc))

	assert.Equal(t, []string{"k1", "k2", "k3", "k4", "k5"}, ids(records), "input must not be reordered")
}

func TestKeySorter_StatusUsesLifecycleOrder(t *testing.T) {
	sorted, err := KeySorter().Sort(fixtureKeys(), models.SortSpec{Key: KeyFieldStatus})
	require.NoError(t, err)
	assert.Equal(t, []string{"k4", "k1", "k2", "k3", "k5"}, ids(sorted))
}

func TestKeySorter_MissingTimestampsSortFirst(t *testing.T) {
	records := fixtureKeys()
	rotated := baseTime.Add(time.Hour)
	records[2].RotatedAt = &rotated

	sorted, err := KeySorter().Sort(records, models.SortSpec{Key: "rotatedAt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"k1", "k2", "k4", "k5", "k3"}, ids(sorted))
}

func TestKeySorter_EmptyKeyKeepsOrder(t *testing.T) {
	sorted, err := KeySorter().Sort(fixtureKeys(), models.SortSpec{})
	require.NoError(t, err)
	assert.Equal(t, []string{"k1", "k2", "k3", "k4", "k5"}, ids(sorted))
}

func TestSorter_Validate(t *testing.T) {
	sorter := KeySorter()

	err := sorter.Validate(models.SortSpec{Key: "colour"})
	assert.True(t, errors.IsValidation(err))

	err = sorter.Validate(models.SortSpec{Key: "name", Direction: "sideways"})
	assert.True(t, errors.IsValidation(err))

	assert.NoError(t, sorter.Validate(models.SortSpec{Key: "name", Direction: constants.SortDescending}))
	assert.NoError(t, sorter.Validate(models.SortSpec{Key: "expiresAt"}))
}

func TestAuditSorter_TimestampDescending(t *testing.T) {
	events := []*models.AuditEvent{
		{ID: "e1", Timestamp: baseTime},
		{ID: "e2", Timestamp: baseTime.Add(time.Minute)},
		{ID: "e3", Timestamp: baseTime},
	}
	sorted, err := AuditSorter().Sort(events, models.SortSpec{Key: "timestamp", Direction: constants.SortDescending})
	require.NoError(t, err)

	got := make([]string, len(sorted))
	for i, e := range sorted {
		got[i] = e.ID
	}
	assert.Equal(t, []string{"e2", "e1", "e3"}, got)
}

func TestCompareOrdinal_UnknownSortsLast(t *testing.T) {
	assert.Equal(t, -1, CompareOrdinal(constants.KeyStatuses, constants.KeyStatusExpired, constants.KeyStatus("archived")))
	assert.Equal(t, 0, CompareOrdinal(constants.KeyStatuses, constants.KeyStatusActive, constants.KeyStatusActive))
}
