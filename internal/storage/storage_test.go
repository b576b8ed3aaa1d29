package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rigdev/pulse/internal/daterange"
	"github.com/rigdev/pulse/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err, "open test db")
	t.Cleanup(func() { db.Close() })
	return db
}

var base = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

// --- Open ---

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "pulse.db")
	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulse.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.SetSetting("k", "v"))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err, "migrations must be idempotent")
	defer db.Close()
	v, err := db.GetSetting("k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

// --- Settings ---

func TestSettings_SetAndGet(t *testing.T) {
	db := testDB(t)

	require.NoError(t, db.SetSetting("theme", "dark"))
	require.NoError(t, db.SetSetting("theme", "light"))

	val, err := db.GetSetting("theme")
	require.NoError(t, err)
	assert.Equal(t, "light", val)
}

func TestSettings_GetMissing(t *testing.T) {
	db := testDB(t)

	val, err := db.GetSetting("nonexistent")
	require.NoError(t, err)
	assert.Empty(t, val)
}

func TestSyncCursor(t *testing.T) {
	db := testDB(t)

	got, err := db.GetSyncCursor("payments", "acme/payments")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	at := base.Add(1500 * time.Millisecond)
	require.NoError(t, db.SetSyncCursor("payments", "acme/payments", at))

	got, err = db.GetSyncCursor("payments", "acme/payments")
	require.NoError(t, err)
	assert.True(t, at.Equal(got))

	other, err := db.GetSyncCursor("search", "acme/payments")
	require.NoError(t, err)
	assert.True(t, other.IsZero())
}

// --- Selections ---

func TestSelection_GetMissing(t *testing.T) {
	db := testDB(t)

	sel, err := db.GetSelection("payments")
	require.NoError(t, err)
	assert.Nil(t, sel)
}

func TestSelection_SaveReportsChange(t *testing.T) {
	db := testDB(t)

	changed, err := db.SaveSelection("payments", daterange.Selection{Preset: daterange.OneWeek})
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = db.SaveSelection("payments", daterange.Selection{Preset: daterange.OneWeek})
	require.NoError(t, err)
	assert.False(t, changed, "saving the same preset is a no-op")

	changed, err = db.SaveSelection("payments", daterange.Selection{
		Preset: daterange.OneWeek,
		Start:  base,
	})
	require.NoError(t, err)
	assert.False(t, changed, "bounds are ignored for presets")

	changed, err = db.SaveSelection("payments", daterange.Selection{Preset: daterange.CurrQtr})
	require.NoError(t, err)
	assert.True(t, changed)

	sel, err := db.GetSelection("payments")
	require.NoError(t, err)
	require.NotNil(t, sel)
	assert.Equal(t, daterange.CurrQtr, sel.Preset)
	assert.True(t, sel.Start.IsZero())
}

func TestSelection_CustomRoundTrip(t *testing.T) {
	db := testDB(t)

	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.January, 31, 23, 59, 59, 999999999, time.UTC)
	custom := daterange.Selection{Preset: daterange.Custom, Start: start, End: end}

	changed, err := db.SaveSelection("search", custom)
	require.NoError(t, err)
	assert.True(t, changed)

	sel, err := db.GetSelection("search")
	require.NoError(t, err)
	require.NotNil(t, sel)
	assert.True(t, sel.Equal(custom))
	assert.True(t, end.Equal(sel.End))

	changed, err = db.SaveSelection("search", daterange.Selection{
		Preset: daterange.Custom,
		Start:  start.In(time.FixedZone("CET", 3600)),
		End:    end,
	})
	require.NoError(t, err)
	assert.False(t, changed, "same instant in another zone is unchanged")
}

func TestSelection_OffsetSurvivesReload(t *testing.T) {
	db := testDB(t)
	r := daterange.NewResolver(0)

	sel, err := daterange.ParseSelection("", "2024-03-01T00:00:00+02:00", "2024-03-10T00:00:00+02:00")
	require.NoError(t, err)
	before, err := r.Resolve(sel, base)
	require.NoError(t, err)

	changed, err := db.SaveSelection("payments", sel)
	require.NoError(t, err)
	assert.True(t, changed)

	stored, err := db.GetSelection("payments")
	require.NoError(t, err)
	require.NotNil(t, stored)
	after, err := r.Resolve(*stored, base)
	require.NoError(t, err)
	assert.True(t, before.Window.Equal(after.Window))
	assert.Equal(t, before.Window.Days(), after.Window.Days())
	assert.Equal(t, "2024-03-10", after.Window.Days()[len(after.Window.Days())-1])

	changed, err = db.SaveSelection("payments", sel)
	require.NoError(t, err)
	assert.False(t, changed)

	utc, err := daterange.ParseSelection("", "2024-02-29T22:00:00Z", "2024-03-09T22:00:00Z")
	require.NoError(t, err)
	changed, err = db.SaveSelection("payments", utc)
	require.NoError(t, err)
	assert.True(t, changed, "same instants in UTC cover different days")
}

func TestSelection_RejectsInvalid(t *testing.T) {
	db := testDB(t)

	_, err := db.SaveSelection("payments", daterange.Selection{
		Preset: daterange.Custom,
		Start:  base,
		End:    base.Add(-48 * time.Hour),
	})
	var verr *daterange.ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = db.SaveSelection("payments", daterange.Selection{Preset: "lastCentury"})
	assert.Error(t, err)

	sel, err := db.GetSelection("payments")
	require.NoError(t, err)
	assert.Nil(t, sel)
}

// --- Deployments ---

func TestDeployments_SaveAndList(t *testing.T) {
	db := testDB(t)

	deploys := []metrics.Deployment{
		{ID: "d-1", Team: "payments", Repo: "acme/payments", SHA: "abc", Environment: "production",
			Status: metrics.DeploySucceeded, CommittedAt: base.Add(-2 * time.Hour), DeployedAt: base},
		{ID: "d-2", Team: "payments", Repo: "acme/payments", Status: metrics.DeployFailed,
			DeployedAt: base.Add(-24 * time.Hour)},
		{ID: "d-3", Team: "search", Status: metrics.DeploySucceeded, DeployedAt: base},
		{ID: "d-4", Team: "payments", Status: metrics.DeploySucceeded, DeployedAt: base.Add(-30 * 24 * time.Hour)},
	}
	for i := range deploys {
		require.NoError(t, db.SaveDeployment(&deploys[i]))
	}

	got, err := db.ListDeployments("payments", base.Add(-7*24*time.Hour), base)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "d-2", got[0].ID, "oldest first")
	assert.Equal(t, "d-1", got[1].ID)
	assert.Equal(t, metrics.DeploySucceeded, got[1].Status)
	assert.True(t, got[1].CommittedAt.Equal(base.Add(-2*time.Hour)))
	assert.True(t, got[0].CommittedAt.IsZero())
	assert.Equal(t, "production", got[1].Environment)
}

func TestDeployments_Upsert(t *testing.T) {
	db := testDB(t)

	dep := metrics.Deployment{ID: "d-1", Team: "payments", Status: metrics.DeployFailed, DeployedAt: base}
	require.NoError(t, db.SaveDeployment(&dep))
	dep.Status = metrics.DeploySucceeded
	require.NoError(t, db.SaveDeployment(&dep))

	got, err := db.ListDeployments("payments", base, base)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, metrics.DeploySucceeded, got[0].Status)
}

func TestDeployments_RequireID(t *testing.T) {
	db := testDB(t)
	assert.Error(t, db.SaveDeployment(&metrics.Deployment{Team: "payments", DeployedAt: base}))
}

// --- Incidents ---

func TestIncidents_Lifecycle(t *testing.T) {
	db := testDB(t)

	inc := metrics.Incident{ID: "i-1", Team: "payments", Title: "checkout down", OpenedAt: base}
	require.NoError(t, db.SaveIncident(&inc))

	got, err := db.GetIncident("i-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.ResolvedAt)
	assert.Equal(t, "checkout down", got.Title)

	ok, err := db.ResolveIncident("i-1", base.Add(90*time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = db.GetIncident("i-1")
	require.NoError(t, err)
	require.NotNil(t, got.ResolvedAt)
	assert.True(t, got.ResolvedAt.Equal(base.Add(90*time.Minute)))

	ok, err = db.ResolveIncident("missing", base)
	require.NoError(t, err)
	assert.False(t, ok)

	missing, err := db.GetIncident("missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestIncidents_ListByOpenOrResolve(t *testing.T) {
	db := testDB(t)

	resolvedInside := base.Add(-time.Hour)
	resolvedBefore := base.Add(-20 * 24 * time.Hour)
	for _, inc := range []metrics.Incident{
		{ID: "opened-before-resolved-inside", Team: "payments", OpenedAt: base.Add(-10 * 24 * time.Hour), ResolvedAt: &resolvedInside},
		{ID: "open-inside", Team: "payments", OpenedAt: base.Add(-2 * time.Hour)},
		{ID: "entirely-before", Team: "payments", OpenedAt: base.Add(-21 * 24 * time.Hour), ResolvedAt: &resolvedBefore},
		{ID: "other-team", Team: "search", OpenedAt: base.Add(-time.Hour)},
	} {
		require.NoError(t, db.SaveIncident(&inc))
	}

	got, err := db.ListIncidents("payments", base.Add(-7*24*time.Hour), base)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "opened-before-resolved-inside", got[0].ID)
	assert.Equal(t, "open-inside", got[1].ID)
}
