//go:build integration

package catalog_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/townscope/townscope/internal/catalog"
	"github.com/townscope/townscope/internal/platform"
	"github.com/townscope/townscope/pkg/scoring"
	"github.com/townscope/townscope/pkg/town"
)

var testDB *sql.DB

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "townscope",
				"POSTGRES_PASSWORD": "townscope",
				"POSTGRES_DB":       "townscope",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start container: %v\n", err)
		os.Exit(1)
	}

	host, _ := container.Host(ctx)
	port, _ := container.MappedPort(ctx, "5432")
	dsn := fmt.Sprintf("postgres://townscope:townscope@%s:%s/townscope?sslmode=disable", host, port.Port())

	testDB, err = sql.Open("postgres", dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	status, err := platform.AutoMigrate(testDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrations failed: %v\n", err)
		os.Exit(1)
	}
	if status.Dirty || status.Version != status.Latest {
		fmt.Fprintf(os.Stderr, "schema at %d (dirty=%v), want %d\n", status.Version, status.Dirty, status.Latest)
		os.Exit(1)
	}

	code := m.Run()
	_ = testDB.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func TestAutoMigrateIsIdempotent(t *testing.T) {
	status, err := platform.AutoMigrate(testDB)
	require.NoError(t, err)

	assert.False(t, status.Applied)
	assert.False(t, status.Dirty)
	assert.Equal(t, status.Latest, status.Version)
}

func TestServiceTownsRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := catalog.NewService(testDB)

	valencia := town.Town{ID: "valencia", Name: "Valencia", Country: "Spain", AvgTempSummer: town.Num(27)}
	require.NoError(t, svc.UpsertTown(ctx, &valencia))
	require.NoError(t, svc.UpsertTown(ctx, &town.Town{ID: "lyon", Name: "Lyon", Country: "France"}))

	got, err := svc.GetTown(ctx, "valencia")
	require.NoError(t, err)
	assert.Equal(t, valencia.Fingerprint(), got.Fingerprint())

	towns, total, err := svc.ListTowns(ctx, catalog.TownFilter{Country: "SPAIN"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, towns, 1)
	assert.Equal(t, "valencia", towns[0].ID)

	require.NoError(t, svc.DeleteTown(ctx, "lyon"))
	_, err = svc.GetTown(ctx, "lyon")
	assert.ErrorIs(t, err, catalog.ErrTownNotFound)
}

func TestServiceRunLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := catalog.NewService(testDB)

	_, err := svc.UpsertProfile(ctx, "alice", json.RawMessage(`{"countries":["Spain"]}`))
	require.NoError(t, err)

	run, err := svc.CreateMatchRun(ctx, &catalog.MatchRun{ProfileID: "alice", ConfigVersion: "v1", ProfileHash: "h"})
	require.NoError(t, err)
	require.NoError(t, svc.UpdateRunStatus(ctx, run.ID, catalog.StatusRunning, nil))

	results := []scoring.MatchResult{
		{TownID: "valencia", OverallScore: 80, QualityTier: scoring.TierVeryGood},
		{TownID: "lyon", OverallScore: 40, QualityTier: scoring.TierFair},
	}
	require.NoError(t, svc.SaveMatchResults(ctx, run.ID, results, "reports/alice/r.json"))

	latest, err := svc.LatestRun(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, run.ID, latest.ID)
	assert.Equal(t, catalog.StatusCompleted, latest.Status)

	got, err := svc.ListMatchResults(ctx, "alice", "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "valencia", got[0].TownID)

	_, err = svc.GetProfile(ctx, "nobody")
	assert.ErrorIs(t, err, catalog.ErrProfileNotFound)
}
