package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rigdev/pulse/internal/config"
	"github.com/rigdev/pulse/internal/dashboard"
	"github.com/rigdev/pulse/internal/ingest"
	"github.com/rigdev/pulse/internal/storage"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyReloadRebuildsGitHubClient(t *testing.T) {
	var hits []string
	gh := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits = append(hits, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("[]"))
	}))
	defer gh.Close()

	cfg, err := config.Parse([]byte(cliConfig))
	require.NoError(t, err)
	db, err := storage.Open(filepath.Join(t.TempDir(), "pulse.db"))
	require.NoError(t, err)
	defer db.Close()

	log, _ := test.NewNullLogger()
	svc := dashboard.New(cfg, db, log, nil)
	ing := ingest.New(db, nil, svc.Config, log)
	reload := applyReload(svc, ing, log)
	ctx := context.Background()

	// Same GitHub settings: the client is left alone.
	reload(cfg)
	_, err = ing.Sync(ctx, "payments", time.Time{})
	require.ErrorIs(t, err, ingest.ErrNoSource)

	next, err := config.Parse([]byte(cliConfig + "github:\n  base_url: " + gh.URL + "/\n"))
	require.NoError(t, err)
	reload(next)

	assert.Equal(t, gh.URL+"/", svc.Config().GitHub.BaseURL)
	_, err = ing.Sync(ctx, "payments", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Contains(t, hits, "/api/v3/repos/acme/payments/deployments")
}
