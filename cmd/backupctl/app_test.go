package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andresuchdata/backupctl/internal/config"
	"github.com/andresuchdata/backupctl/internal/realm"
	"github.com/andresuchdata/backupctl/internal/service"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const archiveRealms = `
[realms.proj-archive]
transport = "GCS"
prefix = "proj-archive/"
contains = "proj-archive"
`

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp(config.FromViper(viper.New()))
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"backupctl", "--log-level", "error"}, args...))
	return out.String(), err
}

func writeRealms(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "realms.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestStatTable(t *testing.T) {
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	stats := []service.RealmStat{
		{Realm: "proj-media", Stat: realm.Stat{TotalSize: 3 << 20, TotalCount: 1200, Latest: now.Add(-48 * time.Hour)}},
		{Realm: "proj-empty"},
		{Realm: "proj-broken", Error: "connection refused"},
	}

	out := statTable(stats, now)
	assert.Contains(t, out, "REALM")
	assert.Contains(t, out, "1,200")
	assert.Contains(t, out, "3.0 MiB")
	assert.Contains(t, out, "2024-06-01T12:00:00Z")
	assert.Contains(t, out, "2 days ago")
	assert.Contains(t, out, "connection refused")
}

func TestApp_OpenAPI(t *testing.T) {
	out, err := runApp(t, "openapi")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "3.0.3", doc["openapi"])
}

func TestApp_Stat_ReportsFailedRealms(t *testing.T) {
	path := writeRealms(t, archiveRealms)

	out, err := runApp(t, "stat", "--config", path, "--json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 realms")

	var stats []service.RealmStat
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	require.Len(t, stats, 1)
	assert.Equal(t, "proj-archive", stats[0].Realm)
	assert.Contains(t, stats[0].Error, "not supported")
}

func TestApp_Stat_UnknownRealm(t *testing.T) {
	path := writeRealms(t, archiveRealms)

	_, err := runApp(t, "stat", "--config", path, "--name", "proj-db")
	var notFound *realm.RealmNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestApp_Stat_EmptyRealmsFile(t *testing.T) {
	path := writeRealms(t, "")

	out, err := runApp(t, "stat", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "REALM")
}

func TestApp_RequiresConfig(t *testing.T) {
	_, err := runApp(t, "stat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--config")
}

func TestApp_Push_RequiresExchangeDir(t *testing.T) {
	path := writeRealms(t, archiveRealms)

	_, err := runApp(t, "push", "--config", path, "--name", "proj-archive", "--file", "proj-archive-1.tar.gz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--exchange-dir")
}

func TestApp_Push_RequiresName(t *testing.T) {
	_, err := runApp(t, "push", "--file", "x.tar.gz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")
}

func TestApp_Pull_UnsupportedTransport(t *testing.T) {
	path := writeRealms(t, archiveRealms)

	_, err := runApp(t, "pull", "--config", path, "--name", "proj-archive", "--exchange-dir", t.TempDir())
	var unsupported *realm.UnsupportedTransportError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "GCS", unsupported.Kind)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- serve(ctx, srv, "realms.toml") }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServe_ListenFailure(t *testing.T) {
	srv := &http.Server{Addr: "127.0.0.1:-1", Handler: http.NotFoundHandler()}

	err := serve(context.Background(), srv, "realms.toml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start server")
}

func TestApp_CommandsSeeRunContext(t *testing.T) {
	path := writeRealms(t, archiveRealms)
	app := newApp(config.FromViper(viper.New()))
	var out bytes.Buffer
	app.Writer = &out

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := app.RunContext(ctx, []string{"backupctl", "--log-level", "error", "server", "--config", path, "--listen", "127.0.0.1:0"})
	assert.NoError(t, err)
}
