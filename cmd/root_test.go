package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/grow-with-growth/growyourneed/internal/content"
	"github.com/grow-with-growth/growyourneed/internal/selftest"
)

type fakeProber struct {
	alive bool
	kind  content.ProbeKind
}

func (p *fakeProber) Probe(_ context.Context, _ string, kind content.ProbeKind) bool {
	p.kind = kind
	return p.alive
}

type fakeSuite struct{ category content.Category }

func (s *fakeSuite) RunAll(context.Context) selftest.Result {
	return selftest.Result{OverallHealth: 75, Categories: map[string]selftest.CategoryResult{}}
}

func (s *fakeSuite) RunCategory(_ context.Context, c content.Category) selftest.CategoryResult {
	s.category = c
	return selftest.CategoryResult{Category: c, SuccessRate: 100, Samples: []content.VerifiedItem{}}
}

type fakeApp struct {
	prober *fakeProber
	suite  *fakeSuite
	ran    bool
	closed bool
}

func (a *fakeApp) Run(context.Context) error {
	a.ran = true
	return nil
}

func (a *fakeApp) Close() error {
	a.closed = true
	return nil
}

func (a *fakeApp) Logger() *zap.Logger { return zap.NewNop() }

func (a *fakeApp) Prober() content.Prober { return a.prober }

func (a *fakeApp) Suite() Suite { return a.suite }

func withFakeApp(t *testing.T) (*fakeApp, *string) {
	t.Helper()
	app := &fakeApp{prober: &fakeProber{}, suite: &fakeSuite{}}
	var gotPath string
	orig := newApp
	newApp = func(path string) (App, error) {
		gotPath = path
		return app, nil
	}
	t.Cleanup(func() { newApp = orig })
	return app, &gotPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestServeRunsApp(t *testing.T) {
	app, path := withFakeApp(t)

	_, err := execute(t, "serve", "--config", "contentd.yaml")
	require.NoError(t, err)
	require.True(t, app.ran)
	require.Equal(t, "contentd.yaml", *path)
}

func TestProbeCommand(t *testing.T) {
	app, _ := withFakeApp(t)
	app.prober.alive = true

	out, err := execute(t, "probe", "https://cdn.example/live.m3u8", "--manifest")
	require.NoError(t, err)
	require.Contains(t, out, "alive https://cdn.example/live.m3u8 (manifest)")
	require.Equal(t, content.ProbeStreamManifest, app.prober.kind)
	require.True(t, app.closed)

	app.prober.alive = false
	out, err = execute(t, "probe", "https://dead.example/")
	require.Error(t, err)
	require.Contains(t, out, "dead https://dead.example/ (generic)")
}

func TestProbeCommandRequiresURL(t *testing.T) {
	withFakeApp(t)

	_, err := execute(t, "probe")
	require.Error(t, err)
}

func TestSelfTestCommand(t *testing.T) {
	app, _ := withFakeApp(t)

	out, err := execute(t, "selftest")
	require.NoError(t, err)
	var all selftest.Result
	require.NoError(t, json.Unmarshal([]byte(out), &all))
	require.InDelta(t, 75, all.OverallHealth, 0.001)

	out, err = execute(t, "selftest", "tv_shows")
	require.NoError(t, err)
	require.Equal(t, content.CategoryTV, app.suite.category)
	require.Contains(t, out, `"success_rate": 100`)

	_, err = execute(t, "selftest", "podcasts")
	require.ErrorIs(t, err, content.ErrUnknownCategory)
}

func TestAppInitFailure(t *testing.T) {
	orig := newApp
	newApp = func(string) (App, error) { return nil, errors.New("boom") }
	t.Cleanup(func() { newApp = orig })

	_, err := execute(t, "serve")
	require.ErrorContains(t, err, "failed to initialize application services")
}
