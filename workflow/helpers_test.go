package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nomis52/solrsetup/config"
	"github.com/nomis52/solrsetup/logging"
)

// Test Helpers
// ---------------------------------------------------------------------

const testSolution = `{
  "platformVersion": "8.2.160729",
  "packageSource": {"location": "C:\\packages", "packageName": "Site.Package"},
  "environments": [
    {"name": "Debug", "websiteRoot": "./site", "solrExtractLocation": "C:\\solr"},
    {"name": "Release", "websiteRoot": "C:\\inetpub\\wwwroot"}
  ]
}`

func newRunContext(t *testing.T, env string) *config.RunContext {
	t.Helper()
	sol, err := config.ParseSolution([]byte(testSolution))
	require.NoError(t, err)
	rc, err := config.NewRunContext(sol, env, t.TempDir(), "run-test")
	require.NoError(t, err)
	return rc
}

// journal records the order in which tasks are initialized and executed.
type journal struct {
	mu     sync.Mutex
	events []string
}

func (j *journal) add(event string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, event)
}

func (j *journal) get() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.events...)
}

var errTaskFailed = errors.New("task failed")

// fakeTask is a configurable Task.
type fakeTask struct {
	name     string
	mode     Mode
	journal  *journal
	initErr  error
	execErr  error
	executed int
	// requires names a profile field that Init insists on.
	requires string
}

func (f *fakeTask) Name() string { return f.name }
func (f *fakeTask) Mode() Mode   { return f.mode }

func (f *fakeTask) Init(rc *config.RunContext) error {
	if f.journal != nil {
		f.journal.add("init:" + f.name)
	}
	if f.requires == "solrExtractLocation" {
		if _, err := rc.Require(f.requires, rc.Profile().SolrExtractLocation); err != nil {
			return err
		}
	}
	return f.initErr
}

func (f *fakeTask) Execute(ctx context.Context, rc *config.RunContext) error {
	f.executed++
	if f.journal != nil {
		f.journal.add("exec:" + f.name)
	}
	logging.FromContext(ctx).Info(fmt.Sprintf("running %s", f.name))
	return f.execErr
}

func (f *fakeTask) Definition() any {
	return struct {
		Name string
		Mode Mode
	}{f.name, f.mode}
}

// opaqueTask has no Definer and is not comparable.
type opaqueTask struct {
	name string
	tags []string
}

func (o opaqueTask) Name() string                                      { return o.name }
func (o opaqueTask) Mode() Mode                                        { return Blocking }
func (o opaqueTask) Init(*config.RunContext) error                     { return nil }
func (o opaqueTask) Execute(context.Context, *config.RunContext) error { return nil }

func newRegistry(t *testing.T, tasks ...Task) *Registry {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, reg.Register(tasks...))
	return reg
}
