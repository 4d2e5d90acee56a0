package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSolution = `{
  "platformVersion": "8.2.160729",
  "frontendBuilder": "gulp",
  "packageSource": {"location": "C:\\packages", "packageName": "Site.Package"},
  "configurationTransform": {"alwaysApplyName": "Always"},
  "environments": [
    {"name": "Debug", "websiteRoot": "./site", "solrExtractLocation": "C:\\solr"},
    {"name": "Release", "websiteRoot": "C:\\inetpub\\wwwroot", "solrExtractLocation": "C:\\solr", "solrVersion": "4.10.4"}
  ]
}`

func writeSolution(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SolutionFile), []byte(content), 0o644))
	return dir
}

func TestLoadSolution(t *testing.T) {
	dir := writeSolution(t, validSolution)

	sol, err := LoadSolution(dir)
	require.NoError(t, err)

	assert.Equal(t, "8.2.160729", sol.PlatformVersion)
	assert.Equal(t, "gulp", sol.FrontendBuilder)
	assert.Equal(t, "Site.Package", sol.PackageSource.PackageName)
	assert.Equal(t, "Always", sol.ConfigurationTransform.AlwaysApplyName)
	assert.Equal(t, []string{"Debug", "Release"}, sol.EnvironmentNames())
	assert.Equal(t, "4.10.4", sol.Environments[1].SolrVersion)
}

func TestLoadSolution_Errors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		_, err := LoadSolution(t.TempDir())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConfigNotFound)
	})

	t.Run("malformed json", func(t *testing.T) {
		dir := writeSolution(t, `{"environments": [`)
		_, err := LoadSolution(dir)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConfigParse)
		assert.NotErrorIs(t, err, ErrConfigValidation)
	})
}

func TestParseSolution_Validation(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name:    "missing environments",
			doc:     `{"packageSource": {"location": "p", "packageName": "n"}}`,
			wantErr: "at least one environment",
		},
		{
			name:    "empty environments",
			doc:     `{"packageSource": {"location": "p", "packageName": "n"}, "environments": []}`,
			wantErr: "at least one environment",
		},
		{
			name:    "missing package source",
			doc:     `{"environments": [{"name": "Debug"}]}`,
			wantErr: "packageSource.location",
		},
		{
			name:    "missing package name",
			doc:     `{"packageSource": {"location": "p"}, "environments": [{"name": "Debug"}]}`,
			wantErr: "packageSource.packageName",
		},
		{
			name:    "unnamed environment",
			doc:     `{"packageSource": {"location": "p", "packageName": "n"}, "environments": [{"websiteRoot": "x"}]}`,
			wantErr: "name is required",
		},
		{
			name:    "duplicate environment",
			doc:     `{"packageSource": {"location": "p", "packageName": "n"}, "environments": [{"name": "Debug"}, {"name": "Debug"}]}`,
			wantErr: "declared more than once",
		},
		{
			name:    "partial solr cloud",
			doc:     `{"packageSource": {"location": "p", "packageName": "n"}, "environments": [{"name": "Debug", "asSolrCloud": true}]}`,
			wantErr: "must be set together",
		},
		{
			name:    "bad solr version",
			doc:     `{"packageSource": {"location": "p", "packageName": "n"}, "environments": [{"name": "Debug", "solrVersion": "latest"}]}`,
			wantErr: "solrVersion",
		},
		{
			name:    "bad platform version",
			doc:     `{"platformVersion": "eight", "packageSource": {"location": "p", "packageName": "n"}, "environments": [{"name": "Debug"}]}`,
			wantErr: "platformVersion",
		},
		{
			name:    "remote without host",
			doc:     `{"packageSource": {"location": "p", "packageName": "n"}, "environments": [{"name": "Debug", "remote": {"user": "admin"}}]}`,
			wantErr: "remote.host",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSolution([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfigValidation)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseSolution_LegacyKeys(t *testing.T) {
	doc := `{
  "sitecore": {"version": "8.1.3"},
  "packageSource": {"location": "p", "packageName": "n"},
  "configurationTransform": {"AlwaysApplyName": "Always"},
  "configs": [{"name": "Debug", "websiteRoot": "w", "solrExtractLocation": "s"}]
}`
	sol, err := ParseSolution([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, "8.1.3", sol.PlatformVersion)
	assert.Equal(t, "Always", sol.ConfigurationTransform.AlwaysApplyName)
	require.Len(t, sol.Environments, 1)
	assert.Equal(t, "Debug", sol.Environments[0].Name)
	assert.Nil(t, sol.LegacyConfigs)
}

func TestParseSolution_LegacyConflict(t *testing.T) {
	doc := `{
  "platformVersion": "9.0.0",
  "sitecore": {"version": "8.1.3"},
  "packageSource": {"location": "p", "packageName": "n"},
  "environments": [{"name": "Debug"}]
}`
	_, err := ParseSolution([]byte(doc))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigValidation)
}

func TestEnvironmentProfile_SolrCloudConfigured(t *testing.T) {
	full := EnvironmentProfile{AsSolrCloud: true, SolrCloudHosts: "a:2181,b:2181", SolrCloudThisHost: "a"}
	assert.True(t, full.SolrCloudConfigured())
	assert.False(t, full.solrCloudPartial())

	partial := EnvironmentProfile{AsSolrCloud: true, SolrCloudThisHost: "a"}
	assert.False(t, partial.SolrCloudConfigured())
	assert.True(t, partial.solrCloudPartial())

	assert.False(t, EnvironmentProfile{}.SolrCloudConfigured())
	assert.False(t, EnvironmentProfile{}.solrCloudPartial())
}
