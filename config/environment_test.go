package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, doc string) *Solution {
	t.Helper()
	sol, err := ParseSolution([]byte(doc))
	require.NoError(t, err)
	return sol
}

func TestSelectActive(t *testing.T) {
	sol := mustParse(t, validSolution)

	t.Run("default environment", func(t *testing.T) {
		env, err := sol.SelectActive("")
		require.NoError(t, err)
		assert.Equal(t, DefaultEnvironment, env.Name)
	})

	t.Run("requested environment", func(t *testing.T) {
		env, err := sol.SelectActive("Release")
		require.NoError(t, err)
		assert.Equal(t, "Release", env.Name)
		assert.Equal(t, `C:\inetpub\wwwroot`, env.WebsiteRoot)
	})

	t.Run("unknown environment", func(t *testing.T) {
		_, err := sol.SelectActive("Staging")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownEnvironment)

		var unknown *UnknownEnvironmentError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, "Staging", unknown.Requested)
		assert.Equal(t, []string{"Debug", "Release"}, unknown.Available)
	})

	t.Run("match is exact", func(t *testing.T) {
		_, err := sol.SelectActive("debug")
		assert.ErrorIs(t, err, ErrUnknownEnvironment)
	})
}

func TestNewRunContext(t *testing.T) {
	sol := mustParse(t, validSolution)
	dir := t.TempDir()

	rc, err := NewRunContext(sol, "Release", dir, "run-1")
	require.NoError(t, err)

	assert.Equal(t, "Release", rc.Environment())
	assert.Equal(t, dir, rc.WorkDir())
	assert.Equal(t, "run-1", rc.RunID())
	assert.Equal(t, "Site.Package", rc.Solution().PackageSource.PackageName)

	// Mutating the source document does not leak into the run context.
	sol.Environments[1].SolrExtractLocation = "changed"
	sol.PackageSource.PackageName = "changed"
	assert.Equal(t, `C:\solr`, rc.Profile().SolrExtractLocation)
	assert.Equal(t, "Site.Package", rc.Solution().PackageSource.PackageName)
}

func TestNewRunContext_UnknownEnvironment(t *testing.T) {
	sol := mustParse(t, validSolution)

	rc, err := NewRunContext(sol, "Production", t.TempDir(), "run-1")
	require.Error(t, err)
	assert.Nil(t, rc)
	assert.ErrorIs(t, err, ErrUnknownEnvironment)
}

func TestRunContext_Require(t *testing.T) {
	sol := mustParse(t, validSolution)
	rc, err := NewRunContext(sol, "", t.TempDir(), "run-1")
	require.NoError(t, err)

	v, err := rc.Require("solrExtractLocation", rc.Profile().SolrExtractLocation)
	require.NoError(t, err)
	assert.Equal(t, `C:\solr`, v)

	_, err = rc.Require("solrVersion", rc.Profile().SolrVersion)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingConfigField)
	assert.Contains(t, err.Error(), `environment "Debug": solrVersion is required`)
}
