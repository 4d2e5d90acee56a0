package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	a := &fakeTask{name: "install-solr"}
	b := &fakeTask{name: "sitecore-switch-to-solr"}
	reg := newRegistry(t, b, a)

	got, ok := reg.Lookup("install-solr")
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = reg.Lookup("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"install-solr", "sitecore-switch-to-solr"}, reg.Names())
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	t.Run("same instance is idempotent", func(t *testing.T) {
		a := &fakeTask{name: "install-solr"}
		reg := newRegistry(t, a)
		assert.NoError(t, reg.Register(a))
	})

	t.Run("identical definition is idempotent", func(t *testing.T) {
		first := &fakeTask{name: "install-solr"}
		reg := newRegistry(t, first)
		require.NoError(t, reg.Register(&fakeTask{name: "install-solr"}))

		got, _ := reg.Lookup("install-solr")
		assert.Same(t, first, got, "first registration wins")
	})

	t.Run("different definition is rejected", func(t *testing.T) {
		reg := newRegistry(t, &fakeTask{name: "install-solr"})
		err := reg.Register(&fakeTask{name: "install-solr", mode: Async})
		assert.ErrorIs(t, err, ErrDuplicateTask)
	})

	t.Run("tasks without a definition can never be registered twice", func(t *testing.T) {
		reg := newRegistry(t, opaqueTask{name: "opaque"})
		err := reg.Register(opaqueTask{name: "opaque"})
		assert.ErrorIs(t, err, ErrDuplicateTask)
	})
}

func TestRegistry_RegisterInvalid(t *testing.T) {
	reg := NewRegistry()
	assert.Error(t, reg.Register(nil))
	assert.Error(t, reg.Register(&fakeTask{}))
}

func TestRegistry_RegisterIsAtomic(t *testing.T) {
	t.Run("invalid task later in the call", func(t *testing.T) {
		reg := NewRegistry()
		err := reg.Register(&fakeTask{name: "install-solr"}, &fakeTask{})
		require.Error(t, err)
		assert.Empty(t, reg.Names())
	})

	t.Run("conflict with an existing task", func(t *testing.T) {
		reg := newRegistry(t, &fakeTask{name: "install-solr"})
		err := reg.Register(&fakeTask{name: "sitecore-switch-to-solr"}, &fakeTask{name: "install-solr", mode: Async})
		assert.ErrorIs(t, err, ErrDuplicateTask)
		assert.Equal(t, []string{"install-solr"}, reg.Names())
	})

	t.Run("conflict within the call", func(t *testing.T) {
		reg := NewRegistry()
		err := reg.Register(&fakeTask{name: "install-solr"}, &fakeTask{name: "install-solr", mode: Async})
		assert.ErrorIs(t, err, ErrDuplicateTask)
		assert.Empty(t, reg.Names())
	})
}

func TestRegistry_Sequences(t *testing.T) {
	reg := newRegistry(t, &fakeTask{name: "a"}, &fakeTask{name: "b"})

	require.NoError(t, reg.DefineSequence("both", "a", "b"))
	require.NoError(t, reg.DefineSequence("both", "a", "b"), "identical redefinition is accepted")

	seq, ok := reg.Sequence("both")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, seq)

	seq[0] = "changed"
	again, _ := reg.Sequence("both")
	assert.Equal(t, "a", again[0], "returned slice is a copy")

	assert.ErrorIs(t, reg.DefineSequence("both", "b", "a"), ErrDuplicateTask)
	assert.ErrorIs(t, reg.DefineSequence("a", "b"), ErrDuplicateTask, "sequence cannot shadow a task")
	assert.ErrorIs(t, reg.DefineSequence("broken", "a", "missing"), ErrUnknownTask)
	assert.Error(t, reg.DefineSequence("empty"))
	assert.ErrorIs(t, reg.Register(&fakeTask{name: "both"}), ErrDuplicateTask, "task cannot shadow a sequence")

	assert.Equal(t, []string{"both"}, reg.Sequences())
}

func TestRegistry_Resolve(t *testing.T) {
	a := &fakeTask{name: "a"}
	b := &fakeTask{name: "b"}
	c := &fakeTask{name: "c"}
	reg := newRegistry(t, a, b, c)
	require.NoError(t, reg.DefineSequence("ab", "a", "b"))

	tasks, err := reg.Resolve("ab", "c")
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Same(t, a, tasks[0])
	assert.Same(t, b, tasks[1])
	assert.Same(t, c, tasks[2])

	_, err = reg.Resolve("a", "nope")
	var unknown *UnknownTaskError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nope", unknown.Name)
	assert.ErrorIs(t, err, ErrUnknownTask)
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "blocking", Blocking.String())
	assert.Equal(t, "async", Async.String())
	assert.Equal(t, "mode(7)", Mode(7).String())
}

func TestTaskState_String(t *testing.T) {
	assert.Equal(t, "not_started", NotStarted.String())
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "skipped", Skipped.String())
	assert.Equal(t, "completed", Completed.String())
	assert.Equal(t, "unknown", TaskState(99).String())
}
