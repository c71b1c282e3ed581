package entity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hookCtx() HookContext {
	return HookContext{Ctx: context.Background()}
}

func TestFieldApply(t *testing.T) {
	t.Run("hook supersedes the caller value", func(t *testing.T) {
		f := NewField("stamp").OnCreate(stampHook(42))

		res, err := f.apply(OpCreate, int64(9999), true, hookCtx())
		require.NoError(t, err)
		require.True(t, res.set)
		assert.EqualValues(t, 42, res.value)
	})

	t.Run("hook satisfies required", func(t *testing.T) {
		f := NewField("owner").Required().OnCreate(stampHook(1))

		res, err := f.apply(OpCreate, nil, false, hookCtx())
		require.NoError(t, err)
		assert.Nil(t, res.violation)
		assert.True(t, res.set)
	})

	t.Run("hook error aborts", func(t *testing.T) {
		boom := errors.New("boom")
		f := NewField("x").OnCreate(func(HookContext) (any, error) { return nil, boom })

		_, err := f.apply(OpCreate, nil, false, hookCtx())
		require.ErrorIs(t, err, boom)
	})

	t.Run("hooks are transition specific", func(t *testing.T) {
		f := NewField("updatedAt").ReadOnly().OnUpdate(stampHook(7))

		res, err := f.apply(OpCreate, nil, false, hookCtx())
		require.NoError(t, err)
		assert.False(t, res.set)

		res, err = f.apply(OpUpdate, nil, false, hookCtx())
		require.NoError(t, err)
		require.True(t, res.set)
		assert.EqualValues(t, 7, res.value)
	})

	t.Run("required missing on create", func(t *testing.T) {
		f := NewField("name").Required()

		res, err := f.apply(OpCreate, nil, false, hookCtx())
		require.NoError(t, err)
		require.NotNil(t, res.violation)
		assert.Equal(t, "required", res.violation.Type)
		assert.Equal(t, "name", res.violation.Field)
	})

	t.Run("required does not bind updates", func(t *testing.T) {
		f := NewField("name").Required()

		res, err := f.apply(OpUpdate, nil, false, hookCtx())
		require.NoError(t, err)
		assert.Nil(t, res.violation)
		assert.False(t, res.set)
	})

	t.Run("readonly drops the caller value", func(t *testing.T) {
		f := NewField("owner").ReadOnly()

		res, err := f.apply(OpUpdate, "mallory", true, hookCtx())
		require.NoError(t, err)
		assert.False(t, res.set)
	})

	t.Run("immutable accepts create and ignores update", func(t *testing.T) {
		f := NewField("slug").Immutable()

		res, err := f.apply(OpCreate, "fixed", true, hookCtx())
		require.NoError(t, err)
		require.True(t, res.set)
		assert.Equal(t, "fixed", res.value)

		res, err = f.apply(OpUpdate, "changed", true, hookCtx())
		require.NoError(t, err)
		assert.False(t, res.set, "resubmission keeps the stored value without rejection")
	})

	t.Run("trim and lowercase normalize strings", func(t *testing.T) {
		f := NewField("name").Trim().Lowercase()

		res, err := f.apply(OpCreate, "  MiXeD  ", true, hookCtx())
		require.NoError(t, err)
		assert.Equal(t, "mixed", res.value)
	})

	t.Run("normalization leaves non strings alone", func(t *testing.T) {
		f := NewField("count").Trim().Lowercase()

		res, err := f.apply(OpCreate, 3, true, hookCtx())
		require.NoError(t, err)
		assert.Equal(t, 3, res.value)
	})

	t.Run("notEmpty rejects the empty string", func(t *testing.T) {
		f := NewField("name").Trim().NotEmpty()

		res, err := f.apply(OpCreate, "   ", true, hookCtx())
		require.NoError(t, err)
		require.NotNil(t, res.violation)
		assert.Equal(t, "empty", res.violation.Type)
	})

	t.Run("plain validator error becomes a violation", func(t *testing.T) {
		f := NewField("branch").Validate(func(_ HookContext, v any) error {
			return errors.New("unknown branch")
		})

		res, err := f.apply(OpCreate, "nope", true, hookCtx())
		require.NoError(t, err)
		require.NotNil(t, res.violation)
		assert.Equal(t, "invalid", res.violation.Type)
		assert.Equal(t, "unknown branch", res.violation.Message)
	})

	t.Run("framework validator error propagates untouched", func(t *testing.T) {
		f := NewField("project").Validate(func(_ HookContext, v any) error {
			return NewNoPermissionError("project", "proj_x")
		})

		_, err := f.apply(OpCreate, "proj_x", true, hookCtx())
		require.True(t, IsNoPermission(err))
	})

	t.Run("validator skipped when nothing is set", func(t *testing.T) {
		called := false
		f := NewField("opt").Validate(func(_ HookContext, v any) error {
			called = true
			return nil
		})

		_, err := f.apply(OpUpdate, nil, false, hookCtx())
		require.NoError(t, err)
		assert.False(t, called)
	})
}

func TestRunPipelineCollectsViolations(t *testing.T) {
	fx := newFixture(t)

	params := Params{"title": "   "}
	hc := fx.tasks.hookContext(context.Background(), params, nil)

	_, err := fx.tasks.runPipeline(OpCreate, params, hc)
	require.True(t, IsValidation(err))

	vs := violations(t, err)
	require.Len(t, vs, 2)

	fields := map[string]string{}
	for _, v := range vs {
		fields[v.Field] = v.Type
	}

	assert.Equal(t, "required", fields["project"])
	assert.Equal(t, "empty", fields["title"])
}
