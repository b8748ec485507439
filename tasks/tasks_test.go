package tasks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/thoughtflow/tasks/thyroid"
	"github.com/BaSui01/thoughtflow/types"
)

func TestNew_Thyroid(t *testing.T) {
	task, err := New("Thyroid_Lab", Options{DataPath: "thyroid/testdata/sample.csv", Input: "flag"})
	require.NoError(t, err)
	assert.Equal(t, 2, task.Len())

	x, err := task.Input(0)
	require.NoError(t, err)
	assert.Contains(t, x, "Structured HIGH/LOW/NORMAL judgments per session.")
}

func TestNew_Unknown(t *testing.T) {
	_, err := New("game24", Options{})
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidConfig))
	assert.Contains(t, err.Error(), thyroid.Name)
}

func TestNew_FactoryError(t *testing.T) {
	_, err := New(thyroid.Name, Options{})
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidConfig))
}

func TestRegister(t *testing.T) {
	factory := func(opts Options) (Task, error) {
		return New(thyroid.Name, opts)
	}
	require.NoError(t, Register("thyroid_alias", factory))
	assert.Contains(t, Names(), "thyroid_alias")

	err := Register("thyroid_alias", factory)
	assert.True(t, types.IsErrorCode(err, types.ErrInvalidConfig))

	assert.Error(t, Register("", factory))
	assert.Error(t, Register("x", nil))

	task, err := New("thyroid_alias", Options{DataPath: "thyroid/testdata/sample.csv"})
	require.NoError(t, err)
	assert.Equal(t, "200", task.ItemID(0))
}
