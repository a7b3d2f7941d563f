package workdir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	phpbcerrors "github.com/AndreyAkinshin/phpbc/internal/errors"
)

func TestLocker_LockUnlock(t *testing.T) {
	t.Parallel()
	a, b := t.TempDir(), t.TempDir()

	l := New()
	require.NoError(t, l.Lock(a, b, a))
	assert.True(t, l.Locked(a))
	assert.True(t, l.Locked(b))
	assert.FileExists(t, filepath.Join(a, LockName))

	l.Unlock(a)
	assert.False(t, l.Locked(a))
	assert.NoFileExists(t, filepath.Join(a, LockName))

	l.UnlockAll()
	assert.False(t, l.Locked(b))
	assert.NoFileExists(t, filepath.Join(b, LockName))
}

func TestLocker_Contention(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	first := New()
	require.NoError(t, first.Lock(dir))
	defer first.UnlockAll()

	second := New()
	err := second.Lock(dir)
	require.Error(t, err)
	assert.Equal(t, phpbcerrors.ExitEnvironmentError, phpbcerrors.GetExitCode(err))
	assert.False(t, second.Locked(dir))
}

func TestLocker_RollbackOnFailure(t *testing.T) {
	t.Parallel()
	ok := t.TempDir()
	missing := filepath.Join(t.TempDir(), "php-src")

	l := New()
	err := l.Lock(ok, missing)
	require.Error(t, err)
	assert.Equal(t, phpbcerrors.ExitEnvironmentError, phpbcerrors.GetExitCode(err))
	assert.False(t, l.Locked(ok))
	assert.NoFileExists(t, filepath.Join(ok, LockName))
}

func TestLocker_NotADirectory(t *testing.T) {
	t.Parallel()
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	err := New().Lock(file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}
