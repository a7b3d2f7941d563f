// Package workdir holds advisory locks on PHP source trees so two runs
// never share a working directory.
package workdir

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	phpbcerrors "github.com/AndreyAkinshin/phpbc/internal/errors"
)

// LockName is the lock file created inside each working directory.
const LockName = ".phpbc.lock"

// Locker holds locks on a set of working directories.
type Locker struct {
	locks map[string]*flock.Flock
	order []string
}

// New returns an empty Locker.
func New() *Locker {
	return &Locker{locks: make(map[string]*flock.Flock)}
}

// Lock acquires a lock on every directory without blocking. Directories
// already held are skipped. If any directory is missing or locked by
// another process, locks taken by this call are released and an
// environment error is returned.
func (l *Locker) Lock(dirs ...string) error {
	var taken []string
	for _, dir := range dirs {
		key := filepath.Clean(dir)
		if _, ok := l.locks[key]; ok {
			continue
		}
		if err := l.lockOne(key); err != nil {
			for _, d := range taken {
				l.Unlock(d)
			}
			return err
		}
		taken = append(taken, key)
	}
	return nil
}

func (l *Locker) lockOne(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return phpbcerrors.WrapKind(phpbcerrors.KindEnvironment, err, "working directory unavailable")
	}
	if !info.IsDir() {
		return phpbcerrors.Environmentf("working directory %s is not a directory", dir)
	}

	locker := flock.New(filepath.Join(dir, LockName))
	ok, err := locker.TryLock()
	if err != nil {
		_ = locker.Close()
		return phpbcerrors.WrapKind(phpbcerrors.KindEnvironment, err, fmt.Sprintf("lock %s", dir))
	}
	if !ok {
		_ = locker.Close()
		return phpbcerrors.Environmentf("working directory %s is in use by another phpbc run", dir)
	}
	l.locks[dir] = locker
	l.order = append(l.order, dir)
	return nil
}

// Locked reports whether this Locker holds dir.
func (l *Locker) Locked(dir string) bool {
	_, ok := l.locks[filepath.Clean(dir)]
	return ok
}

// Unlock releases dir and removes its lock file.
func (l *Locker) Unlock(dir string) {
	key := filepath.Clean(dir)
	locker, ok := l.locks[key]
	if !ok {
		return
	}
	delete(l.locks, key)
	for i, d := range l.order {
		if d == key {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	_ = locker.Unlock()
	_ = os.Remove(locker.Path())
}

// UnlockAll releases every held lock in reverse acquisition order.
func (l *Locker) UnlockAll() {
	for i := len(l.order) - 1; i >= 0; i-- {
		l.Unlock(l.order[i])
	}
}
