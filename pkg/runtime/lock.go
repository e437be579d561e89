package runtime

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// Lock prevents concurrent executions against the shared shaping channel.
// The engine reserves a single channel per host, so two processes applying
// rules at the same time would race on the same external identifier.
type Lock interface {
	// Acquire tries to acquire the lock. Returns false if the lock is
	// held by another running process.
	Acquire() (bool, error)
	// Release releases the lock. Returns an error if the calling process
	// is not the current owner.
	Release() error
}

// filelock implements Lock with a pid file.
type filelock struct {
	path string
}

// DefaultLock returns a file lock named after the running binary, placed in
// XDG_RUNTIME_DIR or the system temp directory.
func DefaultLock() Lock {
	lockDir := os.Getenv("XDG_RUNTIME_DIR")
	if lockDir == "" {
		lockDir = os.TempDir()
	}

	return &filelock{
		path: filepath.Join(lockDir, filepath.Base(os.Args[0])+".lock"),
	}
}

// NewFileLock returns a file lock backed by the given path.
func NewFileLock(path string) Lock {
	return &filelock{path: path}
}

func (l *filelock) Acquire() (bool, error) {
	owner, exists, err := readOwner(l.path)
	if err != nil {
		return false, err
	}

	if exists {
		if owner == os.Getpid() {
			// already ours
			return true, nil
		}
		if isAlive(owner) {
			return false, nil
		}
		// stale or malformed lock left behind by a dead process
		if err := os.Remove(l.path); err != nil {
			return false, fmt.Errorf("removing stale lock file: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if os.IsExist(err) {
		// lost the race to another process
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer func() {
		_ = f.Close()
	}()

	if _, err := fmt.Fprintf(f, "%d", os.Getpid()); err != nil {
		_ = os.Remove(l.path)
		return false, err
	}

	return true, nil
}

func (l *filelock) Release() error {
	owner, _, err := readOwner(l.path)
	if err != nil {
		return err
	}

	if owner != os.Getpid() {
		return fmt.Errorf("process is not the owner of lock file %q", l.path)
	}

	return os.Remove(l.path)
}

// readOwner returns the pid recorded in the lock file, and whether the
// file exists. The pid is -1 when the file is missing or malformed.
func readOwner(path string) (int, bool, error) {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return -1, false, nil
	}
	if err != nil {
		return -1, false, err
	}

	var pid int
	if _, err := fmt.Sscanf(string(content), "%d", &pid); err != nil {
		return -1, true, nil
	}

	return pid, true, nil
}

// isAlive checks if a process with the given pid is running.
func isAlive(pid int) bool {
	if pid <= 0 {
		return false
	}

	process, _ := os.FindProcess(pid)

	// signal 0 only checks for existence
	return process.Signal(syscall.Signal(0)) == nil
}
