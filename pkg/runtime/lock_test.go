package runtime

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func Test_Acquire(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		title       string
		createLock  bool
		ownerPid    string
		expectError bool
		acquired    bool
	}{
		{
			title:      "lock does not exist",
			createLock: false,
			acquired:   true,
		},
		{
			title:      "lock with garbage content",
			createLock: true,
			ownerPid:   "not-a-pid",
			acquired:   true,
		},
		{
			title:      "process is already owner",
			createLock: true,
			ownerPid:   fmt.Sprintf("%d", os.Getpid()),
			acquired:   true,
		},
		{
			title:      "lock with other running owner",
			createLock: true,
			ownerPid:   fmt.Sprintf("%d", os.Getppid()),
			acquired:   false,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.title, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "agent.lock")
			if tc.createLock {
				if err := os.WriteFile(path, []byte(tc.ownerPid), 0o644); err != nil {
					t.Fatalf("creating lock file: %v", err)
				}
			}

			lock := NewFileLock(path)
			acquired, err := lock.Acquire()

			if !tc.expectError && err != nil {
				t.Fatalf("unexpected error %v", err)
			}

			if acquired != tc.acquired {
				t.Errorf("expected acquired %v got %v", tc.acquired, acquired)
			}
		})
	}
}

func Test_ReleaseRequiresOwnership(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "agent.lock")

	lock := NewFileLock(path)
	acquired, err := lock.Acquire()
	if err != nil || !acquired {
		t.Fatalf("acquiring lock: acquired=%v err=%v", acquired, err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("releasing owned lock: %v", err)
	}

	// lock is gone, a second acquire must succeed
	acquired, err = lock.Acquire()
	if err != nil || !acquired {
		t.Fatalf("reacquiring lock: acquired=%v err=%v", acquired, err)
	}

	// overwrite owner with another running process
	if err := os.WriteFile(path, []byte(fmt.Sprintf("%d", os.Getppid())), 0o644); err != nil {
		t.Fatalf("overwriting lock file: %v", err)
	}

	if err := lock.Release(); err == nil {
		t.Errorf("expected error releasing a lock owned by another process")
	}
}
