package runtime

// Environment bundles the process-level capabilities the agent depends on.
// It allows introducing mocks for testing.
type Environment interface {
	// Executor returns the executor used to invoke the external engine.
	Executor() Executor
	// Lock returns the lock guarding the host-wide shaping channel.
	Lock() Lock
}

// environment keeps the state of the default execution environment.
type environment struct {
	executor Executor
	lock     Lock
}

// DefaultEnvironment returns the default execution environment.
func DefaultEnvironment() Environment {
	return environment{
		executor: DefaultExecutor(),
		lock:     DefaultLock(),
	}
}

func (e environment) Executor() Executor {
	return e.executor
}

func (e environment) Lock() Lock {
	return e.lock
}
