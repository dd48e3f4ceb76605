package uring

import (
	"os"

	"golang.org/x/sys/unix"
)

// Waitpid blocks the calling fiber until pid exits, per spec.md §4.4's
// `waitpid(pid)` and Open Question (a)'s resolution: a pidfd_open(2) file
// descriptor polled through the ring, rather than a synchronous wait4(2)
// that would block the whole OS thread. Process creation itself remains the
// caller's responsibility (spec.md §1's external-collaborator boundary).
// Once the pidfd reports readiness the process has already exited, so the
// subsequent os.Process.Wait reaps it without blocking.
func (b *Backend) Waitpid(pid int) (*os.ProcessState, error) {
	pidfd, err := unix.PidfdOpen(pid, 0)
	if err != nil {
		return nil, err
	}
	defer unix.Close(pidfd)

	if err := b.WaitIO(pidfd, false); err != nil {
		return nil, err
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil, err
	}
	return proc.Wait()
}
