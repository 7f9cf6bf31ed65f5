package block

import "golang.org/x/sys/unix"

// threadID returns id of the OS thread executing the caller.
func threadID() int {
	return unix.Gettid()
}
