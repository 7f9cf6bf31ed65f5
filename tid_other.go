//go:build !linux

package block

func threadID() int {
	return 0
}
