//go:build unix

package file

import "golang.org/x/sys/unix"

func accessWritable(dirPath string) error {
	return unix.Access(dirPath, unix.W_OK|unix.X_OK)
}
