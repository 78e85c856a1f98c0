//go:build !unix

package file

import "os"

// accessWritable falls back to creating and removing a probe file where
// access(2) is unavailable.
func accessWritable(dirPath string) error {
	probe, err := os.CreateTemp(dirPath, ".write-probe-*")
	if err != nil {
		return err
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}
