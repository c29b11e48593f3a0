package server

import (
	"fmt"
	"net"
	"os"

	"github.com/pkg/errors"
)

// Listen binds a Unix stream socket at path and applies mode to the socket
// file. A stale socket left at path by a previous process is removed first;
// any other kind of file at path is an error.
func Listen(path string, mode os.FileMode) (net.Listener, error) {
	if err := removeStaleSocket(path); err != nil {
		return nil, err
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, errors.Wrapf(err, "listen %s", path)
	}
	if err := os.Chmod(path, mode); err != nil {
		_ = ln.Close()
		return nil, errors.Wrapf(err, "chmod %s", path)
	}
	return ln, nil
}

func removeStaleSocket(path string) error {
	fi, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "stat %s", path)
	}
	if fi.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("server: %s exists and is not a socket", path)
	}
	if err := os.Remove(path); err != nil {
		return errors.Wrapf(err, "remove stale socket %s", path)
	}
	return nil
}
