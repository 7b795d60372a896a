//go:build !unix

package dispatch

import "errors"

func mkfifo(string) error {
	return errors.New("not supported")
}
