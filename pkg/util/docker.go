// Package util contains small helpers without a better home
package util

import (
	"errors"
	"fmt"
	"os"
)

func IsRunningInDocker() bool {
	_, err := os.Stat("/.dockerenv")
	return err == nil
}

// RequireMounted fails inside a container when the file at p doesn't exist,
// which almost always means the volume holding it wasn't mounted.
func RequireMounted(p string) error {
	if !IsRunningInDocker() {
		return nil
	}

	if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s not mounted, please use docker volumes to mount it to /app/%s", p, p)
	}

	return nil
}
