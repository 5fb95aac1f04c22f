package util

import (
	"os"

	"github.com/sirupsen/logrus"
)

// CloseFileFunc closes f and logs the error instead of returning it.
// For defer-style cleanup on error paths where the original error matters more.
func CloseFileFunc(f *os.File) {
	if err := f.Close(); err != nil {
		logrus.WithError(err).Warnf("close %s", f.Name())
	}
}
