//go:build !linux

package cache

import (
	"os"
	"time"
)

func changeTime(os.FileInfo) (time.Time, bool) {
	return time.Time{}, false
}
