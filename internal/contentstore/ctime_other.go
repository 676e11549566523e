//go:build !unix

package contentstore

import (
	"os"
	"time"
)

func statCTime(info os.FileInfo) time.Time {
	return info.ModTime()
}
