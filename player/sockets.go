package player

import (
	"net"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/tandem-cli/tandem/filesystem"
	"github.com/tandem-cli/tandem/log"
	"github.com/tandem-cli/tandem/where"
)

const socketDialTimeout = 200 * time.Millisecond

// CollectSockets removes mpv IPC sockets left behind by sessions that are no
// longer running. Sockets something still listens on are kept.
func CollectSockets() {
	removed := collectSockets(where.Temp())
	if removed > 0 {
		log.WithFields(logrus.Fields{"removed": removed}).Debug("stale sockets collected")
	}
}

func collectSockets(dir string) (removed int) {
	fs := filesystem.API()

	paths, err := afero.Glob(fs, filepath.Join(dir, "mpv-*.sock"))
	if err != nil {
		return 0
	}

	for _, path := range paths {
		if conn, err := net.DialTimeout("unix", path, socketDialTimeout); err == nil {
			_ = conn.Close()
			continue
		}

		if fs.Remove(path) == nil {
			removed++
		}
	}
	return removed
}
