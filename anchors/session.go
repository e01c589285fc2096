package anchors

import (
	"github.com/sirupsen/logrus"
	"github.com/tandem-cli/tandem/coordinator"
	"github.com/tandem-cli/tandem/log"
)

// Restore applies the record remembered for sources to c and reports whether
// there was one. Sync points are applied first, then the mode and the rate.
func Restore(c *coordinator.Coordinator, sources []string) (bool, error) {
	record, ok := Lookup(sources).Get()
	if !ok {
		return false, nil
	}

	if err := c.SetSyncPoints(record.Points(c.Snapshot().Streams)); err != nil {
		return true, err
	}

	if mode, err := coordinator.ParseMode(record.Mode); err == nil {
		if err := c.SetMode(mode); err != nil {
			return true, err
		}
	}

	if record.Rate > 0 {
		if err := c.SetRate(record.Rate); err != nil {
			return true, err
		}
	}

	log.WithFields(logrus.Fields{"clips": len(record.Clips), "mode": record.Mode}).Info("anchors restored")
	return true, nil
}

// Remember saves the sync points, mode and rate of c under its clip set.
func Remember(c *coordinator.Coordinator) error {
	session := c.Snapshot()
	if len(session.Streams) == 0 {
		return nil
	}
	return Save(FromSession(session))
}
