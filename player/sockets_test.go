package player

import (
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/tandem-cli/tandem/filesystem"
)

func TestCollectSockets(t *testing.T) {
	Convey("Given sockets nothing listens on", t, func() {
		filesystem.SetMemMapFs()
		fs := filesystem.API()
		dir := "/tmp/tandem"

		So(fs.WriteFile(filepath.Join(dir, "mpv-0a1b2c3d.sock"), nil, 0o600), ShouldBeNil)
		So(fs.WriteFile(filepath.Join(dir, "mpv-ffeeddcc.sock"), nil, 0o600), ShouldBeNil)
		So(fs.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o600), ShouldBeNil)

		Convey("They are removed and other files are kept", func() {
			So(collectSockets(dir), ShouldEqual, 2)

			exists, _ := fs.Exists(filepath.Join(dir, "mpv-0a1b2c3d.sock"))
			So(exists, ShouldBeFalse)
			exists, _ = fs.Exists(filepath.Join(dir, "notes.txt"))
			So(exists, ShouldBeTrue)
		})
	})
}
