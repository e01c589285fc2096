package where

import (
	"path/filepath"
	"testing"

	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/tandem-cli/tandem/filesystem"
)

func init() {
	// Use in-memory filesystem for tests to avoid creating real directories
	filesystem.SetMemMapFs()
}

func TestPaths(t *testing.T) {
	Convey("Path functions", t, func() {
		Convey("Config()", func() {
			path := Config()
			So(path, ShouldNotBeEmpty)
			So(lo.Must(filesystem.API().IsDir(path)), ShouldBeTrue)
		})

		Convey("Config() honours the override variable", func() {
			t.Setenv(EnvConfigPath, filepath.Join("custom", "tandem"))
			So(Config(), ShouldEqual, filepath.Join("custom", "tandem"))
		})

		Convey("Logs()", func() {
			path := Logs()
			So(path, ShouldNotBeEmpty)
			So(lo.Must(filesystem.API().IsDir(path)), ShouldBeTrue)
		})

		Convey("Anchors() lives in the config directory", func() {
			So(filepath.Dir(Anchors()), ShouldEqual, Config())
		})

		Convey("Temp()", func() {
			path := Temp()
			So(lo.Must(filesystem.API().IsDir(path)), ShouldBeTrue)
		})
	})
}
