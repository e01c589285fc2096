package filesystem

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestApi(t *testing.T) {
	Convey("Filesystem API", t, func() {
		Convey("Should default to OsFs", func() {
			SetOsFs()
			So(API().Name(), ShouldEqual, "OsFs")
		})

		Convey("Should switch to MemMapFs", func() {
			SetMemMapFs()
			So(API().Name(), ShouldEqual, "MemMapFS")
		})
	})
}

func TestCreate(t *testing.T) {
	Convey("Create makes missing parent directories", t, func() {
		SetMemMapFs()

		file, err := Create("/out/runs/session.json")
		So(err, ShouldBeNil)
		_, err = file.WriteString("{}")
		So(err, ShouldBeNil)
		So(file.Close(), ShouldBeNil)

		contents, err := API().ReadFile("/out/runs/session.json")
		So(err, ShouldBeNil)
		So(string(contents), ShouldEqual, "{}")
	})
}

func TestGacheFs(t *testing.T) {
	Convey("GacheFs writes through the active backend", t, func() {
		SetMemMapFs()

		So(GacheFs{}.MkdirAll("/cache", 0o755), ShouldBeNil)
		exists, err := API().DirExists("/cache")
		So(err, ShouldBeNil)
		So(exists, ShouldBeTrue)
	})
}
