package cmd

import (
	"errors"
	"testing"
	"time"

	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/tandem-cli/tandem/config"
	"github.com/tandem-cli/tandem/key"
)

func TestParseValue(t *testing.T) {
	Convey("Config values are parsed by the type of their default", t, func() {
		v, err := parseValue(0, []string{"25"})
		So(err, ShouldBeNil)
		So(v, ShouldEqual, 25)

		v, err = parseValue(false, []string{"true"})
		So(err, ShouldBeNil)
		So(v, ShouldEqual, true)

		v, err = parseValue([]int{}, []string{"50", " 100", "200"})
		So(err, ShouldBeNil)
		So(v, ShouldResemble, []int{50, 100, 200})

		_, err = parseValue(0, []string{"fast"})
		So(err, ShouldNotBeNil)

		_, err = parseValue(1.5, []string{"2"})
		So(err, ShouldNotBeNil)
	})
}

func TestParseOffset(t *testing.T) {
	Convey("Sync points read as milliseconds or durations", t, func() {
		offset, err := parseOffset("1500")
		So(err, ShouldBeNil)
		So(offset, ShouldEqual, 1500*time.Millisecond)

		offset, err = parseOffset(" 1m2s ")
		So(err, ShouldBeNil)
		So(offset, ShouldEqual, 62*time.Second)

		offset, err = parseOffset("0")
		So(err, ShouldBeNil)
		So(offset, ShouldEqual, 0)

		_, err = parseOffset("-1s")
		So(err, ShouldNotBeNil)

		_, err = parseOffset("soon")
		So(err, ShouldNotBeNil)
	})
}

func TestConfigKeys(t *testing.T) {
	Convey("The key comes from the argument before the flag", t, func() {
		k, err := resolveKey([]string{key.SyncLeadMs}, key.PlayerFPS)
		So(err, ShouldBeNil)
		So(k, ShouldEqual, key.SyncLeadMs)

		k, err = resolveKey(nil, key.PlayerFPS)
		So(err, ShouldBeNil)
		So(k, ShouldEqual, key.PlayerFPS)

		_, err = resolveKey(nil, "")
		So(errors.Is(err, errNoKey), ShouldBeTrue)

		_, err = resolveKey([]string{"sync.lead"}, "")
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "unknown key")
	})

	Convey("Info lists one section sorted by key", t, func() {
		fields, err := selectFields(nil, "sync")
		So(err, ShouldBeNil)

		keys := lo.Map(fields, func(f config.Field, _ int) string { return f.Key })
		So(keys, ShouldResemble, []string{key.SyncLeadMs, key.SyncMaxStreams, key.SyncNative})

		fields, err = selectFields([]string{key.PlayerRates}, "sync")
		So(err, ShouldBeNil)
		So(fields, ShouldHaveLength, 1)
		So(fields[0].Key, ShouldEqual, key.PlayerRates)

		_, err = selectFields(nil, "video")
		So(err, ShouldNotBeNil)

		all, err := selectFields(nil, "")
		So(err, ShouldBeNil)
		So(all, ShouldHaveLength, len(config.Default))
	})
}
