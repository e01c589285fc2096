package config

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
	"github.com/tandem-cli/tandem/filesystem"
	"github.com/tandem-cli/tandem/key"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestSetup(t *testing.T) {
	Convey("Config Setup", t, func() {
		Convey("Should initialize without error", func() {
			err := Setup()
			So(err, ShouldBeNil)
		})

		Convey("Should have default values populated", func() {
			_ = Setup()
			for name := range Default {
				So(viper.Get(name), ShouldNotBeNil)
			}
			So(viper.GetBool(key.SyncNative), ShouldBeTrue)
			So(viper.GetInt(key.SyncLeadMs), ShouldEqual, 40)
			So(viper.GetIntSlice(key.PlayerRates), ShouldContain, 100)
		})

		Convey("EnvKeyReplacer should convert dots to underscores", func() {
			result := EnvKeyReplacer.Replace("sync.lead_ms")
			So(result, ShouldEqual, "sync_lead_ms")
		})
	})
}

func TestField(t *testing.T) {
	Convey("Given a registered field", t, func() {
		field := Default[key.SyncLeadMs]

		Convey("Env should be prefixed with the application name", func() {
			So(field.Env(), ShouldEqual, "TANDEM_SYNC_LEAD_MS")
		})

		Convey("typeName should reflect the default value", func() {
			So(field.typeName(), ShouldEqual, "int")
			rates := Default[key.PlayerRates]
			So(rates.typeName(), ShouldEqual, "[]int")
		})

		Convey("MarshalJSON should include the default", func() {
			data, err := field.MarshalJSON()
			So(err, ShouldBeNil)
			So(string(data), ShouldContainSubstring, `"default":40`)
		})
	})
}
