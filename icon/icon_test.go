package icon

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
	"github.com/tandem-cli/tandem/key"
)

func TestGet(t *testing.T) {
	Convey("Given a registered icon", t, func() {
		target := Anchor

		Convey("It renders correctly for each variant", func() {
			for _, variant := range AvailableVariants() {
				Convey("variant="+variant, func() {
					viper.Set(key.IconsVariant, variant)
					result := Get(target)
					So(result, ShouldNotBeEmpty)
				})
			}
		})

		Convey("It returns empty for an unknown variant", func() {
			viper.Set(key.IconsVariant, "")
			result := Get(target)
			So(result, ShouldBeEmpty)
		})
	})

	Convey("Every icon constant is registered", t, func() {
		for i := Fail; i <= Unlinked; i++ {
			So(icons, ShouldContainKey, i)
		}
	})
}
