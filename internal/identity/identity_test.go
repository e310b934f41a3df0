package identity

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestID(t *testing.T) {
	Convey("Given the identity package", t, func() {
		Convey("New never returns the None sentinel", func() {
			for i := 0; i < 1000; i++ {
				So(New().Valid(), ShouldBeTrue)
			}
		})

		Convey("NoneID reports itself invalid", func() {
			So(NoneID.Valid(), ShouldBeFalse)
		})

		Convey("Two freshly generated ids are never equal", func() {
			a := New()
			b := New()
			So(a, ShouldNotEqual, b)
		})

		Convey("String renders a non-empty identifier", func() {
			So(New().String(), ShouldNotBeBlank)
		})
	})
}
