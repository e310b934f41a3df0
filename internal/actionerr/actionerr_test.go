package actionerr

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestError(t *testing.T) {
	Convey("Given a plain rejection built with New", t, func() {
		err := New(InsufficientMoney)

		Convey("Error() renders just the code", func() {
			So(err.Error(), ShouldEqual, "insufficient-money")
		})
	})

	Convey("Given a rejection built with WithAmount", t, func() {
		err := WithAmount(InsufficientMoney, 42.5)

		Convey("Error() renders the code and the required amount", func() {
			So(err.Error(), ShouldEqual, "insufficient-money (required: 42.50)")
		})
	})

	Convey("Given two errors with the same code", t, func() {
		a := New(InvalidTile)
		b := New(InvalidTile)

		Convey("they are distinct error values but carry the same code", func() {
			aerr := a.(*Error)
			berr := b.(*Error)
			So(aerr.Code, ShouldEqual, berr.Code)
		})
	})
}
