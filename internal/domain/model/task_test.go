package model_test

import (
	"errors"
	"testing"

	model "github.com/okian/cadence/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestTaskRef(t *testing.T) {
	convey.Convey("Given task references", t, func() {
		convey.Convey("When parsing a valid habit ref", func() {
			ref, err := model.ParseTaskRef("habit:42")

			convey.Convey("Then it should carry kind and id", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(ref, convey.ShouldResemble, model.TaskRef{Kind: model.KindHabit, ID: 42})
				convey.So(ref.Valid(), convey.ShouldBeTrue)
				convey.So(ref.String(), convey.ShouldEqual, "habit:42")
			})
		})

		convey.Convey("When parsing a daily ref with mixed case", func() {
			ref, err := model.NewTaskRef(" Daily ", "7")

			convey.So(err, convey.ShouldBeNil)
			convey.So(ref.Kind, convey.ShouldEqual, model.KindDaily)
			convey.So(ref.ID, convey.ShouldEqual, 7)
		})

		convey.Convey("When parsing malformed refs", func() {
			for _, in := range []string{"", "habit", "todo:1", "habit:x", "daily:0", "daily:-3"} {
				_, err := model.ParseTaskRef(in)
				convey.So(errors.Is(err, model.ErrInvalidTaskRef), convey.ShouldBeTrue)
			}
		})

		convey.Convey("When checking validity of zero values", func() {
			convey.So(model.TaskRef{}.Valid(), convey.ShouldBeFalse)
			convey.So(model.TaskRef{Kind: model.KindHabit}.Valid(), convey.ShouldBeFalse)
		})
	})
}
