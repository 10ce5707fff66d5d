package clock_test

import (
	"sync"
	"testing"
	"time"

	"github.com/okian/cadence/internal/domain/clock"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFixed(t *testing.T) {
	Convey("Given a fixed clock", t, func() {
		start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
		c := clock.NewFixed(start)

		Convey("Then Now should return the frozen instant", func() {
			So(c.Now(), ShouldEqual, start)
			So(c.Now(), ShouldEqual, start)
		})

		Convey("When it is set and advanced", func() {
			c.Set(start.AddDate(0, 0, 3))
			got := c.Advance(2 * time.Hour)

			Convey("Then it should report the new instant", func() {
				want := time.Date(2024, 1, 4, 11, 0, 0, 0, time.UTC)
				So(got, ShouldEqual, want)
				So(c.Now(), ShouldEqual, want)
			})
		})

		Convey("When advanced concurrently", func() {
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					c.Advance(time.Minute)
				}()
			}
			wg.Wait()

			Convey("Then every advance should be applied", func() {
				So(c.Now(), ShouldEqual, start.Add(50*time.Minute))
			})
		})
	})

	Convey("Given the system clock", t, func() {
		before := time.Now()
		now := clock.System{}.Now()

		So(now.Before(before), ShouldBeFalse)
	})
}
