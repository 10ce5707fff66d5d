package streak_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/internal/domain/streak"
	. "github.com/smartystreets/goconvey/convey"
)

func date(y int, m time.Month, d int, loc *time.Location) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func TestMidnight(t *testing.T) {
	Convey("Given an instant late in the day", t, func() {
		ts := time.Date(2024, 1, 2, 23, 59, 59, 999, time.UTC)

		Convey("Then Midnight should truncate to the start of that day", func() {
			So(streak.Midnight(ts, time.UTC), ShouldEqual, date(2024, 1, 2, time.UTC))
		})

		Convey("Then Midnight in another zone should use that zone's calendar", func() {
			tokyo, err := time.LoadLocation("Asia/Tokyo")
			So(err, ShouldBeNil)
			// 23:59 UTC on Jan 2 is 08:59 on Jan 3 in Tokyo.
			So(streak.Midnight(ts, tokyo), ShouldEqual, date(2024, 1, 3, tokyo))
		})
	})
}

func TestDaysBetween(t *testing.T) {
	Convey("Given calendar day arithmetic", t, func() {
		Convey("When both instants fall on the same day", func() {
			So(streak.DaysBetween(date(2024, 1, 1, time.UTC), time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC), time.UTC), ShouldEqual, 0)
		})

		Convey("When the instants are one minute apart across midnight", func() {
			from := time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)
			to := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
			So(streak.DaysBetween(from, to, time.UTC), ShouldEqual, 1)
		})

		Convey("When the target is in the past", func() {
			So(streak.DaysBetween(date(2024, 1, 5, time.UTC), date(2024, 1, 3, time.UTC), time.UTC), ShouldEqual, -2)
		})

		Convey("When a DST transition shortens the day", func() {
			ny, err := time.LoadLocation("America/New_York")
			So(err, ShouldBeNil)
			// 2024-03-10 has 23 hours in New York.
			from := date(2024, 3, 10, ny)
			to := time.Date(2024, 3, 11, 0, 30, 0, 0, ny)
			So(streak.DaysBetween(from, to, ny), ShouldEqual, 1)
		})

		Convey("When a DST transition lengthens the day", func() {
			ny, err := time.LoadLocation("America/New_York")
			So(err, ShouldBeNil)
			// 2024-11-03 has 25 hours in New York.
			from := date(2024, 11, 3, ny)
			to := time.Date(2024, 11, 3, 23, 30, 0, 0, ny)
			So(streak.DaysBetween(from, to, ny), ShouldEqual, 0)
		})

		Convey("When the stored date was read back in UTC", func() {
			ny, err := time.LoadLocation("America/New_York")
			So(err, ShouldBeNil)
			stored := date(2024, 1, 1, ny).UTC()
			So(streak.DaysBetween(stored, time.Date(2024, 1, 2, 8, 0, 0, 0, ny), ny), ShouldEqual, 1)
		})
	})
}

func TestNext(t *testing.T) {
	Convey("Given a streak record", t, func() {
		rec := model.StreakRecord{UserID: 1, Count: 4, LastUpdated: date(2024, 1, 1, time.UTC)}

		Convey("When updated on the next calendar day", func() {
			tr, err := streak.Next(rec, time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), time.UTC)

			Convey("Then the count should increment", func() {
				So(err, ShouldBeNil)
				So(tr.Count, ShouldEqual, 5)
				So(tr.Outcome, ShouldEqual, streak.Advanced)
				So(tr.LastUpdated, ShouldEqual, date(2024, 1, 2, time.UTC))
			})
		})

		Convey("When updated again on the same day", func() {
			rec.LastUpdated = date(2024, 1, 2, time.UTC)
			_, err := streak.Next(rec, time.Date(2024, 1, 2, 23, 0, 0, 0, time.UTC), time.UTC)

			Convey("Then it should report the streak as current", func() {
				So(errors.Is(err, streak.ErrAlreadyCurrent), ShouldBeTrue)
			})
		})

		Convey("When a day or more was missed", func() {
			rec.Count = 7
			rec.LastUpdated = date(2024, 1, 5, time.UTC)
			tr, err := streak.Next(rec, time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC), time.UTC)

			Convey("Then the count should reset to zero", func() {
				So(err, ShouldBeNil)
				So(tr.Count, ShouldEqual, 0)
				So(tr.Outcome, ShouldEqual, streak.Reset)
				So(tr.LastUpdated, ShouldEqual, date(2024, 1, 8, time.UTC))
			})
		})

		Convey("When exactly two days passed", func() {
			tr, err := streak.Next(rec, date(2024, 1, 3, time.UTC), time.UTC)

			So(err, ShouldBeNil)
			So(tr.Count, ShouldEqual, 0)
		})

		Convey("When last_updated lies in the future", func() {
			rec.LastUpdated = date(2024, 2, 1, time.UTC)
			_, err := streak.Next(rec, date(2024, 1, 15, time.UTC), time.UTC)

			Convey("Then it should be treated as already current", func() {
				So(errors.Is(err, streak.ErrAlreadyCurrent), ShouldBeTrue)
			})
		})
	})
}

func TestMilestones(t *testing.T) {
	Convey("Given milestone checks", t, func() {
		Convey("Then positive multiples of the interval should qualify", func() {
			So(streak.IsMilestone(10, 10), ShouldBeTrue)
			So(streak.IsMilestone(20, 10), ShouldBeTrue)
			So(streak.IsMilestone(11, 10), ShouldBeFalse)
			So(streak.IsMilestone(9, 10), ShouldBeFalse)
			So(streak.IsMilestone(0, 10), ShouldBeFalse)
		})

		Convey("Then a non-positive interval should use the default", func() {
			So(streak.IsMilestone(10, 0), ShouldBeTrue)
			So(streak.IsMilestone(5, -1), ShouldBeFalse)
		})

		Convey("Then badge text should name the streak length", func() {
			So(streak.MilestoneName(10), ShouldEqual, "10-day streak")
			So(streak.MilestoneDescription(30), ShouldEqual, "Awarded for 30-day streak")
		})

		Convey("Then outcomes should render", func() {
			So(streak.Advanced.String(), ShouldEqual, "advanced")
			So(streak.Reset.String(), ShouldEqual, "reset")
			So(streak.Outcome(0).String(), ShouldEqual, "unknown")
		})
	})
}
