// Package storetest is a behavioural suite every repository.Store must pass.
package storetest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/cadence/internal/adapters/repository"
	"github.com/okian/cadence/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// Factory returns a fresh, empty store for one test path.
type Factory func(t *testing.T) repository.Store

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()
	ctx := context.Background()
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

	Convey("Given a store with one user", t, func() {
		s := newStore(t)
		Reset(func() { _ = s.Close() })

		u, err := s.CreateUser(ctx, "alice")
		So(err, ShouldBeNil)
		So(u.ID, ShouldBeGreaterThan, 0)

		Convey("When seeding a duplicate username", func() {
			_, err := s.CreateUser(ctx, "alice")
			So(errors.Is(err, repository.ErrExists), ShouldBeTrue)
		})

		Convey("When reading an unknown user", func() {
			_, err := s.User(ctx, u.ID+100)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When incrementing points", func() {
			ok, err := s.IncrementPoints(ctx, u.ID)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			_, _ = s.IncrementPoints(ctx, u.ID)

			got, err := s.User(ctx, u.ID)
			So(err, ShouldBeNil)
			So(got.Points, ShouldEqual, 2)
			So(got.Username, ShouldEqual, "alice")
		})

		Convey("When incrementing points of an unknown user", func() {
			ok, err := s.IncrementPoints(ctx, u.ID+100)
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		Convey("When completing a habit", func() {
			h, err := s.CreateTask(ctx, model.KindHabit, u.ID, "stretch")
			So(err, ShouldBeNil)
			So(h.Ref.Kind, ShouldEqual, model.KindHabit)

			ok, err := s.MarkCompleted(ctx, h.Ref, day(2))
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)

			Convey("Then it should be completed without a completion date", func() {
				got, err := s.Task(ctx, h.Ref)
				So(err, ShouldBeNil)
				So(got.Completed, ShouldBeTrue)
				So(got.UserID, ShouldEqual, u.ID)
				So(got.LastCompletedAt, ShouldBeNil)
			})

			Convey("Then a second completion should not apply", func() {
				ok, err := s.MarkCompleted(ctx, h.Ref, day(3))
				So(err, ShouldBeNil)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When completing a daily", func() {
			d, err := s.CreateTask(ctx, model.KindDaily, u.ID, "read")
			So(err, ShouldBeNil)

			at := time.Date(2024, 1, 2, 7, 30, 0, 0, time.UTC)
			ok, err := s.MarkCompleted(ctx, d.Ref, at)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)

			got, err := s.Task(ctx, d.Ref)
			So(err, ShouldBeNil)
			So(got.Completed, ShouldBeTrue)
			So(got.LastCompletedAt, ShouldNotBeNil)
			So(got.LastCompletedAt.Equal(at), ShouldBeTrue)
		})

		Convey("When habit and daily share a numeric id", func() {
			h, err := s.CreateTask(ctx, model.KindHabit, u.ID, "h")
			So(err, ShouldBeNil)
			d, err := s.CreateTask(ctx, model.KindDaily, u.ID, "d")
			So(err, ShouldBeNil)
			So(h.Ref.ID, ShouldEqual, d.Ref.ID)

			_, err = s.MarkCompleted(ctx, h.Ref, day(2))
			So(err, ShouldBeNil)

			got, err := s.Task(ctx, d.Ref)
			So(err, ShouldBeNil)
			So(got.Completed, ShouldBeFalse)
		})

		Convey("When completing an unknown task", func() {
			_, err := s.MarkCompleted(ctx, model.TaskRef{Kind: model.KindHabit, ID: 999}, day(2))
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			_, err = s.Task(ctx, model.TaskRef{Kind: model.KindDaily, ID: 999})
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When seeding a task for an unknown user", func() {
			_, err := s.CreateTask(ctx, model.KindHabit, u.ID+100, "x")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When many goroutines complete the same task", func() {
			h, err := s.CreateTask(ctx, model.KindHabit, u.ID, "race")
			So(err, ShouldBeNil)

			var wg sync.WaitGroup
			var wins, failures atomic.Int32
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					ok, err := s.MarkCompleted(ctx, h.Ref, day(2))
					if err != nil {
						failures.Add(1)
						return
					}
					if ok {
						wins.Add(1)
					}
				}()
			}
			wg.Wait()

			Convey("Then exactly one should apply", func() {
				So(failures.Load(), ShouldEqual, 0)
				So(wins.Load(), ShouldEqual, 1)
			})
		})

		Convey("When there is no streak", func() {
			_, err := s.Streak(ctx, u.ID)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			ok, err := s.UpdateStreak(ctx, u.ID, day(1), 1, day(2))
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)

			deleted, err := s.DeleteStreak(ctx, u.ID)
			So(err, ShouldBeNil)
			So(deleted, ShouldBeFalse)
		})

		Convey("When a streak is created", func() {
			rec, err := s.CreateStreak(ctx, u.ID, day(1))
			So(err, ShouldBeNil)
			So(rec.Count, ShouldEqual, 0)
			So(rec.UserID, ShouldEqual, u.ID)

			Convey("Then reading it back should match", func() {
				got, err := s.Streak(ctx, u.ID)
				So(err, ShouldBeNil)
				So(got.Count, ShouldEqual, 0)
				So(got.LastUpdated.Equal(day(1)), ShouldBeTrue)
			})

			Convey("Then creating it again should conflict", func() {
				_, err := s.CreateStreak(ctx, u.ID, day(2))
				So(errors.Is(err, repository.ErrExists), ShouldBeTrue)
			})

			Convey("Then a matching compare-and-swap should apply", func() {
				ok, err := s.UpdateStreak(ctx, u.ID, day(1), 1, day(2))
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)

				got, err := s.Streak(ctx, u.ID)
				So(err, ShouldBeNil)
				So(got.Count, ShouldEqual, 1)
				So(got.LastUpdated.Equal(day(2)), ShouldBeTrue)

				Convey("And a stale compare-and-swap should not", func() {
					ok, err := s.UpdateStreak(ctx, u.ID, day(1), 5, day(3))
					So(err, ShouldBeNil)
					So(ok, ShouldBeFalse)

					got, err := s.Streak(ctx, u.ID)
					So(err, ShouldBeNil)
					So(got.Count, ShouldEqual, 1)
				})
			})

			Convey("Then deleting it should remove it", func() {
				deleted, err := s.DeleteStreak(ctx, u.ID)
				So(err, ShouldBeNil)
				So(deleted, ShouldBeTrue)

				_, err = s.Streak(ctx, u.ID)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When creating a streak for an unknown user", func() {
			_, err := s.CreateStreak(ctx, u.ID+100, day(1))
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When badges are inserted", func() {
			b1, err := s.InsertBadge(ctx, model.Badge{UserID: u.ID, Name: "10-day streak", Description: "Awarded for 10-day streak", AwardedAt: day(10)})
			So(err, ShouldBeNil)
			b2, err := s.InsertBadge(ctx, model.Badge{UserID: u.ID, Name: "10-day streak", Description: "again", AwardedAt: day(11)})
			So(err, ShouldBeNil)

			Convey("Then duplicates by name should be allowed and listed in order", func() {
				So(b2.ID, ShouldBeGreaterThan, b1.ID)

				list, err := s.Badges(ctx, u.ID)
				So(err, ShouldBeNil)
				So(len(list), ShouldEqual, 2)
				So(list[0].ID, ShouldEqual, b1.ID)
				So(list[0].Name, ShouldEqual, "10-day streak")
				So(list[0].Description, ShouldEqual, "Awarded for 10-day streak")
				So(list[1].Description, ShouldEqual, "again")
			})
		})

		Convey("When inserting a badge for an unknown user", func() {
			_, err := s.InsertBadge(ctx, model.Badge{UserID: u.ID + 100, Name: "x"})
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

			list, err := s.Badges(ctx, u.ID+100)
			So(err, ShouldBeNil)
			So(list, ShouldBeEmpty)
		})
	})
}
