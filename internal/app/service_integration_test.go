package service_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	service "github.com/okian/cadence/internal/app"
	"github.com/okian/cadence/internal/config"
	"github.com/okian/cadence/internal/domain/clock"
	"github.com/okian/cadence/internal/domain/model"
	"github.com/okian/cadence/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestServiceIntegration(t *testing.T) {
	Convey("Given a sqlite-backed service built from config", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		cfg := config.New()
		cfg.StoreDriver = config.StoreSQLite
		cfg.SQLitePath = filepath.Join(t.TempDir(), "cadence.db")
		cfg.Timezone = "America/New_York"
		cfg.WorkerCount = 4
		cfg.EventQueueSize = 1000

		opts, err := service.FromConfig(cfg)
		So(err, ShouldBeNil)

		// 23:30 in New York on Jan 1 is already Jan 2 in UTC.
		clk := clock.NewFixed(time.Date(2024, 1, 2, 4, 30, 0, 0, time.UTC))
		svc := service.New(append(opts, service.WithLogger(logger.Nop()), service.WithClock(clk))...)
		So(svc.Start(ctx), ShouldBeNil)

		stats := svc.GetStats()
		So(stats.Store, ShouldEqual, service.StoreSQLite)
		So(stats.Timezone, ShouldEqual, "America/New_York")

		u, err := svc.SeedUser(ctx, "alice")
		So(err, ShouldBeNil)
		rec, err := svc.CreateStreak(ctx, u.ID)
		So(err, ShouldBeNil)

		Convey("Then the streak is dated by the local calendar", func() {
			ny, _ := time.LoadLocation("America/New_York")
			So(rec.LastUpdated.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, ny)), ShouldBeTrue)
			So(svc.Stop(ctx), ShouldBeNil)
		})

		Convey("When many tasks are submitted and the service stops", func() {
			clk.Set(time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC))

			var refs []model.TaskRef
			for i := 0; i < 25; i++ {
				kind := model.KindHabit
				if i%2 == 1 {
					kind = model.KindDaily
				}
				task, err := svc.SeedTask(ctx, kind, u.ID, fmt.Sprintf("task-%d", i))
				So(err, ShouldBeNil)
				refs = append(refs, task.Ref)
			}
			for _, ref := range refs {
				_, dup, err := svc.Submit(ctx, ref)
				So(err, ShouldBeNil)
				So(dup, ShouldBeFalse)
			}

			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then every queued completion was applied before shutdown", func() {
				So(svc.GetStats().Started, ShouldBeFalse)

				again := service.New(append(opts, service.WithLogger(logger.Nop()), service.WithClock(clk))...)
				So(again.Start(ctx), ShouldBeNil)
				defer func() { _ = again.Stop(ctx) }()

				pts, err := again.Points(ctx, u.ID)
				So(err, ShouldBeNil)
				So(pts, ShouldEqual, 25)

				streak, err := again.Streak(ctx, u.ID)
				So(err, ShouldBeNil)
				So(streak.Count, ShouldEqual, 1)

				list, err := again.Badges(ctx, u.ID)
				So(err, ShouldBeNil)
				So(list, ShouldBeEmpty)
			})
		})
	})
}
