package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/cadence/internal/adapters/repository"
	"github.com/okian/cadence/internal/adapters/repository/sqlite"
	"github.com/okian/cadence/internal/adapters/repository/storetest"
	"github.com/okian/cadence/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func openTemp(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "cadence.db"), sqlite.WithConnectRetries(0))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	return s
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repository.Store {
		return openTemp(t)
	})
}

func TestSQLiteOpen(t *testing.T) {
	ctx := context.Background()

	Convey("Given a database file", t, func() {
		path := filepath.Join(t.TempDir(), "cadence.db")

		s, err := sqlite.Open(ctx, path)
		So(err, ShouldBeNil)

		Convey("Then pragmas should be applied", func() {
			var fk int
			So(s.DB().QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk), ShouldBeNil)
			So(fk, ShouldEqual, 1)

			var mode string
			So(s.DB().QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode), ShouldBeNil)
			So(mode, ShouldEqual, "wal")
			So(s.Close(), ShouldBeNil)
		})

		Convey("When data is written and the file is reopened", func() {
			u, err := s.CreateUser(ctx, "dana")
			So(err, ShouldBeNil)
			last := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			_, err = s.CreateStreak(ctx, u.ID, last)
			So(err, ShouldBeNil)
			So(s.Close(), ShouldBeNil)

			again, err := sqlite.Open(ctx, path)
			So(err, ShouldBeNil)
			defer func() { _ = again.Close() }()

			Convey("Then migrations should be a no-op and the data should survive", func() {
				rec, err := again.Streak(ctx, u.ID)
				So(err, ShouldBeNil)
				So(rec.LastUpdated.Equal(last), ShouldBeTrue)

				var version int
				So(again.DB().QueryRowContext(ctx, "SELECT version FROM schema_migrations").Scan(&version), ShouldBeNil)
				So(version, ShouldEqual, 1)
			})
		})
	})

	Convey("Given a path in a directory that does not exist", t, func() {
		_, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "missing", "x.db"), sqlite.WithConnectRetries(0))

		Convey("Then Open should fail", func() {
			So(err, ShouldNotBeNil)
		})
	})
}

func TestSQLiteStreakTimezone(t *testing.T) {
	Convey("Given a streak dated at midnight outside UTC", t, func() {
		ctx := context.Background()
		s := openTemp(t)
		defer func() { _ = s.Close() }()

		tokyo, err := time.LoadLocation("Asia/Tokyo")
		So(err, ShouldBeNil)
		u, err := s.CreateUser(ctx, "eve")
		So(err, ShouldBeNil)
		last := time.Date(2024, 3, 1, 0, 0, 0, 0, tokyo)
		_, err = s.CreateStreak(ctx, u.ID, last)
		So(err, ShouldBeNil)

		Convey("Then the compare-and-swap should match the value read back", func() {
			rec, err := s.Streak(ctx, u.ID)
			So(err, ShouldBeNil)
			So(rec.LastUpdated.Equal(last), ShouldBeTrue)

			ok, err := s.UpdateStreak(ctx, u.ID, rec.LastUpdated, 1, last.AddDate(0, 0, 1))
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
		})

		Convey("Then an unknown task kind should be rejected", func() {
			_, err := s.Task(ctx, model.TaskRef{Kind: "weekly", ID: 1})
			So(err, ShouldNotBeNil)
		})
	})
}
