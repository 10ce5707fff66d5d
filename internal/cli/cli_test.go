package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/cadence/internal/app"
	"github.com/okian/cadence/internal/domain/clock"
	"github.com/okian/cadence/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// writeConfig writes a sqlite-backed config into a temp dir.
func writeConfig(t *testing.T) string {
	dir := t.TempDir()
	path := filepath.Join(dir, "cadence.yaml")
	body := "log_level: error\n" +
		"store_driver: sqlite\n" +
		"sqlite_path: " + filepath.Join(dir, "cadence.db") + "\n" +
		"worker_count: 2\n" +
		"timezone: UTC\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

type result struct {
	code   int
	stdout string
	stderr string
}

// run executes the CLI at the given instant.
func run(at time.Time, args ...string) result {
	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), args, &stdout, &stderr, service.WithClock(clock.NewFixed(at)))
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func decodeData(raw string, dst any) error {
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return err
	}
	return json.Unmarshal(resp.Data, dst)
}

func TestRootCommand(t *testing.T) {
	Convey("Given the root command", t, func() {
		cmd := NewRootCommand()

		Convey("Then every subcommand is present", func() {
			for _, path := range [][]string{
				{"serve"}, {"complete"}, {"points"},
				{"streak", "create"}, {"streak", "show"}, {"streak", "advance"}, {"streak", "delete"},
				{"badge", "award"}, {"badge", "list"},
				{"seed", "user"}, {"seed", "task"}, {"loadtest"},
			} {
				sub, _, err := cmd.Find(path)
				So(err, ShouldBeNil)
				So(sub.Name(), ShouldEqual, path[len(path)-1])
			}
		})

		Convey("Then the global flags have their defaults", func() {
			So(cmd.PersistentFlags().Lookup("format").DefValue, ShouldEqual, "text")
			So(cmd.PersistentFlags().Lookup("config").Shorthand, ShouldEqual, "c")
		})

		Convey("When the format is unknown", func() {
			res := run(time.Now(), "--format", "xml", "points", "1")

			Convey("Then it exits with a command error", func() {
				So(res.code, ShouldEqual, ExitCommandError)
				So(res.stderr, ShouldContainSubstring, "invalid format")
			})
		})
	})
}

func TestCommands(t *testing.T) {
	Convey("Given a sqlite config with a seeded user and habit", t, func() {
		cfg := writeConfig(t)
		jan1 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
		jan2 := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)

		res := run(jan1, "-c", cfg, "seed", "user", "alice")
		So(res.code, ShouldEqual, ExitSuccess)
		So(res.stdout, ShouldEqual, "user 1 alice\n")

		res = run(jan1, "-c", cfg, "seed", "task", "habit", "--user", "1", "--name", "run")
		So(res.code, ShouldEqual, ExitSuccess)
		So(res.stdout, ShouldContainSubstring, "habit:1")

		res = run(jan1, "-c", cfg, "streak", "create", "1")
		So(res.code, ShouldEqual, ExitSuccess)
		So(res.stdout, ShouldEqual, "user 1: 0-day streak, last updated 2024-01-01\n")

		Convey("When the habit is completed the next day", func() {
			res := run(jan2, "-c", cfg, "--format", "json", "complete", "habit:1")

			Convey("Then the point and streak are reported", func() {
				So(res.code, ShouldEqual, ExitSuccess)

				var got completionView
				So(decodeData(res.stdout, &got), ShouldBeNil)
				So(got.Task, ShouldEqual, "habit:1")
				So(got.PointsCredited, ShouldBeTrue)
				So(got.StreakAdvanced, ShouldBeTrue)
				So(got.Streak.StreakCount, ShouldEqual, 1)
				So(got.Streak.LastUpdated, ShouldEqual, "2024-01-02")

				pts := run(jan2, "-c", cfg, "points", "1")
				So(pts.stdout, ShouldEqual, "user 1: 1 points\n")
			})

			Convey("Then completing it again is a conflict", func() {
				again := run(jan2, "-c", cfg, "complete", "habit:1")
				So(again.code, ShouldEqual, ExitFailure)
				So(again.stderr, ShouldContainSubstring, "Error [conflict]")
			})
		})

		Convey("When the streak is advanced twice on the same day", func() {
			first := run(jan2, "-c", cfg, "streak", "advance", "1")
			second := run(jan2, "-c", cfg, "--format", "json", "streak", "advance", "1")

			Convey("Then only the first moves it", func() {
				So(first.code, ShouldEqual, ExitSuccess)
				So(first.stdout, ShouldContainSubstring, "1-day streak")
				So(second.code, ShouldEqual, ExitFailure)
				So(second.stderr, ShouldContainSubstring, `"code":"conflict"`)
			})
		})

		Convey("When badges are awarded and listed", func() {
			award := run(jan2, "-c", cfg, "badge", "award", "1", "--name", "founder", "--description", "joined early")
			list := run(jan2, "-c", cfg, "--format", "json", "badge", "list", "1")

			Convey("Then the badge is listed", func() {
				So(award.code, ShouldEqual, ExitSuccess)
				So(award.stdout, ShouldContainSubstring, "founder: joined early")

				var got []badgeView
				So(decodeData(list.stdout, &got), ShouldBeNil)
				So(len(got), ShouldEqual, 1)
				So(got[0].Name, ShouldEqual, "founder")
			})
		})

		Convey("When the streak is deleted", func() {
			del := run(jan2, "-c", cfg, "streak", "delete", "1")
			again := run(jan2, "-c", cfg, "streak", "delete", "1")
			show := run(jan2, "-c", cfg, "streak", "show", "1")

			Convey("Then later reads find nothing", func() {
				So(del.code, ShouldEqual, ExitSuccess)
				So(again.code, ShouldEqual, ExitFailure)
				So(show.code, ShouldEqual, ExitFailure)
				So(show.stderr, ShouldContainSubstring, "Error [not_found]")
			})
		})

		Convey("When arguments are malformed", func() {
			badUser := run(jan2, "-c", cfg, "points", "abc")
			badRef := run(jan2, "-c", cfg, "complete", "chore:1")
			badKind := run(jan2, "-c", cfg, "seed", "task", "chore", "--user", "1")

			Convey("Then each exits with a command error", func() {
				So(badUser.code, ShouldEqual, ExitCommandError)
				So(badRef.code, ShouldEqual, ExitCommandError)
				So(badKind.code, ShouldEqual, ExitCommandError)
			})
		})

		Convey("When the username is taken", func() {
			dup := run(jan2, "-c", cfg, "seed", "user", "alice")

			Convey("Then it exits with a failure", func() {
				So(dup.code, ShouldEqual, ExitFailure)
				So(strings.Contains(dup.stderr, "conflict"), ShouldBeTrue)
			})
		})
	})
}

func TestExitErrors(t *testing.T) {
	Convey("Given exit errors", t, func() {
		Convey("Then codes are extracted through wrapping", func() {
			So(GetExitCode(nil), ShouldEqual, ExitSuccess)
			So(GetExitCode(NewExitError(ExitCommandError, "x")), ShouldEqual, ExitCommandError)
			So(GetExitCode(context.Canceled), ShouldEqual, ExitFailure)
		})

		Convey("Then the message includes the cause", func() {
			err := WrapExitError(ExitFailure, "complete failed", context.Canceled)
			So(err.Error(), ShouldEqual, "complete failed: context canceled")
		})
	})
}
