package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a custom registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should register the engagement metrics", func() {
				So(manager, ShouldNotBeNil)
				manager.completions.WithLabelValues("habit", OutcomeCompleted).Inc()

				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "cadence_engagement_completions_total")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then names should use the namespace and subsystem", func() {
				manager.pointsCredited.Inc()
				n, err := testutil.GatherAndCount(registry, "test_unit_points_credited_total")
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
			})
		})

		Convey("When empty option values are given", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "cadence")
				So(manager.subsystem, ShouldEqual, "engagement")
				So(manager.histogramBuckets, ShouldResemble, latencyBucketsMs)
			})
		})
	})
}

func TestEngagementRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording completions", func() {
			before := testutil.ToFloat64(globalManager.completions.WithLabelValues("daily", OutcomeAlreadyCompleted))
			RecordCompletion("daily", OutcomeAlreadyCompleted)
			RecordCompletion("daily", OutcomeAlreadyCompleted)

			Convey("Then the labelled counter should grow", func() {
				after := testutil.ToFloat64(globalManager.completions.WithLabelValues("daily", OutcomeAlreadyCompleted))
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When recording points and badges", func() {
			points := testutil.ToFloat64(globalManager.pointsCredited)
			awarded := testutil.ToFloat64(globalManager.badgesAwarded)
			failed := testutil.ToFloat64(globalManager.badgeFailures)

			RecordPointCredited()
			RecordBadgeAwarded()
			RecordBadgeFailure()

			Convey("Then each counter should grow by one", func() {
				So(testutil.ToFloat64(globalManager.pointsCredited)-points, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.badgesAwarded)-awarded, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.badgeFailures)-failed, ShouldEqual, 1)
			})
		})

		Convey("When recording streak transitions", func() {
			before := testutil.ToFloat64(globalManager.streakTransitions.WithLabelValues(StreakReset))
			RecordStreakTransition(StreakReset)

			Convey("Then the outcome counter should grow", func() {
				So(testutil.ToFloat64(globalManager.streakTransitions.WithLabelValues(StreakReset))-before, ShouldEqual, 1)
			})
		})

		Convey("When recording latencies", func() {
			So(func() {
				RecordLockWait(0.2)
				RecordStoreLatency("update_streak", 1.5)
				RecordWorkerProcessingLatency(3.0)
				RecordSystemGCPauseTime(0.4)
			}, ShouldNotPanic)
		})
	})
}

func TestOperationalRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When updating queue gauges", func() {
			UpdateQueueSize(12)
			UpdateQueueCapacity(1024)

			Convey("Then the gauges should hold the last value", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 12)
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 1024)
			})
		})

		Convey("When recording rejections and duplicates", func() {
			full := testutil.ToFloat64(globalManager.queueRejected.WithLabelValues("full"))
			dup := testutil.ToFloat64(globalManager.pendingDuplicates)
			RecordQueueRejected("full")
			RecordPendingDuplicate()

			Convey("Then the counters should grow", func() {
				So(testutil.ToFloat64(globalManager.queueRejected.WithLabelValues("full"))-full, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.pendingDuplicates)-dup, ShouldEqual, 1)
			})
		})

		Convey("When recording HTTP metrics", func() {
			So(func() {
				RecordHTTPRequest("/healthz", "GET", "200")
				RecordHTTPRequest("/completions", "POST", "202")
				RecordHTTPRequestDuration("/healthz", "GET", "200", 5.0)
				RecordHTTPRequestDuration("/tasks/{kind}/{id}/complete", "POST", "409", 10.0)
			}, ShouldNotPanic)
		})

		Convey("When updating system metrics", func() {
			UpdateWorkerCount(4)
			UpdateSystemGoroutineCount(32)
			UpdateSystemMemoryUsage(1024 * 1024)

			Convey("Then the gauges should reflect the values", func() {
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.systemGoroutineCount), ShouldEqual, 32)
				So(testutil.ToFloat64(globalManager.systemMemoryUsage), ShouldEqual, 1024*1024)
			})
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the global registry", t, func() {
		RecordPointCredited()
		families, err := GetRegistry().Gather()

		Convey("Then it should expose the cadence metrics", func() {
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
		})
	})
}
