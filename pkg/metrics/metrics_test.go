package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a private registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 10}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then collectors are registered under the namespace", func() {
				So(m, ShouldNotBeNil)
				m.oddsRuns.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_unit_runs_total")
			})
		})

		Convey("When two managers share one registry", func() {
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording a distribution build", func() {
			before := testutil.ToFloat64(globalManager.distributionBuilds.WithLabelValues("convolution"))
			RecordDistributionBuild("convolution", 12.5, 41)

			Convey("Then the counter and support gauge move", func() {
				So(testutil.ToFloat64(globalManager.distributionBuilds.WithLabelValues("convolution")), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.distributionSupport), ShouldEqual, 41)
			})
		})

		Convey("When recording an odds run", func() {
			before := testutil.ToFloat64(globalManager.oddsRuns)
			RecordOddsRun(7, 3)
			UpdateColumnSum("first", 1.02)

			Convey("Then the run counter and roster gauge move", func() {
				So(testutil.ToFloat64(globalManager.oddsRuns), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.oddsTeams), ShouldEqual, 7)
				So(testutil.ToFloat64(globalManager.oddsColumnDrift.WithLabelValues("first")), ShouldEqual, 1.02)
			})
		})

		Convey("When recording cache and worker activity", func() {
			hits := testutil.ToFloat64(globalManager.cacheHits)
			misses := testutil.ToFloat64(globalManager.cacheMisses)
			taskErrs := testutil.ToFloat64(globalManager.workerTaskErrors)
			RecordCacheHit()
			RecordCacheMiss()
			UpdateCacheItems(3)
			RecordWorkerTask(1, true)
			RecordWorkerTask(1, false)

			Convey("Then each collector reflects it", func() {
				So(testutil.ToFloat64(globalManager.cacheHits), ShouldEqual, hits+1)
				So(testutil.ToFloat64(globalManager.cacheMisses), ShouldEqual, misses+1)
				So(testutil.ToFloat64(globalManager.cacheItems), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.workerTaskErrors), ShouldEqual, taskErrs+1)
			})
		})

		Convey("When recording the remaining helpers", func() {
			So(func() {
				AddPlacementVectors(10)
				UpdateWorkerCount(4)
				UpdateQueueSize(2)
				UpdateQueueCapacity(8)
				RecordQueueEnqueueError()
				RecordHTTPRequest("odds", "POST", "200", 4)
				RecordError("builder", "invalid_argument")
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.4)
			}, ShouldNotPanic)
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
