package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a dedicated registry", func() {
			registry := prometheus.NewRegistry()
			manager := newManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithLatencyBuckets([]float64{1, 10, 100}),
				WithComposeBuckets([]float64{1, 2}),
				WithWorkbookSizeBuckets([]float64{1024, 4096}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then metrics are registered under the configured names", func() {
				So(manager, ShouldNotBeNil)
				manager.plansGenerated.WithLabelValues("llm").Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				var names []string
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(strings.Join(names, ","), ShouldContainSubstring, "test_unit_plans_generated_total")
			})

			Convey("Then the bucket options reach the manager", func() {
				So(manager.histogramBuckets, ShouldResemble, []float64{1, 10, 100})
				So(manager.composeBuckets, ShouldResemble, []float64{1, 2})
				So(manager.sizeBuckets, ShouldResemble, []float64{1024, 4096})
			})
		})

		Convey("When registering twice on the same registry", func() {
			registry := prometheus.NewRegistry()
			_ = newManager(WithPrometheusRegistry(registry))

			Convey("Then the duplicate registration panics", func() {
				So(func() { _ = newManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording pipeline events", func() {
			before := testutil.ToFloat64(globalManager.plansGenerated.WithLabelValues("plan"))
			RecordPlanGenerated("plan")
			RecordPlanFailed("render")
			RecordPipelineDuration(12)
			RecordLLMLatency("openrouter", 250)
			RecordLLMError("openrouter", "timeout")
			RecordStepComposeLatency(2)
			RecordOverlaysRendered("ball", 2)
			RecordOverlaysRendered("player", 0)
			RecordMovementSkipped()
			RecordWorkbookBuild(40, 64*1024)

			Convey("Then counters advance", func() {
				So(testutil.ToFloat64(globalManager.plansGenerated.WithLabelValues("plan")), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.overlaysRendered.WithLabelValues("ball")), ShouldBeGreaterThanOrEqualTo, 2)
			})
		})

		Convey("When updating queue gauges", func() {
			UpdateQueueCapacity(10)
			UpdateQueueSize(5, 10)
			RecordQueueRejected()
			UpdateWorkerCount(2)
			AddActiveWorkers(1)
			AddActiveWorkers(-1)
			RecordJobLatency(100)

			Convey("Then utilization is derived from size and capacity", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 5)
				So(testutil.ToFloat64(globalManager.queueUtilization), ShouldEqual, 0.5)
				So(testutil.ToFloat64(globalManager.workerActiveCount), ShouldEqual, 0)
			})
		})

		Convey("When recording render cache lookups", func() {
			hits := testutil.ToFloat64(globalManager.renderCacheLookups.WithLabelValues("hit"))
			RecordRenderCacheLookup("hit")
			RecordRenderCacheLookup("miss")
			UpdateRenderCacheEntries(3)

			Convey("Then the hit counter and entry gauge move", func() {
				So(testutil.ToFloat64(globalManager.renderCacheLookups.WithLabelValues("hit")), ShouldEqual, hits+1)
				So(testutil.ToFloat64(globalManager.renderCacheEntries), ShouldEqual, 3)
			})
		})

		Convey("When recording HTTP and system metrics", func() {
			RecordHTTPRequest("generate", "POST", "200")
			RecordHTTPRequestDuration("generate", "POST", "200", 30)
			RecordErrorByEndpoint("generate", "POST", "client_error")
			UpdateSystemMemoryUsage(1024)
			UpdateSystemGoroutineCount(8)
			RecordSystemGCPauseTime(0.3)

			Convey("Then they are exposed on the custom registry", func() {
				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				So(testutil.ToFloat64(globalManager.systemGoroutineCount), ShouldEqual, 8)
			})
		})
	})
}
