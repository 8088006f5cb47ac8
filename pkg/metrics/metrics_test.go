package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "trialmatch")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithScoreBuckets([]float64{50, 100}),
				WithMetricsEnabled(true),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the custom labels are attached to every metric", func() {
				manager.pairsScored.Add(3)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "test_namespace_test_subsystem_"), ShouldBeTrue)
				}
				So(testutil.ToFloat64(manager.pairsScored), ShouldEqual, float64(3))
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		SetEnabled(true)

		Convey("When a batch is recorded", func() {
			pairs := testutil.ToFloat64(globalManager.pairsScored)
			matches := testutil.ToFloat64(globalManager.matchesEmitted)
			patients := testutil.ToFloat64(globalManager.patientsMatched)

			RecordPairsScored(10)
			RecordMatch(70)
			RecordMatch(45)
			RecordPatientLatency(1.5)
			RecordBatchDuration(12)
			UpdateWorkerCount(4)

			Convey("Then the counters advance", func() {
				So(testutil.ToFloat64(globalManager.pairsScored)-pairs, ShouldEqual, float64(10))
				So(testutil.ToFloat64(globalManager.matchesEmitted)-matches, ShouldEqual, float64(2))
				So(testutil.ToFloat64(globalManager.patientsMatched)-patients, ShouldEqual, float64(1))
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, float64(4))
			})
		})

		Convey("When records are dropped", func() {
			before := testutil.ToFloat64(globalManager.recordsDropped.WithLabelValues("trial", "duplicate_id"))
			RecordRecordDropped("trial", "duplicate_id")
			UpdateRecordsLoaded("trial", 7)

			Convey("Then the labelled series change", func() {
				So(testutil.ToFloat64(globalManager.recordsDropped.WithLabelValues("trial", "duplicate_id"))-before, ShouldEqual, float64(1))
				So(testutil.ToFloat64(globalManager.recordsLoaded.WithLabelValues("trial")), ShouldEqual, float64(7))
			})
		})

		Convey("When recording is disabled", func() {
			SetEnabled(false)
			before := testutil.ToFloat64(globalManager.queueEnqueued)
			RecordQueueEnqueue()
			SetEnabled(true)

			Convey("Then nothing is recorded", func() {
				So(testutil.ToFloat64(globalManager.queueEnqueued), ShouldEqual, before)
			})
		})

		Convey("When evaluation results are published", func() {
			UpdateEvaluationResult("precision", 0.75)

			Convey("Then the gauge holds the value", func() {
				So(testutil.ToFloat64(globalManager.evaluationResult.WithLabelValues("precision")), ShouldEqual, 0.75)
			})
		})
	})
}

func TestWriteTextfile(t *testing.T) {
	Convey("Given the global registry", t, func() {
		RecordPairsScored(1)

		Convey("When writing a textfile", func() {
			path := filepath.Join(t.TempDir(), "trialmatch.prom")
			err := WriteTextfile(path)

			Convey("Then the file holds the exposition format", func() {
				So(err, ShouldBeNil)
				data, readErr := os.ReadFile(path)
				So(readErr, ShouldBeNil)
				So(string(data), ShouldContainSubstring, "trialmatch_batch_pairs_scored_total")
			})
		})

		Convey("When the path is empty", func() {
			So(WriteTextfile(""), ShouldEqual, ErrEmptyPath)
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		So(GetRegistry(), ShouldEqual, customRegistry)
	})
}
