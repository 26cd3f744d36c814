package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then the voting metrics are registered", func() {
				So(manager, ShouldNotBeNil)
				manager.votesCast.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["draftelo_voting_votes_cast_total"], ShouldBeTrue)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithMetricsEnabled(true),
				WithRefreshInterval(5*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options are applied", func() {
				So(manager.namespace, ShouldEqual, "test_namespace")
				So(manager.subsystem, ShouldEqual, "test_subsystem")
				So(manager.histogramBuckets, ShouldResemble, []float64{1, 10, 100})
				So(manager.refreshInterval, ShouldEqual, 5*time.Second)
				So(manager.RefreshInterval(), ShouldEqual, 5*time.Second)
				So(manager.customLabels, ShouldResemble, map[string]string{"env": "test"})
			})
		})

		Convey("When empty options are passed", func() {
			manager := NewManager(
				WithNamespace(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "draftelo")
				So(manager.histogramBuckets, ShouldResemble, defaultLatencyBuckets)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		SetEnabled(true)

		Convey("When a vote is cast", func() {
			before := testutil.ToFloat64(globalManager.votesCast)
			RecordVoteCast(-12)

			Convey("Then the counter increases", func() {
				So(testutil.ToFloat64(globalManager.votesCast), ShouldEqual, before+1)
			})
		})

		Convey("When a store call fails", func() {
			before := testutil.ToFloat64(globalManager.storeErrors.WithLabelValues("players", "apply_vote"))
			RecordStoreCall("players", "apply_vote", 40*time.Millisecond, errors.New("quota"))
			RecordStoreCall("players", "apply_vote", 40*time.Millisecond, nil)

			Convey("Then only the failure is counted as an error", func() {
				So(testutil.ToFloat64(globalManager.storeErrors.WithLabelValues("players", "apply_vote")), ShouldEqual, before+1)
			})
		})

		Convey("When gauges are updated", func() {
			UpdateActiveSessions(3)
			UpdatePlayersTotal(120)
			UpdateUsersTotal(7)

			Convey("Then they hold the last value", func() {
				So(testutil.ToFloat64(globalManager.activeSessions), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.playersTotal), ShouldEqual, 120)
				So(testutil.ToFloat64(globalManager.usersTotal), ShouldEqual, 7)
			})
		})

		Convey("When metrics are disabled", func() {
			SetEnabled(false)
			defer SetEnabled(true)
			before := testutil.ToFloat64(globalManager.matchupsDrawn)
			RecordMatchupDrawn()

			Convey("Then nothing is recorded", func() {
				So(testutil.ToFloat64(globalManager.matchupsDrawn), ShouldEqual, before)
			})
		})

		Convey("When the remaining helpers are called", func() {
			Convey("Then none of them panic", func() {
				So(func() {
					RecordVoteFailure("invalid_choice")
					RecordRedundantWriteSkipped()
					RecordDataShapeRecovery("players", "elo")
					RecordCacheEvent("players", "hit")
					RecordSessionsExpired(2)
					RecordHTTPRequest("sessions", "POST", "201")
					RecordHTTPRequestDuration("sessions", "POST", "201", 12)
					RecordErrorByEndpoint("votes", "POST", "client_error")
					UpdateSystemMemoryUsage(1 << 20)
					UpdateSystemGoroutineCount(12)
				}, ShouldNotPanic)
			})
		})

		Convey("When the refresh interval is changed", func() {
			defer SetRefreshInterval(defaultRefreshInterval)
			SetRefreshInterval(2 * time.Second)
			SetRefreshInterval(0)

			Convey("Then the last positive value wins", func() {
				So(RefreshInterval(), ShouldEqual, 2*time.Second)
			})
		})

		Convey("Then the registry is exposed", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
