package model_test

import (
	"testing"
	"time"

	model "github.com/okian/draftelo/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestKey(t *testing.T) {
	convey.Convey("Given player names with mixed case and padding", t, func() {
		convey.So(model.Key("  Justin Jefferson "), convey.ShouldEqual, "justin jefferson")
		convey.So(model.Key("CEEDEE LAMB"), convey.ShouldEqual, model.Key("CeeDee Lamb"))
		convey.So(model.Key(""), convey.ShouldEqual, "")
	})
}

func TestMatchup(t *testing.T) {
	convey.Convey("Given a matchup between two players", t, func() {
		a := model.Player{Name: "Ja'Marr Chase", Rating: 1620}
		b := model.Player{Name: "Puka Nacua", Rating: 1598}
		m := model.NewMatchup(a, b)

		convey.Convey("Then the initial ratings are captured by key", func() {
			convey.So(m.Initial, convey.ShouldResemble, map[string]float64{
				"ja'marr chase": 1620,
				"puka nacua":    1598,
			})
		})

		convey.Convey("When resolving a choice case-insensitively", func() {
			chosen, other, ok := m.Resolve("PUKA NACUA")

			convey.Convey("Then the chosen and other players are returned", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(chosen.Name, convey.ShouldEqual, "Puka Nacua")
				convey.So(other.Name, convey.ShouldEqual, "Ja'Marr Chase")
			})
		})

		convey.Convey("When resolving a name outside the matchup", func() {
			_, _, ok := m.Resolve("Tyreek Hill")

			convey.Convey("Then it is rejected", func() {
				convey.So(ok, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the source player is modified later", func() {
			a.Rating = 1700

			convey.Convey("Then the snapshot is unaffected", func() {
				convey.So(m.Initial["ja'marr chase"], convey.ShouldEqual, 1620)
				convey.So(m.A.Rating, convey.ShouldEqual, 1620)
			})
		})
	})
}

func TestWeeklyResetDue(t *testing.T) {
	convey.Convey("Given the weekly reset rule", t, func() {
		today := time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC) // Wednesday

		convey.So(model.WeeklyResetDue(time.Date(2025, 9, 7, 0, 0, 0, 0, time.UTC), today), convey.ShouldBeTrue)  // last Sunday
		convey.So(model.WeeklyResetDue(time.Date(2025, 9, 8, 0, 0, 0, 0, time.UTC), today), convey.ShouldBeFalse) // this Monday
		convey.So(model.WeeklyResetDue(today, today), convey.ShouldBeFalse)
		convey.So(model.WeeklyResetDue(time.Time{}, today), convey.ShouldBeTrue)

		sunday := time.Date(2025, 9, 14, 0, 0, 0, 0, time.UTC)
		convey.So(model.WeeklyResetDue(time.Date(2025, 9, 8, 0, 0, 0, 0, time.UTC), sunday), convey.ShouldBeFalse)

		mon := time.Date(2025, 9, 8, 0, 0, 0, 0, time.UTC)
		convey.So(model.WeeklyResetDue(time.Date(2025, 9, 5, 0, 0, 0, 0, time.UTC), mon), convey.ShouldBeTrue)
		convey.So(model.WeeklyResetDue(mon, mon), convey.ShouldBeFalse)
	})
}
