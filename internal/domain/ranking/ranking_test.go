package ranking_test

import (
	"testing"

	"github.com/okian/draftelo/internal/domain/model"
	ranking "github.com/okian/draftelo/internal/domain/ranking"
	"github.com/smartystreets/goconvey/convey"
)

func TestAssignPositionRanks(t *testing.T) {
	convey.Convey("Given players in one position with a tie at the top", t, func() {
		players := []model.Player{
			{Name: "a", Position: "A", Rating: 100},
			{Name: "b", Position: "A", Rating: 100},
			{Name: "c", Position: "A", Rating: 90},
		}
		ranking.AssignPositionRanks(players)

		convey.Convey("Then ranks use the min method", func() {
			convey.So([]int{players[0].PositionRank, players[1].PositionRank, players[2].PositionRank},
				convey.ShouldResemble, []int{1, 1, 3})
		})
	})

	convey.Convey("Given players across positions in arbitrary order", t, func() {
		players := []model.Player{
			{Name: "Travis Kelce", Position: "TE", Rating: 1510},
			{Name: "Tyreek Hill", Position: "WR", Rating: 1580},
			{Name: "Sam LaPorta", Position: "TE", Rating: 1540},
			{Name: "Amon-Ra St. Brown", Position: "WR", Rating: 1600},
			{Name: "Garrett Wilson", Position: "WR", Rating: 1580},
			{Name: "Drake London", Position: "WR", Rating: 1550},
		}
		ranking.AssignPositionRanks(players)

		convey.Convey("Then each position is ranked independently and order is kept", func() {
			convey.So(players[0].Name, convey.ShouldEqual, "Travis Kelce")
			convey.So(players[0].PositionRank, convey.ShouldEqual, 2)
			convey.So(players[2].PositionRank, convey.ShouldEqual, 1)
			convey.So(players[3].PositionRank, convey.ShouldEqual, 1)
			convey.So(players[1].PositionRank, convey.ShouldEqual, 2)
			convey.So(players[4].PositionRank, convey.ShouldEqual, 2)
			convey.So(players[5].PositionRank, convey.ShouldEqual, 4)
		})
	})

	convey.Convey("Given no players", t, func() {
		convey.So(func() { ranking.AssignPositionRanks(nil) }, convey.ShouldNotPanic)
	})
}

func TestSortByRating(t *testing.T) {
	convey.Convey("Given unsorted players", t, func() {
		players := []model.Player{
			{Name: "Zay Flowers", Rating: 1500},
			{Name: "CeeDee Lamb", Rating: 1650},
			{Name: "brian thomas", Rating: 1500},
		}
		ranking.SortByRating(players)

		convey.Convey("Then they are ordered by rating then name", func() {
			convey.So(players[0].Name, convey.ShouldEqual, "CeeDee Lamb")
			convey.So(players[1].Name, convey.ShouldEqual, "brian thomas")
			convey.So(players[2].Name, convey.ShouldEqual, "Zay Flowers")
		})
	})
}

func TestTopUsers(t *testing.T) {
	convey.Convey("Given a set of users", t, func() {
		users := []model.User{
			{Username: "dana", TotalVotes: 40, WeeklyVotes: 2},
			{Username: "ari", TotalVotes: 12, WeeklyVotes: 12},
			{Username: "cal", TotalVotes: 40, WeeklyVotes: 7},
			{Username: "bo", TotalVotes: 3, WeeklyVotes: 3},
		}

		convey.Convey("When ranking by total votes", func() {
			top := ranking.TopUsers(users, ranking.ByTotalVotes, 3)

			convey.Convey("Then the top three are returned with ties by name", func() {
				convey.So(len(top), convey.ShouldEqual, 3)
				convey.So(top[0].Username, convey.ShouldEqual, "cal")
				convey.So(top[1].Username, convey.ShouldEqual, "dana")
				convey.So(top[2].Username, convey.ShouldEqual, "ari")
			})
		})

		convey.Convey("When ranking by weekly votes", func() {
			top := ranking.TopUsers(users, ranking.ByWeeklyVotes, 5)

			convey.Convey("Then all users are returned in weekly order", func() {
				convey.So(len(top), convey.ShouldEqual, 4)
				convey.So(top[0].Username, convey.ShouldEqual, "ari")
				convey.So(top[3].Username, convey.ShouldEqual, "dana")
			})
		})

		convey.Convey("Then the input is not reordered", func() {
			_ = ranking.TopUsers(users, ranking.ByWeeklyVotes, 2)
			convey.So(users[0].Username, convey.ShouldEqual, "dana")
		})
	})
}

func TestRecommend(t *testing.T) {
	convey.Convey("Given two players and a value table", t, func() {
		a := model.Player{Name: "Drake London", Rating: 1560}
		b := model.Player{Name: "Garrett Wilson", Rating: 1575}

		convey.Convey("When values differ", func() {
			convey.So(ranking.Recommend(a, b, map[string]float64{"drake london": 40, "garrett wilson": 32}), convey.ShouldEqual, "Drake London")
		})

		convey.Convey("When values tie", func() {
			convey.So(ranking.Recommend(a, b, map[string]float64{"drake london": 35, "garrett wilson": 35}), convey.ShouldEqual, "Garrett Wilson")
		})

		convey.Convey("When only one player has a value", func() {
			convey.So(ranking.Recommend(a, b, map[string]float64{"drake london": 1}), convey.ShouldEqual, "Drake London")
		})

		convey.Convey("When no values are known", func() {
			convey.So(ranking.Recommend(a, b, nil), convey.ShouldEqual, "")
		})
	})
}
