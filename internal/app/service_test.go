package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/okian/podium/internal/adapters/repository"
	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/distribution"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func coinTable() service.Option {
	return service.WithScoringTable(model.ScoringTable{1, 0})
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should use the rally preset", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["playerCount"], ShouldEqual, 20)
			So(stats["strategy"], ShouldEqual, "convolution")
		})
	})

	Convey("Given a player count that disagrees with the table", t, func() {
		svc := service.New(coinTable(), service.WithPlayerCount(3))

		Convey("Then Start refuses", func() {
			err := svc.Start(context.Background())
			So(errors.Is(err, model.ErrInvalidArgument), ShouldBeTrue)
		})
	})

	Convey("Given an unknown strategy", t, func() {
		svc := service.New(service.WithStrategy("guess"))

		Convey("Then Start refuses", func() {
			So(errors.Is(svc.Start(context.Background()), model.ErrInvalidArgument), ShouldBeTrue)
		})
	})
}

func TestService_NotStarted(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc := service.New(coinTable())
		ctx := context.Background()

		Convey("Then every operation reports it", func() {
			_, err := svc.Distribution(ctx, 1)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.Probabilities(ctx, 1, 2)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.Odds(ctx, service.OddsRequest{Rounds: 1, Teams: model.Teams{{Name: "a"}}})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("Then Stop is a no-op", func() {
			svc.Stop()
		})
	})
}

func TestService_Distribution(t *testing.T) {
	Convey("Given a started two-player service", t, func() {
		ctx := context.Background()
		svc := service.New(coinTable(), service.WithWorkerCount(2))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When asking for two rounds", func() {
			m, err := svc.Distribution(ctx, 2)

			Convey("Then the multiplicities are exact", func() {
				So(err, ShouldBeNil)
				So(len(m), ShouldEqual, 3)
				So(m[0].Int64(), ShouldEqual, int64(1))
				So(m[1].Int64(), ShouldEqual, int64(2))
				So(m[2].Int64(), ShouldEqual, int64(1))
			})

			Convey("Then a second request is served from the cache", func() {
				m[1].SetInt64(100)
				again, err := svc.Distribution(ctx, 2)
				So(err, ShouldBeNil)
				So(again[1].Int64(), ShouldEqual, int64(2))
				stats := svc.GetStats()
				So(stats["builds"], ShouldEqual, int64(1))
				So(stats["cachedDistributions"], ShouldEqual, 1)
			})
		})

		Convey("When asking for negative rounds", func() {
			_, err := svc.Distribution(ctx, -1)
			So(errors.Is(err, model.ErrInvalidArgument), ShouldBeTrue)
		})

		Convey("When many callers ask at once", func() {
			var wg sync.WaitGroup
			results := make([]distribution.Multiplicities, 8)
			errs := make([]error, 8)
			for i := range results {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					results[i], errs[i] = svc.Distribution(ctx, 12)
				}(i)
			}
			wg.Wait()

			Convey("Then they all see the same distribution", func() {
				for i := range results {
					So(errs[i], ShouldBeNil)
					So(results[i].Total().Int64(), ShouldEqual, int64(4096))
				}
				So(svc.GetStats()["builds"], ShouldBeLessThanOrEqualTo, int64(8))
			})
		})
	})
}

func TestService_Probabilities(t *testing.T) {
	Convey("Given a started two-player service", t, func() {
		ctx := context.Background()
		svc := service.New(coinTable())
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When the participant count defaults to the player count", func() {
			p, err := svc.Probabilities(ctx, 2, 0)

			Convey("Then the probabilities sum to one", func() {
				So(err, ShouldBeNil)
				So(p[0], ShouldEqual, 0.25)
				So(p[1], ShouldEqual, 0.5)
				So(p[2], ShouldEqual, 0.25)
			})
		})

		Convey("When the participant count disagrees with the build", func() {
			_, err := svc.Probabilities(ctx, 2, 3)

			Convey("Then the distribution is inconsistent", func() {
				So(errors.Is(err, model.ErrDistributionInconsistent), ShouldBeTrue)
			})
		})

		Convey("When the participant count is negative", func() {
			_, err := svc.Probabilities(ctx, 2, -1)
			So(errors.Is(err, model.ErrInvalidArgument), ShouldBeTrue)
		})
	})
}

func TestService_Odds(t *testing.T) {
	for _, workers := range []int{0, 3} {
		Convey("Given a started two-player service", t, func() {
			ctx := context.Background()
			svc := service.New(coinTable(), service.WithWorkerCount(workers))
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()

			Convey("When two level teams play one round", func() {
				resp, err := svc.Odds(ctx, service.OddsRequest{
					Rounds: 1,
					Teams:  model.Teams{{Name: "a"}, {Name: "b"}},
				})

				Convey("Then each takes half of first and second", func() {
					So(err, ShouldBeNil)
					So(resp.ParticipantCount, ShouldEqual, 2)
					So(resp.Rounds, ShouldEqual, 1)
					So(len(resp.Results), ShouldEqual, 2)
					for _, to := range resp.Results {
						So(to.First, ShouldEqual, 0.5)
						So(to.Second, ShouldEqual, 0.5)
						So(to.Third, ShouldEqual, 0.0)
					}
				})

				Convey("Then the run is identified", func() {
					_, err := uuid.Parse(resp.RunID)
					So(err, ShouldBeNil)
					So(svc.GetStats()["oddsRuns"], ShouldEqual, int64(1))
				})
			})

			Convey("When three teams use the default participant count", func() {
				_, err := svc.Odds(ctx, service.OddsRequest{
					Rounds: 1,
					Teams:  model.Teams{{Name: "a"}, {Name: "b"}, {Name: "c"}},
				})

				Convey("Then the outcome space does not match the build", func() {
					So(errors.Is(err, model.ErrDistributionInconsistent), ShouldBeTrue)
				})
			})

			Convey("When three teams give the real participant count", func() {
				resp, err := svc.Odds(ctx, service.OddsRequest{
					Rounds:           1,
					ParticipantCount: 2,
					Teams:            model.Teams{{Name: "a"}, {Name: "b"}, {Name: "c"}},
				})

				Convey("Then every column splits in thirds", func() {
					So(err, ShouldBeNil)
					for _, to := range resp.Results {
						So(to.First, ShouldEqual, 0.3333)
					}
				})
			})

			Convey("When the roster is invalid", func() {
				_, err := svc.Odds(ctx, service.OddsRequest{Rounds: 1, Teams: model.Teams{{Name: "a"}, {Name: "a"}}})
				So(errors.Is(err, model.ErrInvalidArgument), ShouldBeTrue)
				_, err = svc.Odds(ctx, service.OddsRequest{Rounds: 1})
				So(errors.Is(err, model.ErrInvalidArgument), ShouldBeTrue)
				_, err = svc.Odds(ctx, service.OddsRequest{Rounds: -1, Teams: model.Teams{{Name: "a"}}})
				So(errors.Is(err, model.ErrInvalidArgument), ShouldBeTrue)
			})

			Convey("When the caller's context is cancelled", func() {
				cctx, cancel := context.WithTimeout(ctx, time.Nanosecond)
				defer cancel()
				time.Sleep(time.Millisecond)
				_, err := svc.Odds(cctx, service.OddsRequest{Rounds: 1, Teams: model.Teams{{Name: "a"}, {Name: "b"}}})
				So(err, ShouldNotBeNil)
			})
		})
	}
}

type downStore struct{ saves int }

func (s *downStore) Save(_ context.Context, _ repository.Key, _ distribution.Multiplicities) error {
	s.saves++
	return repository.ErrUnavailable
}

func (s *downStore) Load(_ context.Context, _ repository.Key) (distribution.Multiplicities, error) {
	return nil, repository.ErrUnavailable
}

func TestService_StoreUnavailable(t *testing.T) {
	Convey("Given a service whose store is down", t, func() {
		store := &downStore{}
		svc := service.New(coinTable(), service.WithWorkerCount(0), service.WithStore(store),
			service.WithLogger(logger.Discard()))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		Convey("When a distribution is requested", func() {
			m, err := svc.Distribution(context.Background(), 2)

			Convey("Then it is still built and served", func() {
				So(err, ShouldBeNil)
				So(m.Total().Int64(), ShouldEqual, int64(4))
				So(store.saves, ShouldEqual, 1)
			})
		})
	})
}

func TestService_BuildTimeout(t *testing.T) {
	Convey("Given a service whose builds may not take any time at all", t, func() {
		svc := service.New(coinTable(), service.WithWorkerCount(0),
			service.WithBuildTimeout(time.Nanosecond), service.WithLogger(logger.Discard()))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		Convey("When a distribution is requested", func() {
			_, err := svc.Distribution(context.Background(), 50)

			Convey("Then the build is cut off by its deadline", func() {
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			})
		})
	})
}

func TestService_RosterCap(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New(coinTable(), service.WithWorkerCount(0), service.WithLogger(logger.Discard()))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		Convey("When the roster is larger than MaxTeams", func() {
			teams := make(model.Teams, service.MaxTeams+1)
			for i := range teams {
				teams[i] = model.Team{Name: fmt.Sprintf("team-%d", i)}
			}
			_, err := svc.Odds(context.Background(), service.OddsRequest{Rounds: 1, Teams: teams})

			Convey("Then it is rejected before any work", func() {
				So(errors.Is(err, model.ErrInvalidArgument), ShouldBeTrue)
				So(svc.GetStats()["builds"], ShouldEqual, int64(0))
			})
		})
	})
}
