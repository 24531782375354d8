package samplestore_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	samplestore "github.com/somacore/soma/internal/adapters/samplestore"
	model "github.com/somacore/soma/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemStorePut(t *testing.T) {
	Convey("Given an empty sample store", t, func() {
		store := samplestore.NewMemStore()
		ctx := context.Background()
		ts := time.Date(2026, 3, 1, 7, 0, 0, 0, time.Local)

		Convey("When inserting a sample", func() {
			ok, err := store.Put(ctx, model.Sample{Kind: model.MetricHRV, TS: ts, Value: 42})
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
			So(store.Count(ctx), ShouldEqual, 1)

			Convey("And inserting the same (kind, timestamp) again", func() {
				ok, err := store.Put(ctx, model.Sample{Kind: model.MetricHRV, TS: ts, Value: 99})
				So(err, ShouldBeNil)

				Convey("Then the duplicate is rejected", func() {
					So(ok, ShouldBeFalse)
					So(store.Count(ctx), ShouldEqual, 1)
				})
			})

			Convey("And the same timestamp under another kind is distinct", func() {
				ok, err := store.Put(ctx, model.Sample{Kind: model.MetricRestingHeartRate, TS: ts, Value: 55})
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When inserting an unknown metric kind", func() {
			_, err := store.Put(ctx, model.Sample{Kind: "step_count", TS: ts, Value: 1})

			Convey("Then the closed kind set rejects it", func() {
				So(errors.Is(err, samplestore.ErrUnknownKind), ShouldBeTrue)
			})
		})
	})
}

func TestMemStoreRange(t *testing.T) {
	Convey("Given samples inserted out of order", t, func() {
		store := samplestore.NewMemStore()
		ctx := context.Background()
		base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.Local)

		for _, h := range []int{9, 3, 27, 15, 51} {
			_, err := store.Put(ctx, model.Sample{
				Kind:  model.MetricHRV,
				TS:    base.Add(time.Duration(h) * time.Hour),
				Value: float64(h),
			})
			So(err, ShouldBeNil)
		}

		Convey("When querying a half-open window", func() {
			got, err := store.Range(ctx, model.MetricHRV, base, base.Add(24*time.Hour))
			So(err, ShouldBeNil)

			Convey("Then results are ordered and bounded", func() {
				So(len(got), ShouldEqual, 3)
				So(got[0].Value, ShouldEqual, 3)
				So(got[1].Value, ShouldEqual, 9)
				So(got[2].Value, ShouldEqual, 15)
			})
		})

		Convey("When querying one calendar day", func() {
			got, err := store.DayValues(ctx, model.MetricHRV, model.NewDayKey(base.Add(27*time.Hour)))
			So(err, ShouldBeNil)

			Convey("Then only that day's samples return", func() {
				So(len(got), ShouldEqual, 1)
				So(got[0].Value, ShouldEqual, 27)
			})
		})

		Convey("When querying an empty window", func() {
			got, err := store.Range(ctx, model.MetricHRV, base.Add(100*time.Hour), base.Add(200*time.Hour))
			So(err, ShouldBeNil)
			So(got, ShouldBeEmpty)
		})
	})
}

func TestMemStoreConcurrency(t *testing.T) {
	Convey("Given concurrent writers on different metrics", t, func() {
		store := samplestore.NewMemStore()
		ctx := context.Background()
		base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.Local)

		Convey("Then all inserts land without loss", func() {
			var wg sync.WaitGroup
			kinds := []model.MetricKind{model.MetricHRV, model.MetricRestingHeartRate, model.MetricRespiratoryRate}
			for _, kind := range kinds {
				kind := kind
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < 200; i++ {
						_, _ = store.Put(ctx, model.Sample{
							Kind:  kind,
							TS:    base.Add(time.Duration(i) * time.Minute),
							Value: float64(i),
						})
					}
				}()
			}
			wg.Wait()

			So(store.Count(ctx), ShouldEqual, 600)
			got, err := store.Range(ctx, model.MetricHRV, base, base.Add(24*time.Hour))
			So(err, ShouldBeNil)
			So(len(got), ShouldEqual, 200)
		})
	})
}
