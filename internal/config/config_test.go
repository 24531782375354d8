package config_test

import (
	"runtime"
	"testing"

	"github.com/somacore/soma/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.TaskQueueSize, convey.ShouldEqual, 4096)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000)
			convey.So(cfg.BaselineWindowDays, convey.ShouldEqual, 14)
			convey.So(cfg.BaselineMinCoverage, convey.ShouldEqual, 7)
			convey.So(cfg.MemoryCacheCapacity, convey.ShouldEqual, 100)
			convey.So(cfg.DurablePath, convey.ShouldEqual, "soma.db")
			convey.So(cfg.FreshnessWindowMin, convey.ShouldEqual, 30)
			convey.So(cfg.MorningSyncFromHour, convey.ShouldEqual, 5)
			convey.So(cfg.MorningSyncToHour, convey.ShouldEqual, 11)
			convey.So(cfg.CurveUpGain, convey.ShouldEqual, 125)
			convey.So(cfg.CurveDownGain, convey.ShouldEqual, 150)
		})
	})
}
