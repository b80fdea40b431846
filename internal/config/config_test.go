package config_test

import (
	"context"
	"testing"

	"github.com/okian/muster/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.SnapshotDir, convey.ShouldEqual, "")
			convey.So(cfg.MaxUploadBytes, convey.ShouldEqual, 5<<20)
			convey.So(cfg.MaxQueryLimit, convey.ShouldEqual, 200)
			convey.So(cfg.FetchBaseURL, convey.ShouldEqual, "https://wahapedia.ru/wh40k10ed/")
			convey.So(cfg.FetchTimeoutS, convey.ShouldEqual, 30)
			convey.So(cfg.FetchRetries, convey.ShouldEqual, 3)
			convey.So(cfg.FetchConcurrency, convey.ShouldEqual, 3)
		})
	})
}
