package config_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/lizgehret/q2-fmt/internal/adapters/blob/core"
	"github.com/lizgehret/q2-fmt/internal/config"
	"github.com/lizgehret/q2-fmt/internal/domain/comparison"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.AlphaPolicy, convey.ShouldEqual, "raw")
			convey.So(cfg.Delimiter, convey.ShouldEqual, "auto")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1024)
			convey.So(cfg.BlobDriver, convey.ShouldEqual, "fs")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		cases := []struct {
			name   string
			mutate func()
		}{
			{"an unknown log level", func() { cfg.LogLevel = "loud" }},
			{"an unknown log format", func() { cfg.LogFormat = "xml" }},
			{"an unknown alpha policy", func() { cfg.AlphaPolicy = "quotient" }},
			{"a multi-char delimiter", func() { cfg.Delimiter = "||" }},
			{"a quote delimiter", func() { cfg.Delimiter = `"` }},
			{"zero workers", func() { cfg.WorkerCount = 0 }},
			{"a zero queue", func() { cfg.QueueSize = 0 }},
			{"an unknown blob driver", func() { cfg.BlobDriver = "ftp" }},
			{"s3 without a bucket", func() { cfg.BlobDriver = "s3" }},
			{"fs without a root folder", func() { cfg.BlobRoot = " " }},
		}
		for _, tc := range cases {
			convey.Convey("When it has "+tc.name, func() {
				tc.mutate()

				convey.Convey("Then validation fails with ErrInvalidConfig", func() {
					convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
				})
			})
		}

		convey.Convey("When the delimiter is spelled out", func() {
			convey.Convey("Then it resolves to the rune", func() {
				for in, want := range map[string]rune{"auto": 0, "": 0, "TAB": '\t', `\t`: '\t', "\t": '\t', "comma": ',', ";": ';'} {
					cfg.Delimiter = in
					got, err := cfg.DelimiterRune()
					convey.So(err, convey.ShouldBeNil)
					convey.So(got, convey.ShouldEqual, want)
				}
			})
		})

		convey.Convey("When the policy is ratio", func() {
			cfg.AlphaPolicy = "Ratio"

			convey.Convey("Then Policy parses it", func() {
				p, err := cfg.Policy()
				convey.So(err, convey.ShouldBeNil)
				convey.So(p, convey.ShouldEqual, comparison.Ratio)
			})
		})

		convey.Convey("When s3 is configured", func() {
			cfg.BlobDriver = "s3"
			cfg.S3Bucket = "runs"
			cfg.S3Endpoint = "http://minio:9000"
			cfg.S3PathStyle = true

			convey.Convey("Then Blob carries the s3 settings", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
				b := cfg.Blob()
				convey.So(b.Driver, convey.ShouldEqual, core.DriverS3)
				convey.So(b.S3.Bucket, convey.ShouldEqual, "runs")
				convey.So(b.S3.Endpoint, convey.ShouldEqual, "http://minio:9000")
				convey.So(b.S3.PathStyle, convey.ShouldBeTrue)
				convey.So(b.S3.Region, convey.ShouldEqual, "us-east-1")
			})
		})
	})
}
