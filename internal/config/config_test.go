package config_test

import (
	"runtime"
	"testing"
	"time"

	"github.com/okian/drillsheet/internal/config"
	"github.com/okian/drillsheet/internal/domain/diagram"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8000")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.RenderParallelism, convey.ShouldEqual, 4)
			convey.So(cfg.RequestTimeout(), convey.ShouldEqual, 180*time.Second)
			convey.So(cfg.LLMTimeout(), convey.ShouldEqual, 120*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the derived style matches the diagram defaults", func() {
			convey.So(cfg.Style(), convey.ShouldResemble, diagram.DefaultStyle())
		})

		convey.Convey("Then the budget is 350x200", func() {
			b := cfg.Budget()
			convey.So(b.MaxWidth, convey.ShouldEqual, 350)
			convey.So(b.MaxHeight, convey.ShouldEqual, 200)
		})
	})
}

func TestConfig_Derived(t *testing.T) {
	convey.Convey("Given a config", t, func() {
		cfg := config.New()

		convey.Convey("When strict player refs are enabled", func() {
			cfg.StrictPlayerRefs = true

			convey.Convey("Then the style uses the strict policy", func() {
				convey.So(cfg.Style().ReferencePolicy, convey.ShouldEqual, diagram.Strict)
			})
		})

		convey.Convey("When origins are listed with spaces", func() {
			cfg.CORSAllowedOrigins = "http://a.test, http://b.test ,"

			convey.Convey("Then they are split and trimmed", func() {
				convey.So(cfg.AllowedOrigins(), convey.ShouldResemble, []string{"http://a.test", "http://b.test"})
			})
		})

		convey.Convey("When origins are empty", func() {
			cfg.CORSAllowedOrigins = " "

			convey.Convey("Then all origins are allowed", func() {
				convey.So(cfg.AllowedOrigins(), convey.ShouldResemble, []string{"*"})
			})
		})

		convey.Convey("When azure is selected explicitly without an endpoint", func() {
			cfg.LLMProvider = "Azure"
			cfg.AzureAPIKey = "k"

			convey.Convey("Then the key is not considered configured", func() {
				convey.So(cfg.ResolvedProvider(), convey.ShouldEqual, config.ProviderAzure)
				convey.So(cfg.APIKeyConfigured(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the display budget is zero", func() {
			cfg.DisplayMaxHeight = 0

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate(), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the shorten ratio is out of range", func() {
			cfg.ArrowShortenRatio = 1.5

			convey.Convey("Then validation fails", func() {
				convey.So(cfg.Validate(), convey.ShouldNotBeNil)
			})
		})
	})
}
