package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/okian/trialmatch/internal/config"
	"github.com/okian/trialmatch/internal/evaluation"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
				convey.So(cfg.TopK, convey.ShouldEqual, 10)
				convey.So(cfg.MinScore, convey.ShouldEqual, 20)
				convey.So(cfg.AgePoints, convey.ShouldEqual, 20)
				convey.So(cfg.KeywordCap, convey.ShouldEqual, 50)
				convey.So(cfg.StrictScore, convey.ShouldEqual, 60)
				convey.So(cfg.Seed, convey.ShouldEqual, int64(42))
				convey.So(cfg.SweepThresholds, convey.ShouldResemble, []int{30, 40, 50, 60, 70, 80})
				convey.So(cfg.TrialStatuses, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("TRIALMATCH_WORKER_COUNT", "16")
			_ = os.Setenv("TRIALMATCH_TOP_K", "3")
			_ = os.Setenv("TRIALMATCH_LOG_LEVEL", "debug")
			_ = os.Setenv("TRIALMATCH_SWEEP_THRESHOLDS", "35,45")

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.TopK, convey.ShouldEqual, 3)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.SweepThresholds, convey.ShouldResemble, []int{35, 45})
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			path := createTempConfigFile(t, "config.yaml", `
worker_count: 24
min_score: 30
seed: 7
sweep_thresholds: [40, 60]
comparison_sample_patients: 8
trial_statuses: [RECRUITING]
`)

			cfg, err := config.Load(ctx, path)

			convey.Convey("Then it should load from the YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 24)
				convey.So(cfg.MinScore, convey.ShouldEqual, 30)
				convey.So(cfg.Seed, convey.ShouldEqual, int64(7))
				convey.So(cfg.SweepThresholds, convey.ShouldResemble, []int{40, 60})
				convey.So(cfg.TrialStatuses, convey.ShouldResemble, []string{"RECRUITING"})
				convey.So(cfg.ComparisonPatients, convey.ShouldEqual, 8)
				convey.So(cfg.EvaluationSettings().ComparisonPatients, convey.ShouldEqual, 8)
				convey.So(cfg.TopK, convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When loading config with a TOML file named by the environment", func() {
			path := createTempConfigFile(t, "config.toml", `
worker_count = 4
strict_score = 65
eval_strict = false
comparison_thresholds = [20, 80]
`)
			_ = os.Setenv(config.EnvConfig, path)

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should load from the TOML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
				convey.So(cfg.StrictScore, convey.ShouldEqual, 65)
				convey.So(cfg.EvalStrict, convey.ShouldBeFalse)
				convey.So(cfg.ComparisonThresholds, convey.ShouldResemble, []int{20, 80})
			})
		})

		convey.Convey("When both a file and env vars are set", func() {
			path := createTempConfigFile(t, "config.yml", "worker_count: 24\nqueue_size: 50\n")
			_ = os.Setenv("TRIALMATCH_WORKER_COUNT", "2")

			cfg, err := config.Load(ctx, path)

			convey.Convey("Then env vars take precedence", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 2)
				convey.So(cfg.QueueSize, convey.ShouldEqual, 50)
			})
		})

		convey.Convey("When the file extension is unknown", func() {
			path := createTempConfigFile(t, "config.ini", "worker_count=2\n")

			_, err := config.Load(ctx, path)

			convey.Convey("Then it should fail with ErrUnsupportedFormat", func() {
				convey.So(errors.Is(err, config.ErrUnsupportedFormat), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the file does not exist", func() {
			_, err := config.Load(ctx, filepath.Join(t.TempDir(), "missing.yaml"))

			convey.Convey("Then it should fail with ErrLoadConfig", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a value is invalid", func() {
			_ = os.Setenv("TRIALMATCH_WORKER_COUNT", "0")
			_ = os.Setenv("TRIALMATCH_LOG_LEVEL", "loud")

			_, err := config.Load(ctx, "")

			convey.Convey("Then validation reports ErrInvalidConfig", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "worker_count")
				convey.So(err.Error(), convey.ShouldContainSubstring, "log_level")
			})
		})
	})
}

func TestConfigConversions(t *testing.T) {
	convey.Convey("Given a config with overrides", t, func() {
		cfg := config.New()
		cfg.Seed = 9
		cfg.TopK = 4
		cfg.ConditionPoints = 0
		cfg.TierFair = 35

		convey.Convey("Then weights carry the overrides", func() {
			w := cfg.Weights()
			convey.So(w.ConditionPoints, convey.ShouldEqual, 0)
			convey.So(w.ReasonKeywordSamples, convey.ShouldEqual, 3)
		})

		convey.Convey("Then evaluation settings share the seed and ranking options", func() {
			s := cfg.EvaluationSettings()
			convey.So(s.Errors.Seed, convey.ShouldEqual, int64(9))
			convey.So(s.Strict.Seed, convey.ShouldEqual, int64(9))
			convey.So(s.Negative.Seed, convey.ShouldEqual, int64(9))
			convey.So(s.Sweep.Seed, convey.ShouldEqual, int64(9))
			convey.So(s.Ranking.TopK, convey.ShouldEqual, 4)
			convey.So(s.Policy.TierFair, convey.ShouldEqual, 35)
		})

		convey.Convey("Then the default config matches the evaluation defaults", func() {
			def := config.New().EvaluationSettings()
			convey.So(def, convey.ShouldResemble, evaluation.DefaultSettings())
		})

		convey.Convey("Then a strict score below the lenient score fails validation", func() {
			cfg.StrictScore = 40
			err := cfg.Validate()
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "strict_score=40 must be >= lenient_score=50")
		})

		convey.Convey("Then tier order violations fail validation", func() {
			cfg.TierFair = 90
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

// clearConfigEnvVars clears all config-related environment variables.
func clearConfigEnvVars() {
	for _, key := range []string{
		config.EnvConfig,
		"TRIALMATCH_WORKER_COUNT",
		"TRIALMATCH_TOP_K",
		"TRIALMATCH_LOG_LEVEL",
		"TRIALMATCH_SWEEP_THRESHOLDS",
	} {
		_ = os.Unsetenv(key)
	}
}

// createTempConfigFile writes content to a named file in a temp dir.
func createTempConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
