package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sky-follower-bridge/bridgewatch/classifier"
	"github.com/sky-follower-bridge/bridgewatch/notify"
	"github.com/sky-follower-bridge/bridgewatch/social"
	"github.com/sky-follower-bridge/bridgewatch/util/svcutil"
	"github.com/sky-follower-bridge/bridgewatch/watch"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	cli "github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "bridgewatch",
		Usage:   "watches Bluesky for posts about Sky Follower Bridge, likes them, and corrects spam",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (eg: warn, info, debug)",
			Value:   "info",
			EnvVars: []string{"BRIDGEWATCH_LOG_LEVEL", "LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "log output format: json or text",
			Value:   "json",
			EnvVars: []string{"BRIDGEWATCH_LOG_FORMAT"},
		},
		&cli.StringFlag{
			Name:    "config",
			Usage:   "optional YAML file overriding queries, reference post and spam domains (default: $XDG_CONFIG_HOME/bridgewatch/config.yaml if present)",
			EnvVars: []string{"BRIDGEWATCH_CONFIG"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
		classifyCmd,
	}

	return app.Run(args)
}

var socialFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "pds-host",
		Usage:   "method, hostname, and port of PDS (or entryway) to log in to",
		Value:   "https://bsky.social",
		EnvVars: []string{"BLUESKY_PDS_HOST", "ATP_PDS_HOST"},
	},
	&cli.StringFlag{
		Name:    "username",
		Usage:   "handle or DID of the bot account",
		EnvVars: []string{"BLUESKY_USERNAME"},
	},
	&cli.StringFlag{
		Name:    "password",
		Usage:   "app password of the bot account",
		EnvVars: []string{"BLUESKY_PASSWORD"},
	},
	&cli.IntFlag{
		Name:    "search-limit",
		Usage:   "page size for post search",
		Value:   100,
		EnvVars: []string{"BRIDGEWATCH_SEARCH_LIMIT"},
	},
	&cli.IntFlag{
		Name:    "search-pages",
		Usage:   "max number of search result pages per query",
		Value:   1,
		EnvVars: []string{"BRIDGEWATCH_SEARCH_PAGES"},
	},
	&cli.IntFlag{
		Name:    "like-page-size",
		Usage:   "page size when listing the account's likes",
		Value:   100,
		EnvVars: []string{"BRIDGEWATCH_LIKE_PAGE_SIZE"},
	},
}

var classifierFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "llm-provider",
		Usage:   "language model provider: openai or gemini",
		Value:   classifier.ProviderOpenAI,
		EnvVars: []string{"BRIDGEWATCH_LLM_PROVIDER"},
	},
	&cli.StringFlag{
		Name:    "llm-model",
		Usage:   "model name (defaults depend on provider)",
		EnvVars: []string{"BRIDGEWATCH_LLM_MODEL"},
	},
	&cli.StringFlag{
		Name:    "openai-api-key",
		EnvVars: []string{"OPENAI_API_KEY"},
	},
	&cli.StringFlag{
		Name:    "openai-api-url",
		Usage:   "base URL of an OpenAI-compatible API",
		EnvVars: []string{"OPENAI_API_URL"},
	},
	&cli.StringFlag{
		Name:    "gemini-api-key",
		EnvVars: []string{"GEMINI_API_KEY"},
	},
	&cli.Float64Flag{
		Name:    "llm-rate-limit",
		Usage:   "max language model requests per second",
		Value:   2,
		EnvVars: []string{"BRIDGEWATCH_LLM_RATE_LIMIT"},
	},
	&cli.StringFlag{
		Name:    "language",
		Usage:   "target language for translations sent to the operations channel",
		Value:   "Japanese",
		EnvVars: []string{"BRIDGEWATCH_LANGUAGE"},
	},
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run a single watch pass (intended to be scheduled)",
	Flags: append(append(append([]cli.Flag{}, socialFlags...), classifierFlags...),
		&cli.StringSliceFlag{
			Name:    "query",
			Usage:   "search query (repeatable); replaces the built-in query list",
			EnvVars: []string{"BRIDGEWATCH_QUERIES"},
		},
		&cli.DurationFlag{
			Name:    "search-skew",
			Usage:   "how far back from now the search window starts",
			Value:   watch.DefaultSearchSkew,
			EnvVars: []string{"BRIDGEWATCH_SEARCH_SKEW"},
		},
		&cli.IntFlag{
			Name:    "seed-floor",
			Usage:   "number of distinct past likes loaded before processing",
			Value:   watch.DefaultSeedFloor,
			EnvVars: []string{"BRIDGEWATCH_SEED_FLOOR"},
		},
		&cli.BoolFlag{
			Name:    "check-replies",
			Usage:   "skip the corrective reply if the account already replied to the post",
			Value:   true,
			EnvVars: []string{"BRIDGEWATCH_CHECK_REPLIES"},
		},
		&cli.BoolFlag{
			Name:    "notify-summary",
			Usage:   "post a run summary when anything was liked",
			Value:   true,
			EnvVars: []string{"BRIDGEWATCH_NOTIFY_SUMMARY"},
		},
		&cli.BoolFlag{
			Name:    "readonly",
			Usage:   "log likes, replies and notifications instead of performing them",
			EnvVars: []string{"BRIDGEWATCH_READONLY", "READONLY"},
		},
		&cli.StringFlag{
			Name:    "slack-webhook-url",
			EnvVars: []string{"SLACK_WEBHOOK_URL"},
		},
		&cli.StringFlag{
			Name:    "slack-bot-token",
			EnvVars: []string{"SLACK_BOT_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "slack-channel-id",
			EnvVars: []string{"SLACK_CHANNEL_ID"},
		},
		&cli.StringFlag{
			Name:    "metrics-pushgateway",
			Usage:   "URL of a Prometheus Pushgateway to push run metrics to",
			EnvVars: []string{"BRIDGEWATCH_METRICS_PUSHGATEWAY"},
		},
		&cli.DurationFlag{
			Name:    "timeout",
			Usage:   "upper bound on the duration of one run",
			Value:   10 * time.Minute,
			EnvVars: []string{"BRIDGEWATCH_TIMEOUT"},
		},
	),
	Action: func(cctx *cli.Context) error {
		logger := configLogger(cctx)

		fc, err := loadFileConfig(configPath(cctx))
		if err != nil {
			return err
		}
		cfg, err := loadRunConfig(cctx, fc)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, cctx.Duration("timeout"))
		defer cancel()

		shutdownOTEL := configOTEL(ctx, "bridgewatch")
		defer shutdownOTEL()

		summary, runErr := runWatch(ctx, logger, cfg)
		if summary != nil {
			logger.Info("summary", "since", summary.Since.Format(time.RFC3339), "seeded", summary.SeededKeys, "candidates", summary.Candidates, "liked", summary.Liked())
		}

		if gw := cctx.String("metrics-pushgateway"); gw != "" {
			if err := pushMetrics(gw); err != nil {
				logger.Warn("failed to push metrics", "gateway", gw, "err", err)
			}
		}
		return runErr
	},
}

func runWatch(ctx context.Context, logger *slog.Logger, cfg *runConfig) (*watch.RunSummary, error) {
	client, err := social.Login(ctx, logger, cfg.Social)
	if err != nil {
		return nil, err
	}
	cls, err := classifier.New(ctx, cfg.Classifier, logger)
	if err != nil {
		return nil, err
	}

	var sc watch.SocialClient = client
	var notifier watch.Notifier
	if cfg.ReadOnly {
		logger.Info("running in readonly mode")
		sc = &social.ReadOnly{SocialClient: client, Logger: logger.With("component", "readonly")}
		notifier = &notify.LogNotifier{Logger: logger.With("component", "notify")}
	} else {
		notifier, err = notify.NewSlackNotifier(cfg.Slack, logger)
		if err != nil {
			return nil, err
		}
	}

	w := watch.Watcher{
		Logger:     logger,
		Social:     sc,
		Classifier: cls,
		Notifier:   notifier,
		Config:     cfg.Watch,
	}
	return w.Run(ctx)
}

func pushMetrics(gateway string) error {
	return push.New(gateway, "bridgewatch").
		Gatherer(prometheus.DefaultGatherer).
		Push()
}

var classifyCmd = &cli.Command{
	Name:      "classify",
	Usage:     "classify (and optionally translate) a piece of text, for prompt debugging",
	ArgsUsage: "<text>",
	Flags: append(append([]cli.Flag{}, classifierFlags...),
		&cli.BoolFlag{
			Name:  "translate",
			Usage: "also request a translation",
		},
	),
	Action: func(cctx *cli.Context) error {
		ctx := cctx.Context
		logger := configLogger(cctx)
		text := strings.Join(cctx.Args().Slice(), " ")
		if text == "" {
			return fmt.Errorf("need text to classify")
		}

		fc, err := loadFileConfig(configPath(cctx))
		if err != nil {
			return err
		}
		ccfg, err := classifierConfig(cctx, fc)
		if err != nil {
			return err
		}
		cls, err := classifier.New(ctx, ccfg, logger)
		if err != nil {
			return err
		}

		out := map[string]any{}
		c, err := cls.Analyze(ctx, text)
		if err != nil {
			return err
		}
		out["classification"] = c
		if cctx.Bool("translate") {
			tr, err := cls.Translate(ctx, text)
			if err != nil {
				return err
			}
			out["translation"] = tr
		}
		b, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(b))
		return nil
	},
}

func configLogger(cctx *cli.Context) *slog.Logger {
	return svcutil.ConfigLogger(cctx.String("log-level"), cctx.String("log-format"), os.Stdout)
}

var errMissingCredentials = errors.New("missing required credentials")
