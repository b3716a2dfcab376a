package main

import (
	"fmt"
	"os"

	"github.com/sky-follower-bridge/bridgewatch/classifier"
	"github.com/sky-follower-bridge/bridgewatch/notify"
	"github.com/sky-follower-bridge/bridgewatch/social"
	"github.com/sky-follower-bridge/bridgewatch/watch"

	"github.com/adrg/xdg"
	cli "github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// fileConfig is the optional YAML overlay. Unset fields keep the built-in
// defaults, and explicitly set flags win over the file.
type fileConfig struct {
	Queries     []string         `yaml:"queries"`
	Reference   *watch.Reference `yaml:"reference"`
	SpamDomains []string         `yaml:"spam_domains"`
}

// configPath returns the --config value, or the first bridgewatch/config.yaml
// found in the XDG config directories.
func configPath(cctx *cli.Context) string {
	if p := cctx.String("config"); p != "" {
		return p
	}
	if p, err := xdg.SearchConfigFile("bridgewatch/config.yaml"); err == nil {
		return p
	}
	return ""
}

func loadFileConfig(path string) (*fileConfig, error) {
	fc := &fileConfig{}
	if path == "" {
		return fc, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return fc, nil
}

type runConfig struct {
	Social     social.Config
	Classifier classifier.Config
	Slack      notify.SlackConfig
	Watch      watch.Config
	ReadOnly   bool
}

func classifierConfig(cctx *cli.Context, fc *fileConfig) (classifier.Config, error) {
	cfg := classifier.DefaultConfig()
	cfg.Provider = cctx.String("llm-provider")
	cfg.Model = cctx.String("llm-model")
	cfg.RPS = cctx.Float64("llm-rate-limit")
	cfg.Language = cctx.String("language")
	switch cfg.Provider {
	case classifier.ProviderOpenAI:
		cfg.APIKey = cctx.String("openai-api-key")
		cfg.APIURL = cctx.String("openai-api-url")
		if cfg.APIKey == "" {
			return cfg, fmt.Errorf("%w: OPENAI_API_KEY", errMissingCredentials)
		}
	case classifier.ProviderGemini:
		cfg.APIKey = cctx.String("gemini-api-key")
		if cfg.APIKey == "" {
			return cfg, fmt.Errorf("%w: GEMINI_API_KEY", errMissingCredentials)
		}
	default:
		return cfg, fmt.Errorf("unknown llm provider: %q", cfg.Provider)
	}
	if len(fc.SpamDomains) > 0 {
		cfg.SpamDomains = fc.SpamDomains
	}
	return cfg, nil
}

// loadRunConfig assembles and validates everything a run needs, before any
// network call is made.
func loadRunConfig(cctx *cli.Context, fc *fileConfig) (*runConfig, error) {
	rc := &runConfig{
		ReadOnly: cctx.Bool("readonly"),
	}

	rc.Social = social.DefaultConfig()
	rc.Social.Host = cctx.String("pds-host")
	rc.Social.Identifier = cctx.String("username")
	rc.Social.Password = cctx.String("password")
	rc.Social.SearchLimit = cctx.Int("search-limit")
	rc.Social.SearchPages = cctx.Int("search-pages")
	rc.Social.LikePageSize = cctx.Int("like-page-size")
	if rc.Social.Identifier == "" || rc.Social.Password == "" {
		return nil, fmt.Errorf("%w: BLUESKY_USERNAME and BLUESKY_PASSWORD", errMissingCredentials)
	}

	ccfg, err := classifierConfig(cctx, fc)
	if err != nil {
		return nil, err
	}
	rc.Classifier = ccfg

	rc.Slack = notify.SlackConfig{
		WebhookURL: cctx.String("slack-webhook-url"),
		BotToken:   cctx.String("slack-bot-token"),
		ChannelID:  cctx.String("slack-channel-id"),
	}
	if !rc.ReadOnly {
		if err := rc.Slack.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", errMissingCredentials, err)
		}
	}

	rc.Watch = watch.DefaultConfig()
	rc.Watch.SearchSkew = cctx.Duration("search-skew")
	rc.Watch.SeedFloor = cctx.Int("seed-floor")
	rc.Watch.CheckReplies = cctx.Bool("check-replies")
	rc.Watch.NotifySummary = cctx.Bool("notify-summary")
	rc.Watch.Language = ccfg.Language
	if len(fc.Queries) > 0 {
		rc.Watch.Queries = fc.Queries
	}
	if cctx.IsSet("query") {
		rc.Watch.Queries = cctx.StringSlice("query")
	}
	if fc.Reference != nil {
		rc.Watch.Reference = mergeReference(watch.DefaultReference, *fc.Reference)
	}
	if len(rc.Watch.Queries) == 0 {
		return nil, fmt.Errorf("no search queries configured")
	}
	if rc.Watch.SeedFloor < 0 || rc.Watch.SearchSkew <= 0 {
		return nil, fmt.Errorf("invalid seed floor or search skew")
	}
	return rc, nil
}

func mergeReference(base, over watch.Reference) watch.Reference {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&base.ReplyText, over.ReplyText)
	set(&base.QuoteURI, over.QuoteURI)
	set(&base.QuoteCID, over.QuoteCID)
	set(&base.LinkURL, over.LinkURL)
	set(&base.LinkTitle, over.LinkTitle)
	set(&base.LinkDescription, over.LinkDescription)
	set(&base.ThumbURL, over.ThumbURL)
	return base
}
