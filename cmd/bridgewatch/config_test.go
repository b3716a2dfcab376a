package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sky-follower-bridge/bridgewatch/watch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	cli "github.com/urfave/cli/v2"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"BLUESKY_USERNAME", "BLUESKY_PASSWORD", "OPENAI_API_KEY", "GEMINI_API_KEY",
		"SLACK_WEBHOOK_URL", "SLACK_BOT_TOKEN", "SLACK_CHANNEL_ID", "BRIDGEWATCH_QUERIES",
		"BRIDGEWATCH_LLM_PROVIDER", "BRIDGEWATCH_READONLY", "READONLY",
	} {
		// Setenv restores the original value on cleanup
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

// withRunContext parses args with the run command's flags and hands the
// resulting context to fn.
func withRunContext(t *testing.T, args []string, fn func(cctx *cli.Context) error) error {
	app := &cli.App{
		Name:   "bridgewatch-test",
		Flags:  runCmd.Flags,
		Action: fn,
	}
	return app.Run(append([]string{"bridgewatch-test"}, args...))
}

var validArgs = []string{
	"--username", "bot.test",
	"--password", "app-pass",
	"--openai-api-key", "sk-test",
	"--slack-webhook-url", "https://hooks.example/T/B/X",
}

func TestLoadRunConfigDefaults(t *testing.T) {
	clearEnv(t)
	assert := assert.New(t)

	err := withRunContext(t, validArgs, func(cctx *cli.Context) error {
		rc, err := loadRunConfig(cctx, &fileConfig{})
		require.NoError(t, err)
		assert.Equal("https://bsky.social", rc.Social.Host)
		assert.Equal("bot.test", rc.Social.Identifier)
		assert.Equal(100, rc.Social.SearchLimit)
		assert.Equal("openai", rc.Classifier.Provider)
		assert.Equal("sk-test", rc.Classifier.APIKey)
		assert.Equal(35*time.Minute, rc.Watch.SearchSkew)
		assert.Equal(300, rc.Watch.SeedFloor)
		assert.Equal(watch.DefaultQueries, rc.Watch.Queries)
		assert.Equal(watch.DefaultReference, rc.Watch.Reference)
		assert.True(rc.Watch.CheckReplies)
		assert.False(rc.ReadOnly)
		return nil
	})
	require.NoError(t, err)
}

func TestLoadRunConfigMissingCredentials(t *testing.T) {
	clearEnv(t)

	cases := [][]string{
		{"--password", "p", "--openai-api-key", "k", "--slack-webhook-url", "u"},
		{"--username", "u", "--password", "p", "--slack-webhook-url", "u"},
		{"--username", "u", "--password", "p", "--openai-api-key", "k"},
		{"--username", "u", "--password", "p", "--openai-api-key", "k", "--slack-bot-token", "xoxb"},
		{"--username", "u", "--password", "p", "--llm-provider", "gemini", "--openai-api-key", "k", "--slack-webhook-url", "u"},
	}
	for _, args := range cases {
		err := withRunContext(t, args, func(cctx *cli.Context) error {
			_, err := loadRunConfig(cctx, &fileConfig{})
			return err
		})
		assert.ErrorIs(t, err, errMissingCredentials, args)
	}

	// readonly runs don't need slack
	args := []string{"--username", "u", "--password", "p", "--openai-api-key", "k", "--readonly"}
	err := withRunContext(t, args, func(cctx *cli.Context) error {
		_, err := loadRunConfig(cctx, &fileConfig{})
		return err
	})
	assert.NoError(t, err)
}

func TestConfigFileOverlay(t *testing.T) {
	clearEnv(t)
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "bridgewatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
queries:
  - "sky follower bridge"
  - "skyfollowerbridge"
spam_domains:
  - skyfollowerbridge.com
  - sky-follower-bridge.net
reference:
  link_title: "Sky Follower Bridge (official)"
`), 0o644))

	fc, err := loadFileConfig(path)
	require.NoError(t, err)

	err = withRunContext(t, validArgs, func(cctx *cli.Context) error {
		rc, err := loadRunConfig(cctx, fc)
		require.NoError(t, err)
		assert.Equal([]string{"sky follower bridge", "skyfollowerbridge"}, rc.Watch.Queries)
		assert.Equal([]string{"skyfollowerbridge.com", "sky-follower-bridge.net"}, rc.Classifier.SpamDomains)
		assert.Equal("Sky Follower Bridge (official)", rc.Watch.Reference.LinkTitle)
		assert.Equal(watch.DefaultReference.QuoteURI, rc.Watch.Reference.QuoteURI)
		return nil
	})
	require.NoError(t, err)

	// explicit flags win over the file
	args := append([]string{"--query", "bsky bridge"}, validArgs...)
	err = withRunContext(t, args, func(cctx *cli.Context) error {
		rc, err := loadRunConfig(cctx, fc)
		require.NoError(t, err)
		assert.Equal([]string{"bsky bridge"}, rc.Watch.Queries)
		return nil
	})
	require.NoError(t, err)

	_, err = loadFileConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(err)
}
