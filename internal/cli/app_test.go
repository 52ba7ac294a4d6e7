package cli_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/botflow/internal/cli"
	"github.com/aretw0/botflow/internal/config"
	"github.com/aretw0/botflow/internal/logging"
	"github.com/aretw0/botflow/pkg/adapters/sqlite"
	"github.com/aretw0/botflow/pkg/dispatch"
	"github.com/aretw0/botflow/pkg/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const supportBot = `
bot:
  id: support
  platform: web
blocks:
  - id: signup
    triggers: [signup]
    cards:
      - type: userInput
        prompt: "Your email?"
        variableName: email
        nextBlockId: done
  - id: done
    cards:
      - type: text
        text: "Welcome aboard {{email}}"
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())
	require.NoError(t, os.Mkdir("bots", 0o755))
	require.NoError(t, os.WriteFile(filepath.Join("bots", "support.yaml"), []byte(supportBot), 0o644))

	cfg, err := config.Load(viper.New(), "")
	require.NoError(t, err)
	cfg.Store.Driver = config.DriverMemory
	return cfg
}

func submit(t *testing.T, app *cli.App, sender, text string) domain.Result {
	t.Helper()
	bot, err := app.Repo.GetBot(context.Background(), "support")
	require.NoError(t, err)
	res, err := app.Turns.Submit(context.Background(), dispatch.Request{Bot: *bot, SenderID: sender, Message: text})
	require.NoError(t, err)
	return res
}

func TestBuild_RecorderGateway(t *testing.T) {
	cfg := testConfig(t)
	app, err := cli.Build(context.Background(), cfg, logging.NewNop(), nil)
	require.NoError(t, err)
	defer app.Close()

	require.NotNil(t, app.Recorder)
	assert.True(t, submit(t, app, "u1", "signup").Success)
	assert.True(t, submit(t, app, "u1", "me@example.com").Success)
	assert.Equal(t, []string{"Your email?", "Welcome aboard me@example.com"}, app.Recorder.Texts("u1"))

	assert.Equal(t, 2.0, sumCounter(t, app, "botflow_turns_total"))
}

func sumCounter(t *testing.T, app *cli.App, name string) float64 {
	t.Helper()
	families, err := app.Registry.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestBuild_RedisWithEncryption(t *testing.T) {
	mr := miniredis.RunT(t)
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	cfg := testConfig(t)
	cfg.Store.Driver = config.DriverRedis
	cfg.Store.RedisAddr = mr.Addr()
	cfg.Store.EncryptionKey = base64.StdEncoding.EncodeToString(key)

	app, err := cli.Build(context.Background(), cfg, logging.NewNop(), nil)
	require.NoError(t, err)
	defer app.Close()

	submit(t, app, "u2", "signup")
	submit(t, app, "u2", "secret@example.com")

	raw, err := mr.Get(cfg.Store.RedisPrefix + domain.SessionKey("support", "u2"))
	require.NoError(t, err)
	assert.NotContains(t, raw, "secret@example.com")

	s, err := app.Sessions.Load(context.Background(), domain.SessionKey("support", "u2"))
	require.NoError(t, err)
	email, _ := s.Context.Get("email")
	assert.Equal(t, "secret@example.com", email)
}

func TestBuild_SQLiteAnalyticsRedactsPII(t *testing.T) {
	cfg := testConfig(t)
	cfg.Analytics.SQLitePath = filepath.Join(t.TempDir(), "analytics.db")
	cfg.Analytics.RedactPII = true

	app, err := cli.Build(context.Background(), cfg, logging.NewNop(), nil)
	require.NoError(t, err)
	submit(t, app, "u3", "signup")
	submit(t, app, "u3", "pii@example.com")
	require.NoError(t, app.Close())

	db, err := sqlite.Open(cfg.Analytics.SQLitePath)
	require.NoError(t, err)
	defer db.Close()

	msgs, err := db.Messages(context.Background(), "support", "u3")
	require.NoError(t, err)
	require.NotEmpty(t, msgs)
	for _, m := range msgs {
		assert.NotContains(t, m.Content, "pii@example.com")
	}

	c, err := db.Contact(context.Background(), "support", "u3")
	require.NoError(t, err)
	assert.Equal(t, 2, c.MessageCount)
}

func TestBuild_FileStorePersistsAcrossApps(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = config.DriverFile
	cfg.Store.Dir = filepath.Join(t.TempDir(), "sessions")

	first, err := cli.Build(context.Background(), cfg, logging.NewNop(), nil)
	require.NoError(t, err)
	submit(t, first, "u4", "signup")
	require.NoError(t, first.Close())

	second, err := cli.Build(context.Background(), cfg, logging.NewNop(), nil)
	require.NoError(t, err)
	defer second.Close()
	submit(t, second, "u4", "later@example.com")
	assert.Equal(t, []string{"Welcome aboard later@example.com"}, second.Recorder.Texts("u4"))
}

func TestBuild_Errors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = "etcd"
	_, err := cli.Build(context.Background(), cfg, logging.NewNop(), nil)
	assert.ErrorContains(t, err, "unknown store driver")

	cfg = testConfig(t)
	cfg.BotsDir = "missing"
	_, err = cli.Build(context.Background(), cfg, logging.NewNop(), nil)
	assert.Error(t, err)
}

func TestCloseDrainsQueuedTurns(t *testing.T) {
	cfg := testConfig(t)
	app, err := cli.Build(context.Background(), cfg, logging.NewNop(), nil)
	require.NoError(t, err)

	bot, err := app.Repo.GetBot(context.Background(), "support")
	require.NoError(t, err)
	require.NoError(t, app.Turns.Post(dispatch.Request{Bot: *bot, SenderID: "u5", Message: "signup"}))
	require.NoError(t, app.Close())

	assert.Equal(t, []string{"Your email?"}, app.Recorder.Texts("u5"))
}

func TestIgnoreInterrupt(t *testing.T) {
	assert.NoError(t, cli.IgnoreInterrupt(context.Canceled))
	assert.EqualError(t, cli.IgnoreInterrupt(assert.AnError), assert.AnError.Error())
}
