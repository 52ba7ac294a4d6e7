package console_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/aretw0/botflow/pkg/adapters/console"
	"github.com/aretw0/botflow/pkg/domain"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bot = domain.Bot{ID: "shop", Name: "Shop"}

func TestGateway_PlainText(t *testing.T) {
	var buf bytes.Buffer
	g := console.New(&buf, console.WithColorProfile(termenv.Ascii), console.WithBotLabel())
	ctx := context.Background()

	require.NoError(t, g.SendText(ctx, bot, "u", "Hello **Ana**"))
	require.NoError(t, g.SendTypingIndicator(ctx, bot, "u", true))
	require.NoError(t, g.SendTypingIndicator(ctx, bot, "u", false))

	assert.Equal(t, "Shop:\nHello **Ana**\n...\n", buf.String())
}

func TestGateway_CardAndQuickReplies(t *testing.T) {
	var buf bytes.Buffer
	g := console.New(&buf, console.WithColorProfile(termenv.Ascii))
	ctx := context.Background()

	require.NoError(t, g.SendCard(ctx, bot, "u", domain.CardMessage{
		Title:    "Plans",
		Subtitle: "Pick one",
		Buttons: []domain.Button{
			{Title: "Docs", Kind: domain.ButtonURL, URL: "https://example.com"},
			{Title: "Pro", Kind: domain.ButtonBlock, BlockID: "pro"},
		},
	}))
	require.NoError(t, g.SendQuickReplies(ctx, bot, "u", domain.QuickReplyMessage{
		Text:    "Continue?",
		Replies: []domain.QuickReply{{Title: "Yes", Payload: "yes"}, {Title: "No", Payload: "No"}},
	}))

	out := buf.String()
	assert.Contains(t, out, "Plans\nPick one\n[ Docs ] -> https://example.com\n[ Pro ] -> block pro")
	assert.Contains(t, out, "Continue?\n[ Yes ]  [ No ]")
}

func TestGateway_Renderer(t *testing.T) {
	var buf bytes.Buffer
	g := console.New(&buf, console.WithColorProfile(termenv.Ascii), console.WithRenderer(func(md string) (string, error) {
		return "\n<" + strings.ToUpper(md) + ">\n\n", nil
	}))
	require.NoError(t, g.SendText(context.Background(), bot, "u", "hi"))
	assert.Equal(t, "<HI>\n", buf.String())
}

func TestGateway_Image(t *testing.T) {
	var buf bytes.Buffer
	g := console.New(&buf, console.WithColorProfile(termenv.Ascii))
	require.NoError(t, g.SendImage(context.Background(), bot, "u", "https://img/x.png"))
	assert.Contains(t, buf.String(), "[image]")
	assert.Contains(t, buf.String(), "https://img/x.png")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	console.PrintBanner(&buf)
	assert.Contains(t, buf.String(), "|_.__/")
}
