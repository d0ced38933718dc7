package webserver

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/alchemorsel/kitchen/internal/domain/content"
	"github.com/alchemorsel/kitchen/internal/domain/recipe"
	"github.com/alchemorsel/kitchen/internal/infrastructure/cache"
	"github.com/alchemorsel/kitchen/internal/infrastructure/config"
	"github.com/alchemorsel/kitchen/internal/infrastructure/monitoring"
	"github.com/alchemorsel/kitchen/internal/platform/i18n"
	"github.com/alchemorsel/kitchen/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAssistant(t *testing.T) (*Assistant, *testutils.FakeRecipeAPI, *i18n.Localizer) {
	t.Helper()
	api := testutils.NewFakeRecipeAPI(t)

	cfg := config.Default()
	cfg.API.BaseURL = api.URL()
	cfg.API.CacheTTL = 0

	logger := zap.NewNop()
	metrics := monitoring.NewMetricsCollector(logger)
	catalog, err := content.Load()
	require.NoError(t, err)
	bundle, err := i18n.LoadEmbedded("en", []string{"en", "ar"})
	require.NoError(t, err)

	client := NewAPIClient(cfg, cache.NewLocalCache(8), metrics, nil, logger)
	return NewAssistant(client, catalog, metrics, logger), api, bundle.Localizer("en")
}

func suggestionTitles(turn ChatTurn) []string {
	out := make([]string, 0, len(turn.Suggestions))
	for _, r := range turn.Suggestions {
		out = append(out, r.Title)
	}
	return out
}

func TestAssistant_Reply(t *testing.T) {
	feed := backendFeed("Chickpea curry", "Tomato soup", "Chickpea salad", "Roast chicken", "Rice pudding")

	tests := []struct {
		name    string
		feed    *recipe.Feed
		down    bool
		message string
		kind    string
		reply   string
		titles  []string
	}{
		{
			name:    "matching terms rank recipes",
			feed:    &feed,
			message: "Something with chickpea please",
			kind:    ReplyMatches,
			reply:   `Here are some recipes that match "Something with chickpea please":`,
			titles:  []string{"Chickpea curry", "Chickpea salad"},
		},
		{
			name:    "no match suggests the newest",
			feed:    &feed,
			message: "sushi",
			kind:    ReplyNewest,
			reply:   "I could not find a close match. Here are our newest recipes:",
			titles:  []string{"Chickpea curry", "Tomato soup", "Chickpea salad"},
		},
		{
			name:    "empty feed",
			feed:    &recipe.Feed{},
			message: "anything",
			kind:    ReplyEmpty,
			reply:   "No recipes yet",
		},
		{
			name:    "backend down answers from samples",
			down:    true,
			message: "curry",
			kind:    ReplyOffline,
			reply:   "I am offline right now, but here are some sample recipes:",
			titles:  []string{"Chickpea curry"},
		},
		{
			name:    "blank message",
			feed:    &feed,
			message: "   ",
			kind:    ReplyInvalid,
			reply:   "Please type a message.",
		},
		{
			name:    "message too long",
			feed:    &feed,
			message: strings.Repeat("a", maxMessageLength+1),
			kind:    ReplyInvalid,
			reply:   "Please type a message.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, api, l := newTestAssistant(t)
			if tt.feed != nil {
				api.SetFeed(testutils.PathAIRecipes, *tt.feed)
			}
			if tt.down {
				api.FailWith(testutils.PathAIRecipes, http.StatusServiceUnavailable)
			}

			turn, err := a.Reply(context.Background(), l, "htmx", tt.message)
			require.NoError(t, err)

			assert.Equal(t, tt.kind, turn.Kind)
			assert.Equal(t, tt.reply, turn.Reply)
			assert.NotEmpty(t, turn.ID)
			assert.False(t, turn.At.IsZero())
			if tt.titles == nil {
				assert.Empty(t, turn.Suggestions)
			} else {
				assert.Equal(t, tt.titles, suggestionTitles(turn))
			}
		})
	}
}

func TestAssistant_InvalidMessageSkipsBackend(t *testing.T) {
	a, api, l := newTestAssistant(t)

	_, err := a.Reply(context.Background(), l, "htmx", "")
	require.NoError(t, err)
	assert.Zero(t, api.Hits(testutils.PathAIRecipes))
}

func TestAssistant_CanceledTurn(t *testing.T) {
	a, _, l := newTestAssistant(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Reply(ctx, l, "websocket", "curry")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAssistant_Greeting(t *testing.T) {
	a, _, l := newTestAssistant(t)

	turn := a.Greeting(l)
	assert.Equal(t, ReplyGreeting, turn.Kind)
	assert.Empty(t, turn.Message)
	assert.Contains(t, turn.Reply, "Tell me what you feel like eating")
}

func TestAssistantPage(t *testing.T) {
	env := newTestEnv(t)

	doc := env.document(env.get("/assistant"))
	env.html.Attr(doc, "#chat", "data-socket", "/ws/assistant")
	env.html.Count(doc, "#chat-log .chat-turn", 1)
	env.html.Exists(doc, "#chat-log .chat-message.bot.greeting")
	env.html.Attr(doc, "#chat-form", "hx-post", "/htmx/assistant/messages")
}

func TestAssistantPage_WithoutWebSocket(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Features.EnableAssistantWebSocket = false
	})

	doc := env.document(env.get("/assistant"))
	env.html.Absent(doc, "#chat[data-socket]")
	assert.Equal(t, http.StatusNotFound, env.get("/ws/assistant").Code)
}

func TestHTMXAssistantMessage(t *testing.T) {
	env := newTestEnv(t)
	env.api.SetFeed(testutils.PathAIRecipes, backendFeed("Chickpea curry", "Tomato soup"))

	rec := env.htmx(http.MethodPost, "/htmx/assistant/messages", url.Values{"message": {"tomato"}})
	require.Equal(t, http.StatusOK, rec.Code)

	doc := env.document(rec)
	env.html.Text(doc, ".chat-message.user", "tomato")
	env.html.Exists(doc, ".chat-message.bot.matches")
	assert.Equal(t, []string{"Tomato soup"}, env.html.Texts(doc, ".suggestions .recipe-card h3"))
}

func TestHTMXAssistantMessage_EscapesInput(t *testing.T) {
	env := newTestEnv(t)

	rec := env.htmx(http.MethodPost, "/htmx/assistant/messages", url.Values{"message": {"<b>pasta</b>"}})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.NotContains(t, rec.Body.String(), "<b>pasta</b>")
	env.html.Text(env.document(rec), ".chat-message.user p", "<b>pasta</b>")
}
