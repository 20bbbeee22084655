// Package telegram builds the Bot API client used by the order flow.
package telegram

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// ErrNoToken is returned by Offline for every call.
var ErrNoToken = errors.New("telegram: bot token is not configured")

// pollTimeout only applies to getUpdates, which this service never calls.
const pollTimeout = time.Minute

// NewBot creates a Bot API client rooted at serverURL. getMe is skipped so
// startup does not depend on Telegram being reachable. A nil httpClient uses
// http.DefaultClient; request deadlines come from the call context.
func NewBot(serverURL, token string, httpClient *http.Client) (*bot.Bot, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return bot.New(token,
		bot.WithServerURL(strings.TrimRight(serverURL, "/")),
		bot.WithHTTPClient(pollTimeout, redactingClient{httpClient}),
		bot.WithSkipGetMe(),
	)
}

// redactingClient unwraps *url.Error so transport failures do not carry the
// request URL, which embeds the bot token.
type redactingClient struct {
	c *http.Client
}

func (r redactingClient) Do(req *http.Request) (*http.Response, error) {
	resp, err := r.c.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return nil, urlErr.Err
		}
	}
	return resp, err
}

// Offline stands in for the Bot API when no token is configured.
type Offline struct{}

func (Offline) CreateInvoiceLink(context.Context, *bot.CreateInvoiceLinkParams) (string, error) {
	return "", ErrNoToken
}

func (Offline) SendMessage(context.Context, *bot.SendMessageParams) (*models.Message, error) {
	return nil, ErrNoToken
}
