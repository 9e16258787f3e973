package telegram

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/roombot/core/config"

	tele "gopkg.in/telebot.v4"
)

const defaultLongPollTimeout = 10 * time.Second

// BuildPoller returns a webhook poller for run_mode webhook and a long poller otherwise.
func BuildPoller(tg coreconfig.TelegramConfig, hook coreconfig.WebhookConfig) tele.Poller {
	if strings.EqualFold(tg.RunMode, coreconfig.RunModeWebhook) {
		return &tele.Webhook{
			Listen:   fmt.Sprintf("%s:%d", hook.Listen, hook.Port),
			Endpoint: &tele.WebhookEndpoint{PublicURL: hook.URL},
		}
	}
	timeout := defaultLongPollTimeout
	if tg.LongPollTimeoutSeconds > 0 {
		timeout = time.Duration(tg.LongPollTimeoutSeconds) * time.Second
	}
	return &tele.LongPoller{Timeout: timeout}
}
