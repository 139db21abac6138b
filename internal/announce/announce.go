// Package announce delivers lottery announcements to the chat platform.
package announce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"giveaway/internal/models"

	"github.com/google/logger"
)

// StartMessage renders the announcement posted when a lottery opens.
func StartMessage(res models.StartResult) string {
	return fmt.Sprintf("🎉 THE EVENT HAS STARTED 🎉\nPrize: **%s** (%d winner(s)). The event will end <t:%d:R> so, don't forget to participate before the deadline.",
		res.Prize, res.WinnersCount, res.EndTime.Unix())
}

// EndedEarlyNotice prefixes the result of a lottery an operator ended by hand.
const EndedEarlyNotice = "⚠️ The event was ended early by an administrator."

// ResultMessage renders the announcement posted when a lottery closes.
func ResultMessage(res models.ResolveResult) string {
	msg := winnersMessage(res)
	if res.Reason == models.ResolveManual {
		return EndedEarlyNotice + "\n" + msg
	}
	return msg
}

func winnersMessage(res models.ResolveResult) string {
	if len(res.Winners) == 0 {
		return "😢 Sadly, no one won the event :("
	}
	mentions := make([]string, len(res.Winners))
	for i, id := range res.Winners {
		mentions[i] = "<@" + id + ">"
	}
	if len(mentions) > 1 {
		return fmt.Sprintf("🎊 Congratulations %s! You all won the **%s**!! 🥳", strings.Join(mentions, ", "), res.Prize)
	}
	return fmt.Sprintf("🎊 Congratulations %s! You won the **%s**!! 🥳", mentions[0], res.Prize)
}

// LogNotifier writes announcements to the log. It is used when no webhook is configured.
type LogNotifier struct{}

// LotteryStarted logs the start announcement.
func (LogNotifier) LotteryStarted(_ context.Context, res models.StartResult) error {
	logger.Infof("[scope %s] %s", res.ScopeID, StartMessage(res))
	return nil
}

// LotteryResolved logs the result announcement and the lock instruction.
func (LogNotifier) LotteryResolved(_ context.Context, res models.ResolveResult) error {
	logger.Infof("[scope %s] %s", res.ScopeID, ResultMessage(res))
	if res.LockScope {
		logger.Infof("[scope %s] participation should now be locked", res.ScopeID)
	}
	return nil
}

// WebhookNotifier posts announcements to a Discord-compatible webhook.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier returns a notifier posting to url. A nil client gets a 10s timeout.
func NewWebhookNotifier(url string, client *http.Client) *WebhookNotifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookNotifier{url: url, client: client}
}

// LotteryStarted posts the start announcement.
func (w *WebhookNotifier) LotteryStarted(ctx context.Context, res models.StartResult) error {
	return w.post(ctx, StartMessage(res))
}

// LotteryResolved posts the result. A webhook cannot change channel permissions, so the lock
// instruction is only logged for an operator to act on.
func (w *WebhookNotifier) LotteryResolved(ctx context.Context, res models.ResolveResult) error {
	if res.LockScope {
		logger.Warningf("[scope %s] lock requested but the webhook notifier cannot edit permissions", res.ScopeID)
	}
	return w.post(ctx, ResultMessage(res))
}

func (w *WebhookNotifier) post(ctx context.Context, content string) error {
	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("post webhook: unexpected status %s", resp.Status)
	}
	return nil
}
