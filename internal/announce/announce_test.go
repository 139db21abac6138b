package announce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"giveaway/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultMessage(t *testing.T) {
	t.Run("no winners", func(t *testing.T) {
		msg := ResultMessage(models.ResolveResult{Prize: "Nitro"})
		assert.Contains(t, msg, "no one won")
	})

	t.Run("single winner", func(t *testing.T) {
		msg := ResultMessage(models.ResolveResult{Prize: "Nitro", Winners: []string{"42"}})
		assert.Contains(t, msg, "<@42>")
		assert.Contains(t, msg, "You won the **Nitro**")
	})

	t.Run("several winners", func(t *testing.T) {
		msg := ResultMessage(models.ResolveResult{Prize: "Nitro", Winners: []string{"1", "2"}})
		assert.Contains(t, msg, "<@1>, <@2>")
		assert.Contains(t, msg, "You all won")
	})

	t.Run("timer end has no notice", func(t *testing.T) {
		msg := ResultMessage(models.ResolveResult{Prize: "Nitro", Winners: []string{"42"}, Reason: models.ResolveTimer})
		assert.NotContains(t, msg, "ended early")
	})

	t.Run("manual end", func(t *testing.T) {
		msg := ResultMessage(models.ResolveResult{Prize: "Nitro", Winners: []string{"42"}, Reason: models.ResolveManual})
		assert.True(t, strings.HasPrefix(msg, EndedEarlyNotice+"\n"), msg)
		assert.Contains(t, msg, "<@42>")

		msg = ResultMessage(models.ResolveResult{Prize: "Nitro", Reason: models.ResolveManual})
		assert.True(t, strings.HasPrefix(msg, EndedEarlyNotice), msg)
		assert.Contains(t, msg, "no one won")
	})
}

func TestStartMessageHasRelativeTimestamp(t *testing.T) {
	end := time.Unix(1767225600, 0)
	msg := StartMessage(models.StartResult{Prize: "Nitro", WinnersCount: 1, EndTime: end})
	assert.Contains(t, msg, "<t:1767225600:R>")
}

func TestWebhookNotifier(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Content string `json:"content"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		got = append(got, body.Content)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, srv.Client())
	ctx := context.Background()

	require.NoError(t, n.LotteryStarted(ctx, models.StartResult{Prize: "Mug", WinnersCount: 2, EndTime: time.Now()}))
	require.NoError(t, n.LotteryResolved(ctx, models.ResolveResult{Prize: "Mug", Winners: []string{"7"}, LockScope: true}))

	require.Len(t, got, 2)
	assert.Contains(t, got[0], "THE EVENT HAS STARTED")
	assert.Contains(t, got[1], "<@7>")
}

func TestWebhookNotifierRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, nil)
	err := n.LotteryResolved(context.Background(), models.ResolveResult{})
	assert.Error(t, err)
}

func TestLogNotifierNeverFails(t *testing.T) {
	var n LogNotifier
	assert.NoError(t, n.LotteryStarted(context.Background(), models.StartResult{}))
	assert.NoError(t, n.LotteryResolved(context.Background(), models.ResolveResult{LockScope: true}))
}
