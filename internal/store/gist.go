package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"giveaway/internal/models"

	"github.com/tidwall/gjson"
)

// GistOptions configures a GistStore.
type GistOptions struct {
	BaseURL string // GitHub API root, e.g. https://api.github.com
	GistID  string
	Token   string
	File    string // file inside the gist holding the document
	Client  *http.Client
}

// GistStore keeps the snapshot as a file in a GitHub gist.
type GistStore struct {
	opts GistOptions
}

// NewGistStore validates opts and returns a store. No request is made until Load or Save.
func NewGistStore(opts GistOptions) (*GistStore, error) {
	if opts.GistID == "" || opts.Token == "" {
		return nil, errors.New("gist id and token are required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.github.com"
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.File == "" {
		opts.File = "event.json"
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 10 * time.Second}
	}
	return &GistStore{opts: opts}, nil
}

func (s *GistStore) url() string {
	return s.opts.BaseURL + "/gists/" + s.opts.GistID
}

func (s *GistStore) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+s.opts.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
	resp, err := s.opts.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("github responded %s", resp.Status)
	}
	return body, nil
}

// Load fetches the gist and decodes its file. A missing or empty file is an empty store.
func (s *GistStore) Load(ctx context.Context) (models.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url(), nil)
	if err != nil {
		return models.DefaultSnapshot(), fmt.Errorf("build gist request: %w", err)
	}
	body, err := s.do(req)
	if err != nil {
		return models.DefaultSnapshot(), fmt.Errorf("fetch gist %s: %w", s.opts.GistID, err)
	}
	if !gjson.ValidBytes(body) {
		return models.DefaultSnapshot(), fmt.Errorf("fetch gist %s: malformed response", s.opts.GistID)
	}

	content := gjson.GetBytes(body, "files."+escapePath(s.opts.File)+".content")
	if !content.Exists() || strings.TrimSpace(content.String()) == "" {
		return models.DefaultSnapshot(), nil
	}
	return decodeGistContent(content.String())
}

// Save replaces the gist file's content.
func (s *GistStore) Save(ctx context.Context, snap models.Snapshot) error {
	data, err := models.EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(map[string]any{
		"files": map[string]any{
			s.opts.File: map[string]string{"content": string(data)},
		},
	})
	if err != nil {
		return fmt.Errorf("encode gist payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, s.url(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build gist request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if _, err := s.do(req); err != nil {
		return fmt.Errorf("update gist %s: %w", s.opts.GistID, err)
	}
	return nil
}

// Close is a no-op.
func (s *GistStore) Close() error {
	return nil
}

// decodeGistContent reads a snapshot document. It also accepts the older
// {"events": {channelId: {...}}} layout keyed by channel, taking the first event found.
func decodeGistContent(content string) (models.Snapshot, error) {
	if !gjson.Valid(content) {
		return models.DefaultSnapshot(), errors.New("decode snapshot: invalid json")
	}
	events := gjson.Get(content, "events")
	if !events.Exists() {
		return models.DecodeSnapshot([]byte(content))
	}

	snap := models.DefaultSnapshot()
	events.ForEach(func(channelID, ev gjson.Result) bool {
		snap.Active = true
		snap.ScopeID = ev.Get("channelId").String()
		if snap.ScopeID == "" {
			snap.ScopeID = channelID.String()
		}
		snap.EndTime = time.UnixMilli(ev.Get("endTime").Int()).UTC()
		snap.WinnersCount = int(ev.Get("winnersCount").Int())
		snap.Prize = ev.Get("prize").String()
		snap.MultiplierRoleID = ev.Get("multiplierRoleId").String()
		snap.MultiplierWeight = int(ev.Get("multiplierCount").Int())
		ev.Get("participants").ForEach(func(id, weight gjson.Result) bool {
			snap.Entries[id.String()] = int(weight.Int())
			return true
		})
		return false
	})
	snap.Normalize()
	return snap, nil
}

// escapePath escapes gjson path metacharacters in a single key.
func escapePath(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '\\', '.', '*', '?', '|', '#', '@', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
