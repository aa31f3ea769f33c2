package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	telegram "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-word-keeper/pkg/bot/pending"
	"github.com/smith3v/tg-word-keeper/pkg/db"
	"github.com/smith3v/tg-word-keeper/pkg/explain"
	"github.com/smith3v/tg-word-keeper/pkg/internal/testutil"
	"github.com/smith3v/tg-word-keeper/pkg/logger"
)

type fakeExplainer struct {
	explanation explain.Explanation
	err         error
	calls       []string
}

func (f *fakeExplainer) Explain(ctx context.Context, word string) (explain.Explanation, error) {
	f.calls = append(f.calls, word)
	return f.explanation, f.err
}

func (f *fakeExplainer) Suggest(ctx context.Context, known []string) (explain.Explanation, error) {
	return f.explanation, f.err
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	handler   *Handler
	store     *db.Store
	explainer *fakeExplainer
	pending   *pending.Store
	clock     *testClock
	client    *mockClient
	bot       *telegram.Bot
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	logger.SetLogLevel(logger.ERROR)

	clock := newTestClock()
	store := testutil.SetupTestStore(t, db.WithClock(clock.Now))
	explainer := &fakeExplainer{}
	pendingStore := pending.NewStore(time.Hour, clock.Now)
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	client := newMockClient()

	return &testEnv{
		handler:   New(store, explainer, pendingStore, opts...),
		store:     store,
		explainer: explainer,
		pending:   pendingStore,
		clock:     clock,
		client:    client,
		bot:       newTestTelegramBot(t, client),
	}
}

func (e *testEnv) addWord(t *testing.T, userID int64, word, definition string) int64 {
	t.Helper()
	id, err := e.store.AddWord(context.Background(), userID, word, definition, nil)
	if err != nil {
		t.Fatalf("failed to add word %q: %v", word, err)
	}
	return id
}

type recordedRequest struct {
	path        string
	method      string
	contentType string
	body        []byte
}

type mockClient struct {
	requests []recordedRequest
	response string
}

func newMockClient() *mockClient {
	return &mockClient{
		response: `{"ok":true,"result":{}}`,
	}
}

func (m *mockClient) Do(req *http.Request) (*http.Response, error) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if err := req.Body.Close(); err != nil {
		return nil, fmt.Errorf("failed to close request body: %w", err)
	}
	m.requests = append(m.requests, recordedRequest{
		path:        req.URL.Path,
		method:      req.Method,
		contentType: req.Header.Get("Content-Type"),
		body:        body,
	})

	resp := &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(m.response)),
		Header:     make(http.Header),
	}
	return resp, nil
}

func (m *mockClient) lastMessageText(t *testing.T) string {
	t.Helper()
	value, _ := m.lastMultipartField(t, "text")
	return value
}

func (m *mockClient) lastMultipartField(t *testing.T, fieldName string) (string, string) {
	t.Helper()
	if len(m.requests) == 0 {
		t.Fatalf("expected at least one recorded request")
	}
	value, fileName, ok := multipartField(t, m.requests[len(m.requests)-1], fieldName)
	if !ok {
		t.Fatalf("field %q not found in request", fieldName)
	}
	return value, fileName
}

// lastRequestTo returns the latest call of a Bot API method.
func (m *mockClient) lastRequestTo(t *testing.T, method string) recordedRequest {
	t.Helper()
	for i := len(m.requests) - 1; i >= 0; i-- {
		if strings.HasSuffix(m.requests[i].path, "/"+method) {
			return m.requests[i]
		}
	}
	t.Fatalf("no %s request recorded", method)
	return recordedRequest{}
}

func (m *mockClient) countRequests(method string) int {
	count := 0
	for _, req := range m.requests {
		if strings.HasSuffix(req.path, "/"+method) {
			count++
		}
	}
	return count
}

func (m *mockClient) fieldOf(t *testing.T, method, fieldName string) string {
	t.Helper()
	value, _, ok := multipartField(t, m.lastRequestTo(t, method), fieldName)
	if !ok {
		t.Fatalf("field %q not found in %s request", fieldName, method)
	}
	return value
}

func multipartField(t *testing.T, req recordedRequest, fieldName string) (string, string, bool) {
	t.Helper()
	mediaType, params, err := mime.ParseMediaType(req.contentType)
	if err != nil {
		t.Fatalf("failed to parse media type: %v", err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		t.Fatalf("unexpected media type: %s", mediaType)
	}

	reader := multipart.NewReader(bytes.NewReader(req.body), params["boundary"])
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("failed to read multipart part: %v", err)
		}
		if part.FormName() == fieldName {
			data, err := io.ReadAll(part)
			if err != nil {
				t.Fatalf("failed to read multipart field: %v", err)
			}
			return string(data), part.FileName(), true
		}
	}
	return "", "", false
}

func newTestTelegramBot(t *testing.T, client *mockClient) *telegram.Bot {
	t.Helper()
	b, err := telegram.New("test-token",
		telegram.WithSkipGetMe(),
		telegram.WithHTTPClient(time.Second, client),
	)
	if err != nil {
		t.Fatalf("failed to create test bot: %v", err)
	}
	return b
}

func newTestUpdate(text string, userID int64) *models.Update {
	return &models.Update{
		Message: &models.Message{
			From: &models.User{
				ID: userID,
			},
			Chat: models.Chat{
				ID: userID,
			},
			Text: text,
		},
	}
}

func newTestDocumentUpdate(fileName, fileID string, userID int64) *models.Update {
	return &models.Update{
		Message: &models.Message{
			From: &models.User{
				ID: userID,
			},
			Chat: models.Chat{
				ID:   userID,
				Type: models.ChatTypePrivate,
			},
			Document: &models.Document{
				FileID:   fileID,
				FileName: fileName,
			},
		},
	}
}

func newTestCallbackUpdate(data string, userID, chatID int64, messageID int) *models.Update {
	return &models.Update{
		CallbackQuery: &models.CallbackQuery{
			ID:   "callback-1",
			From: models.User{ID: userID},
			Data: data,
			Message: models.MaybeInaccessibleMessage{
				Type: models.MaybeInaccessibleMessageTypeMessage,
				Message: &models.Message{
					ID: messageID,
					Chat: models.Chat{
						ID:   chatID,
						Type: models.ChatTypePrivate,
					},
				},
			},
		},
	}
}
