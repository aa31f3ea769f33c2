package importexport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
	"time"

	telegram "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-word-keeper/pkg/internal/testutil"
	"github.com/smith3v/tg-word-keeper/pkg/logger"
)

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
	if len(m.requests) == 0 {
		t.Fatalf("expected at least one recorded request")
	}
	req := m.requests[len(m.requests)-1]

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
		if part.FormName() == "text" {
			data, err := io.ReadAll(part)
			if err != nil {
				t.Fatalf("failed to read text part: %v", err)
			}
			return string(data)
		}
	}
	t.Fatalf("text field not found in request")
	return ""
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
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

type failingAdder struct {
	failAfter int
	calls     int
}

func (f *failingAdder) AddWord(ctx context.Context, userID int64, word, definition string, wordContext *string) (int64, error) {
	f.calls++
	if f.calls > f.failAfter {
		return 0, errors.New("disk full")
	}
	return int64(f.calls), nil
}

func staticDownload(body string) Downloader {
	return func(ctx context.Context, url string) ([]byte, error) {
		return []byte(body), nil
	}
}

func TestHandleDocumentRejectsNonCSVUpload(t *testing.T) {
	logger.SetLogLevel(logger.ERROR)

	client := newMockClient()
	b := newTestTelegramBot(t, client)
	update := newTestDocumentUpdate("words.txt", "file-1", 101)

	NewImporter(&failingAdder{}, staticDownload("")).HandleDocument(context.Background(), b, update)

	got := client.lastMessageText(t)
	if !strings.Contains(got, "not a CSV") {
		t.Fatalf("expected non-CSV warning, got %q", got)
	}
	if len(client.requests) != 1 {
		t.Fatalf("expected no file lookup, got %d requests", len(client.requests))
	}
}

func TestHandleDocumentRejectsLargeUpload(t *testing.T) {
	logger.SetLogLevel(logger.ERROR)

	client := newMockClient()
	b := newTestTelegramBot(t, client)
	update := newTestDocumentUpdate("words.csv", "file-1", 101)
	update.Message.Document.FileSize = MaxImportSize + 1

	NewImporter(&failingAdder{}, staticDownload("")).HandleDocument(context.Background(), b, update)

	got := client.lastMessageText(t)
	if !strings.Contains(got, "too large") {
		t.Fatalf("expected size warning, got %q", got)
	}
}

func TestHandleDocumentImportsCSV(t *testing.T) {
	store := testutil.SetupTestStore(t)
	logger.SetLogLevel(logger.ERROR)

	originalTransport := http.DefaultTransport
	t.Cleanup(func() {
		http.DefaultTransport = originalTransport
	})

	var requestedPath string
	http.DefaultTransport = roundTripFunc(func(req *http.Request) (*http.Response, error) {
		requestedPath = req.URL.Path
		body := "word,definition,context\nHola,hello,Hola amigo\nadios,goodbye\n"
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     make(http.Header),
		}, nil
	})

	client := newMockClient()
	client.response = `{"ok":true,"result":{"file_path":"files/test.csv"}}`
	b := newTestTelegramBot(t, client)
	update := newTestDocumentUpdate("Words.CSV", "file-2", 500)

	NewImporter(store, nil).HandleDocument(context.Background(), b, update)

	got := client.lastMessageText(t)
	if !strings.Contains(got, "Imported 2 words, skipped 0 rows") {
		t.Fatalf("expected import confirmation, got %q", got)
	}
	if !strings.HasSuffix(requestedPath, "/files/test.csv") {
		t.Fatalf("expected download of the Telegram file path, got %q", requestedPath)
	}

	stats, err := store.UserStats(context.Background(), 500)
	if err != nil {
		t.Fatalf("failed to load stats: %v", err)
	}
	if stats.TotalWords != 2 {
		t.Fatalf("expected 2 stored words, got %d", stats.TotalWords)
	}
}

func TestHandleDocumentReportsPartialImport(t *testing.T) {
	logger.SetLogLevel(logger.ERROR)

	client := newMockClient()
	client.response = `{"ok":true,"result":{"file_path":"files/test.csv"}}`
	b := newTestTelegramBot(t, client)
	update := newTestDocumentUpdate("words.csv", "file-3", 501)

	adder := &failingAdder{failAfter: 1}
	NewImporter(adder, staticDownload("uno,one\ndos,two\ntres,three\n")).HandleDocument(context.Background(), b, update)

	got := client.lastMessageText(t)
	if !strings.Contains(got, "Imported 1 words before an error") {
		t.Fatalf("expected partial import message, got %q", got)
	}
	if adder.calls != 2 {
		t.Fatalf("expected import to stop at the failing row, got %d calls", adder.calls)
	}
}

func TestHandleDocumentNoValidRows(t *testing.T) {
	logger.SetLogLevel(logger.ERROR)

	client := newMockClient()
	client.response = `{"ok":true,"result":{"file_path":"files/test.csv"}}`
	b := newTestTelegramBot(t, client)
	update := newTestDocumentUpdate("words.csv", "file-4", 502)

	NewImporter(&failingAdder{}, staticDownload("word,definition\nonly-word,\n")).HandleDocument(context.Background(), b, update)

	got := client.lastMessageText(t)
	if !strings.Contains(got, "No valid words") {
		t.Fatalf("expected empty import message, got %q", got)
	}
}

func TestHTTPDownloadLimitsSize(t *testing.T) {
	originalTransport := http.DefaultTransport
	t.Cleanup(func() {
		http.DefaultTransport = originalTransport
	})
	http.DefaultTransport = roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(bytes.NewReader(make([]byte, MaxImportSize+10))),
			Header:     make(http.Header),
		}, nil
	})

	_, err := httpDownload(context.Background(), "https://example.invalid/file.csv")
	if !errors.Is(err, errFileTooLarge) {
		t.Fatalf("expected errFileTooLarge, got %v", err)
	}
}

func TestHTTPDownloadRejectsBadStatus(t *testing.T) {
	originalTransport := http.DefaultTransport
	t.Cleanup(func() {
		http.DefaultTransport = originalTransport
	})
	http.DefaultTransport = roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(strings.NewReader("")),
			Header:     make(http.Header),
		}, nil
	})

	if _, err := httpDownload(context.Background(), "https://example.invalid/file.csv"); err == nil {
		t.Fatalf("expected error for 404 download")
	}
}
