package importexport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-word-keeper/pkg/logger"
)

const MaxImportSize = 2 << 20

var errFileTooLarge = errors.New("file is too large")

// Downloader fetches the bytes behind a Telegram file link.
type Downloader func(ctx context.Context, url string) ([]byte, error)

type Importer struct {
	store    WordAdder
	download Downloader
}

func NewImporter(store WordAdder, download Downloader) *Importer {
	if download == nil {
		download = httpDownload
	}
	return &Importer{store: store, download: download}
}

func (im *Importer) HandleDocument(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.Document == nil || update.Message.From == nil {
		logger.Error("invalid update in HandleDocument")
		return
	}
	chatID := update.Message.Chat.ID
	if chatID == 0 {
		logger.Error("chat ID is zero in HandleDocument")
		return
	}
	userID := update.Message.From.ID

	doc := update.Message.Document
	logger.Info("uploading file", "file_name", doc.FileName, "user_id", userID)

	reply := func(text string) {
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
			logger.Error("failed to send import reply", "user_id", userID, "error", err)
		}
	}

	if !strings.HasSuffix(strings.ToLower(doc.FileName), ".csv") {
		reply("The uploaded file is not a CSV. Please upload a valid CSV file.")
		return
	}
	if doc.FileSize > MaxImportSize {
		reply("The file is too large. Please split it into files under 2 MB.")
		return
	}

	file, err := b.GetFile(ctx, &bot.GetFileParams{FileID: doc.FileID})
	if err != nil {
		logger.Error("failed to get file", "user_id", userID, "error", err)
		reply("Failed to download the file. Please try again.")
		return
	}

	data, err := im.download(ctx, b.FileDownloadLink(file))
	if err != nil {
		logger.Error("failed to download file", "user_id", userID, "error", err)
		if errors.Is(err, errFileTooLarge) {
			reply("The file is too large. Please split it into files under 2 MB.")
			return
		}
		reply("Failed to read the CSV file. Please try again.")
		return
	}

	entries, skipped, err := ParseVocabularyCSV(data)
	if err != nil {
		logger.Error("failed to parse CSV file", "user_id", userID, "error", err)
		reply("Failed to read the CSV file. Please ensure it is in the correct format.")
		return
	}
	if len(entries) == 0 {
		reply("No valid words found to import.")
		return
	}

	imported, err := ImportWords(ctx, im.store, userID, entries)
	if err != nil {
		logger.Error("failed to import words", "user_id", userID, "imported", imported, "error", err)
		reply(fmt.Sprintf("Imported %d words before an error stopped the import. Please try again later.", imported))
		return
	}

	reply(fmt.Sprintf("Imported %d words, skipped %d rows.", imported, skipped))
}

func httpDownload(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImportSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxImportSize {
		return nil, errFileTooLarge
	}
	return data, nil
}
