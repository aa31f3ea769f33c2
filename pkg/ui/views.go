package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/smith3v/tg-word-keeper/pkg/db"
	"github.com/smith3v/tg-word-keeper/pkg/format"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	DictionaryPageSize = 5

	EmptyDictionaryText = "📚 Your dictionary is empty.\nSend me a word to get started!"
	SaveButtonText      = "💾 Save to dictionary"
	SavedButtonText     = "✅ Saved"

	dateLayout = "2006-01-02"
)

// Headword upper-cases a word for display and escapes it for HTML.
func Headword(word string) string {
	return format.EscapeHTML(cases.Upper(language.Und).String(word))
}

// RenderWordCard formats a headword with its HTML explanation.
func RenderWordCard(word, html string) string {
	return fmt.Sprintf("📖 <b>%s</b>\n\n%s", Headword(word), html)
}

func RenderSuggestion(word, html string) string {
	return "🔔 <b>Word of the day</b>\n\n" + RenderWordCard(word, html)
}

func RenderSaveKeyboard(token string) (*models.InlineKeyboardMarkup, error) {
	data, err := BuildSaveCallback(token)
	if err != nil {
		return nil, err
	}
	return singleButton(SaveButtonText, data), nil
}

func RenderSavedKeyboard() *models.InlineKeyboardMarkup {
	return singleButton(SavedButtonText, NoopData)
}

func RenderDeleteKeyboard(wordID int64) (*models.InlineKeyboardMarkup, error) {
	data, err := BuildDeleteCallback(wordID)
	if err != nil {
		return nil, err
	}
	return singleButton("🗑️ Delete", data), nil
}

// TotalPages is the number of dictionary pages needed for total words.
func TotalPages(total int64) int {
	return int((total + DictionaryPageSize - 1) / DictionaryPageSize)
}

// RenderDictionary builds one page of the dictionary: a button per word,
// navigation with a page/total label, then shortcuts to a random word and
// statistics. An empty dictionary has no keyboard.
func RenderDictionary(summary db.PageSummary, page int) (string, *models.InlineKeyboardMarkup, error) {
	if summary.Total == 0 {
		return EmptyDictionaryText, nil, nil
	}

	text := fmt.Sprintf("📚 <b>Your dictionary (%d words):</b>\n\nPick a word to read its meaning:", summary.Total)
	rows := make([][]models.InlineKeyboardButton, 0, len(summary.Words)+2)
	for _, w := range summary.Words {
		data, err := BuildViewCallback(w.ID)
		if err != nil {
			return "", nil, err
		}
		rows = append(rows, []models.InlineKeyboardButton{{Text: "📖 " + w.Word, CallbackData: data}})
	}

	var nav []models.InlineKeyboardButton
	if page > 0 {
		data, err := BuildPageCallback(page - 1)
		if err != nil {
			return "", nil, err
		}
		nav = append(nav, models.InlineKeyboardButton{Text: "⬅️", CallbackData: data})
	}
	nav = append(nav, models.InlineKeyboardButton{
		Text:         fmt.Sprintf("%d/%d", page+1, TotalPages(summary.Total)),
		CallbackData: NoopData,
	})
	if int64(page+1)*DictionaryPageSize < summary.Total {
		data, err := BuildPageCallback(page + 1)
		if err != nil {
			return "", nil, err
		}
		nav = append(nav, models.InlineKeyboardButton{Text: "➡️", CallbackData: data})
	}
	rows = append(rows, nav)

	randomData, err := BuildRandomCallback()
	if err != nil {
		return "", nil, err
	}
	statsData, err := BuildStatsCallback()
	if err != nil {
		return "", nil, err
	}
	rows = append(rows, []models.InlineKeyboardButton{
		{Text: "🎲 Random word", CallbackData: randomData},
		{Text: "📊 Statistics", CallbackData: statsData},
	})

	return text, &models.InlineKeyboardMarkup{InlineKeyboard: rows}, nil
}

func RenderRandom(w db.Word) (string, *models.InlineKeyboardMarkup, error) {
	text := fmt.Sprintf(
		"🎲 Random word to review:\n\n<b>%s</b>\n\n%s\n\nAdded: %s",
		Headword(w.Word),
		w.Definition,
		w.CreatedAt.UTC().Format(dateLayout),
	)
	data, err := BuildRandomCallback()
	if err != nil {
		return "", nil, err
	}
	return text, singleButton("🎲 Another word", data), nil
}

func RenderStats(stats db.Stats) string {
	return fmt.Sprintf(
		"📊 Your statistics:\n\n📚 Total words: %d\n📅 First word: %s\n🆕 Latest word: %s\n\nKeep it up! 🚀",
		stats.TotalWords,
		formatDate(stats.FirstWordDate),
		formatDate(stats.LastWordDate),
	)
}

// RenderWordList lists words with their definitions, one block per word.
func RenderWordList(title string, words []db.Word) string {
	var sb strings.Builder
	sb.WriteString(title)
	for _, w := range words {
		sb.WriteString("\n\n📖 <b>")
		sb.WriteString(Headword(w.Word))
		sb.WriteString("</b>\n")
		sb.WriteString(w.Definition)
	}
	return sb.String()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "no data"
	}
	return t.UTC().Format(dateLayout)
}

func singleButton(text, data string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: text, CallbackData: data}},
		},
	}
}
