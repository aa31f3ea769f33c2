// Package format renders model output for Telegram's HTML parse mode.
package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

	codeBlockRe   = regexp.MustCompile("(?s)```(?:\\w+)?\\n?(.*?)```")
	inlineCodeRe  = regexp.MustCompile("`([^`\\n]+)`")
	boldStarRe    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	boldUnderRe   = regexp.MustCompile(`__(.+?)__`)
	italicStarRe  = regexp.MustCompile(`(^|[^\w*])\*([^*\n]+?)\*($|[^\w*])`)
	italicUnderRe = regexp.MustCompile(`(^|[^\w_])_([^_\n]+?)_($|[^\w_])`)
	strikeRe      = regexp.MustCompile(`~~(.+?)~~`)
	linkRe        = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
	headerRe      = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
	placeholderRe = regexp.MustCompile(`\x00(\d+)\x00`)
)

// EscapeHTML escapes the characters Telegram treats as markup.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// MarkdownToHTML converts the Markdown subset language models produce into
// Telegram HTML. Code spans are left untouched by the other rules.
func MarkdownToHTML(text string) string {
	if text == "" {
		return text
	}
	text = EscapeHTML(text)

	var protected []string
	protect := func(html string) string {
		protected = append(protected, html)
		return fmt.Sprintf("\x00%d\x00", len(protected)-1)
	}

	text = codeBlockRe.ReplaceAllStringFunc(text, func(m string) string {
		return protect("<pre>" + codeBlockRe.FindStringSubmatch(m)[1] + "</pre>")
	})
	text = inlineCodeRe.ReplaceAllStringFunc(text, func(m string) string {
		return protect("<code>" + inlineCodeRe.FindStringSubmatch(m)[1] + "</code>")
	})

	text = boldStarRe.ReplaceAllString(text, "<b>$1</b>")
	text = boldUnderRe.ReplaceAllString(text, "<b>$1</b>")
	text = replaceRepeated(italicStarRe, text, "${1}<i>${2}</i>${3}")
	text = replaceRepeated(italicUnderRe, text, "${1}<i>${2}</i>${3}")
	text = strikeRe.ReplaceAllString(text, "<s>$1</s>")
	text = linkRe.ReplaceAllString(text, `<a href="$2">$1</a>`)
	text = headerRe.ReplaceAllString(text, "<b>$1</b>")

	return placeholderRe.ReplaceAllStringFunc(text, func(m string) string {
		idx, err := strconv.Atoi(placeholderRe.FindStringSubmatch(m)[1])
		if err != nil || idx >= len(protected) {
			return m
		}
		return protected[idx]
	})
}

// replaceRepeated applies re until the text stops changing. Neighbouring
// matches share a delimiter character, so one pass can miss every second one.
func replaceRepeated(re *regexp.Regexp, text, repl string) string {
	for i := 0; i < 4; i++ {
		next := re.ReplaceAllString(text, repl)
		if next == text {
			break
		}
		text = next
	}
	return text
}
