package ui

import (
	"errors"
	"strconv"
	"strings"
)

const (
	DictionaryPrefix   = "dict:"
	SavePrefix         = "save:"
	NoopData           = "noop"
	MaxCallbackDataLen = 64
)

type Kind string

const (
	KindNoop   Kind = "noop"
	KindSave   Kind = "save"
	KindPage   Kind = "page"
	KindView   Kind = "view"
	KindDelete Kind = "del"
	KindRandom Kind = "random"
	KindStats  Kind = "stats"
)

// Action is a decoded inline button press. Value carries a page number or a
// word id; Token carries a pending explanation token.
type Action struct {
	Kind  Kind
	Value int64
	Token string
}

var (
	errInvalidPrefix       = errors.New("invalid callback prefix")
	errInvalidAction       = errors.New("invalid callback action")
	errInvalidValue        = errors.New("invalid callback value")
	errCallbackDataTooLong = errors.New("callback data too long")
)

func BuildSaveCallback(token string) (string, error) {
	if token == "" || strings.Contains(token, ":") {
		return "", errInvalidValue
	}
	return validateCallbackData(SavePrefix + token)
}

func BuildPageCallback(page int) (string, error) {
	if page < 0 {
		return "", errInvalidValue
	}
	return buildValueCallback(KindPage, int64(page))
}

func BuildViewCallback(wordID int64) (string, error) {
	return buildValueCallback(KindView, wordID)
}

func BuildDeleteCallback(wordID int64) (string, error) {
	return buildValueCallback(KindDelete, wordID)
}

func BuildRandomCallback() (string, error) {
	return validateCallbackData(DictionaryPrefix + string(KindRandom))
}

func BuildStatsCallback() (string, error) {
	return validateCallbackData(DictionaryPrefix + string(KindStats))
}

func ParseCallbackData(data string) (Action, error) {
	if data == "" {
		return Action{}, errInvalidAction
	}
	if len(data) > MaxCallbackDataLen {
		return Action{}, errCallbackDataTooLong
	}
	if data == NoopData {
		return Action{Kind: KindNoop}, nil
	}
	if token, ok := strings.CutPrefix(data, SavePrefix); ok {
		if token == "" || strings.Contains(token, ":") {
			return Action{}, errInvalidValue
		}
		return Action{Kind: KindSave, Token: token}, nil
	}

	rest, ok := strings.CutPrefix(data, DictionaryPrefix)
	if !ok {
		return Action{}, errInvalidPrefix
	}
	parts := strings.Split(rest, ":")
	switch len(parts) {
	case 1:
		switch Kind(parts[0]) {
		case KindRandom:
			return Action{Kind: KindRandom}, nil
		case KindStats:
			return Action{Kind: KindStats}, nil
		default:
			return Action{}, errInvalidAction
		}
	case 2:
		kind := Kind(parts[0])
		if kind != KindPage && kind != KindView && kind != KindDelete {
			return Action{}, errInvalidAction
		}
		if !isASCIIUnsignedInt(parts[1]) {
			return Action{}, errInvalidValue
		}
		value, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return Action{}, errInvalidValue
		}
		return Action{Kind: kind, Value: value}, nil
	default:
		return Action{}, errInvalidAction
	}
}

func buildValueCallback(kind Kind, value int64) (string, error) {
	if value < 0 {
		return "", errInvalidValue
	}
	data := DictionaryPrefix + string(kind) + ":" + strconv.FormatInt(value, 10)
	return validateCallbackData(data)
}

func validateCallbackData(data string) (string, error) {
	if data == "" {
		return "", errInvalidAction
	}
	if len(data) > MaxCallbackDataLen {
		return "", errCallbackDataTooLong
	}
	return data, nil
}

func isASCIIUnsignedInt(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return false
		}
	}
	return true
}
