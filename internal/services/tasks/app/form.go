package app

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"mime"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/louisbranch/offline-tasks/internal/platform/htmlescape"
	apperrors "github.com/louisbranch/offline-tasks/internal/services/tasks/platform/errors"
	"github.com/louisbranch/offline-tasks/internal/services/tasks/sse"
)

const (
	maxFormBytes  = 64 << 10
	maxTitleRunes = 500
)

type formField struct {
	Key   string
	Value string
}

// form is a request body in field order.
type form []formField

// Get returns the first value for key.
func (f form) Get(key string) (string, bool) {
	for _, field := range f {
		if field.Key == key {
			return field.Value, true
		}
	}
	return "", false
}

// GetOrFirst returns the value for key, or the first field when key is absent.
func (f form) GetOrFirst(key string) (string, bool) {
	if value, ok := f.Get(key); ok {
		return value, true
	}
	if len(f) == 0 {
		return "", false
	}
	return f[0].Value, true
}

// readForm parses a urlencoded body keeping field order. JSON bodies sent by
// datastar are read as signals, ordered by key.
func readForm(r *http.Request) (form, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		signals, err := sse.ReadSignals(r, maxFormBytes)
		if errors.Is(err, sse.ErrBodyTooLarge) {
			return nil, apperrors.E(apperrors.KindInvalidInput, "request body too large")
		}
		if err != nil {
			return nil, apperrors.E(apperrors.KindInvalidInput, "malformed request body")
		}
		out := make(form, 0, len(signals))
		for _, key := range slices.Sorted(maps.Keys(signals)) {
			if s, ok := signals[key].(string); ok {
				out = append(out, formField{Key: key, Value: s})
			}
		}
		return out, nil
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxFormBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read form body: %w", err)
	}
	if len(raw) > maxFormBytes {
		return nil, apperrors.E(apperrors.KindInvalidInput, "request body too large")
	}
	var out form
	for _, pair := range strings.Split(string(raw), "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		key, err1 := url.QueryUnescape(key)
		value, err2 := url.QueryUnescape(value)
		if err1 != nil || err2 != nil {
			return nil, apperrors.E(apperrors.KindInvalidInput, "malformed form body")
		}
		out = append(out, formField{Key: key, Value: value})
	}
	return out, nil
}

// sanitizeTitle escapes free text for storage. Blank titles are rejected but
// the submitted text is stored as given.
func sanitizeTitle(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", apperrors.E(apperrors.KindInvalidInput, "title is required")
	}
	if !utf8.ValidString(raw) {
		return "", apperrors.E(apperrors.KindInvalidInput, "title must be valid UTF-8")
	}
	if utf8.RuneCountInString(raw) > maxTitleRunes {
		return "", apperrors.E(apperrors.KindInvalidInput, fmt.Sprintf("title must be at most %d characters", maxTitleRunes))
	}
	return htmlescape.Escape(raw), nil
}

// taskID reads the id query parameter.
func taskID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		return "", apperrors.E(apperrors.KindInvalidInput, "task id is required")
	}
	return id, nil
}
