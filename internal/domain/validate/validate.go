// Package validate checks and normalizes single slot values.
package validate

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"telegram-phone-sales/internal/domain/catalog"
	"telegram-phone-sales/internal/domain/model"
)

const (
	nameMinLen = 2
	nameMaxLen = 20
)

// Replies that answer a yes/no prompt rather than supply a name.
var genericReplies = map[string]struct{}{
	"да":      {},
	"нет":     {},
	"конечно": {},
	"хорошо":  {},
	"ок":      {},
}

// ValidatePhone normalizes a Russian mobile number to +7XXXXXXXXXX.
// On failure the error is a model.ErrorTag.
func ValidatePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	n := len(digits)

	if n < 3 {
		return "", model.ErrorTag{Kind: model.TagTooShort}
	}
	switch digits[0] {
	case '7', '8':
		if n != 11 {
			return "", model.ErrorTag{Kind: model.TagWrongLength, Expected: 11, Got: n}
		}
		return "+7" + digits[1:], nil
	case '9':
		if n != 10 {
			return "", model.ErrorTag{Kind: model.TagWrongLength, Expected: 10, Got: n}
		}
		return "+7" + digits, nil
	default:
		return "", model.ErrorTag{Kind: model.TagInvalidPrefix}
	}
}

// ValidateName accepts a trimmed name of 2..20 letters that is not a product,
// a specification or a generic affirmative/negative reply.
func ValidateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	reject := model.ErrorTag{Kind: model.TagNameValidationError}

	if l := utf8.RuneCountInString(name); l < nameMinLen || l > nameMaxLen {
		return "", reject
	}
	if strings.IndexFunc(name, unicode.IsDigit) >= 0 {
		return "", reject
	}
	if _, ok := catalog.ClassifyProduct(name); ok {
		return "", reject
	}
	if catalog.IsSpecificationText(name) {
		return "", reject
	}
	if _, ok := genericReplies[strings.ToLower(name)]; ok {
		return "", reject
	}
	return name, nil
}
