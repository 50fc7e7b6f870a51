// Package phone нормализует телефонные номера получателей WhatsApp.
//
// Z-API принимает номер в полном международном формате без плюса и
// пробелов ("5511999998888"). Backend же присылает номера в разных
// видах: с плюсом, со скобками, как JID "5511999998888@s.whatsapp.net".
// Нормализация делается один раз при постановке в очередь, чтобы dedup
// по recipient не разъезжался из-за форматирования.
package phone

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidNumber — номер не разбирается как поддерживаемый.
var ErrInvalidNumber = errors.New("invalid phone number")

// jidRe — WhatsApp JID вида "5511999998888@s.whatsapp.net".
var jidRe = regexp.MustCompile(`^(\d+)@s\.whatsapp\.net$`)

// Number — разобранный номер.
type Number struct {
	// DDI — код страны ("55" Бразилия, "1" США/Канада).
	DDI string
	// DDD — региональный код (для BR — 2 цифры, для US — 3).
	DDD string
	// Subscriber — номер абонента без кодов.
	Subscriber string
}

// String возвращает канонический вид: DDI + DDD + номер, только цифры.
func (n Number) String() string {
	return n.DDI + n.DDD + n.Subscriber
}

// Normalize приводит номер к каноническому виду для отправки.
func Normalize(raw string) (string, error) {
	n, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return n.String(), nil
}

// Parse разбирает номер в любом из принимаемых форматов.
//
// Поддерживаются бразильские номера (55 + DDD + 8/9 цифр, итого 12-13)
// и североамериканские (1 + area code + 7 цифр, итого 11).
func Parse(raw string) (Number, error) {
	digits := strip(raw)
	if digits == "" {
		return Number{}, fmt.Errorf("%w: %q", ErrInvalidNumber, raw)
	}

	switch {
	case strings.HasPrefix(digits, "55") && (len(digits) == 12 || len(digits) == 13):
		return Number{DDI: "55", DDD: digits[2:4], Subscriber: digits[4:]}, nil
	case strings.HasPrefix(digits, "1") && len(digits) == 11:
		return Number{DDI: "1", DDD: digits[1:4], Subscriber: digits[4:]}, nil
	default:
		return Number{}, fmt.Errorf("%w: %q", ErrInvalidNumber, raw)
	}
}

// strip извлекает цифры номера: снимает JID-суффикс, плюс
// и форматирующие символы.
func strip(raw string) string {
	s := strings.TrimSpace(raw)

	if m := jidRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
			// форматирование, пропускаем
		default:
			return ""
		}
	}
	return b.String()
}
