// Package currency renders receipt amounts with locale grouping.
package currency

import (
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const maxFractionDigits = 2

var locales = map[string]language.Tag{
	"IDR": language.Indonesian,
}

type separators struct {
	group   string
	decimal string
}

var (
	sepMu    sync.Mutex
	sepCache = map[language.Tag]separators{}
)

// Format returns "<currency> <amount>". Sign prefixes for discount lines are up to the caller.
func Format(amount decimal.Decimal, currency string) string {
	currency = strings.TrimSpace(currency)
	if currency == "" {
		return Amount(amount, currency)
	}
	return currency + " " + Amount(amount, currency)
}

// Amount returns only the grouped number. Digits come from the decimal itself, the
// locale only decides the separators.
func Amount(amount decimal.Decimal, currency string) string {
	seps := separatorsFor(tagFor(currency))

	rounded := amount.Round(maxFractionDigits)
	digits := rounded.Abs().String()
	intPart, frac, _ := strings.Cut(digits, ".")

	var b strings.Builder
	if rounded.Sign() < 0 {
		b.WriteByte('-')
	}
	b.WriteString(group(intPart, seps.group))
	if frac != "" {
		b.WriteString(seps.decimal)
		b.WriteString(frac)
	}
	return b.String()
}

func group(digits, sep string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// separatorsFor reads the group and decimal symbols of tag off a formatted sample.
func separatorsFor(tag language.Tag) separators {
	sepMu.Lock()
	defer sepMu.Unlock()

	if s, ok := sepCache[tag]; ok {
		return s
	}
	sample := []rune(message.NewPrinter(tag).Sprintf("%v", number.Decimal(1234.5, number.MaxFractionDigits(1))))
	s := separators{group: ",", decimal: "."}
	// "1<group>234<decimal>5"
	if len(sample) == 7 {
		s = separators{group: string(sample[1]), decimal: string(sample[5])}
	}
	sepCache[tag] = s
	return s
}

func tagFor(currency string) language.Tag {
	if tag, ok := locales[strings.ToUpper(strings.TrimSpace(currency))]; ok {
		return tag
	}
	return language.English
}
