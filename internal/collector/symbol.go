package collector

import (
	"strings"
)

var indexAliases = map[string]string{
	"HSI":    "^HSI",
	"HSCEI":  "^HSCE",
	"HSTECH": "^HSTECH",
}

// hkCode extracts the numeric HKEX stock code from forms like "700",
// "00700", "0700.HK" or "700.hk". ok is false for non-HK symbols.
func hkCode(symbol string) (code string, ok bool) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.TrimSuffix(s, ".HK")
	if s == "" {
		return "", false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	s = strings.TrimLeft(s, "0")
	if s == "" {
		return "", false
	}
	return s, true
}

// YahooSymbol converts a symbol to Yahoo Finance form: HK stock codes are
// zero-padded to four digits ("0700.HK"), known indexes map to "^" tickers,
// anything else passes through upper-cased.
func YahooSymbol(symbol string) string {
	upper := strings.ToUpper(strings.TrimSpace(symbol))
	if alias, ok := indexAliases[upper]; ok {
		return alias
	}
	if code, ok := hkCode(symbol); ok {
		for len(code) < 4 {
			code = "0" + code
		}
		return code + ".HK"
	}
	return upper
}

// LongportSymbol converts a symbol to Longport form ("700.HK").
func LongportSymbol(symbol string) string {
	if code, ok := hkCode(symbol); ok {
		return code + ".HK"
	}
	return strings.ToUpper(strings.TrimSpace(symbol))
}
