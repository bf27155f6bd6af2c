package entity

import (
	"regexp"
	"strings"

	"stock_tracker/internal/feature/tracker/domain"
)

var symbolPattern = regexp.MustCompile(`^(sh|sz)\d{6}$`)

// IsValidSymbol は銘柄コードが {sh|sz}{6桁数字} 形式かを判定します。大文字小文字を区別します。
func IsValidSymbol(s string) bool {
	return symbolPattern.MatchString(s)
}

// ValidateSymbol returns a *domain.ValidationError for malformed symbols.
func ValidateSymbol(s string) error {
	if !IsValidSymbol(s) {
		return &domain.ValidationError{Symbol: s}
	}
	return nil
}

// ParseSeed はカンマ区切りの銘柄文字列を分割し、形式チェックを通過したものだけを順序を保って返します。
// 不正なエントリと重複は黙って捨てます。
func ParseSeed(seed string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, part := range strings.Split(seed, ",") {
		s := strings.TrimSpace(part)
		if !IsValidSymbol(s) {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
