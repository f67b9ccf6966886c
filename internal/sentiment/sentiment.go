// Package sentiment scores forum headlines for market mood.
package sentiment

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"HKQuant/internal/model"
)

// Analyzer scores text against a polarity lexicon.
type Analyzer struct {
	lexicon   map[string]float64
	negators  map[string]bool
	maxHanLen int

	// Aliases maps lower-cased names ("tencent", "騰訊") to stock codes.
	Aliases map[string]string
}

// NewAnalyzer returns an Analyzer with the built-in lexicon.
func NewAnalyzer(aliases map[string]string) *Analyzer {
	a := &Analyzer{lexicon: defaultLexicon, negators: defaultNegators, Aliases: map[string]string{}}
	for k, v := range aliases {
		a.Aliases[strings.ToLower(k)] = v
	}
	for term := range a.lexicon {
		a.maxHanLen = max(a.maxHanLen, len([]rune(term)))
	}
	return a
}

var defaultAnalyzer = NewAnalyzer(map[string]string{
	"騰訊": "0700", "tencent": "0700",
	"匯豐": "0005", "hsbc": "0005",
	"阿里": "9988", "alibaba": "9988",
	"美團": "3690", "meituan": "3690",
	"港交所": "0388", "hkex": "0388",
	"盈富": "2800", "tracker": "2800",
})

// Score returns the mood of text in [-1, 1] using the default analyzer.
func Score(text string) float64 { return defaultAnalyzer.Score(text) }

// Aggregate summarizes posts using the default analyzer.
func Aggregate(posts []model.ForumPost) Summary { return defaultAnalyzer.Aggregate(posts) }

// tokens splits text into lower-case ASCII words and lexicon-matched Han
// terms. Unmatched Han runes are dropped.
func (a *Analyzer) tokens(text string) []string {
	runes := []rune(strings.ToLower(text))
	var out []string
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			j := i
			for j < len(runes) && runes[j] < unicode.MaxASCII && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '\'') {
				j++
			}
			out = append(out, strings.ReplaceAll(string(runes[i:j]), "'", ""))
			i = j
		case unicode.Is(unicode.Han, r):
			n := a.matchHan(runes[i:])
			if n == 0 {
				i++
				continue
			}
			out = append(out, string(runes[i:i+n]))
			i += n
		default:
			i++
		}
	}
	return out
}

// matchHan returns the rune length of the longest lexicon or negator term
// at the start of runes, or 0.
func (a *Analyzer) matchHan(runes []rune) int {
	for n := min(a.maxHanLen, len(runes)); n > 0; n-- {
		term := string(runes[:n])
		if _, ok := a.lexicon[term]; ok {
			return n
		}
		if a.negators[term] {
			return n
		}
	}
	return 0
}

// Score returns the mean polarity of the sentiment terms in text, in
// [-1, 1]. A negator flips the next sentiment term. Text without sentiment
// terms scores 0.
func (a *Analyzer) Score(text string) float64 {
	var sum float64
	var terms int
	negate := false
	for _, tok := range a.tokens(text) {
		if a.negators[tok] {
			negate = !negate
			continue
		}
		w, ok := a.lexicon[tok]
		if !ok {
			continue
		}
		if negate {
			w = -w
			negate = false
		}
		sum += w
		terms++
	}
	if terms == 0 {
		return 0
	}
	return math.Max(-1, math.Min(1, sum/float64(terms)))
}

// Summary is the engagement-weighted mood of a set of posts.
type Summary struct {
	Posts    int            `json:"posts"`
	Score    float64        `json:"score"`
	Bullish  int            `json:"bullish"`
	Bearish  int            `json:"bearish"`
	Neutral  int            `json:"neutral"`
	Mentions map[string]int `json:"mentions"`
}

// Mood labels the aggregate score.
func (s Summary) Mood() string {
	switch {
	case s.Score >= 0.2:
		return "BULLISH"
	case s.Score <= -0.2:
		return "BEARISH"
	default:
		return "NEUTRAL"
	}
}

var codePattern = regexp.MustCompile(`\b\d{4,5}\b`)

// Aggregate weights each post's score by 1 + likes - dislikes, floored at 1.
func (a *Analyzer) Aggregate(posts []model.ForumPost) Summary {
	s := Summary{Posts: len(posts), Mentions: map[string]int{}}
	var weighted, totalWeight float64
	for _, p := range posts {
		score := a.Score(p.Title)
		w := math.Max(1, float64(1+p.Likes-p.Dislikes))
		weighted += score * w
		totalWeight += w
		switch {
		case score > 0:
			s.Bullish++
		case score < 0:
			s.Bearish++
		default:
			s.Neutral++
		}
		for code := range a.mentions(p.Title) {
			s.Mentions[code]++
		}
	}
	if totalWeight > 0 {
		s.Score = weighted / totalWeight
	}
	return s
}

// mentions returns the set of stock codes named in text, normalized to
// four digits where possible.
func (a *Analyzer) mentions(text string) map[string]struct{} {
	found := map[string]struct{}{}
	for _, m := range codePattern.FindAllString(text, -1) {
		code := strings.TrimLeft(m, "0")
		for len(code) < 4 {
			code = "0" + code
		}
		found[code] = struct{}{}
	}
	lower := strings.ToLower(text)
	for alias, code := range a.Aliases {
		if strings.Contains(lower, alias) {
			found[code] = struct{}{}
		}
	}
	return found
}
