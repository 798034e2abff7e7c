package classifier

import (
	"bufio"
	"context"
	"os"
	"regexp"
	"strings"

	"ledgerchat/internal/core"
)

// Rules is the local fallback classifier: regex amount extraction plus
// keyword matching for intent, type and category. It never fails on
// well-formed text, so the chat loop stays usable when the NLP service is
// unreachable.
type Rules struct {
	patterns []pattern
}

// pattern maps example phrases to a category, loaded from a "text,category"
// line file.
type pattern struct {
	words    []string
	category string
}

var amountRE = regexp.MustCompile(`[₹$€]?\s?(\d{1,3}(?:,\d{3})*(?:\.\d{1,2})?|\d+)`)

var (
	incomeWords  = []string{"received", "credited", "bonus", "salary", "earned", "income", "got paid"}
	expenseWords = []string{"paid", "spent", "bought", "bill", "purchase", "debit"}
	resetWords   = []string{"reset", "clear everything", "delete everything", "start over", "wipe"}
	goalWords    = []string{"budget", "goal", "limit", "save up"}
	queryWords   = []string{"balance", "how much", "left", "summary", "report", "breakdown", "highest", "biggest", "most expensive", "insight", "show me"}
)

func newRules(patterns []pattern) *Rules {
	return &Rules{patterns: patterns}
}

// NewRulesFromFile loads category patterns from a comma-separated
// "text,category" file; missing files fall back to a small built-in set.
func NewRulesFromFile(path string) *Rules {
	pats := readPatterns(path)
	if len(pats) == 0 {
		pats = defaultPatterns()
	}
	return newRules(pats)
}

func (r *Rules) Classify(_ context.Context, message string) (Classification, error) {
	text := strings.TrimSpace(message)
	if text == "" {
		return Classification{}, ErrClassification
	}
	lower := strings.ToLower(text)

	out := Classification{
		Intent:       IntentTransaction,
		OriginalText: text,
		Amount:       extractAmount(text),
		Type:         determineType(lower),
	}

	switch {
	case containsAny(lower, resetWords):
		out.Intent = IntentReset
		return out, nil
	case containsAny(lower, goalWords):
		out.Intent = IntentBudgetGoal
		out.Category = r.matchCategory(lower)
		return out, nil
	case containsAny(lower, queryWords):
		out.Intent = IntentQuery
		out.QueryType = determineQueryType(lower)
		return out, nil
	}

	out.Category = r.matchCategory(lower)
	if out.Category == "" {
		if out.Type.IsIncome() {
			out.Category = "Income"
		} else {
			out.Category = "Uncategorized"
		}
	}
	return out, nil
}

// extractAmount finds the first currency-looking number. Zero means the
// amount could not be read.
func extractAmount(text string) core.Money {
	m := amountRE.FindStringSubmatch(text)
	if m == nil {
		return core.Money{}
	}
	cents, err := core.ParseDecimalToCents(m[1])
	if err != nil {
		return core.Money{}
	}
	return core.Money{Cents: cents}
}

// determineType defaults to Expense when unsure.
func determineType(lower string) core.TxType {
	if containsAny(lower, incomeWords) {
		return core.Income
	}
	return core.Expense
}

func determineQueryType(lower string) string {
	switch {
	case strings.Contains(lower, "highest") || strings.Contains(lower, "biggest") || strings.Contains(lower, "most expensive"):
		return QueryHighestExpense
	case strings.Contains(lower, "report") || strings.Contains(lower, "breakdown"):
		return QueryReport
	case strings.Contains(lower, "insight"):
		return QueryInsight
	default:
		return QueryBalance
	}
}

// matchCategory scores patterns by word overlap with the message and keeps
// the best match. Empty string means no pattern matched.
func (r *Rules) matchCategory(lower string) string {
	words := strings.Fields(lower)
	in := make(map[string]bool, len(words))
	for _, w := range words {
		in[strings.Trim(w, ".,!?")] = true
	}

	best := ""
	bestScore := 0
	for _, p := range r.patterns {
		score := 0
		for _, w := range p.words {
			if in[w] {
				score++
			}
		}
		if score > bestScore {
			best = p.category
			bestScore = score
		}
	}
	return best
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func readPatterns(path string) []pattern {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var out []pattern
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.LastIndex(line, ",")
		if idx <= 0 || idx == len(line)-1 {
			continue
		}
		text := strings.ToLower(strings.TrimSpace(line[:idx]))
		category := strings.TrimSpace(line[idx+1:])
		out = append(out, pattern{words: strings.Fields(text), category: category})
	}
	return out
}

func defaultPatterns() []pattern {
	raw := []struct{ text, category string }{
		{"food lunch dinner breakfast groceries restaurant pizza snacks", "Food"},
		{"bus train taxi uber fuel petrol metro cab transport", "Transport"},
		{"rent electricity water maintenance house", "Housing"},
		{"movie netflix game concert party entertainment", "Entertainment"},
		{"medicine doctor hospital pharmacy health", "Health"},
		{"clothes shoes shopping amazon flipkart", "Shopping"},
		{"salary bonus freelance refund interest", "Income"},
	}
	out := make([]pattern, 0, len(raw))
	for _, r := range raw {
		out = append(out, pattern{words: strings.Fields(r.text), category: r.category})
	}
	return out
}
