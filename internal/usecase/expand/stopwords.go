package expand

// interrogatives are stripped from the front of short queries, first match wins.
var interrogatives = []string{"what", "where", "when", "how", "why", "who", "is", "are", "can", "do", "does"}

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "about", "above", "after", "again", "against", "all", "am", "an", "and", "any", "as", "at",
		"be", "because", "been", "before", "being", "below", "between", "both", "but", "by",
		"could", "did", "doing", "down", "during", "each", "few", "for", "from", "further",
		"had", "has", "have", "having", "he", "her", "here", "hers", "herself", "him", "himself", "his",
		"i", "if", "in", "into", "it", "its", "itself", "just", "me", "more", "most", "my", "myself",
		"no", "nor", "not", "now", "of", "off", "on", "once", "only", "or", "other", "our", "ours",
		"ourselves", "out", "over", "own", "please", "same", "she", "should", "so", "some", "such",
		"than", "that", "the", "their", "theirs", "them", "themselves", "then", "there", "these", "they",
		"this", "those", "through", "to", "too", "under", "until", "up", "very", "was", "we", "were",
		"which", "while", "whom", "will", "with", "would", "you", "your", "yours", "yourself", "yourselves",
	}
	m := make(map[string]struct{}, len(words)+len(interrogatives))
	for _, w := range words {
		m[w] = struct{}{}
	}
	for _, w := range interrogatives {
		m[w] = struct{}{}
	}
	return m
}()

// IsStopword reports whether w, lower-cased, is a function word.
func IsStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}
