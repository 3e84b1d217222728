// Package classify detects short conversational queries that need no retrieval.
package classify

import "strings"

// Category is the kind of conversational query.
type Category string

const (
	None        Category = ""
	Greeting    Category = "greeting"
	HowAreYou   Category = "how_are_you"
	WhatDoYouDo Category = "what_do_you_do"
	Goodbye     Category = "goodbye"
)

// maxGeneralWords bounds the length of a conversational query.
const maxGeneralWords = 3

type phraseSet struct {
	category Category
	phrases  []string
	wordSets bool // also match on an equal set of words
}

// Phrases are stored normalized: lower case, no trailing punctuation.
// Four-word entries ("how are you doing", "what is your purpose") are kept
// from the canonical list but are unreachable under maxGeneralWords.
var table = []phraseSet{
	{Greeting, []string{"hi", "hello", "hey", "greetings", "good morning", "good afternoon", "good evening"}, true},
	{HowAreYou, []string{"how are you", "how are you doing", "how's it going", "what's up"}, false},
	{WhatDoYouDo, []string{"what do you do", "what are you", "who are you", "what is your purpose", "what can you do"}, false},
	{Goodbye, []string{"bye", "goodbye", "see you", "farewell", "take care"}, true},
}

var responses = map[Category]string{
	Greeting:    "Hello! I'm your AI Paralegal assistant. How can I help you today?",
	HowAreYou:   "I'm functioning well and ready to assist you with legal research and document analysis. How can I help you?",
	WhatDoYouDo: "I am an AI Paralegal assistant specialized in analyzing legal documents and precedents. I can help you understand legal documents, extract relevant information from case files, and answer questions based on legal precedents. Just upload your documents and I'll assist you with the analysis.",
	Goodbye:     "Goodbye! Feel free to return if you need any assistance with legal document analysis.",
}

const fallbackResponse = "I'm here to help you analyze legal documents and answer your questions. Would you like to upload some documents?"

// PhraseClassifier matches queries against a fixed table of conversational phrases.
// Stateless and safe for concurrent use.
type PhraseClassifier struct{}

// New creates a phrase classifier.
func New() *PhraseClassifier { return &PhraseClassifier{} }

// Classify reports whether query is conversational and its category.
// Queries of more than three words are never conversational.
func (PhraseClassifier) Classify(query string) (bool, Category) {
	q := normalize(query)
	words := strings.Fields(q)
	if len(words) == 0 || len(words) > maxGeneralWords {
		return false, None
	}

	for _, ps := range table {
		for _, p := range ps.phrases {
			if q == p {
				return true, ps.category
			}
		}
	}

	for _, ps := range table {
		if !ps.wordSets {
			continue
		}
		for _, p := range ps.phrases {
			if sameWordSet(words, strings.Fields(p)) {
				return true, ps.category
			}
		}
	}
	return false, None
}

// Response returns the canned answer for a category.
func Response(c Category) string {
	if r, ok := responses[c]; ok {
		return r
	}
	return fallbackResponse
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.TrimSpace(strings.TrimRight(s, "?!.,"))
}

func sameWordSet(a, b []string) bool {
	sa := toSet(a)
	sb := toSet(b)
	if len(sa) != len(sb) {
		return false
	}
	for w := range sa {
		if _, ok := sb[w]; !ok {
			return false
		}
	}
	return true
}

func toSet(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
