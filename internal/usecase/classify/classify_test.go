package classify

import "testing"

func TestClassify(t *testing.T) {
	c := New()

	tests := []struct {
		query    string
		general  bool
		category Category
	}{
		{"hello", true, Greeting},
		{"Hello!", true, Greeting},
		{"  HEY  ", true, Greeting},
		{"good morning.", true, Greeting},
		{"morning good", true, Greeting},
		{"How are you?", true, HowAreYou},
		{"how's it going?", true, HowAreYou},
		{"Who are you?", true, WhatDoYouDo},
		{"what is your purpose", false, None},
		{"bye", true, Goodbye},
		{"care take", true, Goodbye},
		{"you are how", false, None},
		{"hi there", false, None},
		{"", false, None},
		{"?!", false, None},
		{"summarize this case", false, None},
		{"hi what does section 302 say", false, None},
		{"hello hello hello hello", false, None},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			general, cat := c.Classify(tt.query)
			if general != tt.general || cat != tt.category {
				t.Errorf("Classify(%q) = (%v, %q), want (%v, %q)", tt.query, general, cat, tt.general, tt.category)
			}
		})
	}
}

func TestClassify_LongQueriesNeverGeneral(t *testing.T) {
	c := New()
	for _, q := range []string{
		// Four-word table phrases lose to the word limit and never match.
		"what is your purpose",
		"how are you doing",
		"hi can you help me",
		"what do you do here exactly",
		"good morning what is bail",
	} {
		if general, cat := c.Classify(q); general || cat != None {
			t.Errorf("Classify(%q) = (%v, %q), want (false, none)", q, general, cat)
		}
	}
}

func TestTableIsNormalized(t *testing.T) {
	for _, ps := range table {
		for _, p := range ps.phrases {
			if normalize(p) != p {
				t.Errorf("phrase %q is not normalized", p)
			}
		}
	}
}

func TestResponse(t *testing.T) {
	for _, ps := range table {
		if Response(ps.category) == fallbackResponse {
			t.Errorf("category %q has no canned response", ps.category)
		}
	}
	if Response(None) != fallbackResponse {
		t.Error("expected fallback response for None")
	}
}
