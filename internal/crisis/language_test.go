package crisis

import "testing"

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Language
	}{
		{"devanagari", "मुझे मदद चाहिए", LanguageHindi},
		{"devanagari mixed with latin", "help मुझे", LanguageHindi},
		{"plain english", "I feel fine today", LanguageEnglish},
		{"hinglish hint", "mujhe madad chahiye", LanguageHinglish},
		{"hinglish upper case", "MAR JAUNGA main", LanguageHinglish},
		{"hint inside word does not count", "standard procedure", LanguageEnglish},
		{"empty", "", LanguageEnglish},
		{"digits only", "112", LanguageEnglish},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectLanguage(tt.text); got != tt.want {
				t.Fatalf("DetectLanguage(%q) = %s, want %s", tt.text, got, tt.want)
			}
		})
	}
}
