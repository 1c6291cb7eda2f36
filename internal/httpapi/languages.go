package httpapi

import (
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

type languageOption struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// languageCodes are the target languages offered in the UI. The backends
// accept any ISO 639-1 code; this list just drives the dropdown.
var languageCodes = []string{
	"en", "es", "fr", "de", "it", "pt", "ru", "ja", "ko", "zh",
	"ar", "hi", "nl", "pl", "sv", "tr", "uk", "vi", "cs", "da",
	"fi", "el", "he", "hu", "id", "no", "ro", "th",
}

func supportedLanguages() []languageOption {
	namer := display.English.Languages()
	ret := make([]languageOption, 0, len(languageCodes)+1)
	ret = append(ret, languageOption{Code: "auto", Name: "Auto-detect"})
	for _, code := range languageCodes {
		tag := language.Make(code)
		ret = append(ret, languageOption{Code: code, Name: namer.Name(tag)})
	}
	return ret
}
