package utils

import (
	"github.com/abadojack/whatlanggo"
)

var whatLangOpts = whatlanggo.Options{
	Whitelist: map[whatlanggo.Lang]bool{
		whatlanggo.Eng: true,
		whatlanggo.Rus: true,
		whatlanggo.Cmn: true,
		whatlanggo.Fra: true,
		whatlanggo.Spa: true,
		whatlanggo.Deu: true,
		whatlanggo.Jpn: true,
		whatlanggo.Kor: true,
	},
}

// WhatLang returns the ISO 639-1 code of the detected language, or an
// empty string when detection is not confident enough to be useful.
func WhatLang(query string) string {
	info := whatlanggo.DetectWithOptions(query, whatLangOpts)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}
