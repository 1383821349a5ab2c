// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// highlight.go - syntax highlighting for JSON and Markdown output.

package cli

import (
	"io"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/muesli/termenv"
)

// writeHighlighted writes source to w, highlighted as language when colors
// are enabled and verbatim otherwise.
func writeHighlighted(w io.Writer, source, language string) error {
	if !ColorsEnabled() {
		_, err := io.WriteString(w, source)
		return err
	}
	return highlight(w, source, language, GetColorProfile())
}

func highlight(w io.Writer, source, language string, profile termenv.Profile) error {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("catppuccin-mocha")
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get(formatterFor(profile))
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		_, werr := io.WriteString(w, source)
		return werr
	}
	return formatter.Format(w, style, iterator)
}

// formatterFor picks the chroma terminal formatter for a color profile.
func formatterFor(profile termenv.Profile) string {
	switch profile {
	case termenv.TrueColor:
		return "terminal16m"
	case termenv.ANSI256:
		return "terminal256"
	case termenv.ANSI:
		return "terminal16"
	default:
		return "noop"
	}
}
