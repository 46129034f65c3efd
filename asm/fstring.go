// Copyright 2014-2026 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

// An fstring is a substring of a source line being scanned.
type fstring struct {
	str string // the actual substring of interest
}

func newFstring(str string) fstring {
	return fstring{str}
}

func (l fstring) String() string {
	return l.str
}

func (l fstring) consume(n int) fstring {
	return fstring{l.str[n:]}
}

func (l fstring) trunc(n int) fstring {
	return fstring{l.str[:n]}
}

func (l fstring) isEmpty() bool {
	return len(l.str) == 0
}

func (l fstring) startsWith(fn func(c byte) bool) bool {
	return len(l.str) > 0 && fn(l.str[0])
}

func (l fstring) startsWithChar(c byte) bool {
	return len(l.str) > 0 && l.str[0] == c
}

func (l fstring) startsWithString(s string) bool {
	return len(l.str) >= len(s) && l.str[:len(s)] == s
}

func (l fstring) consumeWhitespace() fstring {
	return l.consume(l.scanWhile(whitespace))
}

func (l fstring) trimRight() fstring {
	n := len(l.str)
	for ; n > 0 && whitespace(l.str[n-1]); n-- {
	}
	return l.trunc(n)
}

func (l fstring) scanWhile(fn func(c byte) bool) int {
	i := 0
	for ; i < len(l.str) && fn(l.str[i]); i++ {
	}
	return i
}

func (l fstring) consumeWhile(fn func(c byte) bool) (consumed, remain fstring) {
	i := l.scanWhile(fn)
	return l.trunc(i), l.consume(i)
}

// quoteEnd returns the index of the quote closing the string that opens
// at s[i], or -1 if it is never closed. A single quote only opens a
// one-character literal, so a lone apostrophe (as in AF') is ordinary
// text and quoteEnd returns i.
func quoteEnd(s string, i int) int {
	if s[i] == '\'' {
		if i+2 < len(s) && s[i+2] == '\'' {
			return i + 2
		}
		return i
	}
	for j := i + 1; j < len(s); j++ {
		if s[j] == s[i] {
			return j
		}
	}
	return -1
}

// Consume characters up to the first occurrence of c that is not inside
// a quoted string. The open flag reports an unclosed string.
func (l fstring) consumeUntilUnquotedChar(c byte) (consumed, remain fstring, open bool) {
	i := 0
	for ; i < len(l.str); i++ {
		if l.str[i] == c {
			break
		}
		if stringQuote(l.str[i]) {
			j := quoteEnd(l.str, i)
			if j < 0 {
				return l, l.consume(len(l.str)), true
			}
			i = j
		}
	}
	return l.trunc(i), l.consume(i), false
}

func (l fstring) stripTrailingComment() fstring {
	lastNonWS := 0
	for i := 0; i < len(l.str); i++ {
		if comment(l.str[i]) {
			break
		}
		if stringQuote(l.str[i]) {
			j := quoteEnd(l.str, i)
			if j < 0 {
				lastNonWS = len(l.str)
				break
			}
			i = j
		}
		if !whitespace(l.str[i]) {
			lastNonWS = i + 1
		}
	}
	return l.trunc(lastNonWS)
}

//
// character helper functions
//

func whitespace(c byte) bool {
	return c == ' ' || c == '\t'
}

func wordChar(c byte) bool {
	return c != ' ' && c != '\t'
}

func alpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func decimal(c byte) bool {
	return (c >= '0' && c <= '9')
}

func comment(c byte) bool {
	return c == ';'
}

func hexadecimal(c byte) bool {
	return decimal(c) || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}

func binarynum(c byte) bool {
	return c == '0' || c == '1'
}

func identifierStartChar(c byte) bool {
	return alpha(c) || c == '_'
}

func identifierChar(c byte) bool {
	return alpha(c) || decimal(c) || c == '_'
}

func stringQuote(c byte) bool {
	return c == '"' || c == '\''
}
