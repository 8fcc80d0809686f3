// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package tool

import (
	"bytes"
	"strings"

	dmp "github.com/sergi/go-diff/diffmatchpatch"
)

// Diff returns a line diff of two texts, lines prefixed with "-", "+" or " ".
// Runs of more than context unchanged lines are collapsed into "...".
func Diff(from, to []byte, context int) string {
	differ := dmp.New()
	chars1, chars2, lines := differ.DiffLinesToChars(string(from), string(to))
	diffs := differ.DiffCharsToLines(differ.DiffMain(chars1, chars2, false), lines)
	buf := new(bytes.Buffer)
	for i, d := range diffs {
		text := strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n")
		switch d.Type {
		case dmp.DiffDelete:
			writeLines(buf, "-", text)
		case dmp.DiffInsert:
			writeLines(buf, "+", text)
		case dmp.DiffEqual:
			if len(text) <= 2*context {
				writeLines(buf, " ", text)
				continue
			}
			if i != 0 {
				writeLines(buf, " ", text[:context])
			}
			buf.WriteString("...\n")
			if i != len(diffs)-1 {
				writeLines(buf, " ", text[len(text)-context:])
			}
		}
	}
	return buf.String()
}

func writeLines(buf *bytes.Buffer, prefix string, lines []string) {
	for _, line := range lines {
		buf.WriteString(prefix)
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
}
