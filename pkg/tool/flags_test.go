// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package tool

import (
	"flag"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestParseFlags(t *testing.T) {
	type Values struct {
		Passes   ListFlag
		Chances  PercentFlag
		Strategy string
	}
	tests := []struct {
		args string
		vals *Values
	}{
		{"", &Values{Strategy: "pipeline"}},
		{"-passes=a,b,,c", &Values{Passes: ListFlag{"a", "b", "c"}, Strategy: "pipeline"}},
		{"-chances=x=1,y=100 -strategy=bandit", &Values{
			Chances:  PercentFlag{"x": 1, "y": 100},
			Strategy: "bandit",
		}},
		{"-chances=x=101", nil},
		{"-chances=x", nil},
		{"-passes=a -passes=b", nil},
	}
	for _, test := range tests {
		vals := new(Values)
		flags := flag.NewFlagSet("", flag.ContinueOnError)
		flags.SetOutput(io.Discard)
		flags.Var(&vals.Passes, "passes", "")
		flags.Var(&vals.Chances, "chances", "")
		flags.StringVar(&vals.Strategy, "strategy", "pipeline", "")
		var args []string
		if test.args != "" {
			args = strings.Split(test.args, " ")
		}
		err := flags.Parse(args)
		if test.vals == nil {
			assert.Error(t, err, "args: %q", test.args)
			continue
		}
		assert.NoError(t, err, "args: %q", test.args)
		if diff := cmp.Diff(test.vals, vals); diff != "" {
			t.Errorf("args: %q\n%v", test.args, diff)
		}
	}
}

func TestPercentFlagString(t *testing.T) {
	p := PercentFlag{"b": 2, "a": 1}
	assert.Equal(t, "a=1,b=2", p.String())
}
