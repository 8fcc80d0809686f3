// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package tool

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ListFlag is a comma-separated list flag value, e.g. "-passes=a,b".
type ListFlag []string

func (l *ListFlag) String() string {
	return strings.Join(*l, ",")
}

func (l *ListFlag) Set(value string) error {
	if len(*l) > 0 {
		return errors.New("list flag was already set")
	}
	for _, elem := range strings.Split(value, ",") {
		if elem = strings.TrimSpace(elem); elem != "" {
			*l = append(*l, elem)
		}
	}
	return nil
}

// PercentFlag is a flag value of the form "name=percent,name=percent".
type PercentFlag map[string]uint32

func (p *PercentFlag) String() string {
	var res []string
	for name, v := range *p {
		res = append(res, fmt.Sprintf("%v=%v", name, v))
	}
	sort.Strings(res)
	return strings.Join(res, ",")
}

func (p *PercentFlag) Set(value string) error {
	if *p == nil {
		*p = make(PercentFlag)
	}
	for _, elem := range strings.Split(value, ",") {
		name, val, ok := strings.Cut(strings.TrimSpace(elem), "=")
		if !ok || name == "" {
			return fmt.Errorf("bad percentage %q: want name=value", elem)
		}
		v, err := strconv.ParseUint(val, 10, 32)
		if err != nil || v > 100 {
			return fmt.Errorf("bad percentage %q: want a number in [0, 100]", elem)
		}
		(*p)[name] = uint32(v)
	}
	return nil
}
