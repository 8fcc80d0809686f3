// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package tool

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/shaderfuzz/pkg/osutil"
	"github.com/ulikunitz/xz"
)

// ReadFile reads a file, decompressing it if the name ends with .xz.
func ReadFile(filename string) ([]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(filename, ".xz") {
		return data, nil
	}
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%v: xz reader failed: %w", filename, err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%v: xz decompression failed: %w", filename, err)
	}
	return out, nil
}

// WriteFile writes a file, compressing it if the name ends with .xz.
func WriteFile(filename string, data []byte) error {
	if strings.HasSuffix(filename, ".xz") {
		buf := new(bytes.Buffer)
		w, err := xz.NewWriter(buf)
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
		data = buf.Bytes()
	}
	return osutil.WriteFile(filename, data)
}
