// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vmopsfmt

import (
	"reflect"
	"strconv"
	"strings"
	"testing"
)

const (
	begin = "===================== BEGIN CSV ====================="
	end   = "====================== END CSV ======================"
)

func TestScanBlocks(t *testing.T) {
	data := strings.Join([]string{
		"noise",
		"0,b,0,1,0,1.0,1",
		begin + "\r",
		"header",
		"row 1",
		end,
		"+VMOPS RESULT [[ benchmark=b ]]",
		begin,
		end,
		begin,
		"unterminated",
	}, "\n")
	got, err := ScanBlocks(strings.NewReader(data), begin, end)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"header\nrow 1", ""}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestScanBlocksDecode(t *testing.T) {
	const n = 10
	lines := []string{"booting", begin, "thread_id,benchmark,core,ncores,memsize,duration,operations"}
	for i := 0; i < n; i++ {
		lines = append(lines, strings.Join([]string{strconv.Itoa(i), "b", strconv.Itoa(i), strconv.Itoa(n), "4096", "1000.000", strconv.Itoa(i * 10)}, ","))
	}
	lines = append(lines, end, "9,b,9,1,1,1.0,1")
	blocks, err := ScanBlocks(strings.NewReader(strings.Join(lines, "\n")), begin, end)
	if err != nil || len(blocks) != 1 {
		t.Fatalf("got %d blocks, %v", len(blocks), err)
	}
	rows, err := DecodeCSVBlock(strings.NewReader(blocks[0]), "block")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != n {
		t.Fatalf("got %d rows, want %d", len(rows), n)
	}
	for i, r := range rows {
		if r.Thread != i || r.Ops != int64(i*10) {
			t.Errorf("row %d = %+v", i, r)
		}
	}
}
