// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The vmops guest marker plan.

package session

import (
	"regexp"
	"time"
)

// Console markers printed by the emulator wrapper and the vmops guest.
const (
	MarkerKVM           = "KVM is -enable-kvm"
	MarkerHugepageCheck = "Checking HUGEPAGE availability"
	MarkerHuge1G        = "USING HUGE MEM OPTION 1GB"
	MarkerHuge2M        = "USING HUGE MEM OPTION 2MB"
	MarkerNoHugepages   = "NO HUGEPAGES AVAILABLE"

	CSVBegin   = "===================== BEGIN CSV ====================="
	CSVEnd     = "====================== END CSV ======================"
	StatsBegin = "====================== BEGIN STATS ======================"
	StatsEnd   = "====================== END STATS ======================"
)

// rule returns a marker for a block delimiter such as CSVEnd. The guest
// pads delimiters with a run of '=' whose width varies between builds,
// so only the title is matched exactly.
func rule(title string) Marker {
	return Pattern(title, `=+ `+regexp.QuoteMeta(title)+` =+`)
}

// Block kinds captured by the vmops plan.
const (
	BlockThroughput = "throughput"
	BlockLatency    = "latency"
)

// A Scale computes a timeout that grows with the configured workload.
type Scale struct {
	Base    time.Duration
	PerCore time.Duration
	// PerRunSecond is added for each second of configured run time.
	PerRunSecond time.Duration
}

// For returns the timeout for a session on cores cores whose benchmark
// runs for run.
func (s Scale) For(cores int, run time.Duration) time.Duration {
	return s.Base + time.Duration(cores)*s.PerCore + time.Duration(run.Seconds()*float64(s.PerRunSecond))
}

// Default timeout scales.
var (
	DefaultBoot = Scale{Base: 28 * time.Second, PerCore: 5 * time.Second}
	DefaultData = Scale{Base: 120 * time.Second, PerCore: 90 * time.Second, PerRunSecond: time.Second}
)

// A PlanConfig describes the session a plan is built for.
type PlanConfig struct {
	Cores int

	// Run is the configured run duration of the benchmark. It is
	// zero in fixed-operation-count mode.
	Run time.Duration

	// FixedOps is set when the benchmark runs a fixed number of
	// operations. Only then does the guest print a latency block.
	FixedOps bool

	// KVM requires the emulator to report hardware acceleration.
	KVM bool

	Boot Scale // readiness stages
	Data Scale // data block stages
}

// VMOpsPlan returns the marker plan for a vmops guest session.
func VMOpsPlan(cfg PlanConfig) Plan {
	boot := cfg.Boot.For(cfg.Cores, 0)
	data := cfg.Data.For(cfg.Cores, cfg.Run)

	var p Plan
	if cfg.KVM {
		p = append(p, Stage{Name: "kvm", Markers: []Marker{Literal(MarkerKVM)}, Timeout: boot})
	}
	noHuge := Literal(MarkerNoHugepages)
	noHuge.Degraded = true
	p = append(p,
		Stage{Name: "hugepage-check", Markers: []Marker{Literal(MarkerHugepageCheck)}, Timeout: boot},
		Stage{
			Name:    "hugepage",
			Markers: []Marker{Literal(MarkerHuge1G), Literal(MarkerHuge2M), noHuge},
			Timeout: boot,
			Action:  Select,
		},
		Stage{Name: "csv-begin", Markers: []Marker{rule("BEGIN CSV")}, Timeout: data},
		Stage{Name: "csv-end", Markers: []Marker{rule("END CSV")}, Timeout: data, Action: Capture, Block: BlockThroughput},
	)
	if cfg.FixedOps {
		p = append(p,
			Stage{Name: "stats-begin", Markers: []Marker{rule("BEGIN STATS")}, Timeout: data},
			Stage{Name: "stats-end", Markers: []Marker{rule("END STATS")}, Timeout: data, Action: Capture, Block: BlockLatency},
		)
	}
	return p
}

// pageSizes are the page sizes announced by the hugepage stage, in
// marker order.
var pageSizes = []string{"1G", "2M", "4K"}

// PageSize returns the page size the guest chose in a session run with
// a VMOpsPlan, or "" if the hugepage stage did not complete.
func PageSize(res *Result) string {
	if res == nil {
		return ""
	}
	i, ok := res.Selected["hugepage"]
	if !ok || i < 0 || i >= len(pageSizes) {
		return ""
	}
	return pageSizes[i]
}
