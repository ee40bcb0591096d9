// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"fmt"
	"io"

	"github.com/google/safehtml/template"
	"vmops.dev/lab/vmopsfmt"
	"vmops.dev/lab/vmopsstat"
)

var htmlTemplate = template.Must(template.New("report").Funcs(htmlFuncs).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
table.vmops { border-collapse: collapse; margin-bottom: 2em; }
table.vmops td, table.vmops th { padding: 0.2em 0.8em; text-align: right; }
table.vmops td.name, table.vmops th.name { text-align: left; }
tr.config th { border-bottom: 1px solid #888; text-align: left; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{- if .Throughput}}
<h2>Throughput</h2>
<table class="vmops">
<tr><th class="name">config<th>ncores<th>threads<th>ops<th>runtime [ms]<th>ops/s
{{- range .Throughput}}
<tr><td class="name">{{.Config}}<td>{{.Cores}}<td>{{.Threads}}<td>{{.Ops}}<td>{{ms .Runtime}}<td>{{rate .Throughput}}
{{- end}}
</table>
{{- end}}
{{- if .Latency}}
<h2>Latency percentiles</h2>
<table class="vmops">
<tr><th class="name">benchmark<th>ncores<th>memsize<th>p1<th>p25<th>p50<th>p75<th>p99<th>p99.9<th>p100<th class="name">os<th class="name">rev
{{- range .Latency}}
<tr><td class="name">{{.Benchmark}}<td>{{.Cores}}<td>{{.MemSize}}<td>{{.P1}}<td>{{.P25}}<td>{{.P50}}<td>{{.P75}}<td>{{.P99}}<td>{{.P999}}<td>{{.P100}}<td class="name">{{.OS}}<td class="name">{{.GitRev}}
{{- end}}
</table>
{{- end}}
</body>
</html>
`))

var htmlFuncs = template.FuncMap{
	"ms":   func(v float64) string { return fmt.Sprintf("%.3f", v) },
	"rate": func(v float64) string { return fmt.Sprintf("%.0f", v) },
}

// WriteHTML writes an HTML page showing the throughput and latency
// views. Either may be empty.
func WriteHTML(w io.Writer, title string, tput []vmopsstat.ThroughputRow, lat []vmopsfmt.LatencySummary) error {
	return htmlTemplate.Execute(w, struct {
		Title      string
		Throughput []vmopsstat.ThroughputRow
		Latency    []vmopsfmt.LatencySummary
	}{title, tput, lat})
}
