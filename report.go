package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"osuroundtrip/internal/results"
)

const maxDetail = 72

func (a *app) report(outcomes []outcome) {
	if len(outcomes) == 0 {
		fmt.Fprintln(a.stdout, "no .osu files found")
		return
	}

	table := tablewriter.NewWriter(a.stdout)
	table.SetHeader([]string{"File", "Mode", "Size", "Objects", "Time", "Status", "Detail"})
	table.SetAutoWrapText(false)
	table.SetBorder(false)

	counts := map[results.Status]int{}
	var size int64
	var elapsed time.Duration
	for _, o := range outcomes {
		counts[o.Status]++
		size += o.Size
		elapsed += o.Duration
		table.Append([]string{
			o.Name,
			o.Ruleset,
			humanize.Bytes(uint64(o.Size)),
			humanize.Comma(int64(o.Objects)),
			o.Duration.Round(time.Microsecond).String(),
			string(o.Status),
			detail(o.Err),
		})
	}
	table.Render()

	fmt.Fprintf(a.stdout, "\n%s passed, %s failed, %s skipped; %s read in %s\n",
		humanize.Comma(int64(counts[results.StatusPass])),
		humanize.Comma(int64(counts[results.StatusFail])),
		humanize.Comma(int64(counts[statusSkip])),
		humanize.Bytes(uint64(size)),
		elapsed.Round(time.Millisecond))
}

// detail is the first line of err, shortened to fit a table cell.
func detail(err error) string {
	if err == nil {
		return ""
	}
	s, _, _ := strings.Cut(err.Error(), "\n")
	if len(s) > maxDetail {
		s = s[:maxDetail-3] + "..."
	}
	return s
}
