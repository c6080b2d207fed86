// cmd/tools/insight-console/console.go
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"insightx-workers/internal/analytics/memory"
	"insightx-workers/internal/analytics/pipeline"
	"insightx-workers/internal/dataset"
	"insightx-workers/internal/models"
)

const banner = `InsightX console. Ask about your UPI transactions in plain English.
Commands: :history  :clear  :schema  :help  :quit`

type asker interface {
	Ask(sessionID, text string) (pipeline.Answer, error)
	History(sessionID string) ([]memory.HistoryEntry, error)
	Reset(sessionID string)
	Schema() (dataset.SchemaInfo, error)
}

type console struct {
	pipeline  asker
	sessionID string
	jsonOut   bool
	out       io.Writer
}

// run reads one question or command per line until EOF or :quit.
func (c *console) run(in io.Reader) error {
	fmt.Fprintln(c.out, banner)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(c.out, "\n> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if quit := c.handle(line); quit {
			return nil
		}
	}
	return scanner.Err()
}

func (c *console) handle(line string) bool {
	switch strings.ToLower(line) {
	case ":quit", ":exit", ":q":
		fmt.Fprintln(c.out, "Bye.")
		return true
	case ":help":
		fmt.Fprintln(c.out, banner)
	case ":clear":
		c.pipeline.Reset(c.sessionID)
		c.sessionID = uuid.NewString()
		fmt.Fprintln(c.out, "Context cleared.")
	case ":history":
		c.printHistory()
	case ":schema":
		c.printSchema()
	default:
		if strings.HasPrefix(line, ":") {
			fmt.Fprintf(c.out, "Unknown command %s. Try :help.\n", line)
			return false
		}
		c.ask(line)
	}
	return false
}

func (c *console) ask(question string) {
	ans, err := c.pipeline.Ask(c.sessionID, question)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	if c.jsonOut {
		c.printJSON(ans)
		return
	}
	c.printResponse(ans.Response)
}

func (c *console) printResponse(r models.InsightResponse) {
	if !r.Success {
		fmt.Fprintf(c.out, "%s\n", r.Headline)
		if r.Narrative != "" {
			fmt.Fprintf(c.out, "%s\n", r.Narrative)
		}
		c.printList("Try", r.FollowUps)
		return
	}

	fmt.Fprintf(c.out, "%s\n\n%s\n", r.Headline, r.Narrative)
	c.printList("Insights", r.Bullets)
	c.printList("Risk flags", r.RiskFlags)
	c.printList("Recommendations", r.Recommendations)
	c.printList("Follow-ups", r.FollowUps)
	fmt.Fprintf(c.out, "\nConfidence: %s (%.0f%%)  Chart: %s\n", r.ConfidenceLabel, r.Confidence*100, r.ChartType)
}

func (c *console) printList(title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(c.out, "\n%s:\n", title)
	for _, it := range items {
		fmt.Fprintf(c.out, "  - %s\n", it)
	}
}

func (c *console) printHistory() {
	entries, err := c.pipeline.History(c.sessionID)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	if len(entries) == 0 {
		fmt.Fprintln(c.out, "No questions yet.")
		return
	}
	if c.jsonOut {
		c.printJSON(entries)
		return
	}
	for i, e := range entries {
		marker := ""
		if e.Followup {
			marker = " (follow-up)"
		}
		fmt.Fprintf(c.out, "%d. %s%s\n   %s / %s", i+1, e.Query, marker, e.Intent, e.Metric)
		if e.GroupBy != "" && e.GroupBy != "—" {
			fmt.Fprintf(c.out, " by %s", e.GroupBy)
		}
		fmt.Fprintln(c.out)
	}
}

func (c *console) printSchema() {
	info, err := c.pipeline.Schema()
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	if c.jsonOut {
		c.printJSON(info)
		return
	}
	fmt.Fprintf(c.out, "Rows: %d  (%s to %s)\n", info.TotalRows, info.DateRange.Min, info.DateRange.Max)
	fmt.Fprintf(c.out, "Fraud rate: %.2f%%  Failure rate: %.2f%%\n", info.FraudRate, info.FailureRate)
	fmt.Fprintf(c.out, "Columns: %s\n", strings.Join(info.Columns, ", "))
	for _, dim := range []struct {
		name   string
		values []string
	}{
		{"States", info.States},
		{"Banks", info.Banks},
		{"Categories", info.Categories},
		{"Devices", info.Devices},
		{"Networks", info.Networks},
	} {
		if len(dim.values) > 0 {
			fmt.Fprintf(c.out, "%s: %s\n", dim.name, strings.Join(dim.values, ", "))
		}
	}
}

func (c *console) printJSON(v interface{}) {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
	}
}
