// Package report renders evaluations and run summaries as markdown tables.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"annotation-judge/internal/db"
	"annotation-judge/internal/schemas"
)

const maxReasoning = 60

func newTable(headers []string, w io.Writer) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{
				Left:   tw.On,
				Top:    tw.Off,
				Right:  tw.On,
				Bottom: tw.Off,
			},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}

// Summary renders the counts of one run.
func Summary(s *schemas.RunSummary) string {
	var buf bytes.Buffer
	table := newTable([]string{"Run", "Planned", "Completed", "Failed"}, &buf)
	_ = table.Append([]string{s.RunID, fmt.Sprint(s.Planned), fmt.Sprint(s.Completed), fmt.Sprint(s.Failed)})
	_ = table.Render()
	return buf.String()
}

// Evaluations renders one row per evaluation. Failed rows show their
// error in place of the reasoning.
func Evaluations(evals []db.Evaluation) string {
	var buf bytes.Buffer
	table := newTable([]string{"ID", "Submission", "Question", "Judge", "Status", "Verdict", "Detail"}, &buf)
	for _, e := range evals {
		judge := fmt.Sprint(e.JudgeID)
		if e.Judge != nil {
			judge = e.Judge.Name
		}
		verdict, detail := "-", ""
		if e.Verdict != nil {
			verdict = *e.Verdict
		}
		switch {
		case e.Error != nil:
			detail = *e.Error
		case e.Reasoning != nil:
			detail = *e.Reasoning
		}
		_ = table.Append([]string{
			fmt.Sprint(e.ID), e.SubmissionID, e.QuestionID, judge, e.Status, verdict, truncate(detail, maxReasoning),
		})
	}
	_ = table.Render()
	return buf.String()
}

// Stats renders verdict totals.
func Stats(s *db.EvaluationStats) string {
	var buf bytes.Buffer
	table := newTable([]string{"Total", "Pass", "Fail", "Inconclusive", "Errored", "Pass rate"}, &buf)
	_ = table.Append([]string{
		fmt.Sprint(s.Total), fmt.Sprint(s.Passed), fmt.Sprint(s.Failed),
		fmt.Sprint(s.Inconclusive), fmt.Sprint(s.Errored), fmt.Sprintf("%d%%", s.PassRate),
	})
	_ = table.Render()
	return buf.String()
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
