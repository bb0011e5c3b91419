package cli

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/dmitrijs2005/liferepo/internal/client/models"
	"github.com/dmitrijs2005/liferepo/internal/client/upload"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// renderTable lays rows out under headers. Short rows are padded.
func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: align})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func groupSummary(g *models.AnnotationGroup) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Group %s (%s)\n", g.GroupID, g.FlowType)
	if g.Title != "" {
		fmt.Fprintf(&b, "Title:       %s\n", g.Title)
	}
	if g.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", g.Description)
	}
	if len(g.Tags) > 0 {
		fmt.Fprintf(&b, "Tags:        %s\n", FormatTags(g.Tags))
	}
	s := g.Stats()
	fmt.Fprintf(&b, "Files:       %d total, %d uploaded, %d failed\n", s.Total, s.Uploaded, s.Failed)
	return b.String()
}

func filesTable(g *models.AnnotationGroup) string {
	rows := make([][]string, 0, len(g.Files))
	for i, f := range g.Files {
		mark := ""
		if f.FileID == g.CoverImageFileID {
			mark = "cover"
		}
		rows = append(rows, []string{
			fmt.Sprint(i + 1),
			f.FileID,
			filepath.Base(f.URI),
			string(f.Status.Normalize()),
			f.Description,
			FormatTags(f.Tags),
			mark,
		})
	}
	return renderTable(
		[]string{"#", "File ID", "Name", "Status", "Description", "Tags", ""},
		rows,
		[]columnAlignment{alignRight},
	)
}

func draftsTable(list []*models.AnnotationGroup) string {
	rows := make([][]string, 0, len(list))
	for _, g := range list {
		s := g.Stats()
		rows = append(rows, []string{
			g.GroupID,
			g.Title,
			fmt.Sprint(s.Total),
			fmt.Sprint(s.Uploaded),
			g.CreatedAt.Local().Format(time.DateTime),
		})
	}
	return renderTable(
		[]string{"Group ID", "Title", "Files", "Uploaded", "Created"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
	)
}

func failuresTable(failures []upload.FileFailure) string {
	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, []string{f.FileID, f.Err.Error()})
	}
	return renderTable([]string{"File ID", "Error"}, rows, nil)
}
