package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/FoxxDev-Collab/controlgraph/internal/domain"
)

func printJSON(v any) error {
	b, err := jsonMarshal(v)
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printKV(rows [][2]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	_ = w.Flush()
}

func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("no results")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func printCatalogs(items []catalogSummaryOut) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.ID,
			item.Title,
			item.Version,
			item.LastModified,
			intToString(len(item.Groups)),
		})
	}
	printTable([]string{"ID", "TITLE", "VERSION", "LAST_MODIFIED", "GROUPS"}, rows)
}

func printCatalogSummary(item catalogSummaryOut) {
	printKV([][2]string{
		{"id", item.ID},
		{"title", item.Title},
		{"version", item.Version},
		{"last_modified", item.LastModified},
	})
	fmt.Println()
	rows := make([][]string, 0, len(item.Groups))
	for _, g := range item.Groups {
		rows = append(rows, []string{g.ID, g.Title, g.Class})
	}
	printTable([]string{"GROUP", "TITLE", "CLASS"}, rows)
}

func printCatalogPage(page catalogPageOut) {
	printKV([][2]string{
		{"id", page.Catalog.ID},
		{"title", page.Catalog.Title},
		{"version", page.Catalog.Version},
		{"total_groups", strconv.FormatInt(page.TotalGroups, 10)},
		{"has_more", strconv.FormatBool(page.HasMore)},
	})
	for _, g := range page.Catalog.Groups {
		fmt.Printf("\n%s  %s\n", g.ID, g.Title)
		printControlRows(g.Controls)
	}
}

func printGroupPage(page groupPageOut) {
	printKV([][2]string{
		{"id", page.Group.ID},
		{"title", page.Group.Title},
		{"class", page.Group.Class},
		{"total_controls", strconv.FormatInt(page.TotalControls, 10)},
		{"has_more", strconv.FormatBool(page.HasMore)},
	})
	fmt.Println()
	printControlRows(page.Group.Controls)
}

func printControlRows(items []controlRowOut) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{item.ID, item.Title, item.Class})
	}
	printTable([]string{"ID", "TITLE", "CLASS"}, rows)
}

func printControlDetail(item controlDetailOut) {
	kv := [][2]string{
		{"id", item.ID},
		{"title", item.Title},
		{"class", item.Class},
	}
	if item.BaseControl != nil {
		kv = append(kv, [2]string{"base_control", *item.BaseControl})
	}
	printKV(kv)

	if len(item.Parameters) > 0 {
		fmt.Println()
		rows := make([][]string, 0, len(item.Parameters))
		for _, p := range item.Parameters {
			rows = append(rows, []string{p.ID, p.Label})
		}
		printTable([]string{"PARAM", "LABEL"}, rows)
	}
	if len(item.Parts) > 0 {
		fmt.Println()
		printParts(item.Parts, 0)
	}
	if len(item.Enhancements) > 0 {
		fmt.Println()
		rows := make([][]string, 0, len(item.Enhancements))
		for _, e := range item.Enhancements {
			rows = append(rows, []string{e.ID, e.Title, e.Class})
		}
		printTable([]string{"ENHANCEMENT", "TITLE", "CLASS"}, rows)
	}
	if len(item.Links) > 0 {
		fmt.Println()
		rows := make([][]string, 0, len(item.Links))
		for _, l := range item.Links {
			other := "-"
			if l.Other != nil {
				other = l.Other.ID
			}
			rows = append(rows, []string{
				l.Rel,
				l.Href,
				other,
				strconv.FormatBool(l.Outgoing),
				strconv.FormatBool(l.External),
			})
		}
		printTable([]string{"REL", "HREF", "OTHER", "OUTGOING", "EXTERNAL"}, rows)
	}
}

func printParts(parts []partOut, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, p := range parts {
		prose := p.Prose
		if len(prose) > 80 {
			prose = prose[:77] + "..."
		}
		fmt.Printf("%s[%s] %s %s\n", indent, p.Name, p.ID, prose)
		printParts(p.Parts, depth+1)
	}
}

func printImportResult(item domain.ImportResult) {
	printKV([][2]string{
		{"success", strconv.FormatBool(item.Success)},
		{"message", item.Message},
		{"catalog", item.Details.Catalog.ID},
		{"title", item.Details.Catalog.Title},
		{"version", item.Details.Catalog.Version},
		{"duration", item.Details.Duration},
		{"groups", intToString(item.Details.Stats.Groups)},
		{"controls", intToString(item.Details.Stats.Controls)},
		{"enhancements", intToString(item.Details.Stats.Enhancements)},
		{"parts", intToString(item.Details.Stats.Parts)},
		{"parameters", intToString(item.Details.Stats.Parameters)},
		{"links", intToString(item.Details.Stats.Links)},
	})
	if len(item.Details.Errors) > 0 {
		fmt.Println()
		rows := make([][]string, 0, len(item.Details.Errors))
		for _, e := range item.Details.Errors {
			rows = append(rows, []string{string(e.Kind), e.Message, e.Details})
		}
		printTable([]string{"KIND", "MESSAGE", "DETAILS"}, rows)
	}
}
