// Package report renders analysis output for the terminal and exports
// listing history as CSV.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/guarzo/ebaytracker/internal/analyzer"
	"github.com/guarzo/ebaytracker/internal/model"
)

// Render writes the analyze command output for one search.
func Render(w io.Writer, search model.Search, sum analyzer.Summary, rec analyzer.Recommendation) {
	fmt.Fprintf(w, "\n%s (%d sales tracked)\n\n", search.Name, sum.Count)

	if sum.Price != nil {
		fmt.Fprintf(w, "Price:      $%.0f median  |  $%.0f-%.0f range  |  $%.0f avg\n",
			sum.Price.Median, sum.Price.Min, sum.Price.Max, sum.Price.Mean)
	}

	if sum.Frequency != nil {
		if math.IsInf(sum.Frequency.ListingsPerMonth, 1) {
			fmt.Fprintf(w, "Frequency:  multiple sales per day\n")
		} else {
			fmt.Fprintf(w, "Frequency:  ~1 listing every %.0f days\n", sum.Frequency.AvgDaysBetween)
		}
	}

	fmt.Fprintf(w, "Trend:      %s\n\n", capitalize(sum.Trend))

	if rec.HasData {
		fmt.Fprintf(w, "Recommendation: A price under $%.0f is a good deal (bottom 20%%)\n",
			rec.GoodDealThreshold)
	}

	if rec.TargetPrice != nil && rec.ExpectedWaitDays != nil {
		fmt.Fprintf(w, "Target $%.0f: ~%.0fth percentile, expected wait ~%.0f days\n",
			*rec.TargetPrice, *rec.TargetPercentile, *rec.ExpectedWaitDays)
	}
}

// ListingRows builds CSV rows (header first) for a listing history export.
func ListingRows(listings []model.Listing) [][]string {
	rows := [][]string{
		{"item_id", "title", "price", "shipping", "total_price", "condition", "sold_date", "url"},
	}
	for _, l := range listings {
		shipping := ""
		if l.Shipping != nil {
			shipping = strconv.FormatFloat(*l.Shipping, 'f', 2, 64)
		}
		condition := ""
		if l.Condition != nil {
			condition = *l.Condition
		}
		soldDate := ""
		if l.SoldDate != nil {
			soldDate = l.SoldDate.Format("2006-01-02")
		}
		itemURL := ""
		if l.URL != nil {
			itemURL = *l.URL
		}
		rows = append(rows, []string{
			l.EbayItemID,
			escapeCell(l.Title),
			strconv.FormatFloat(l.Price, 'f', 2, 64),
			shipping,
			strconv.FormatFloat(l.TotalPrice(), 'f', 2, 64),
			escapeCell(condition),
			soldDate,
			itemURL,
		})
	}
	return rows
}

// WriteCSV writes rows to w.
func WriteCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// escapeCell guards scraped text against CSV formula injection when the
// export lands in a spreadsheet.
func escapeCell(value string) string {
	if value == "" {
		return value
	}
	switch value[0] {
	case '=', '+', '-', '@', '|', '%', '\t', '\r', '\n':
		return "'" + value
	}
	return value
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
