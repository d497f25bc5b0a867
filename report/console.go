// Copyright 2021-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package report renders a valuation summary to the console. It is purely
// presentational; every figure it prints was computed upstream.
package report

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/penny-vault/pv-holdings/portfolio"
)

// Console writes a full portfolio report to Out.
type Console struct {
	Out io.Writer
}

// NewConsole creates a console report writer targeting stdout.
func NewConsole() *Console {
	return &Console{Out: os.Stdout}
}

// FormatCurrency renders a USD amount.
func FormatCurrency(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}

// FormatSignedCurrency renders a USD amount with an explicit sign.
func FormatSignedCurrency(amount float64) string {
	if amount >= 0 {
		return fmt.Sprintf("+$%.2f", amount)
	}
	return fmt.Sprintf("-$%.2f", -amount)
}

// FormatPercent renders a percentage with an explicit sign.
func FormatPercent(pct float64) string {
	if pct >= 0 {
		return fmt.Sprintf("+%.2f%%", pct)
	}
	return fmt.Sprintf("%.2f%%", pct)
}

// rateTimestamp displays the rate update instant in Buenos Aires local time.
func rateTimestamp(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	if tz, err := time.LoadLocation("America/Argentina/Buenos_Aires"); err == nil {
		t = t.In(tz)
	}
	return t.Format("02/01/2006 15:04")
}

// Render prints the full report: header, per-category asset tables with
// totals, and the consolidated portfolio summary.
func (c *Console) Render(summary *portfolio.Summary) {
	fmt.Fprintln(c.Out)
	fmt.Fprintln(c.Out, "PORTFOLIO PERFORMANCE REPORT")
	fmt.Fprintf(c.Out, "MEP rate (sell): %s\n", FormatCurrency(summary.Rate.Value))
	fmt.Fprintf(c.Out, "Updated: %s\n", rateTimestamp(summary.Rate.UpdatedAt))

	c.renderCategory("STOCKS (ARS -> USD)", summary.Stocks, summary.StockTotals)
	c.renderCategory("CEDEARS (ARS -> USD)", summary.Cedears, summary.CedearTotals)
	c.renderCategory("CRYPTO (USD)", summary.Crypto, summary.CryptoTotals)

	fmt.Fprintln(c.Out)
	fmt.Fprintln(c.Out, "CONSOLIDATED PORTFOLIO")
	c.renderTotals(summary.Portfolio)
}

func (c *Console) renderCategory(title string, assets []portfolio.AssetPerformance, totals portfolio.Totals) {
	fmt.Fprintln(c.Out)
	fmt.Fprintln(c.Out, title)

	if len(assets) == 0 {
		fmt.Fprintln(c.Out, "  (no priced assets)")
		c.renderTotals(totals)
		return
	}

	table := tablewriter.NewWriter(c.Out)
	table.SetHeader([]string{"Ticker", "Quantity", "Unit Cost", "Unit Price", "Value", "Gain/Loss", "Performance", "ARS Price"})
	table.SetBorder(false)

	for _, a := range assets {
		arsPrice := ""
		if a.PricedInARS {
			arsPrice = fmt.Sprintf("$%.2f (MEP $%.2f)", a.LocalPrice, a.RateUsed)
		}
		table.Append([]string{
			a.Ticker,
			fmt.Sprintf("%g", a.Quantity),
			FormatCurrency(a.UnitCost),
			FormatCurrency(a.CurrentPrice),
			FormatCurrency(a.CurrentValue),
			FormatSignedCurrency(a.GainLoss),
			FormatPercent(a.Performance),
			arsPrice,
		})
	}
	table.Render()

	c.renderTotals(totals)
}

func (c *Console) renderTotals(totals portfolio.Totals) {
	fmt.Fprintf(c.Out, "  Invested:    %s\n", FormatCurrency(totals.Cost))
	fmt.Fprintf(c.Out, "  Value:       %s\n", FormatCurrency(totals.Value))
	fmt.Fprintf(c.Out, "  Gain/Loss:   %s\n", FormatSignedCurrency(totals.GainLoss))
	fmt.Fprintf(c.Out, "  Performance: %s\n", FormatPercent(totals.Performance))
}
