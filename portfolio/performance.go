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

// Package portfolio computes per-asset and aggregate performance of the
// holdings in USD terms and drives the single-run valuation pipeline.
package portfolio

import (
	"github.com/rs/zerolog/log"

	"github.com/penny-vault/pv-holdings/holdings"
)

// AssetPerformance is the computed valuation of a single position. All money
// fields are USD. When the source quote was in ARS, PricedInARS is set and
// LocalPrice / RateUsed retain the raw quote and the rate applied, for
// audit and display.
type AssetPerformance struct {
	Ticker   string
	Category holdings.Category

	Quantity     float64
	CostBasis    float64 // total amount paid
	UnitCost     float64 // CostBasis / Quantity
	CurrentPrice float64 // current unit price
	CurrentValue float64 // Quantity * CurrentPrice
	GainLoss     float64 // CurrentValue - CostBasis
	Performance  float64 // GainLoss / CostBasis * 100

	PricedInARS bool
	LocalPrice  float64
	RateUsed    float64
}

// Totals aggregates a collection of asset performances. The same shape is
// used for a category and for the consolidated portfolio.
type Totals struct {
	Cost        float64
	Value       float64
	GainLoss    float64
	Performance float64
}

// ToUSD converts an ARS amount to USD at the given MEP rate.
func ToUSD(amountARS float64, rate float64) float64 {
	return amountARS / rate
}

// ComputePerformance values a single position. price is the current unit
// price, in ARS when priceInARS is set (converted at rate) or already in USD
// otherwise. A zero cost basis yields a zero performance percentage rather
// than a division fault.
func ComputePerformance(ticker string, category holdings.Category, quantity float64, costBasis float64, price float64, priceInARS bool, rate float64) AssetPerformance {
	perf := AssetPerformance{
		Ticker:       ticker,
		Category:     category,
		Quantity:     quantity,
		CostBasis:    costBasis,
		CurrentPrice: price,
	}

	if priceInARS {
		perf.PricedInARS = true
		perf.LocalPrice = price
		perf.RateUsed = rate
		perf.CurrentPrice = ToUSD(price, rate)
	}

	perf.UnitCost = costBasis / quantity
	perf.CurrentValue = quantity * perf.CurrentPrice
	perf.GainLoss = perf.CurrentValue - costBasis
	if costBasis > 0 {
		perf.Performance = perf.GainLoss / costBasis * 100
	}

	log.Info().Str("Ticker", ticker).Str("Category", string(category)).
		Float64("Performance", perf.Performance).Msg("computed asset performance")
	return perf
}

// Aggregate folds asset performances into totals. An empty collection, or
// one whose total cost is zero, aggregates to a zero performance percentage.
func Aggregate(records []AssetPerformance) Totals {
	var totals Totals
	for _, r := range records {
		totals.Cost += r.CostBasis
		totals.Value += r.CurrentValue
	}
	totals.GainLoss = totals.Value - totals.Cost
	if totals.Cost > 0 {
		totals.Performance = totals.GainLoss / totals.Cost * 100
	}
	return totals
}

// AnyExceeds reports whether any record's performance strictly exceeds
// threshold. Exactly-equal does not count.
func AnyExceeds(records []AssetPerformance, threshold float64) bool {
	for _, r := range records {
		if r.Performance > threshold {
			log.Info().Str("Ticker", r.Ticker).Float64("Performance", r.Performance).
				Float64("Threshold", threshold).Msg("asset exceeds performance threshold")
			return true
		}
	}
	return false
}

// Exceeding returns the records whose performance strictly exceeds threshold.
func Exceeding(records []AssetPerformance, threshold float64) []AssetPerformance {
	var out []AssetPerformance
	for _, r := range records {
		if r.Performance > threshold {
			out = append(out, r)
		}
	}
	return out
}
