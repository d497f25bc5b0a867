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

package portfolio

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/penny-vault/pv-holdings/holdings"
	"github.com/penny-vault/pv-holdings/quote"
)

// QuoteSource is the live market data interface consumed by the tracker;
// quote.Client is the production implementation.
type QuoteSource interface {
	ExchangeRate(ctx context.Context) (*quote.ExchangeRate, error)
	AskPrices(ctx context.Context, category holdings.Category, tickers []string) map[string]float64
}

// Summary is everything one valuation run produced. It is owned by the run
// that built it; nothing is shared or persisted across runs.
type Summary struct {
	RunID uuid.UUID
	Rate  quote.ExchangeRate

	Stocks  []AssetPerformance
	Cedears []AssetPerformance
	Crypto  []AssetPerformance

	StockTotals  Totals
	CedearTotals Totals
	CryptoTotals Totals
	Portfolio    Totals
}

// All returns every computed asset across categories, in category order.
func (s *Summary) All() []AssetPerformance {
	all := make([]AssetPerformance, 0, len(s.Stocks)+len(s.Cedears)+len(s.Crypto))
	all = append(all, s.Stocks...)
	all = append(all, s.Cedears...)
	all = append(all, s.Crypto...)
	return all
}

// Tracker runs the valuation pipeline: fetch rate, fetch prices per
// category, compute per-asset performance, aggregate.
type Tracker struct {
	Quotes QuoteSource
}

// NewTracker creates a tracker backed by the given quote source.
func NewTracker(quotes QuoteSource) *Tracker {
	return &Tracker{Quotes: quotes}
}

// Process values the portfolio in a single synchronous pass. An unavailable
// exchange rate is the only error; assets without a quote are skipped with a
// warning and excluded from totals. Crypto has no price source wired and
// always yields an empty category with zero totals.
func (t *Tracker) Process(ctx context.Context, p *holdings.Portfolio) (*Summary, error) {
	summary := &Summary{RunID: uuid.New()}
	subLog := log.With().Str("RunID", summary.RunID.String()).Logger()

	rate, err := t.Quotes.ExchangeRate(ctx)
	if err != nil {
		subLog.Error().Err(err).Msg("could not fetch exchange rate; aborting run")
		return nil, err
	}
	summary.Rate = *rate

	summary.Stocks = t.computeCategory(ctx, holdings.CategoryStock, p.Stocks, rate.Value)
	summary.Cedears = t.computeCategory(ctx, holdings.CategoryCedear, p.Cedears, rate.Value)

	// crypto pricing is not implemented; the category still appears with
	// zero totals
	for _, h := range p.Crypto {
		subLog.Info().Str("Ticker", h.Ticker).Msg("crypto pricing not implemented; skipping")
	}
	summary.Crypto = []AssetPerformance{}

	summary.StockTotals = Aggregate(summary.Stocks)
	summary.CedearTotals = Aggregate(summary.Cedears)
	summary.CryptoTotals = Aggregate(summary.Crypto)
	summary.Portfolio = Aggregate(summary.All())

	subLog.Info().Int("NumAssets", len(summary.All())).
		Float64("PortfolioValue", summary.Portfolio.Value).
		Float64("PortfolioPerformance", summary.Portfolio.Performance).
		Msg("valuation run complete")
	return summary, nil
}

func (t *Tracker) computeCategory(ctx context.Context, category holdings.Category, entries []holdings.Holding, rate float64) []AssetPerformance {
	records := make([]AssetPerformance, 0, len(entries))
	if len(entries) == 0 {
		return records
	}

	tickers := make([]string, 0, len(entries))
	for _, h := range entries {
		tickers = append(tickers, h.Ticker)
	}
	prices := t.Quotes.AskPrices(ctx, category, tickers)

	for _, h := range entries {
		ask, ok := prices[h.Ticker]
		if !ok {
			log.Warn().Str("Category", string(category)).Str("Ticker", h.Ticker).
				Msg("no quote for holding; excluded from totals")
			continue
		}
		// stock and cedear quotes come from the feed in ARS
		records = append(records, ComputePerformance(h.Ticker, category, h.Quantity, h.CostBasis, ask, true, rate))
	}
	return records
}
