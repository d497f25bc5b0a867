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

// Package holdings loads the investment holdings document. Holdings are
// partitioned in three categories: argentine stocks, cedears and crypto.
// Cost basis is always recorded in USD; quotes for stocks and cedears come
// in ARS and are converted downstream.
package holdings

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// Category partitions holdings; each category aggregates independently but
// shares the computation logic.
type Category string

const (
	CategoryStock  Category = "stocks"
	CategoryCedear Category = "cedears"
	CategoryCrypto Category = "crypto"
)

var (
	ErrInvalidHolding = errors.New("holding entry is missing a required field")
	ErrInvalidValue   = errors.New("holding entry has an out-of-range value")
)

// Holding is a single position as recorded in the holdings file.
type Holding struct {
	Ticker string `json:"ticker"`
	// Quantity of units held; must be positive
	Quantity float64 `json:"quantity"`
	// CostBasis is the total amount originally paid, in USD
	CostBasis float64 `json:"cost_basis"`
}

// Portfolio is the full holdings document.
type Portfolio struct {
	Stocks  []Holding `json:"stocks"`
	Cedears []Holding `json:"cedears"`
	Crypto  []Holding `json:"crypto"`
}

// Tickers returns the list of tickers in the requested category.
func (p *Portfolio) Tickers(category Category) []string {
	var entries []Holding
	switch category {
	case CategoryStock:
		entries = p.Stocks
	case CategoryCedear:
		entries = p.Cedears
	case CategoryCrypto:
		entries = p.Crypto
	}

	tickers := make([]string, 0, len(entries))
	for _, h := range entries {
		tickers = append(tickers, h.Ticker)
	}
	return tickers
}

// rawHolding decodes through pointers so a missing field can be told apart
// from a zero value; the holdings contract treats a missing field as fatal.
type rawHolding struct {
	Ticker    *string  `json:"ticker"`
	Quantity  *float64 `json:"quantity"`
	CostBasis *float64 `json:"cost_basis"`
}

type rawPortfolio struct {
	Stocks  []rawHolding `json:"stocks"`
	Cedears []rawHolding `json:"cedears"`
	Crypto  []rawHolding `json:"crypto"`
}

// Load reads and validates the holdings document at path. A missing file,
// malformed JSON, or any entry lacking ticker, quantity or cost_basis is an
// error; callers treat this as fatal to the run.
func Load(path string) (*Portfolio, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		log.Error().Err(err).Str("Path", path).Msg("could not read holdings file")
		return nil, err
	}

	var raw rawPortfolio
	if err := json.Unmarshal(body, &raw); err != nil {
		log.Error().Err(err).Str("Path", path).Msg("could not parse holdings file")
		return nil, fmt.Errorf("could not parse holdings file %s: %w", path, err)
	}

	p := &Portfolio{}
	if p.Stocks, err = buildCategory(CategoryStock, raw.Stocks); err != nil {
		return nil, err
	}
	if p.Cedears, err = buildCategory(CategoryCedear, raw.Cedears); err != nil {
		return nil, err
	}
	if p.Crypto, err = buildCategory(CategoryCrypto, raw.Crypto); err != nil {
		return nil, err
	}

	log.Info().Int("NumStocks", len(p.Stocks)).Int("NumCedears", len(p.Cedears)).
		Int("NumCrypto", len(p.Crypto)).Msg("loaded holdings")
	return p, nil
}

func buildCategory(category Category, entries []rawHolding) ([]Holding, error) {
	holdings := make([]Holding, 0, len(entries))
	for ii, raw := range entries {
		if raw.Ticker == nil || raw.Quantity == nil || raw.CostBasis == nil {
			log.Error().Str("Category", string(category)).Int("Index", ii).
				Msg("holding entry is missing a required field")
			return nil, fmt.Errorf("%w: %s entry %d", ErrInvalidHolding, category, ii)
		}

		h := Holding{
			Ticker:    *raw.Ticker,
			Quantity:  *raw.Quantity,
			CostBasis: *raw.CostBasis,
		}
		if h.Ticker == "" || h.Quantity <= 0 || h.CostBasis < 0 {
			log.Error().Str("Category", string(category)).Str("Ticker", h.Ticker).
				Float64("Quantity", h.Quantity).Float64("CostBasis", h.CostBasis).
				Msg("holding entry has an out-of-range value")
			return nil, fmt.Errorf("%w: %s entry %d", ErrInvalidValue, category, ii)
		}
		holdings = append(holdings, h)
	}
	return holdings, nil
}
