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

// Package quote retrieves the MEP exchange rate and per-ticker ask prices
// from the live market feeds. Missing data is reported as absence (nil rate,
// ticker omitted from the price map) rather than propagated errors, so
// callers decide how degraded a run may be.
package quote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-holdings/holdings"
)

var (
	ErrRateUnavailable = errors.New("exchange rate unavailable")
	ErrStatusCode      = errors.New("HTTP request returned invalid status code")
)

// ExchangeRate is the MEP reference rate used for ARS -> USD conversion.
// Value is the "venta" (sell) side of the configured rate type; it is always
// positive, a non-positive rate is reported as unavailable.
type ExchangeRate struct {
	Value     float64
	UpdatedAt time.Time
}

// rateEntry is one rate type in the dolarapi response.
type rateEntry struct {
	Casa      string  `json:"casa"`
	Compra    float64 `json:"compra"`
	Venta     float64 `json:"venta"`
	UpdatedAt string  `json:"fechaActualizacion"`
}

// priceEntry is one instrument in the data912 live feeds.
type priceEntry struct {
	Symbol string  `json:"symbol"`
	Ask    float64 `json:"px_ask"`
}

// Client fetches quotes from the market feeds.
type Client struct {
	// HTTP is exported so tests can install a mock transport
	HTTP *http.Client

	stocksURL   string
	cedearsURL  string
	ratesURL    string
	rateType    string
	maxAttempts int
}

// NewClient builds a quote client from viper configuration.
func NewClient() *Client {
	return &Client{
		HTTP: &http.Client{
			Timeout: viper.GetDuration("quotes.timeout"),
		},
		stocksURL:   viper.GetString("quotes.stocks_url"),
		cedearsURL:  viper.GetString("quotes.cedears_url"),
		ratesURL:    viper.GetString("quotes.rates_url"),
		rateType:    viper.GetString("quotes.rate_type"),
		maxAttempts: viper.GetInt("quotes.max_retries"),
	}
}

// getWithRetry performs a GET against url with up to maxAttempts tries. Only
// timeouts retry -- immediately, with no backoff. Any other transport error
// or a status >= 400 is assumed non-transient and aborts the fetch at once.
func (c *Client) getWithRetry(ctx context.Context, url string) ([]byte, error) {
	maxAttempts := c.maxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		log.Debug().Str("Url", url).Int("Attempt", attempt).Int("MaxAttempts", maxAttempts).
			Msg("fetching market data")

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.HTTP.Do(req)
		if err != nil {
			if isTimeout(err) {
				log.Warn().Err(err).Str("Url", url).Int("Attempt", attempt).
					Msg("request timed out")
				lastErr = err
				continue
			}
			log.Error().Err(err).Str("Url", url).Msg("request failed")
			return nil, err
		}

		if resp.StatusCode >= 400 {
			resp.Body.Close()
			log.Error().Int("HTTPResponseStatusCode", resp.StatusCode).Str("Url", url).
				Msg("feed returned invalid response code")
			return nil, fmt.Errorf("%w: %d", ErrStatusCode, resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			log.Error().Err(err).Str("Url", url).Msg("could not read response body")
			return nil, err
		}
		return body, nil
	}

	log.Error().Err(lastErr).Str("Url", url).Int("MaxAttempts", maxAttempts).
		Msg("request timed out on every attempt")
	return nil, lastErr
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ExchangeRate fetches the MEP rate. The feed returns several rate types;
// only the entry whose `casa` matches the configured selector is used and
// its "venta" side is read. Anything else is unavailable.
func (c *Client) ExchangeRate(ctx context.Context) (*ExchangeRate, error) {
	body, err := c.getWithRetry(ctx, c.ratesURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRateUnavailable, err)
	}

	var entries []rateEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		log.Error().Err(err).Msg("could not parse rate feed response")
		return nil, fmt.Errorf("%w: %s", ErrRateUnavailable, err)
	}

	for _, entry := range entries {
		if entry.Casa != c.rateType {
			continue
		}
		if entry.Venta <= 0 {
			log.Error().Str("RateType", c.rateType).Float64("Venta", entry.Venta).
				Msg("rate feed returned unusable sell value")
			return nil, ErrRateUnavailable
		}

		updatedAt, err := time.Parse(time.RFC3339, entry.UpdatedAt)
		if err != nil {
			// a missing timestamp degrades display only, the rate is still usable
			log.Warn().Err(err).Str("UpdatedAt", entry.UpdatedAt).
				Msg("could not parse rate update timestamp")
			updatedAt = time.Time{}
		}

		log.Info().Str("RateType", c.rateType).Float64("Venta", entry.Venta).
			Time("UpdatedAt", updatedAt).Msg("fetched MEP exchange rate")
		return &ExchangeRate{Value: entry.Venta, UpdatedAt: updatedAt}, nil
	}

	log.Error().Str("RateType", c.rateType).Msg("rate type not present in feed response")
	return nil, ErrRateUnavailable
}

// AskPrices fetches ask prices for the requested tickers in a category. The
// result is partial: tickers without a usable quote are simply omitted. A
// failed fetch yields an empty map, never an error; the caller continues in
// degraded mode. Crypto has no feed wired and always yields an empty map.
func (c *Client) AskPrices(ctx context.Context, category holdings.Category, tickers []string) map[string]float64 {
	prices := make(map[string]float64, len(tickers))

	var url string
	switch category {
	case holdings.CategoryStock:
		url = c.stocksURL
	case holdings.CategoryCedear:
		url = c.cedearsURL
	default:
		log.Info().Str("Category", string(category)).Msg("no price feed wired for category")
		return prices
	}

	body, err := c.getWithRetry(ctx, url)
	if err != nil {
		log.Error().Err(err).Str("Category", string(category)).
			Msg("could not fetch price feed; continuing without quotes")
		return prices
	}

	var entries []priceEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		log.Error().Err(err).Str("Category", string(category)).
			Msg("could not parse price feed response")
		return prices
	}

	// index by symbol once, then O(1) lookups per requested ticker
	bySymbol := make(map[string]float64, len(entries))
	for _, entry := range entries {
		bySymbol[entry.Symbol] = entry.Ask
	}

	for _, ticker := range tickers {
		ask, ok := bySymbol[ticker]
		if !ok || ask <= 0 {
			// a zero ask is not tradable information
			log.Warn().Str("Category", string(category)).Str("Ticker", ticker).
				Msg("no usable quote for ticker")
			continue
		}
		log.Info().Str("Category", string(category)).Str("Ticker", ticker).
			Float64("Ask", ask).Msg("fetched ask price")
		prices[ticker] = ask
	}

	return prices
}
