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

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-holdings/pkginfo"
)

func init() {
	// holdings store
	bindEnv("holdings.file", "HOLDINGS_FILE")
	rootCmd.PersistentFlags().String("holdings-file", "holdings.json", "Path to the holdings JSON document")
	bindFlag("holdings.file", "holdings-file")

	// quote feeds
	bindEnv("quotes.stocks_url", "API_STOCKS")
	rootCmd.PersistentFlags().String("stocks-url", "https://data912.com/live/arg_stocks", "Live stock quote feed URL")
	bindFlag("quotes.stocks_url", "stocks-url")

	bindEnv("quotes.cedears_url", "API_CEDEARS")
	rootCmd.PersistentFlags().String("cedears-url", "https://data912.com/live/arg_cedears", "Live cedear quote feed URL")
	bindFlag("quotes.cedears_url", "cedears-url")

	bindEnv("quotes.rates_url", "API_DOLAR")
	rootCmd.PersistentFlags().String("rates-url", "https://dolarapi.com/v1/dolares", "Exchange rate feed URL")
	bindFlag("quotes.rates_url", "rates-url")

	bindEnv("quotes.rate_type", "DOLAR_CASA")
	rootCmd.PersistentFlags().String("rate-type", "bolsa", "Rate type selector in the exchange rate feed")
	bindFlag("quotes.rate_type", "rate-type")

	bindEnv("quotes.max_retries", "MAX_RETRIES")
	rootCmd.PersistentFlags().Int("max-retries", 3, "Maximum fetch attempts on timeout")
	bindFlag("quotes.max_retries", "max-retries")

	bindEnv("quotes.timeout", "QUOTE_TIMEOUT")
	rootCmd.PersistentFlags().Duration("quote-timeout", 10*time.Second, "Per-request quote fetch timeout")
	bindFlag("quotes.timeout", "quote-timeout")

	// alerting
	bindEnv("alert.threshold", "ALERT_THRESHOLD")
	rootCmd.PersistentFlags().Float64("alert-threshold", 40.0, "Performance percentage that triggers a notification")
	bindFlag("alert.threshold", "alert-threshold")

	// telegram credentials only come from env / config file
	bindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN")
	bindEnv("telegram.chat_id", "TELEGRAM_CHAT_ID")

	// logging configuration
	bindEnv("log.level", "PV_LOG_LEVEL")
	rootCmd.PersistentFlags().String("log-level", "info", "Logging level")
	bindFlag("log.level", "log-level")

	bindEnv("log.output", "PV_LOG_OUTPUT")
	rootCmd.PersistentFlags().String("log-output", "stderr", "Write logs to specified output one of: file path, `stdout`, or `stderr`")
	bindFlag("log.output", "log-output")

	bindEnv("log.pretty", "PV_LOG_PRETTY")
	rootCmd.PersistentFlags().Bool("log-pretty", true, "Print colorized logs")
	bindFlag("log.pretty", "log-pretty")

	bindEnv("log.report_caller", "PV_LOG_REPORT_CALLER")
	rootCmd.PersistentFlags().Bool("log-report-caller", false, "Log function name that called log statement")
	bindFlag("log.report_caller", "log-report-caller")
}

func bindEnv(key string, env string) {
	if err := viper.BindEnv(key, env); err != nil {
		log.Panic().Err(err).Str("Key", key).Msg("could not bind environment variable")
	}
}

func bindFlag(key string, flag string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		log.Panic().Err(err).Str("Key", key).Msg("could not bind flag")
	}
}

var rootCmd = &cobra.Command{
	Use:     "pv-holdings",
	Version: pkginfo.Version,
	Short:   "pv-holdings tracks an investment portfolio of stocks, cedears and crypto",
	Long: `pv-holdings values a portfolio of argentine stocks, cedears and crypto in
USD using the MEP exchange rate, prints a performance report and sends a
Telegram notification when any position beats the alert threshold.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
