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
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-holdings/common"
	"github.com/penny-vault/pv-holdings/holdings"
	"github.com/penny-vault/pv-holdings/portfolio"
	"github.com/penny-vault/pv-holdings/quote"
	"github.com/penny-vault/pv-holdings/report"
	"github.com/penny-vault/pv-holdings/telegram"
)

var reportNotify bool

func init() {
	reportCmd.Flags().BoolVarP(&reportNotify, "notify", "n", false, "always send a Telegram notification")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report [flags] [notification title]",
	Short: "Value the portfolio and print a performance report",
	Long: `Load the holdings document, fetch the MEP exchange rate and live ask
prices, compute per-asset and aggregate performance, print a console report
and send a Telegram notification when forced or when any position exceeds the
alert threshold. Trailing arguments form a custom notification title.`,
	Args: cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		common.SetupLogging()
		ctx := context.Background()

		customTitle := customTitleFromArgs(args)
		if customTitle != "" {
			log.Info().Str("Title", customTitle).Msg("using custom notification title")
		}

		p, err := holdings.Load(viper.GetString("holdings.file"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not load holdings")
		}

		tracker := portfolio.NewTracker(quote.NewClient())
		summary, err := tracker.Process(ctx, p)
		if err != nil {
			log.Fatal().Err(err).Msg("could not value portfolio")
		}

		report.NewConsole().Render(summary)

		notify(ctx, summary, customTitle)
	},
}

// customTitleFromArgs joins the trailing tokens that do not start with "-"
// into the notification title.
func customTitleFromArgs(args []string) string {
	words := make([]string, 0, len(args))
	for _, arg := range args {
		if strings.HasPrefix(arg, "-") {
			continue
		}
		words = append(words, arg)
	}
	return strings.Join(words, " ")
}

// notify sends Telegram messages when forced by --notify or when any asset
// beats the alert threshold. Delivery problems are logged and never fail the
// run.
func notify(ctx context.Context, summary *portfolio.Summary, customTitle string) {
	threshold := viper.GetFloat64("alert.threshold")
	all := summary.All()
	thresholdMet := portfolio.AnyExceeds(all, threshold)

	switch {
	case reportNotify:
		log.Info().Msg("notification forced by command line flag")
	case thresholdMet:
		log.Info().Float64("Threshold", threshold).
			Msg("notification triggered: at least one asset exceeds the alert threshold")
	default:
		log.Info().Float64("Threshold", threshold).
			Msg("no notification: threshold not met and not forced")
		return
	}

	notifier := telegram.New()
	if !notifier.Enabled() {
		return
	}

	if err := notifier.SendMessage(ctx, telegram.PortfolioMessage(summary, customTitle)); err != nil {
		log.Error().Err(err).Msg("could not send portfolio notification")
	}

	if thresholdMet {
		alert := telegram.RecoveryAlert(portfolio.Exceeding(all, threshold),
			summary.Rate.Value, summary.Rate.UpdatedAt)
		if err := notifier.SendMessage(ctx, alert); err != nil {
			log.Error().Err(err).Msg("could not send high performance alert")
		}
	}
}
