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

package telegram_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/jarcoal/httpmock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-holdings/holdings"
	"github.com/penny-vault/pv-holdings/portfolio"
	"github.com/penny-vault/pv-holdings/quote"
	"github.com/penny-vault/pv-holdings/telegram"
)

var _ = Describe("Notifier", func() {
	var (
		ctx      context.Context
		notifier *telegram.Notifier
	)

	BeforeEach(func() {
		ctx = context.Background()
		notifier = &telegram.Notifier{
			Token:  "TESTTOKEN",
			ChatID: "12345",
			HTTP:   &http.Client{Timeout: 10 * time.Second},
		}
		httpmock.ActivateNonDefault(notifier.HTTP)
	})

	AfterEach(func() {
		httpmock.DeactivateAndReset()
	})

	Context("enablement", func() {
		It("is disabled without a token or chat id", func() {
			Expect((&telegram.Notifier{ChatID: "1"}).Enabled()).To(BeFalse())
			Expect((&telegram.Notifier{Token: "t"}).Enabled()).To(BeFalse())
			Expect(notifier.Enabled()).To(BeTrue())
		})

		It("refuses to send when disabled", func() {
			disabled := &telegram.Notifier{HTTP: notifier.HTTP}
			err := disabled.SendMessage(ctx, "hello")
			Expect(errors.Is(err, telegram.ErrNotConfigured)).To(BeTrue())
			Expect(httpmock.GetTotalCallCount()).To(Equal(0))
		})
	})

	Context("SendMessage", func() {
		It("posts the message to the bot endpoint with HTML parse mode", func() {
			var payload map[string]string
			httpmock.RegisterResponder("POST", "https://api.telegram.org/botTESTTOKEN/sendMessage",
				func(req *http.Request) (*http.Response, error) {
					body, err := io.ReadAll(req.Body)
					Expect(err).To(BeNil())
					Expect(json.Unmarshal(body, &payload)).To(Succeed())
					return httpmock.NewStringResponse(200, `{"ok": true}`), nil
				})

			err := notifier.SendMessage(ctx, "<b>hola</b>")
			Expect(err).To(BeNil())
			Expect(payload["chat_id"]).To(Equal("12345"))
			Expect(payload["text"]).To(Equal("<b>hola</b>"))
			Expect(payload["parse_mode"]).To(Equal("HTML"))
		})

		It("errors on an API error status", func() {
			httpmock.RegisterResponder("POST", "https://api.telegram.org/botTESTTOKEN/sendMessage",
				httpmock.NewStringResponder(403, `{"ok": false}`))

			err := notifier.SendMessage(ctx, "hola")
			Expect(err).ToNot(BeNil())
		})

		It("errors on a transport failure", func() {
			httpmock.RegisterResponder("POST", "https://api.telegram.org/botTESTTOKEN/sendMessage",
				httpmock.NewErrorResponder(errors.New("no route to host")))

			err := notifier.SendMessage(ctx, "hola")
			Expect(err).ToNot(BeNil())
		})
	})
})

var _ = Describe("PerformanceEmoji", func() {
	It("maps each performance tier", func() {
		Expect(telegram.PerformanceEmoji(-95)).To(Equal("☠"))
		Expect(telegram.PerformanceEmoji(-60)).To(Equal("💀"))
		Expect(telegram.PerformanceEmoji(-20)).To(Equal("🔴"))
		Expect(telegram.PerformanceEmoji(-0.5)).To(Equal("🟠"))
		Expect(telegram.PerformanceEmoji(0)).To(Equal("🟡"))
		Expect(telegram.PerformanceEmoji(25)).To(Equal("🟢"))
		Expect(telegram.PerformanceEmoji(50)).To(Equal("🤑"))
		Expect(telegram.PerformanceEmoji(75)).To(Equal("💰"))
		Expect(telegram.PerformanceEmoji(150)).To(Equal("💎"))
	})
})

var _ = Describe("PortfolioMessage", func() {
	var summary *portfolio.Summary

	BeforeEach(func() {
		summary = &portfolio.Summary{
			Rate: quote.ExchangeRate{
				Value:     1050.25,
				UpdatedAt: time.Date(2024, 5, 10, 14, 30, 0, 0, time.UTC),
			},
			Stocks: []portfolio.AssetPerformance{
				{Ticker: "GGAL", Category: holdings.CategoryStock, Performance: 50},
			},
			Cedears: []portfolio.AssetPerformance{
				{Ticker: "AAPL", Category: holdings.CategoryCedear, Performance: -10},
			},
		}
	})

	It("uses the default title when no custom title is given", func() {
		msg := telegram.PortfolioMessage(summary, "")
		Expect(msg).To(ContainSubstring("Resumen de Cartera"))
		Expect(msg).To(ContainSubstring("$1050.25"))
		Expect(msg).To(ContainSubstring("10/05/2024 14:30"))
	})

	It("uses the custom title when given", func() {
		msg := telegram.PortfolioMessage(summary, "Cierre semanal")
		Expect(msg).To(ContainSubstring("Cierre semanal"))
		Expect(msg).ToNot(ContainSubstring("Resumen de Cartera"))
	})

	It("lists each asset with its tier emoji and signed performance", func() {
		msg := telegram.PortfolioMessage(summary, "")
		Expect(msg).To(ContainSubstring("🤑 <b>GGAL</b>: +50.00%"))
		Expect(msg).To(ContainSubstring("🟠 <b>AAPL</b>: -10.00%"))
	})

	It("omits empty categories", func() {
		summary.Cedears = nil
		msg := telegram.PortfolioMessage(summary, "")
		Expect(msg).To(ContainSubstring("ACCIONES"))
		Expect(msg).ToNot(ContainSubstring("CEDEARS"))
		Expect(msg).ToNot(ContainSubstring("CRYPTO"))
	})
})

var _ = Describe("RecoveryAlert", func() {
	updated := time.Date(2024, 5, 10, 14, 30, 0, 0, time.UTC)

	It("suggests selling just enough units to recover the investment", func() {
		assets := []portfolio.AssetPerformance{{
			Ticker:       "X",
			Quantity:     10,
			CostBasis:    1000,
			CurrentPrice: 150,
			GainLoss:     500,
			Performance:  50,
		}}

		// ceil(1000 / 150) = 7 units, 3 remain
		msg := telegram.RecoveryAlert(assets, 1000, updated)
		Expect(msg).To(ContainSubstring("Vende 7"))
		Expect(msg).To(ContainSubstring("Te quedan 3"))
		Expect(msg).To(ContainSubstring("+50.00%"))
	})

	It("suggests selling everything when recovery needs more units than held", func() {
		assets := []portfolio.AssetPerformance{{
			Ticker:       "Y",
			Quantity:     5,
			CostBasis:    1000,
			CurrentPrice: 150,
			Performance:  41,
		}}

		// ceil(1000 / 150) = 7 > 5 held
		msg := telegram.RecoveryAlert(assets, 1000, updated)
		Expect(msg).To(ContainSubstring("Vende todo"))
	})

	It("lists every asset when several exceed the threshold", func() {
		assets := []portfolio.AssetPerformance{
			{Ticker: "A", Quantity: 10, CostBasis: 1000, CurrentPrice: 150, Performance: 50},
			{Ticker: "B", Quantity: 3, CostBasis: 900, CurrentPrice: 450, Performance: 45},
		}

		msg := telegram.RecoveryAlert(assets, 1000, updated)
		Expect(msg).To(ContainSubstring("2 activos"))
		Expect(msg).To(ContainSubstring("<b>A:</b>"))
		Expect(msg).To(ContainSubstring("<b>B:</b>"))
	})
})

var _ = Describe("UnitsToRecover", func() {
	It("rounds the unit count up", func() {
		Expect(telegram.UnitsToRecover(1000, 150)).To(Equal(7.0))
		Expect(telegram.UnitsToRecover(900, 450)).To(Equal(2.0))
		Expect(telegram.UnitsToRecover(1000, 1000)).To(Equal(1.0))
	})
})
