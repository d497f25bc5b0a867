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

package portfolio_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/penny-vault/pv-holdings/holdings"
	"github.com/penny-vault/pv-holdings/portfolio"
)

var _ = Describe("ToUSD", func() {
	It("divides the ARS amount by the rate", func() {
		Expect(portfolio.ToUSD(150000, 1000)).To(Equal(150.0))
		Expect(portfolio.ToUSD(1050.25, 1050.25)).To(Equal(1.0))
	})

	It("is strictly decreasing in the rate for a fixed price", func() {
		price := 98765.4
		prev := portfolio.ToUSD(price, 500)
		for _, rate := range []float64{750, 1000, 1250, 1500} {
			cur := portfolio.ToUSD(price, rate)
			Expect(cur).To(BeNumerically("<", prev))
			prev = cur
		}
	})
})

var _ = Describe("ComputePerformance", func() {
	Context("with an ARS priced asset", func() {
		It("converts at the rate and computes every derived field", func() {
			perf := portfolio.ComputePerformance("GGAL", holdings.CategoryStock, 10, 1000, 150000, true, 1000)

			Expect(perf.Ticker).To(Equal("GGAL"))
			Expect(perf.Category).To(Equal(holdings.CategoryStock))
			Expect(perf.PricedInARS).To(BeTrue())
			Expect(perf.LocalPrice).To(Equal(150000.0))
			Expect(perf.RateUsed).To(Equal(1000.0))
			Expect(perf.CurrentPrice).To(Equal(150.0))
			Expect(perf.UnitCost).To(Equal(100.0))
			Expect(perf.CurrentValue).To(Equal(1500.0))
			Expect(perf.GainLoss).To(Equal(500.0))
			Expect(perf.Performance).To(Equal(50.0))
		})
	})

	Context("with a USD priced asset", func() {
		It("uses the price unchanged and leaves audit fields empty", func() {
			perf := portfolio.ComputePerformance("BTC", holdings.CategoryCrypto, 2, 40000, 30000, false, 1000)

			Expect(perf.PricedInARS).To(BeFalse())
			Expect(perf.LocalPrice).To(BeZero())
			Expect(perf.RateUsed).To(BeZero())
			Expect(perf.CurrentPrice).To(Equal(30000.0))
			Expect(perf.CurrentValue).To(Equal(60000.0))
			Expect(perf.GainLoss).To(Equal(20000.0))
			Expect(perf.Performance).To(Equal(50.0))
		})
	})

	It("reproduces the performance formula for positive cost bases", func() {
		perf := portfolio.ComputePerformance("PAMP", holdings.CategoryStock, 37, 1234.5, 98765, true, 987.5)

		expected := (perf.CurrentValue - perf.CostBasis) / perf.CostBasis * 100
		Expect(perf.Performance).To(Equal(expected))
	})

	It("reports losses as negative performance", func() {
		perf := portfolio.ComputePerformance("YPFD", holdings.CategoryStock, 10, 2000, 100000, true, 1000)

		Expect(perf.CurrentValue).To(Equal(1000.0))
		Expect(perf.GainLoss).To(Equal(-1000.0))
		Expect(perf.Performance).To(Equal(-50.0))
	})

	It("defines a zero performance for a zero cost basis", func() {
		perf := portfolio.ComputePerformance("GIFT", holdings.CategoryCedear, 5, 0, 1000, true, 1000)

		Expect(perf.CurrentValue).To(Equal(5.0))
		Expect(perf.GainLoss).To(Equal(5.0))
		Expect(perf.Performance).To(BeZero())
	})
})

var _ = Describe("Aggregate", func() {
	asset := func(cost, value float64) portfolio.AssetPerformance {
		return portfolio.AssetPerformance{
			CostBasis:    cost,
			CurrentValue: value,
			GainLoss:     value - cost,
		}
	}

	It("aggregates an empty collection to all-zero totals", func() {
		totals := portfolio.Aggregate(nil)
		Expect(totals.Cost).To(BeZero())
		Expect(totals.Value).To(BeZero())
		Expect(totals.GainLoss).To(BeZero())
		Expect(totals.Performance).To(BeZero())
	})

	It("sums cost and value and derives gain and performance", func() {
		totals := portfolio.Aggregate([]portfolio.AssetPerformance{
			asset(1000, 1500),
			asset(500, 250),
		})

		Expect(totals.Cost).To(Equal(1500.0))
		Expect(totals.Value).To(Equal(1750.0))
		Expect(totals.GainLoss).To(Equal(250.0))
		Expect(totals.Performance).To(BeNumerically("~", 16.6667, 1e-3))
	})

	It("is order independent and splits across subsets", func() {
		a := asset(1000, 1100)
		b := asset(2000, 1900)
		c := asset(300, 450)

		whole := portfolio.Aggregate([]portfolio.AssetPerformance{a, b, c})
		reversed := portfolio.Aggregate([]portfolio.AssetPerformance{c, b, a})
		Expect(reversed).To(Equal(whole))

		first := portfolio.Aggregate([]portfolio.AssetPerformance{a})
		rest := portfolio.Aggregate([]portfolio.AssetPerformance{b, c})
		Expect(first.Cost + rest.Cost).To(Equal(whole.Cost))
		Expect(first.Value + rest.Value).To(Equal(whole.Value))
		Expect(first.GainLoss + rest.GainLoss).To(Equal(whole.GainLoss))
	})

	It("defines zero performance when the total cost is zero", func() {
		totals := portfolio.Aggregate([]portfolio.AssetPerformance{
			asset(0, 100),
			asset(0, 200),
		})

		Expect(totals.Value).To(Equal(300.0))
		Expect(totals.Performance).To(BeZero())
	})
})

var _ = Describe("AnyExceeds", func() {
	records := func(performances ...float64) []portfolio.AssetPerformance {
		out := make([]portfolio.AssetPerformance, 0, len(performances))
		for _, p := range performances {
			out = append(out, portfolio.AssetPerformance{Performance: p})
		}
		return out
	}

	It("is false for an empty collection at any threshold", func() {
		Expect(portfolio.AnyExceeds(nil, -100)).To(BeFalse())
		Expect(portfolio.AnyExceeds(nil, 0)).To(BeFalse())
		Expect(portfolio.AnyExceeds(nil, 40)).To(BeFalse())
	})

	It("is true iff at least one record strictly exceeds the threshold", func() {
		Expect(portfolio.AnyExceeds(records(10, 39.9), 40)).To(BeFalse())
		Expect(portfolio.AnyExceeds(records(10, 40.1), 40)).To(BeTrue())
		Expect(portfolio.AnyExceeds(records(41, -90), 40)).To(BeTrue())
	})

	It("does not count an exactly-equal performance", func() {
		Expect(portfolio.AnyExceeds(records(40.0), 40)).To(BeFalse())
	})
})

var _ = Describe("Exceeding", func() {
	It("returns only the records above the threshold", func() {
		out := portfolio.Exceeding([]portfolio.AssetPerformance{
			{Ticker: "A", Performance: 50},
			{Ticker: "B", Performance: 40},
			{Ticker: "C", Performance: 41},
		}, 40)

		Expect(out).To(HaveLen(2))
		Expect(out[0].Ticker).To(Equal("A"))
		Expect(out[1].Ticker).To(Equal("C"))
	})
})
