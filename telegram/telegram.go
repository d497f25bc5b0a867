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

// Package telegram delivers portfolio summaries and high-performance alerts
// through the Telegram Bot API. Delivery failure is never fatal to a run.
package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/penny-vault/pv-holdings/portfolio"
	"github.com/penny-vault/pv-holdings/report"
)

const apiURL = "https://api.telegram.org"

var ErrNotConfigured = errors.New("telegram notifier is not configured")

// Notifier sends messages to a configured chat.
type Notifier struct {
	Token  string
	ChatID string
	// HTTP is exported so tests can install a mock transport
	HTTP *http.Client
}

// New builds a notifier from viper configuration. Missing credentials leave
// the notifier disabled; the run continues without notifications.
func New() *Notifier {
	n := &Notifier{
		Token:  viper.GetString("telegram.bot_token"),
		ChatID: viper.GetString("telegram.chat_id"),
		HTTP:   &http.Client{Timeout: 10 * time.Second},
	}
	if !n.Enabled() {
		log.Warn().Msg("telegram notifier disabled (set TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID)")
	}
	return n
}

// Enabled reports whether both the bot token and chat id are configured.
func (n *Notifier) Enabled() bool {
	return n.Token != "" && n.ChatID != ""
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage posts text to the configured chat with HTML parse mode.
func (n *Notifier) SendMessage(ctx context.Context, text string) error {
	if !n.Enabled() {
		return ErrNotConfigured
	}

	payload, err := json.Marshal(sendMessageRequest{
		ChatID:    n.ChatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", apiURL, n.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.HTTP.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("could not send telegram message")
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Error().Int("HTTPResponseStatusCode", resp.StatusCode).
			Msg("telegram API returned invalid response code")
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	log.Info().Msg("telegram message sent")
	return nil
}

// PerformanceEmoji maps a performance percentage to its alert tier.
func PerformanceEmoji(pct float64) string {
	switch {
	case pct <= -80:
		return "☠"
	case pct <= -51:
		return "💀"
	case pct <= -16:
		return "🔴"
	case pct < 0:
		return "🟠"
	case pct <= 9:
		return "🟡"
	case pct <= 39:
		return "🟢"
	case pct <= 59:
		return "🤑"
	case pct <= 99:
		return "💰"
	default:
		return "💎"
	}
}

func formatRateDate(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format("02/01/2006 15:04")
}

// PortfolioMessage formats the portfolio summary as a Telegram HTML message.
// customTitle replaces the default header when non-empty.
func PortfolioMessage(summary *portfolio.Summary, customTitle string) string {
	var lines []string

	title := "Resumen de Cartera"
	if customTitle != "" {
		title = customTitle
	}
	lines = append(lines, fmt.Sprintf("📊 <b>%s</b>\n", title))
	lines = append(lines, fmt.Sprintf("💵 <b>Dólar MEP:</b> $%.2f", summary.Rate.Value))
	lines = append(lines, fmt.Sprintf("📅 <b>Actualizado:</b> %s\n", formatRateDate(summary.Rate.UpdatedAt)))

	if len(summary.Stocks) > 0 {
		lines = append(lines, "━━━━━━━━━━━━━━━━━━━")
		lines = append(lines, "<b>🇦🇷 ACCIONES</b>")
		lines = append(lines, assetLines(summary.Stocks)...)
	}
	if len(summary.Cedears) > 0 {
		lines = append(lines, "\n<b>🌎 CEDEARS</b>")
		lines = append(lines, assetLines(summary.Cedears)...)
	}
	if len(summary.Crypto) > 0 {
		lines = append(lines, "\n<b>₿ CRYPTO</b>")
		lines = append(lines, assetLines(summary.Crypto)...)
	}

	lines = append(lines, "━━━━━━━━━━━━━━━━━━━")
	return strings.Join(lines, "\n")
}

func assetLines(assets []portfolio.AssetPerformance) []string {
	lines := make([]string, 0, len(assets))
	for _, a := range assets {
		lines = append(lines, fmt.Sprintf("%s <b>%s</b>: %s",
			PerformanceEmoji(a.Performance), a.Ticker, report.FormatPercent(a.Performance)))
	}
	return lines
}

// UnitsToRecover returns how many units must be sold at the current price to
// recover the initial investment.
func UnitsToRecover(costBasis float64, currentPrice float64) float64 {
	return math.Ceil(costBasis / currentPrice)
}

// RecoveryAlert formats the high-performance alert for assets above the
// threshold, including a sell suggestion that recovers the original
// investment while keeping the remaining units.
func RecoveryAlert(assets []portfolio.AssetPerformance, rate float64, rateUpdated time.Time) string {
	var lines []string

	lines = append(lines, "🚨🔥 <b>¡ALERTA DE ALTO RENDIMIENTO!</b> 🔥🚨\n")

	if len(assets) == 1 {
		a := assets[0]
		lines = append(lines, fmt.Sprintf("💎 <b>Activo %s</b> superó el umbral", a.Ticker))
		lines = append(lines, fmt.Sprintf("📈 <b>Rendimiento actual:</b> %s", report.FormatPercent(a.Performance)))
		lines = append(lines, fmt.Sprintf("💰 <b>Ganancia:</b> $%.2f USD", a.GainLoss))

		sellUnits := UnitsToRecover(a.CostBasis, a.CurrentPrice)
		lines = append(lines, "")
		lines = append(lines, "━━━━━━━━━━━━━━━━━━━")
		lines = append(lines, "💡 <b>Estrategia de Recuperación:</b>")
		if sellUnits <= a.Quantity {
			remaining := a.Quantity - sellUnits
			recovered := sellUnits * a.CurrentPrice
			lines = append(lines, fmt.Sprintf("📈 <b>Vende %g</b> %s → Recuperas $%.2f USD", sellUnits, a.Ticker, recovered))
			lines = append(lines, fmt.Sprintf("🎁 <b>Te quedan %g</b> %s <b>GRATIS</b>", remaining, a.Ticker))
		} else {
			lines = append(lines, fmt.Sprintf("📤 <b>Vende todo</b> (%g %s) para maximizar ganancia", a.Quantity, a.Ticker))
		}
	} else {
		lines = append(lines, fmt.Sprintf("💎 <b>%d activos</b> superaron el umbral\n", len(assets)))
		for _, a := range assets {
			sellUnits := UnitsToRecover(a.CostBasis, a.CurrentPrice)
			if sellUnits <= a.Quantity {
				remaining := a.Quantity - sellUnits
				lines = append(lines, fmt.Sprintf("🔸 <b>%s:</b> %s → Vende %g, quedan %g gratis",
					a.Ticker, report.FormatPercent(a.Performance), sellUnits, remaining))
			} else {
				lines = append(lines, fmt.Sprintf("🔸 <b>%s:</b> %s", a.Ticker, report.FormatPercent(a.Performance)))
			}
		}
	}

	lines = append(lines, "")
	lines = append(lines, "━━━━━━━━━━━━━━━━━━━")
	lines = append(lines, fmt.Sprintf("💵 <b>Dólar MEP:</b> $%.2f", rate))
	lines = append(lines, fmt.Sprintf("📅 <b>Actualizado:</b> %s", formatRateDate(rateUpdated)))
	lines = append(lines, "━━━━━━━━━━━━━━━━━━━")
	return strings.Join(lines, "\n")
}
