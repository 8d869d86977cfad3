package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/phoe8lin/hugeorders/market"
	"github.com/phoe8lin/hugeorders/scanner"
)

// 面板状态
const (
	StateStarting = "starting"
	StateScanning = "scanning"
	StateReady    = "ready"
	StateWaiting  = "waiting"
)

const (
	msgScanning    = "Scanning..."
	msgNoDetection = "No large orders found in this scan."
	msgWaiting     = "Please select at least one trading pair to start scanning."
	colorGreen     = "green"
	colorRed       = "red"
	timeLayout     = "2006-01-02 15:04:05"
)

// Row 表格中的一行，数值已按展示格式转成字符串。
type Row struct {
	Instrument          string `json:"instrument"`
	Side                string `json:"side"`
	SideColor           string `json:"sideColor"`
	CurrentPrice        string `json:"currentPrice"`
	LargeOrderPrice     string `json:"largeOrderPrice"`
	Ratio               string `json:"ratio"`
	PercentDistance     string `json:"percentDistance"`
	PercentColor        string `json:"percentColor"`
	LargeOrderQuantity  string `json:"largeOrderQuantity"`
	OppositeNextFourSum string `json:"oppositeNextFourSum"`
}

// SettingsView 当前生效的扫描设置。
type SettingsView struct {
	Instruments     []string `json:"instruments"`
	IntervalMinutes int      `json:"intervalMinutes"`
}

// Snapshot 面板展示的完整状态，每次变化整体推送。
type Snapshot struct {
	State    string            `json:"state"`
	Message  string            `json:"message"`
	LastScan string            `json:"lastScan,omitempty"`
	Settings SettingsView      `json:"settings"`
	Rows     []Row             `json:"rows"`
	Warnings []scanner.Warning `json:"warnings"`
}

func settingsView(s scanner.Settings) SettingsView {
	ins := s.Instruments
	if ins == nil {
		ins = []string{}
	}
	return SettingsView{Instruments: ins, IntervalMinutes: s.IntervalMinutes()}
}

func rowFromDetection(d market.Detection) Row {
	row := Row{
		Instrument:          d.Instrument,
		Side:                string(d.Side),
		SideColor:           colorRed,
		CurrentPrice:        formatAmount(d.CurrentPrice),
		LargeOrderPrice:     formatAmount(d.LargeOrderPrice),
		Ratio:               d.RatioString(),
		PercentDistance:     d.PercentDistance.StringFixed(4) + "%",
		PercentColor:        colorRed,
		LargeOrderQuantity:  formatAmount(d.LargeOrderQuantity),
		OppositeNextFourSum: formatAmount(d.OppositeNextFourSum),
	}
	if d.Side == market.SideBid {
		row.SideColor = colorGreen
	}
	if d.PercentDistance.IsPositive() {
		row.PercentColor = colorGreen
	}
	return row
}

func rowsFromCycle(c scanner.Cycle) []Row {
	rows := make([]Row, 0, len(c.Detections))
	for _, d := range c.Detections {
		rows = append(rows, rowFromDetection(d))
	}
	return rows
}

// formatAmount 保留 4 位小数并加千分位，例如 65,432.1000。
func formatAmount(d decimal.Decimal) string {
	s := d.StringFixed(4)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	b.WriteString(sign)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

func formatScanTime(t time.Time, loc *time.Location) string {
	return fmt.Sprintf("%s (%s)", t.In(loc).Format(timeLayout), loc.String())
}
