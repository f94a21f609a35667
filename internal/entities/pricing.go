package entities

import (
	"fmt"
	"strconv"
	"strings"
)

// Fee is a percentage surcharge on the subtotal. Percent is a fraction
// (0.03 for 3%), not a percent value.
type Fee struct {
	Name    string
	Percent float64
}

// FeeSchedule is the ordered list of fees applied to a booking. Which
// schedule applies is configuration, not code: the observed products use
// {platform 3%, protection 10%} for rentals and {platform 5%} for purchases.
type FeeSchedule []Fee

// ParseFeeSchedule reads the env form "platform:0.03,protection:0.10".
func ParseFeeSchedule(s string) (FeeSchedule, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var schedule FeeSchedule
	for _, part := range strings.Split(s, ",") {
		name, pct, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("invalid fee entry %q", part)
		}
		p, err := strconv.ParseFloat(pct, 64)
		if err != nil || p < 0 {
			return nil, fmt.Errorf("invalid fee percent %q", pct)
		}
		schedule = append(schedule, Fee{Name: name, Percent: p})
	}
	return schedule, nil
}

// FeeLine is one computed fee of a breakdown.
type FeeLine struct {
	Name        string `json:"name"`
	AmountCents int64  `json:"amount_cents"`
}

// PriceBreakdown is the itemized cost shown to the buyer and charged by the
// gateway. All amounts are integer cents; the two must never disagree.
type PriceBreakdown struct {
	Days          int       `json:"days"`
	SubtotalCents int64     `json:"subtotal_cents"`
	Fees          []FeeLine `json:"fees"`
	TotalCents    int64     `json:"total_cents"`
}

// FeeTotal returns the sum of all fee lines.
func (b PriceBreakdown) FeeTotal() int64 {
	var sum int64
	for _, f := range b.Fees {
		sum += f.AmountCents
	}
	return sum
}
