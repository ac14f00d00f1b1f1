package core

import (
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/shopspring/decimal"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// CategoryTotals maps category names to summed amounts, remembering the
// order in which categories first appeared.
type CategoryTotals struct {
	items []CategoryAmount
	index map[string]int
}

// Add accumulates amount under category.
func (c *CategoryTotals) Add(category string, amount decimal.Decimal) {
	if c.index == nil {
		c.index = make(map[string]int)
	}
	if i, ok := c.index[category]; ok {
		c.items[i].Amount = c.items[i].Amount.Add(amount)
		return
	}
	c.index[category] = len(c.items)
	c.items = append(c.items, CategoryAmount{Name: category, Amount: amount})
}

// Get returns the total for category, or zero.
func (c CategoryTotals) Get(category string) decimal.Decimal {
	if i, ok := c.index[category]; ok {
		return c.items[i].Amount
	}
	return decimal.Zero
}

// Items returns a copy of the totals in first-occurrence order.
func (c CategoryTotals) Items() []CategoryAmount {
	return append([]CategoryAmount(nil), c.items...)
}

func (c CategoryTotals) Len() int {
	return len(c.items)
}

// Total sums every category.
func (c CategoryTotals) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(it.Amount)
	}
	return total
}

// Summary is the result of aggregating a transaction list.
type Summary struct {
	Expenses         CategoryTotals
	Income           CategoryTotals
	TotalExpenses    decimal.Decimal
	TotalIncome      decimal.Decimal
	TransactionCount int
}

// Aggregate partitions transactions into expenses and income and sums them
// per category. Every type other than "expense" is counted as income.
func Aggregate(txs []Transaction) Summary {
	var s Summary
	for _, tx := range txs {
		if tx.IsExpense() {
			s.Expenses.Add(tx.Category, tx.Amount)
		} else {
			s.Income.Add(tx.Category, tx.Amount)
		}
	}
	s.TotalExpenses = s.Expenses.Total()
	s.TotalIncome = s.Income.Total()
	s.TransactionCount = len(txs)
	return s
}

// Fingerprint identifies the chart a summary renders to. Category order is
// part of the key because it changes label placement.
func (s Summary) Fingerprint() string {
	h := sha256.New()
	write := func(tag string, c CategoryTotals) {
		for _, it := range c.items {
			_, _ = io.WriteString(h, tag+"\x1f"+it.Name+"\x1f"+it.Amount.String()+"\x1e")
		}
	}
	write("e", s.Expenses)
	write("i", s.Income)
	return hex.EncodeToString(h.Sum(nil))
}
