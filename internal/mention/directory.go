// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mention

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// MENTIONABLE
// =============================================================================

// Mentionable is a directory entry (an agent persona) that can be referenced
// with a mention token such as "@warren_buffett".
type Mentionable struct {
	// ID is the stable key inserted after the trigger character.
	ID string `yaml:"name" toml:"name" json:"name"`
	// DisplayName is the human label shown in the suggestion list.
	DisplayName string `yaml:"title" toml:"title" json:"title"`
	// Description is free text shown under the label.
	Description string `yaml:"description" toml:"description" json:"description"`
}

// Token returns the mention token for this entry, without a trailing space.
func (m Mentionable) Token() string {
	return string(Trigger) + m.ID
}

// =============================================================================
// DIRECTORY
// =============================================================================

var (
	// ErrEmptyID is returned when a directory entry has no identifier.
	ErrEmptyID = errors.New("mention: entry has an empty id")
	// ErrDuplicateID is returned when two entries share an identifier.
	ErrDuplicateID = errors.New("mention: duplicate id")
	// ErrInvalidID is returned when an identifier cannot form a mention token.
	ErrInvalidID = errors.New("mention: invalid id")
)

// Directory is an immutable, ordered set of mentionable entries.
// A nil *Directory behaves as an empty directory.
type Directory struct {
	entries []Mentionable
	index   map[string]int
}

// NewDirectory builds a directory, preserving the order of entries.
// Identifiers must be non-empty, unique and free of whitespace and of the
// trigger character.
func NewDirectory(entries ...Mentionable) (*Directory, error) {
	d := &Directory{
		entries: make([]Mentionable, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("%w (entry %d)", ErrEmptyID, i)
		}
		if strings.IndexFunc(e.ID, func(r rune) bool { return unicode.IsSpace(r) || r == Trigger }) >= 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidID, e.ID)
		}
		if _, ok := d.index[e.ID]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, e.ID)
		}
		d.index[e.ID] = len(d.entries)
		d.entries = append(d.entries, e)
	}
	return d, nil
}

// Len returns the number of entries.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// All returns a copy of every entry in directory order.
func (d *Directory) All() []Mentionable {
	if d == nil {
		return nil
	}
	out := make([]Mentionable, len(d.entries))
	copy(out, d.entries)
	return out
}

// Lookup returns the entry with the given identifier.
func (d *Directory) Lookup(id string) (Mentionable, bool) {
	if d == nil {
		return Mentionable{}, false
	}
	i, ok := d.index[id]
	if !ok {
		return Mentionable{}, false
	}
	return d.entries[i], true
}

// Filter returns the entries whose ID or DisplayName contains query,
// case-insensitively. Order is always directory order; there is no
// relevance ranking. An empty query returns every entry.
func (d *Directory) Filter(query string) []Mentionable {
	if query == "" {
		return d.All()
	}
	if d == nil {
		return nil
	}
	q := fold(query)
	var out []Mentionable
	for _, e := range d.entries {
		if strings.Contains(fold(e.ID), q) || strings.Contains(fold(e.DisplayName), q) {
			out = append(out, e)
		}
	}
	return out
}

// Mentions returns the directory entries referenced by complete mention
// tokens in text, in order of first appearance.
func (d *Directory) Mentions(text string) []Mentionable {
	if d.Len() == 0 {
		return nil
	}
	var out []Mentionable
	seen := make(map[string]bool)
	for _, word := range strings.Fields(text) {
		if len(word) < 2 || word[0] != byte(Trigger) {
			continue
		}
		id := word[1:]
		if seen[id] {
			continue
		}
		if e, ok := d.Lookup(id); ok {
			seen[id] = true
			out = append(out, e)
		}
	}
	return out
}

// fold normalizes s for case-insensitive comparison. NFC keeps composed and
// decomposed accents comparable.
func fold(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}

// =============================================================================
// DEFAULT DIRECTORY
// =============================================================================

// DefaultDirectory returns the built-in investor and analyst personas.
func DefaultDirectory() *Directory {
	d, err := NewDirectory(defaultEntries...)
	if err != nil {
		panic(err)
	}
	return d
}

var defaultEntries = []Mentionable{
	{ID: "warren_buffett", DisplayName: "Warren Buffett",
		Description: "The oracle of Omaha, seeks wonderful companies at a fair price"},
	{ID: "aswath_damodaran", DisplayName: "Aswath Damodaran",
		Description: "The Dean of Valuation, focuses on story, numbers, and disciplined valuation"},
	{ID: "ben_graham", DisplayName: "Benjamin Graham",
		Description: "The father of value investing, focuses on margin of safety and intrinsic value"},
	{ID: "bill_ackman", DisplayName: "Bill Ackman",
		Description: "Activist investor, focuses on high-quality businesses with activism potential"},
	{ID: "cathie_wood", DisplayName: "Cathie Wood",
		Description: "Disruptive innovation investor, focuses on breakthrough technologies and exponential growth"},
	{ID: "charlie_munger", DisplayName: "Charlie Munger",
		Description: "Value investor, focuses on business quality, predictability, and mental models"},
	{ID: "fundamentals", DisplayName: "Fundamentals",
		Description: "Focuses on comprehensive fundamental analysis of business quality and valuation"},
	{ID: "michael_burry", DisplayName: "Michael Burry",
		Description: "Focuses on market inefficiencies, financial forensics, and contrarian opportunities"},
	{ID: "peter_lynch", DisplayName: "Peter Lynch",
		Description: "Growth at a reasonable price investor, focuses on investing in what you know"},
	{ID: "phil_fisher", DisplayName: "Phil Fisher",
		Description: "Growth investor, focuses on long-term above-average growth potential and quality management"},
	{ID: "portfolio_manager", DisplayName: "Portfolio Manager",
		Description: "Professional portfolio manager making final trading decisions based on comprehensive analysis"},
	{ID: "rakesh_jhunjhunwala", DisplayName: "Rakesh Jhunjhunwala",
		Description: "The Indian Oracle, focuses on quality businesses with strong fundamentals and margin of safety"},
	{ID: "risk_manager", DisplayName: "Risk Manager",
		Description: "Professional risk manager focusing on position sizing and portfolio risk control"},
	{ID: "sentiment", DisplayName: "Market Sentiment",
		Description: "Analyzes market sentiment from news, social media, insider activity, and technical indicators"},
	{ID: "stanley_druckenmiller", DisplayName: "Stanley Druckenmiller",
		Description: "Macro investor, focuses on global market trends and adaptive investment strategies"},
	{ID: "technicals", DisplayName: "Technical Analysis",
		Description: "Focuses on technical analysis using trend, momentum, volatility, and statistical indicators"},
	{ID: "trading", DisplayName: "Trading Assistant",
		Description: "Professional trading assistant providing market analysis, sentiment analysis, and trading signals"},
	{ID: "valuation", DisplayName: "Valuation Analysis",
		Description: "Focuses on comprehensive valuation analysis using multiple methodologies including DCF, owner earnings, and relative valuation"},
}
