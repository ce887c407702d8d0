// Copyright 2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package search implements the request and response format of the Google Custom Search JSON API.
package search

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/saucelabs/proxyprobe/validation"
)

const (
	DefaultURL   = "https://www.googleapis.com/customsearch/v1"
	DefaultQuery = "proxy authentication"
	// MaxNum is the maximal number of results the API returns per page.
	MaxNum = 10
	// MaxResults is the maximal number of results the API returns for a query.
	MaxResults = 100
)

type Config struct {
	URL      string `validate:"required,httpURL"`
	APIKey   string
	EngineID string
	Query    string `validate:"required"`
	// Num is the number of results to fetch, more than MaxNum are fetched in pages.
	Num int `validate:"min=0,max=100"`
}

func DefaultConfig() *Config {
	return &Config{
		URL:   DefaultURL,
		Query: DefaultQuery,
	}
}

// Enabled returns true if both the API key and the search engine id are set.
func (c *Config) Enabled() bool {
	return c.APIKey != "" && c.EngineID != ""
}

func (c *Config) Validate() error {
	return validation.Validator().Struct(c)
}

// Starts returns the 1-based index of the first result of each page.
// If Num is not set a single page of the API default size is fetched.
func (c *Config) Starts() []int {
	if c.Num <= 0 {
		return []int{1}
	}
	starts := make([]int, 0, (c.Num+MaxNum-1)/MaxNum)
	for start := 1; start <= c.Num; start += MaxNum {
		starts = append(starts, start)
	}
	return starts
}

// PageSize returns the number of results requested for the page starting at start,
// zero means the API default.
func (c *Config) PageSize(start int) int {
	if c.Num <= 0 {
		return 0
	}
	return min(c.Num-start+1, MaxNum)
}

// Values returns the query parameters for the page starting at result start (1-based).
func (c *Config) Values(start int) url.Values {
	v := url.Values{}
	v.Set("key", c.APIKey)
	v.Set("cx", c.EngineID)
	v.Set("q", c.Query)
	if start > 1 {
		v.Set("start", strconv.Itoa(start))
	}
	if n := c.PageSize(start); n > 0 {
		v.Set("num", strconv.Itoa(n))
	}
	return v
}

type Item struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

type Information struct {
	SearchTime   float64 `json:"searchTime"`
	TotalResults string  `json:"totalResults"`
}

type Response struct {
	Information Information `json:"searchInformation"`
	Items       []Item      `json:"items"`
}

// Decode parses a search API response body.
func Decode(r io.Reader) (*Response, error) {
	var res Response
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return &res, nil
}
