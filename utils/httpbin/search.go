// Copyright 2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package httpbin

import (
	"fmt"
	"net/http"
	"strconv"
)

// customSearchHandler mocks https://www.googleapis.com/customsearch/v1.
// It requires the key, cx and q query parameters and returns num results starting at start.
func customSearchHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if q.Get("key") == "" || q.Get("cx") == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": map[string]any{
				"code":    http.StatusBadRequest,
				"message": "Missing required parameter: key or cx",
			},
		})
		return
	}

	num := 3
	if s := q.Get("num"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 10 {
			http.Error(w, fmt.Sprintf("invalid num %q", s), http.StatusBadRequest)
			return
		}
		num = n
	}

	start := 1
	if s := q.Get("start"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n+num > 101 {
			http.Error(w, fmt.Sprintf("invalid start %q", s), http.StatusBadRequest)
			return
		}
		start = n
	}

	items := make([]map[string]string, 0, num)
	for i := start; i < start+num; i++ {
		items = append(items, map[string]string{
			"title":   fmt.Sprintf("%s result %d", q.Get("q"), i),
			"link":    fmt.Sprintf("https://example.com/%d", i),
			"snippet": fmt.Sprintf("snippet %d", i),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"kind": "customsearch#search",
		"searchInformation": map[string]any{
			"searchTime":            0.25,
			"formattedSearchTime":   "0.25",
			"totalResults":          "1230",
			"formattedTotalResults": "1,230",
		},
		"items": items,
	})
}
