// Copyright 2023-2026 Sauce Labs Inc., all rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package proxyprobe

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type kerberosMetrics struct {
	acquisitions *prometheus.CounterVec
}

func newKerberosMetrics(r prometheus.Registerer, namespace string) *kerberosMetrics {
	if r == nil {
		r = prometheus.NewRegistry() // This registry will be discarded.
	}
	f := promauto.With(r)

	return &kerberosMetrics{
		acquisitions: f.NewCounterVec(prometheus.CounterOpts{
			Name:      "kerberos_acquisitions_total",
			Namespace: namespace,
			Help:      "Number of Kerberos credential acquisition attempts",
		}, []string{"method", "result"}),
	}
}

func (m *kerberosMetrics) acquisition(method string, ok bool) {
	result := "error"
	if ok {
		result = "ok"
	}
	m.acquisitions.WithLabelValues(method, result).Inc()
}

type clientMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newClientMetrics(r prometheus.Registerer, namespace string) *clientMetrics {
	if r == nil {
		r = prometheus.NewRegistry() // This registry will be discarded.
	}
	f := promauto.With(r)

	return &clientMetrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name:      "requests_total",
			Namespace: namespace,
			Help:      "Number of requests sent through the proxy",
		}, []string{"auth", "code"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:      "request_duration_seconds",
			Namespace: namespace,
			Help:      "Request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"auth"}),
	}
}

// instrument returns a RoundTripper recording requests under the auth label.
func (m *clientMetrics) instrument(auth string, rt http.RoundTripper) http.RoundTripper {
	return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		start := time.Now()
		res, err := rt.RoundTrip(req)
		m.duration.WithLabelValues(auth).Observe(time.Since(start).Seconds())

		code := "error"
		if err == nil {
			code = strconv.Itoa(res.StatusCode)
		}
		m.requests.WithLabelValues(auth, code).Inc()
		return res, err
	})
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
