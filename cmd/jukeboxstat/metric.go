// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"log"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/discbot/jukebox/changer"
	"github.com/discbot/jukebox/sense"
)

// MountState is the optional --device mount-state report.
type MountState struct {
	Device  string
	Mounted bool
}

// metricCollector adapts a fixed slice of already-built metrics to the
// prometheus.Collector interface, the way tcgdiskstat's metricCollector
// adapts a snapshot of device state.
type metricCollector struct {
	m []prometheus.Metric
}

func (c *metricCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.m {
		ch <- m.Desc()
	}
}

func (c *metricCollector) Collect(ch chan<- prometheus.Metric) {
	for _, m := range c.m {
		ch <- m
	}
}

var (
	elementFullDesc = prometheus.NewDesc(
		"jukebox_element_full",
		"Whether a storage element currently holds a cartridge (1) or is empty (0).",
		[]string{"address"}, nil,
	)
	elementExceptionDesc = prometheus.NewDesc(
		"jukebox_element_exception",
		"Whether a storage element is reporting an exception condition.",
		[]string{"address"}, nil,
	)
	lastSenseKeyDesc = prometheus.NewDesc(
		"jukebox_last_sense_key",
		"Sense key of the most recent CHECK CONDITION on the changer connection (0 if none).",
		nil, nil,
	)
	mountedDesc = prometheus.NewDesc(
		"jukebox_device_mounted",
		"Whether the optical medium named by --device currently has a mounted volume.",
		[]string{"device"}, nil,
	)
)

// outputMetrics renders m, statuses, lastSense and the optional mount state
// in the Prometheus text exposition format on stdout, the way tcgdiskstat's main.go
// gathers a registry and writes expfmt.MetricFamilyToText per family.
func outputMetrics(m changer.ElementMap, statuses []changer.ElementStatus, lastSense sense.Data, mount *MountState) {
	var metrics []prometheus.Metric

	for _, s := range statuses {
		addr := addressLabel(s.Address)
		metrics = append(metrics,
			prometheus.MustNewConstMetric(elementFullDesc, prometheus.GaugeValue, boolToFloat(s.Full), addr),
			prometheus.MustNewConstMetric(elementExceptionDesc, prometheus.GaugeValue, boolToFloat(s.Exception), addr),
		)
	}

	metrics = append(metrics, prometheus.MustNewConstMetric(
		lastSenseKeyDesc, prometheus.GaugeValue, float64(lastSense.Key),
	))

	if mount != nil {
		metrics = append(metrics, prometheus.MustNewConstMetric(
			mountedDesc, prometheus.GaugeValue, boolToFloat(mount.Mounted), mount.Device,
		))
	}

	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(&metricCollector{m: metrics}); err != nil {
		log.Fatalf("register collector: %v", err)
	}

	mfs, err := reg.Gather()
	if err != nil {
		log.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(os.Stdout, mf); err != nil {
			log.Fatalf("encode metric family %s: %v", mf.GetName(), err)
		}
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func addressLabel(addr uint16) string {
	const hexDigits = "0123456789abcdef"
	buf := [6]byte{'0', 'x', hexDigits[(addr>>12)&0xF], hexDigits[(addr>>8)&0xF], hexDigits[(addr>>4)&0xF], hexDigits[addr&0xF]}
	return string(buf[:])
}
