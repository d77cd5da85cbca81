package gisdoc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/puzpuzpuz/xsync/v3"
)

// DocumentCollector exposes document metrics to prometheus:
// container sizes as gauges, operation counts as counters.
type DocumentCollector struct {
	doc *Document

	layerCount  *prometheus.Desc
	sourceCount *prometheus.Desc
	treeLength  *prometheus.Desc
	operations  *prometheus.Desc
}

func NewDocumentCollector(doc *Document) *DocumentCollector {
	return &DocumentCollector{
		doc: doc,

		layerCount: prometheus.NewDesc(
			"gisdoc_layers",
			"Number of layers in the document",
			nil, nil,
		),
		sourceCount: prometheus.NewDesc(
			"gisdoc_sources",
			"Number of sources in the document",
			nil, nil,
		),
		treeLength: prometheus.NewDesc(
			"gisdoc_tree_length",
			"Number of nodes in the layer tree",
			nil, nil,
		),
		operations: prometheus.NewDesc(
			"gisdoc_operations_total",
			"Document operations performed, by kind",
			[]string{"op"}, nil,
		),
	}
}

func (dc *DocumentCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- dc.layerCount
	ch <- dc.sourceCount
	ch <- dc.treeLength
	ch <- dc.operations
}

func (dc *DocumentCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(
		dc.layerCount, prometheus.GaugeValue, float64(dc.doc.layers.Len()))
	ch <- prometheus.MustNewConstMetric(
		dc.sourceCount, prometheus.GaugeValue, float64(dc.doc.sources.Len()))
	ch <- prometheus.MustNewConstMetric(
		dc.treeLength, prometheus.GaugeValue, float64(dc.doc.layerTree.Len()))
	dc.doc.opCounts.Range(func(op string, counter *xsync.Counter) bool {
		ch <- prometheus.MustNewConstMetric(
			dc.operations, prometheus.CounterValue, float64(counter.Value()), op)
		return true
	})
}
