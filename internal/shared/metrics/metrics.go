package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

// Extraction outcomes.
const (
	ResultText   = "text"
	ResultOCR    = "ocr"
	ResultEmpty  = "empty"
	ResultFailed = "failed"
)

var (
	receiptsUploadedTotal  atomic.Uint64
	receiptsAttachedTotal  atomic.Uint64
	receiptsDeletedTotal   atomic.Uint64
	logsFromReceiptsTotal  atomic.Uint64
	extractionsByResult    = newCounterVec()
	extractionDuration     = newHistogram([]float64{50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
	extractionWaitDuration = newHistogram([]float64{1, 10, 50, 100, 500, 1000, 5000})
)

// IncReceiptUploaded counts a stored receipt upload.
func IncReceiptUploaded() { receiptsUploadedTotal.Add(1) }

// IncReceiptAttached counts an unattached->attached transition.
func IncReceiptAttached() { receiptsAttachedTotal.Add(1) }

// IncLogFromReceipt counts a maintenance log created from a receipt.
func IncLogFromReceipt() { logsFromReceiptsTotal.Add(1) }

// AddReceiptsDeleted counts deleted receipt records.
func AddReceiptsDeleted(n int) {
	if n > 0 {
		receiptsDeletedTotal.Add(uint64(n))
	}
}

// IncExtraction counts a text extraction by outcome.
func IncExtraction(result string) {
	extractionsByResult.Inc(result)
}

// ObserveExtractionDurationMs records an extraction duration in milliseconds.
func ObserveExtractionDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	extractionDuration.Observe(value)
}

// ObserveExtractionWaitMs records time spent waiting for an extraction slot.
func ObserveExtractionWaitMs(value float64) {
	if value < 0 {
		value = 0
	}
	extractionWaitDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "receipts_uploaded_total", "Total receipts uploaded", receiptsUploadedTotal.Load())
	writeCounter(&buf, "receipts_attached_total", "Total receipts attached to maintenance logs", receiptsAttachedTotal.Load())
	writeCounter(&buf, "receipts_deleted_total", "Total receipt records deleted", receiptsDeletedTotal.Load())
	writeCounter(&buf, "maintenance_logs_from_receipts_total", "Total maintenance logs created from receipts", logsFromReceiptsTotal.Load())
	writeCounterVec(&buf, "receipt_extractions_total", "Receipt text extractions by result", "result", extractionsByResult.Snapshot())
	writeHistogram(&buf, "receipt_extraction_duration_ms", "Receipt extraction duration in milliseconds", extractionDuration.Snapshot())
	writeHistogram(&buf, "receipt_extraction_wait_ms", "Time waiting for an extraction slot in milliseconds", extractionWaitDuration.Snapshot())
	return buf.String()
}

type counterVec struct {
	mu     sync.Mutex
	values map[string]uint64
}

func newCounterVec() *counterVec {
	return &counterVec{values: make(map[string]uint64)}
}

func (v *counterVec) Inc(label string) {
	v.mu.Lock()
	v.values[label]++
	v.mu.Unlock()
}

func (v *counterVec) Snapshot() map[string]uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[string]uint64, len(v.values))
	for k, n := range v.values {
		out[k] = n
	}
	return out
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe counts value in the first bucket whose bound it fits; buckets are cumulated on render.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeCounterVec(buf *bytes.Buffer, name, help, label string, values map[string]uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
