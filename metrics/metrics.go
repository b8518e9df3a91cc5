package metrics

import (
	"math/big"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/starkex-recovery/disbursal-service/log"
)

func initMetrics() {
	if !initialized {
		registerer = prometheus.DefaultRegisterer
		counters = make(map[string]*prometheus.CounterVec)
		histograms = make(map[string]*prometheus.HistogramVec)
		initialized = true
	}

	registerCounter(prometheus.CounterOpts{Name: metricRequestCount}, labelMethod, labelIsSuccess)
	registerHistogram(prometheus.HistogramOpts{Name: metricRequestLatency}, labelMethod, labelIsSuccess)
	registerCounter(prometheus.CounterOpts{Name: metricDisbursementCount}, labelAssetID)
	registerCounter(prometheus.CounterOpts{Name: metricDisbursementTotalAmount}, labelAssetID)
	registerCounter(prometheus.CounterOpts{Name: metricProofRejectCount}, labelProofKind, labelReason)
}

// RecordRequest increments the request count for the method
func RecordRequest(method string, isSuccess bool) {
	counterInc(metricRequestCount, map[string]string{labelMethod: method, labelIsSuccess: strconv.FormatBool(isSuccess)})
}

// RecordRequestLatency records the latency histogram in milliseconds
func RecordRequestLatency(method string, latency time.Duration, isSuccess bool) {
	latencyMs := latency / time.Millisecond
	histogramObserve(metricRequestLatency, float64(latencyMs), map[string]string{labelMethod: method, labelIsSuccess: strconv.FormatBool(isSuccess)})
}

// RecordDisbursement records one completed disbursement
func RecordDisbursement(assetID *big.Int, amount *big.Int) {
	labels := map[string]string{labelAssetID: assetID.String()}

	floatAmount, err := strconv.ParseFloat(amount.String(), 64) //nolint:gomnd
	if err != nil {
		log.Warnf("cannot convert [%v] to float", amount.String())
	}

	counterInc(metricDisbursementCount, labels)
	counterAdd(metricDisbursementTotalAmount, floatAmount, labels)
}

// RecordProofRejection increments the rejection counter of the proof kind
func RecordProofRejection(kind, reason string) {
	counterInc(metricProofRejectCount, map[string]string{labelProofKind: kind, labelReason: reason})
}
