package metrics

const (
	defaultMetricsEndpoint = "/metrics"
)

// Metric types
const (
	typeCounter   = "counter"
	typeHistogram = "histogram"
)

// Metric names and labels
const (
	prefix = "disbursal_"

	prefixRequest        = prefix + "request_"
	metricRequestCount   = prefixRequest + "count"
	metricRequestLatency = prefixRequest + "latency_ms"
	labelMethod          = "method"
	labelIsSuccess       = "is_success"

	prefixDisbursement            = prefix + "disbursement_"
	metricDisbursementCount       = prefixDisbursement + "count"
	metricDisbursementTotalAmount = prefixDisbursement + "total_amount"
	labelAssetID                  = "asset_id"

	prefixProof            = prefix + "proof_"
	metricProofRejectCount = prefixProof + "reject_count"
	labelProofKind         = "kind"
	labelReason            = "reason"
)

// Proof kinds for the rejection counter
const (
	// ProofKindVault labels vault proof rejections
	ProofKindVault = "vault"
	// ProofKindAccount labels account proof rejections
	ProofKindAccount = "account"
)
