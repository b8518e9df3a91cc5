package metrics

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/starkex-recovery/disbursal-service/log"
)

var (
	mutex       sync.RWMutex
	registerer  prometheus.Registerer
	initialized bool

	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
)

func getLogger(metricName, metricType string) *log.Logger {
	return log.WithFields("metricName", metricName, "metricType", metricType)
}

// StartMetricsHttpServer initializes the metrics registry and starts the prometheus metrics HTTP server
func StartMetricsHttpServer(c Config) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !c.Enabled {
		return
	}

	initMetrics()

	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = defaultMetricsEndpoint
	}

	mux := http.NewServeMux()
	mux.Handle(endpoint, promhttp.Handler())
	srv := &http.Server{
		Addr:        ":" + c.Port,
		Handler:     mux,
		ReadTimeout: 5 * time.Second, //nolint:gomnd
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	go func() {
		// gracefully shutdown the server
		for range ch {
			_ = srv.Shutdown(ctx)
			<-ctx.Done()
		}
	}()

	err := srv.ListenAndServe()
	if err != nil {
		log.Errorf("serve metrics http server error: %v", err)
	}
}

func registerCounter(opt prometheus.CounterOpts, labelNames ...string) {
	logger := getLogger(opt.Name, typeCounter)
	if !initialized {
		return
	}
	mutex.Lock()
	defer mutex.Unlock()

	if _, ok := counters[opt.Name]; ok {
		return
	}

	collector := prometheus.NewCounterVec(opt, labelNames)
	if err := registerer.Register(collector); err != nil {
		logger.Errorf("metrics register error: %v", err)
		return
	}
	counters[opt.Name] = collector
}

func counterInc(name string, labels map[string]string) {
	counterAdd(name, 1, labels)
}

func counterAdd(name string, value float64, labels map[string]string) {
	if !initialized {
		return
	}
	mutex.RLock()
	defer mutex.RUnlock()

	collector, ok := counters[name]
	if !ok {
		return
	}
	collector.With(labels).Add(value)
}

func registerHistogram(opt prometheus.HistogramOpts, labelNames ...string) {
	logger := getLogger(opt.Name, typeHistogram)
	if !initialized {
		return
	}
	mutex.Lock()
	defer mutex.Unlock()

	if _, ok := histograms[opt.Name]; ok {
		return
	}

	collector := prometheus.NewHistogramVec(opt, labelNames)
	if err := registerer.Register(collector); err != nil {
		logger.Errorf("metrics register error: %v", err)
		return
	}
	histograms[opt.Name] = collector
}

func histogramObserve(name string, value float64, labels map[string]string) {
	if !initialized {
		return
	}
	mutex.RLock()
	defer mutex.RUnlock()

	collector, ok := histograms[name]
	if !ok {
		return
	}
	collector.With(labels).Observe(value)
}
