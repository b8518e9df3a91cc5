package server

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/starkex-recovery/disbursal-service/log"
	"github.com/starkex-recovery/disbursal-service/metrics"
)

// apiSecretHeader carries the shared secret of the privileged endpoints.
const apiSecretHeader = "X-Api-Secret"

// RunServer starts the disbursal HTTP API. Blocks until the listener fails.
func RunServer(cfg Config, disburser disburserInterface, ledger ledgerInterface, registry registryInterface, admin adminInterface, storage interface{}) error {
	svc := &service{
		disburser: disburser,
		ledger:    ledger,
		registry:  registry,
		admin:     admin,
		storage:   storage.(storageInterface),
	}
	router := initRouter(svc)

	corsOptions := []handlers.CORSOption{
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost}),
	}
	if len(cfg.AllowedOrigins) != 0 {
		corsOptions = append(corsOptions,
			handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type"}),
			handlers.AllowedOrigins(cfg.AllowedOrigins),
		)
	}

	log.Infof("disbursal API listening on port %s", cfg.Port)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSec) * time.Second,
		Handler:      handlers.CORS(corsOptions...)(router),
	}
	return srv.ListenAndServe()
}

func initRouter(svc *service) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestMetrics)

	r.HandleFunc("/healthz", svc.health).Methods(http.MethodGet)
	r.HandleFunc("/disburse", svc.disburse).Methods(http.MethodPost)
	r.HandleFunc("/claims/{ownerKey}/{assetId}", svc.isClaimed).Methods(http.MethodGet)
	r.HandleFunc("/tokens/{assetId}", svc.getToken).Methods(http.MethodGet)
	r.HandleFunc("/roots", svc.getRoots).Methods(http.MethodGet)
	r.HandleFunc("/disbursements", svc.getDisbursements).Methods(http.MethodGet)

	adminRouter := r.PathPrefix("/admin").Subrouter()
	adminRouter.Use(adminAuth(svc.admin))
	adminRouter.HandleFunc("/roots", svc.setRoots).Methods(http.MethodPost)
	adminRouter.HandleFunc("/tokens", svc.registerTokens).Methods(http.MethodPost)
	adminRouter.HandleFunc("/finalize", svc.finalize).Methods(http.MethodPost)

	return r
}

// adminAuth guards the privileged endpoints with the shared secret. With no
// secret configured the privileged surface stays closed.
func adminAuth(admin adminInterface) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := admin.APISecret()
			if secret == "" {
				writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "privileged endpoints are disabled"})
				return
			}
			provided := r.Header.Get(apiSecretHeader)
			if subtle.ConstantTimeCompare([]byte(secret), []byte(provided)) != 1 {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "bad api secret"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// statusRecorder captures the response code for request metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// routeLabel returns the matched route template so that path parameters do
// not fan out into unbounded metric label values.
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if template, err := route.GetPathTemplate(); err == nil {
			return template
		}
	}
	return "unmatched"
}

func requestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		method := r.Method + " " + routeLabel(r)
		isSuccess := recorder.status < http.StatusBadRequest
		metrics.RecordRequest(method, isSuccess)
		metrics.RecordRequestLatency(method, time.Since(start), isSuccess)
		if !isSuccess {
			log.Debugf("request %s failed with status %d", method, recorder.status)
		}
	})
}
