package services

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type HealthService struct {
	redis  redis.Cmdable
	pg     *pgxpool.Pool
	logger *logrus.Logger

	healthCheckStatus *prometheus.GaugeVec
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Critical  []string          `json:"critical_failures,omitempty"`
}

func NewHealthService(redisClient redis.Cmdable, pg *pgxpool.Pool, logger *logrus.Logger) *HealthService {
	hs := &HealthService{
		redis:  redisClient,
		pg:     pg,
		logger: logger,
	}

	hs.healthCheckStatus = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "health_check_status",
		Help: "Health check status (1 = healthy, 0 = unhealthy)",
	}, []string{"service"})

	if err := prometheus.Register(hs.healthCheckStatus); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			logger.WithError(err).Warn("Failed to register health_check_status metric")
		}
	}

	return hs
}

// CheckHealth probes the dependencies. Redis is critical; the job store
// cannot run without it. PostgreSQL is the optional archive, so a failed
// probe only degrades the status.
func (s *HealthService) CheckHealth(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Timestamp: time.Now().UTC(),
		Services:  make(map[string]string),
	}

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	healthy := true
	if err := s.redis.Ping(probeCtx).Err(); err != nil {
		status.Services["redis"] = "unhealthy"
		status.Critical = append(status.Critical, "redis")
		healthy = false
		s.logger.WithError(err).Error("Redis is unhealthy")
		s.healthCheckStatus.WithLabelValues("redis").Set(0)
	} else {
		status.Services["redis"] = "healthy"
		s.healthCheckStatus.WithLabelValues("redis").Set(1)
	}

	degraded := false
	if s.pg != nil {
		if err := s.pg.Ping(probeCtx); err != nil {
			status.Services["postgresql"] = "unhealthy"
			degraded = true
			s.logger.WithError(err).Warn("PostgreSQL is unhealthy")
			s.healthCheckStatus.WithLabelValues("postgresql").Set(0)
		} else {
			status.Services["postgresql"] = "healthy"
			s.healthCheckStatus.WithLabelValues("postgresql").Set(1)
		}
	}

	switch {
	case !healthy:
		status.Status = "unhealthy"
	case degraded:
		status.Status = "degraded"
	default:
		status.Status = "healthy"
	}
	return status
}
