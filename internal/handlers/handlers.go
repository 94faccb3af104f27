package handlers

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/lxplabs/recflow/internal/services"
	"github.com/lxplabs/recflow/internal/validation"
)

type Handlers struct {
	Health *HealthHandler
	Engine *EngineHandler
}

func New(logger *logrus.Logger, svc *services.Services) (*Handlers, error) {
	schema, err := validation.NewSchemaValidator()
	if err != nil {
		return nil, fmt.Errorf("loading request schemas: %w", err)
	}

	return &Handlers{
		Health: NewHealthHandler(svc.Health, logger),
		Engine: NewEngineHandler(svc.JobManager, svc.Processor, schema, logger),
	}, nil
}
