// Package trafficking runs the pipeline batch: pending tickets are turned into
// payloads, checked, written back and, when needed, alerted on.
package trafficking

import (
	"errors"
	"sync/atomic"
	"time"

	"adtraffic/internal/domain/qa"
	domaintrafficking "adtraffic/internal/domain/trafficking"
	"adtraffic/internal/ports"
	"adtraffic/internal/usecase/alerting"
)

var (
	errStoreRequired  = errors.New("record store is required")
	errUoWRequired    = errors.New("unit of work is required")
	errEngineRequired = errors.New("trafficking engine is required")
	errQARequired     = errors.New("qa engine is required")
)

// ErrRunInProgress is returned by RunBatch while another batch is running on
// the same Service.
var ErrRunInProgress = errors.New("a batch run is already in progress")

const lastRunCacheKey = "run:last"

type Service struct {
	store   ports.RecordStore
	uow     ports.UnitOfWork
	cache   ports.Cache
	engine  *domaintrafficking.Engine
	checker *qa.Engine
	alerts  *alerting.Pipeline
	now     func() time.Time
	newID   func() string

	running atomic.Bool
}

// NewService wires the orchestrator. cache and alerts may be nil: without a
// cache no run summary is kept, without alerts every delivery is reported as
// failed.
func NewService(
	store ports.RecordStore,
	uow ports.UnitOfWork,
	cache ports.Cache,
	engine *domaintrafficking.Engine,
	checker *qa.Engine,
	alerts *alerting.Pipeline,
) *Service {
	return &Service{
		store:   store,
		uow:     uow,
		cache:   cache,
		engine:  engine,
		checker: checker,
		alerts:  alerts,
		now:     time.Now,
		newID:   newRunID,
	}
}

func (s *Service) validate() error {
	switch {
	case s.store == nil:
		return errStoreRequired
	case s.uow == nil:
		return errUoWRequired
	case s.engine == nil:
		return errEngineRequired
	case s.checker == nil:
		return errQARequired
	}
	return nil
}
