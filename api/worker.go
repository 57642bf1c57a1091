package api

import (
	"context"
	"errors"
	"sync"
	"time"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum/common"

	"github.com/coolcode/alith/app/telemetry"
	"github.com/coolcode/alith/client"
	"github.com/coolcode/alith/contracts"
	"github.com/coolcode/alith/ledger"
	sharedtypes "github.com/coolcode/alith/x/shared/types"
	"github.com/coolcode/alith/x/signing"
)

var errPoolStopped = errors.New("proof pool is stopped")

// Settler is the ledger surface a worker needs. *client.Client satisfies it
// when its gateway submits as the node.
type Settler interface {
	GetFile(ctx context.Context, fileID uint64) (contracts.File, error)
	GetJob(ctx context.Context, jobID uint64) (contracts.Job, error)
	AddProof(ctx context.Context, signer *signing.Signer, fileID uint64, data signing.ProofPayload) (*ledger.Receipt, error)
	CompleteJob(ctx context.Context, jobID uint64) error
}

// PoolConfig sizes the proof worker pool.
type PoolConfig struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
	// MaxTracked bounds the finished task statuses kept for GET /proof/:job_id.
	MaxTracked int
}

// DefaultPoolConfig returns the default pool configuration
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Workers:     4,
		QueueSize:   64,
		TaskTimeout: 5 * time.Minute,
		MaxTracked:  4096,
	}
}

// ProofTask is an authenticated proof request waiting for a worker.
type ProofTask struct {
	RequestID string
	User      common.Address
	Request   client.ProofRequest
}

// Pool runs proof tasks on a fixed set of workers fed by a bounded queue.
type Pool struct {
	cfg     PoolConfig
	prover  Prover
	settler Settler
	signer  *signing.Signer
	logger  log.Logger
	metrics *Metrics

	tasks    chan ProofTask
	stopChan chan struct{}
	wg       sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once

	mu       sync.RWMutex
	statuses map[uint64]TaskStatus
	finished []uint64
	// recorded holds proof urls already added for jobs not yet completed,
	// so a retry only completes the job.
	recorded map[uint64]string
}

// NewPool returns a stopped pool. signer is the node key that signs proofs.
func NewPool(cfg PoolConfig, prover Prover, settler Settler, signer *signing.Signer, logger log.Logger) *Pool {
	def := DefaultPoolConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = def.TaskTimeout
	}
	if cfg.MaxTracked <= 0 {
		cfg.MaxTracked = def.MaxTracked
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Pool{
		cfg:      cfg,
		prover:   prover,
		settler:  settler,
		signer:   signer,
		logger:   logger.With("module", "proof-pool"),
		metrics:  NewMetrics(),
		tasks:    make(chan ProofTask, cfg.QueueSize),
		stopChan: make(chan struct{}),
		statuses: make(map[uint64]TaskStatus),
		recorded: make(map[uint64]string),
	}
}

// Start launches the workers. They run until Stop or until ctx is done.
func (p *Pool) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		for i := 0; i < p.cfg.Workers; i++ {
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				for {
					select {
					case <-p.stopChan:
						return
					case <-ctx.Done():
						return
					case task := <-p.tasks:
						p.metrics.QueueDepth.Dec()
						p.process(ctx, task)
					}
				}
			}()
		}
		p.logger.Info("proof workers started", "workers", p.cfg.Workers, "queue", p.cfg.QueueSize)
	})
}

// Stop waits for running tasks and fails the ones still queued.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopChan)
		p.wg.Wait()

		// Submit checks stopChan under mu, so nothing is queued after this drain.
		p.mu.Lock()
		var queued []ProofTask
		for len(p.tasks) > 0 {
			queued = append(queued, <-p.tasks)
			p.metrics.QueueDepth.Dec()
		}
		p.mu.Unlock()

		for _, task := range queued {
			p.finish(task, "", errPoolStopped)
		}
		p.logger.Info("proof workers stopped", "failed_queued", len(queued))
	})
}

// Submit queues task. A job that is queued, running or already proven is
// rejected with ErrInvalidState; a failed job may be resubmitted.
func (p *Pool) Submit(task ProofTask) (TaskStatus, error) {
	jobID := task.Request.JobID
	p.mu.Lock()
	defer p.mu.Unlock()

	select {
	case <-p.stopChan:
		return TaskStatus{}, errPoolStopped
	default:
	}

	if prev, ok := p.statuses[jobID]; ok && prev.Status != TaskFailed {
		return prev, errorsmod.Wrapf(sharedtypes.ErrInvalidState, "job %d is already %s", jobID, prev.Status)
	}

	status := TaskStatus{
		RequestID: task.RequestID,
		JobID:     jobID,
		FileID:    task.Request.FileID,
		Status:    TaskQueued,
	}
	select {
	case p.tasks <- task:
	default:
		return TaskStatus{}, errQueueFull
	}
	p.metrics.QueueDepth.Inc()
	p.statuses[jobID] = status
	return status, nil
}

// Status returns the progress of the latest task for jobID.
func (p *Pool) Status(jobID uint64) (TaskStatus, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.statuses[jobID]
	return s, ok
}

// Usage reports queued tasks against the queue capacity.
func (p *Pool) Usage() (int, int) {
	return len(p.tasks), cap(p.tasks)
}

func (p *Pool) process(ctx context.Context, task ProofTask) {
	start := time.Now()
	p.setStatus(task.Request.JobID, func(s *TaskStatus) { s.Status = TaskProcessing })

	taskCtx, cancel := context.WithTimeout(ctx, p.cfg.TaskTimeout)
	defer cancel()
	taskCtx, span := telemetry.StartProofSpan(taskCtx, task.Request.JobID, task.Request.FileID, task.RequestID)
	defer span.End()

	proofURL, err := p.prove(taskCtx, task)
	telemetry.RecordError(span, err)
	telemetry.SetSpanStatus(span, err == nil, sharedtypes.Kind(err))
	p.finish(task, proofURL, err)
	if err == nil {
		p.metrics.ProofDuration.Observe(time.Since(start).Seconds())
	}
}

// prove checks the job against the ledger, runs the prover, records the
// proof and completes the job.
func (p *Pool) prove(ctx context.Context, task ProofTask) (string, error) {
	req := task.Request

	job, err := p.settler.GetJob(ctx, req.JobID)
	if err != nil {
		return "", err
	}
	switch job.Status {
	case contracts.JobStatusNone:
		return "", errorsmod.Wrapf(sharedtypes.ErrNotFound, "job %d", req.JobID)
	case contracts.JobStatusCompleted:
		p.forgetRecorded(req.JobID)
		return "", errorsmod.Wrapf(sharedtypes.ErrInvalidState, "job %d is already completed", req.JobID)
	}
	if job.NodeAddress != p.signer.Address() {
		return "", sharedtypes.NewIdentityMismatch("job node", job.NodeAddress, p.signer.Address())
	}
	if job.OwnerAddress != task.User {
		return "", sharedtypes.NewIdentityMismatch("job owner", job.OwnerAddress, task.User)
	}
	if id, ok := sharedtypes.IDFromBig(job.FileID); !ok || id != req.FileID {
		return "", errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "job %d is for file %s, not %d", req.JobID, job.FileID, req.FileID)
	}

	file, err := p.settler.GetFile(ctx, req.FileID)
	if err != nil {
		return "", err
	}
	if file.URL != req.FileURL {
		return "", errorsmod.Wrapf(sharedtypes.ErrInvalidRequest, "file %d url does not match the request", req.FileID)
	}

	p.mu.RLock()
	proofURL, recorded := p.recorded[req.JobID]
	p.mu.RUnlock()

	if !recorded {
		proveStart := time.Now()
		proveCtx, span := telemetry.StartStageSpan(ctx, "proof.prove")
		proofURL, err = p.prover.Prove(proveCtx, req)
		telemetry.RecordError(span, err)
		span.End()
		telemetry.RecordStage(ctx, "prove", proveStart, err)
		if err != nil {
			return "", err
		}

		payload := signing.ProofPayload{
			ID:       sharedtypes.BigFromID(req.FileID),
			FileURL:  file.URL,
			ProofURL: proofURL,
		}
		if _, err := p.settler.AddProof(ctx, p.signer, req.FileID, payload); err != nil {
			return "", err
		}
		p.mu.Lock()
		p.recorded[req.JobID] = proofURL
		p.mu.Unlock()
	} else {
		p.logger.Info("proof already recorded, completing job", "job_id", req.JobID, "proof_url", proofURL)
	}

	if err := p.settler.CompleteJob(ctx, req.JobID); err != nil {
		return proofURL, err
	}
	p.forgetRecorded(req.JobID)
	return proofURL, nil
}

func (p *Pool) forgetRecorded(jobID uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.recorded, jobID)
}

func (p *Pool) finish(task ProofTask, proofURL string, err error) {
	jobID := task.Request.JobID
	logger := p.logger.With("job_id", jobID, "file_id", task.Request.FileID, "request_id", task.RequestID)

	p.setStatus(jobID, func(s *TaskStatus) {
		s.ProofURL = proofURL
		if err != nil {
			s.Status = TaskFailed
			s.Error = err.Error()
			s.ErrorKind = sharedtypes.Kind(err)
			return
		}
		s.Status = TaskCompleted
	})

	if err != nil {
		p.metrics.ProofTasks.WithLabelValues(sharedtypes.Kind(err)).Inc()
		logger.Error("proof task failed", "error", err, "retryable", sharedtypes.IsRetryable(err))
		return
	}
	p.metrics.ProofTasks.WithLabelValues("ok").Inc()
	logger.Info("proof settled", "proof_url", proofURL)
}

// setStatus updates the tracked status of jobID and evicts the oldest
// finished entries beyond MaxTracked.
func (p *Pool) setStatus(jobID uint64, update func(*TaskStatus)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.statuses[jobID]
	if !ok {
		s = TaskStatus{JobID: jobID}
	}
	update(&s)
	p.statuses[jobID] = s

	if s.Status != TaskCompleted && s.Status != TaskFailed {
		return
	}
	// A resubmitted job finishes again; keep one entry per job so eviction
	// never drops its latest status.
	for i, id := range p.finished {
		if id == jobID {
			p.finished = append(p.finished[:i], p.finished[i+1:]...)
			break
		}
	}
	p.finished = append(p.finished, jobID)
	for len(p.finished) > p.cfg.MaxTracked {
		oldest := p.finished[0]
		p.finished = p.finished[1:]
		if st, ok := p.statuses[oldest]; ok && (st.Status == TaskCompleted || st.Status == TaskFailed) {
			delete(p.statuses, oldest)
		}
	}
}
