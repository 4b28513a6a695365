package sepay

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// CallbackJob is one gateway callback to simulate. Status may be set to
// force an outcome; when empty the simulator picks one.
type CallbackJob struct {
	OrderID       string
	TransactionID string
	Amount        int64
	Status        string
	Reason        string
}

type simWorker struct {
	id         int
	workerPool chan chan CallbackJob
	jobChannel chan CallbackJob
	logger     *slog.Logger
}

func newSimWorker(id int, workerPool chan chan CallbackJob, logger *slog.Logger) *simWorker {
	return &simWorker{
		id:         id,
		workerPool: workerPool,
		jobChannel: make(chan CallbackJob),
		logger:     logger,
	}
}

func (w *simWorker) start(ctx context.Context, wg *sync.WaitGroup, processFunc func(CallbackJob)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			w.workerPool <- w.jobChannel

			select {
			case job := <-w.jobChannel:
				w.logger.Debug("simulator worker processing callback", "worker_id", w.id, "order_id", job.OrderID)
				processFunc(job)
			case <-ctx.Done():
				w.logger.Debug("simulator worker shutting down", "worker_id", w.id)
				return
			}
		}
	}()
}

type SimulatorConfig struct {
	WebhookURL   string
	SecretKey    string
	MaxWorkers   int
	JobQueueSize int
	// MinDelay..MaxDelay bounds the simulated settlement time.
	MinDelay time.Duration
	MaxDelay time.Duration
	// SuccessRate in [0,1] for jobs without a forced status.
	SuccessRate float64
}

// Simulator is the sandbox stand-in for the gateway's asynchronous side:
// it consumes queued payment jobs and posts signed webhook callbacks to the
// storefront's own webhook endpoint, exercising the verify/map/apply path
// end to end without a real Sepay account.
type Simulator struct {
	webhookURL  string
	secretKey   string
	minDelay    time.Duration
	maxDelay    time.Duration
	successRate float64
	httpClient  *http.Client
	logger      *slog.Logger

	jobQueue   chan CallbackJob
	workerPool chan chan CallbackJob
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

func NewSimulator(config SimulatorConfig, logger *slog.Logger) *Simulator {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	jobQueueSize := config.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 100
	}

	minDelay := config.MinDelay
	if minDelay <= 0 {
		minDelay = 1 * time.Second
	}
	maxDelay := config.MaxDelay
	if maxDelay < minDelay {
		maxDelay = minDelay + 3*time.Second
	}

	successRate := config.SuccessRate
	if successRate <= 0 || successRate > 1 {
		successRate = 0.9
	}

	sim := &Simulator{
		webhookURL:  config.WebhookURL,
		secretKey:   config.SecretKey,
		minDelay:    minDelay,
		maxDelay:    maxDelay,
		successRate: successRate,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		logger:      logger,

		maxWorkers: maxWorkers,
		jobQueue:   make(chan CallbackJob, jobQueueSize),
		workerPool: make(chan chan CallbackJob, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}

	sim.startWorkerPool()

	return sim
}

func (s *Simulator) startWorkerPool() {
	s.once.Do(func() {
		for i := 0; i < s.maxWorkers; i++ {
			worker := newSimWorker(i, s.workerPool, s.logger)
			worker.start(s.ctx, &s.wg, s.deliverCallback)
		}

		s.wg.Add(1)
		go s.dispatch()

		s.logger.Info("sepay simulator worker pool started",
			"max_workers", s.maxWorkers,
			"queue_size", cap(s.jobQueue),
			"webhook_url", s.webhookURL)
	})
}

func (s *Simulator) dispatch() {
	defer s.wg.Done()

	for {
		select {
		case job := <-s.jobQueue:
			select {
			case jobChannel := <-s.workerPool:
				select {
				case jobChannel <- job:
				case <-s.ctx.Done():
					s.logger.Info("simulator dispatcher shutting down")
					return
				}
			case <-s.ctx.Done():
				s.logger.Info("simulator dispatcher shutting down")
				return
			}
		case <-s.ctx.Done():
			s.logger.Info("simulator dispatcher shutting down")
			return
		}
	}
}

// Enqueue schedules one callback delivery. Returns false when the queue is
// full; callers decide whether that matters in their scenario.
func (s *Simulator) Enqueue(job CallbackJob) bool {
	select {
	case s.jobQueue <- job:
		s.logger.Info("simulator callback queued",
			"order_id", job.OrderID,
			"queue_length", len(s.jobQueue))
		return true
	default:
		s.logger.Warn("simulator queue full, dropping callback", "order_id", job.OrderID)
		return false
	}
}

func (s *Simulator) Shutdown() {
	s.logger.Info("shutting down sepay simulator")
	s.cancel()
	s.wg.Wait()
	s.logger.Info("sepay simulator shutdown complete")
}

func (s *Simulator) deliverCallback(job CallbackJob) {
	delay := s.minDelay
	if spread := s.maxDelay - s.minDelay; spread > 0 {
		delay += time.Duration(rand.Int63n(int64(spread)))
	}

	select {
	case <-time.After(delay):
	case <-s.ctx.Done():
		s.logger.Info("simulator callback cancelled", "order_id", job.OrderID)
		return
	}

	status := job.Status
	reason := job.Reason
	if status == "" {
		if rand.Float64() < s.successRate {
			status = "paid"
		} else {
			status = "failed"
			reason = "Insufficient funds"
		}
	}

	payload := map[string]interface{}{
		"order_id":       job.OrderID,
		"transaction_id": job.TransactionID,
		"status":         status,
		"amount":         job.Amount,
	}
	if status == "paid" || status == "success" {
		payload["paid_at"] = time.Now().UTC().Format(time.RFC3339)
	}
	if reason != "" {
		payload["reason"] = reason
	}

	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("simulator failed to marshal callback", "error", err, "order_id", job.OrderID)
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		s.logger.Error("simulator failed to create webhook request", "error", err, "order_id", job.OrderID)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if s.secretKey != "" {
		req.Header.Set(SignatureHeader, ComputeSignature(body, s.secretKey))
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("simulator webhook delivery failed", "error", err, "order_id", job.OrderID)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		s.logger.Info("simulator webhook delivered",
			"order_id", job.OrderID,
			"status", status,
			"status_code", resp.StatusCode)
	} else {
		s.logger.Warn("simulator webhook rejected",
			"order_id", job.OrderID,
			"status", status,
			"status_code", resp.StatusCode)
	}
}
