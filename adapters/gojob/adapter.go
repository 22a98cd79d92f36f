package gojob

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-connections/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"
)

const JobIDRevoke = "connections.revoke"

const (
	paramConnectionID = "connection_id"
	paramUserID       = "user_id"
	paramProvider     = "provider"
)

// RetryPolicy bounds revocation retries so a dead provider endpoint cannot
// loop forever.
type RetryPolicy struct {
	MaxAttempts     int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     5,
		BaseDelay:       2 * time.Second,
		MaxDelay:        time.Minute,
		DeadLetterOnMax: true,
	}
}

// NackOptions returns the nack for a failed attempt, doubling the delay per
// attempt up to MaxDelay. The last attempt is dead lettered, or marked failed
// when DeadLetterOnMax is off.
func (p RetryPolicy) NackOptions(attempt int, reason string) queue.NackOptions {
	delay := p.BaseDelay
	for i := 1; i < attempt && delay > 0; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			break
		}
	}
	if delay < 0 {
		delay = 0
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	out := queue.NackOptions{
		Disposition: queue.NackDispositionRetry,
		Delay:       delay,
		Reason:      strings.TrimSpace(reason),
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Disposition = queue.NackDispositionFailed
		if p.DeadLetterOnMax {
			out.Disposition = queue.NackDispositionDeadLetter
		}
		out.Delay = 0
	}
	return out
}

// RevocationEnqueuer implements core.RevocationDispatcher by queueing a
// revocation job. Tokens never travel through the queue; workers reload them
// by connection id.
type RevocationEnqueuer struct {
	enqueuer queue.Enqueuer
	now      func() time.Time
}

func NewRevocationEnqueuer(enqueuer queue.Enqueuer) *RevocationEnqueuer {
	return &RevocationEnqueuer{enqueuer: enqueuer, now: time.Now}
}

func (e *RevocationEnqueuer) DispatchRevocation(ctx context.Context, req core.RevocationRequest) error {
	if e == nil || e.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	if req.RequestedAt.IsZero() && e.now != nil {
		req.RequestedAt = e.now()
	}
	msg, err := ToExecutionMessage(req)
	if err != nil {
		return err
	}
	_, err = e.enqueuer.Enqueue(ctx, msg)
	return err
}

// RevocationIdempotencyKey returns connections.revoke:<connection>:<unix nanos>
// so each deactivation of a reused connection id gets its own key.
func RevocationIdempotencyKey(connectionID string, requestedAt time.Time) string {
	key := JobIDRevoke + ":" + strings.TrimSpace(connectionID)
	if requestedAt.IsZero() {
		return key
	}
	return key + ":" + strconv.FormatInt(requestedAt.UnixNano(), 10)
}

// ToExecutionMessage maps a revocation request to a go-job message.
func ToExecutionMessage(req core.RevocationRequest) (*job.ExecutionMessage, error) {
	connectionID := strings.TrimSpace(req.ConnectionID)
	if connectionID == "" {
		return nil, fmt.Errorf("gojob: revocation connection id is required")
	}
	provider := core.NormalizeProviderKey(req.Provider)
	if provider == "" {
		return nil, fmt.Errorf("gojob: revocation provider is required")
	}
	return &job.ExecutionMessage{
		JobID:      JobIDRevoke,
		ScriptPath: JobIDRevoke,
		Parameters: map[string]any{
			paramConnectionID: connectionID,
			paramUserID:       strings.TrimSpace(req.UserID),
			paramProvider:     provider,
		},
		IdempotencyKey: RevocationIdempotencyKey(connectionID, req.RequestedAt),
	}, nil
}

// FromExecutionMessage maps a queued message back into a revocation request.
func FromExecutionMessage(msg *job.ExecutionMessage) (core.RevocationRequest, error) {
	if msg == nil {
		return core.RevocationRequest{}, fmt.Errorf("gojob: execution message is required")
	}
	if strings.TrimSpace(msg.JobID) != JobIDRevoke {
		return core.RevocationRequest{}, fmt.Errorf("gojob: unexpected job id %q", msg.JobID)
	}
	req := core.RevocationRequest{
		ConnectionID: stringParam(msg.Parameters, paramConnectionID),
		UserID:       stringParam(msg.Parameters, paramUserID),
		Provider:     stringParam(msg.Parameters, paramProvider),
	}
	if req.ConnectionID == "" || req.Provider == "" {
		return core.RevocationRequest{}, fmt.Errorf("gojob: revocation message is missing connection id or provider")
	}
	return req, nil
}

// RevocationWorker executes queued revocations against a synchronous
// dispatcher, usually a core.InlineRevoker.
type RevocationWorker struct {
	revoker core.RevocationDispatcher
	policy  RetryPolicy
	logger  glog.Logger

	mu       sync.Mutex
	attempts map[string]int
}

func NewRevocationWorker(revoker core.RevocationDispatcher, policy RetryPolicy, logger glog.Logger) *RevocationWorker {
	return &RevocationWorker{
		revoker:  revoker,
		policy:   policy,
		logger:   glog.Ensure(logger),
		attempts: map[string]int{},
	}
}

// Handle runs one delivery and settles it. Malformed messages are dead
// lettered, failures are nacked per the retry policy.
func (w *RevocationWorker) Handle(ctx context.Context, delivery queue.Delivery) error {
	if w == nil || w.revoker == nil {
		return fmt.Errorf("gojob: revocation worker is not configured")
	}
	if delivery == nil {
		return fmt.Errorf("gojob: delivery is required")
	}
	msg := delivery.Message()
	req, err := FromExecutionMessage(msg)
	if err != nil {
		w.logger.Error("dropping malformed revocation job", "error", err)
		return delivery.Nack(ctx, queue.NackOptions{
			Disposition: queue.NackDispositionDeadLetter,
			Reason:      err.Error(),
		})
	}

	key := msg.IdempotencyKey
	if strings.TrimSpace(key) == "" {
		key = RevocationIdempotencyKey(req.ConnectionID, time.Time{})
	}
	attempt := w.nextAttempt(key)
	if counted, ok := delivery.(interface{ Attempts() int }); ok && counted.Attempts() > 0 {
		attempt = counted.Attempts()
	}

	if err := w.revoker.DispatchRevocation(ctx, req); err != nil {
		opts := w.policy.NackOptions(attempt, err.Error())
		w.logger.Warn("revocation job failed",
			"provider", req.Provider,
			"connection_id", req.ConnectionID,
			"attempt", attempt,
			"disposition", string(opts.Disposition),
			"error_text_code", core.ErrorTextCode(err),
		)
		if opts.Disposition != queue.NackDispositionRetry {
			w.forget(key)
		}
		return delivery.Nack(ctx, opts)
	}

	w.forget(key)
	w.logger.Info("revocation job completed", "provider", req.Provider, "connection_id", req.ConnectionID)
	return delivery.Ack(ctx)
}

// Poll dequeues and handles a single delivery. It reports false when the
// queue had nothing ready.
func (w *RevocationWorker) Poll(ctx context.Context, dequeuer queue.Dequeuer) (bool, error) {
	if dequeuer == nil {
		return false, fmt.Errorf("gojob: dequeuer is not configured")
	}
	delivery, err := dequeuer.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if delivery == nil {
		return false, nil
	}
	return true, w.Handle(ctx, delivery)
}

// Run drains the queue, then waits interval between polls until ctx is done.
func (w *RevocationWorker) Run(ctx context.Context, dequeuer queue.Dequeuer, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
		for {
			handled, err := w.Poll(ctx, dequeuer)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.logger.Error("revocation queue poll failed", "error", err)
				break
			}
			if !handled {
				break
			}
		}
		timer.Reset(interval)
	}
}

func (w *RevocationWorker) nextAttempt(key string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attempts[key]++
	return w.attempts[key]
}

func (w *RevocationWorker) forget(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.attempts, key)
}

// LoggingHook reports go-job worker events through the connections logger.
type LoggingHook struct {
	logger glog.Logger
}

func NewLoggingHook(logger glog.Logger) *LoggingHook {
	return &LoggingHook{logger: glog.Ensure(logger)}
}

func (h *LoggingHook) OnStart(ctx context.Context, event worker.Event) {
	h.log(ctx, "debug", "job started", event)
}

func (h *LoggingHook) OnSuccess(ctx context.Context, event worker.Event) {
	h.log(ctx, "info", "job succeeded", event)
}

func (h *LoggingHook) OnFailure(ctx context.Context, event worker.Event) {
	h.log(ctx, "error", "job failed", event)
}

func (h *LoggingHook) OnRetry(ctx context.Context, event worker.Event) {
	h.log(ctx, "warn", "job retrying", event)
}

func (h *LoggingHook) log(ctx context.Context, level string, message string, event worker.Event) {
	if h == nil || h.logger == nil {
		return
	}
	logger := h.logger.WithContext(ctx)
	args := eventArgs(event)
	switch level {
	case "error":
		logger.Error(message, args...)
	case "warn":
		logger.Warn(message, args...)
	case "debug":
		logger.Debug(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func eventArgs(event worker.Event) []any {
	msg := event.Message
	if msg == nil && event.Delivery != nil {
		msg = event.Delivery.Message()
	}
	args := []any{"attempt", event.Attempt, "duration_ms", event.Duration.Milliseconds()}
	if msg != nil {
		args = append(args, "job_id", msg.JobID, "idempotency_key", msg.IdempotencyKey)
	}
	if event.Delay > 0 {
		args = append(args, "delay", event.Delay.String())
	}
	if event.Err != nil {
		args = append(args, "error", event.Err.Error())
	}
	return args
}

func stringParam(params map[string]any, key string) string {
	value, ok := params[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

var (
	_ core.RevocationDispatcher = (*RevocationEnqueuer)(nil)
	_ worker.Hook               = (*LoggingHook)(nil)
)
