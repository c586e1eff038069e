package shipper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pspwatch/pspwatch/agent/internal/config"
	"github.com/pspwatch/pspwatch/pkg/types"
)

const (
	backoffInitial    = 1 * time.Second
	backoffMax        = 60 * time.Second
	backoffMultiplier = 2.0
	sendTimeout       = 10 * time.Second

	bulkPath = "/api/transactions/bulk"
)

// Shipper buffers transactions and posts them to pspwatch-server in bulk.
// Ship() never blocks; when the buffer is full the oldest transaction is
// evicted. Run() must be called in a goroutine to drain the buffer.
type Shipper struct {
	cfg    config.AgentConfig
	client *http.Client
	url    string

	mu  sync.Mutex
	buf []types.Transaction // oldest first, at most cfg.BufferSize
}

// New creates a Shipper posting to cfg.ServerURL with client.
func New(cfg config.AgentConfig, client *http.Client) *Shipper {
	return &Shipper{
		cfg:    cfg,
		client: client,
		url:    strings.TrimRight(cfg.ServerURL, "/") + bulkPath,
		buf:    make([]types.Transaction, 0, cfg.BufferSize),
	}
}

// Ship enqueues txns. If the buffer is full the oldest entries are evicted
// to make room.
func (s *Shipper) Ship(txns ...types.Transaction) {
	s.mu.Lock()
	s.buf = append(s.buf, txns...)
	evicted := s.trimLocked()
	s.mu.Unlock()

	if evicted > 0 {
		slog.Warn("shipper: buffer full, evicted oldest transactions",
			"evicted", evicted, "buffer_cap", s.cfg.BufferSize)
	}
}

// trimLocked drops the oldest entries beyond BufferSize and returns how many
// were dropped. s.mu must be held.
func (s *Shipper) trimLocked() int {
	over := len(s.buf) - s.cfg.BufferSize
	if over <= 0 {
		return 0
	}
	s.buf = append(s.buf[:0], s.buf[over:]...)
	return over
}

// Pending returns the number of buffered transactions.
func (s *Shipper) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}

// Run flushes the buffer every ShipInterval, backing off after transient
// failures. On cancellation it makes one last flush attempt and returns.
func (s *Shipper) Run(ctx context.Context) {
	bo := newBackoff()
	t := time.NewTicker(s.cfg.ShipInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			s.finalFlush()
			return
		case <-t.C:
		}

		if err := s.flush(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			wait := bo.next()
			slog.Error("shipper: send failed, will retry",
				"url", s.url,
				"pending", s.Pending(),
				"err", err,
				"retry_in", wait)
			select {
			case <-ctx.Done():
			case <-time.After(wait):
			}
			continue
		}
		bo.reset()
	}
}

func (s *Shipper) finalFlush() {
	if s.Pending() == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := s.flush(ctx); err != nil {
		slog.Warn("shipper: final flush failed", "pending", s.Pending(), "err", err)
	}
}

// flush posts batches until the buffer is empty or a transient error occurs.
// A batch that failed transiently is requeued at the front of the buffer.
func (s *Shipper) flush(ctx context.Context) error {
	for {
		batch := s.take()
		if len(batch) == 0 {
			return nil
		}

		res, err := s.post(ctx, batch)
		if err != nil {
			if isPermanentError(err) {
				slog.Error("shipper: permanent send error, discarding batch",
					"size", len(batch), "err", err)
				continue
			}
			s.requeue(batch)
			return err
		}

		if len(res.Errors) > 0 {
			slog.Warn("shipper: server skipped transactions",
				"received", res.TotalReceived,
				"inserted", res.Inserted,
				"first_error", res.Errors[0])
		} else {
			slog.Debug("shipper: batch delivered", "inserted", res.Inserted)
		}
	}
}

// take removes up to BatchSize of the oldest transactions from the buffer.
func (s *Shipper) take() []types.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := min(s.cfg.BatchSize, len(s.buf))
	if n == 0 {
		return nil
	}
	batch := make([]types.Transaction, n)
	copy(batch, s.buf)
	s.buf = append(s.buf[:0], s.buf[n:]...)
	return batch
}

// requeue puts an unsent batch back at the front of the buffer so delivery
// order is preserved. If transactions shipped in the meantime overflow the
// buffer, the oldest entries are dropped.
func (s *Shipper) requeue(batch []types.Transaction) {
	s.mu.Lock()
	s.buf = append(batch[:len(batch):len(batch)], s.buf...)
	dropped := s.trimLocked()
	s.mu.Unlock()

	if dropped > 0 {
		slog.Warn("shipper: buffer full, dropped unsent transactions", "dropped", dropped)
	}
}

// statusError is a non-2xx response from the server.
type statusError struct {
	code    int
	message string
}

func (e *statusError) Error() string {
	if e.message == "" {
		return fmt.Sprintf("server returned %d", e.code)
	}
	return fmt.Sprintf("server returned %d: %s", e.code, e.message)
}

// response is the server's response envelope for a bulk request.
type response struct {
	Success bool             `json:"success"`
	Data    types.BulkResult `json:"data"`
	Error   string           `json:"error"`
}

func (s *Shipper) post(ctx context.Context, batch []types.Transaction) (types.BulkResult, error) {
	body, err := json.Marshal(types.BulkRequest{Transactions: batch})
	if err != nil {
		return types.BulkResult{}, fmt.Errorf("marshal batch: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return types.BulkResult{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return types.BulkResult{}, fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	var env response
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return types.BulkResult{}, &statusError{code: resp.StatusCode, message: env.Error}
	}
	if decodeErr != nil {
		return types.BulkResult{}, fmt.Errorf("decode response: %w", decodeErr)
	}
	return env.Data, nil
}

// isPermanentError returns true for responses that indicate the batch itself
// is unacceptable and should not be retried.
func isPermanentError(err error) bool {
	var se *statusError
	if !errors.As(err, &se) {
		return false
	}
	switch se.code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return se.code >= 400 && se.code < 500
}

// backoff implements truncated exponential backoff with jitter.
type backoff struct {
	current time.Duration
}

func newBackoff() *backoff {
	return &backoff{current: backoffInitial}
}

// next returns the current backoff duration and advances the internal state.
func (b *backoff) next() time.Duration {
	d := b.current
	// Apply ±25 % jitter.
	jitter := time.Duration(float64(b.current) * 0.25 * (rand.Float64()*2 - 1)) //nolint:gosec // not crypto
	d += jitter
	if d < 0 {
		d = 0
	}

	b.current = time.Duration(float64(b.current) * backoffMultiplier)
	if b.current > backoffMax {
		b.current = backoffMax
	}
	return d
}

func (b *backoff) reset() {
	b.current = backoffInitial
}
