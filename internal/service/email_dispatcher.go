package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type emailKind int

const (
	verificationEmail emailKind = iota
	resetEmail
)

func (k emailKind) String() string {
	if k == resetEmail {
		return "password_reset"
	}
	return "verification_code"
}

type emailJob struct {
	kind  emailKind
	to    string
	name  string
	value string
}

type DispatcherConfig struct {
	QueueSize   int
	Workers     int
	SendTimeout time.Duration
	// RatePerSecond throttles calls to the upstream provider. Zero disables it.
	RatePerSecond float64
	Burst         int
}

// EmailDispatcher queues outgoing mail and delivers it in the background, so
// request handlers never wait on the mail provider. Delivery failures are
// logged and otherwise ignored.
type EmailDispatcher struct {
	sender  EmailSender
	logger  logrus.FieldLogger
	limiter *rate.Limiter
	timeout time.Duration
	workers int

	jobs chan emailJob
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewEmailDispatcher(sender EmailSender, logger logrus.FieldLogger, cfg DispatcherConfig) *EmailDispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	return &EmailDispatcher{
		sender:  sender,
		logger:  logger.WithField("component", "email_dispatcher"),
		limiter: rate.NewLimiter(limit, cfg.Burst),
		timeout: cfg.SendTimeout,
		workers: cfg.Workers,
		jobs:    make(chan emailJob, cfg.QueueSize),
	}
}

func (d *EmailDispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
}

func (d *EmailDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *EmailDispatcher) SendVerificationCode(_ context.Context, email string, name string, code string) error {
	d.enqueue(emailJob{kind: verificationEmail, to: email, name: name, value: code})
	return nil
}

func (d *EmailDispatcher) SendPasswordReset(_ context.Context, email string, token string) error {
	d.enqueue(emailJob{kind: resetEmail, to: email, value: token})
	return nil
}

func (d *EmailDispatcher) enqueue(job emailJob) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.WithField("kind", job.kind.String()).Warn("dispatcher closed, dropping email")
		return
	}
	select {
	case d.jobs <- job:
	default:
		d.logger.WithField("kind", job.kind.String()).Error("email queue full, dropping email")
	}
}

func (d *EmailDispatcher) run() {
	defer d.wg.Done()
	for job := range d.jobs {
		d.deliver(job)
	}
}

func (d *EmailDispatcher) deliver(job emailJob) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.limiter.Wait(ctx); err != nil {
		d.logger.WithError(err).WithField("kind", job.kind.String()).Error("email throttled past its deadline")
		return
	}

	var err error
	switch job.kind {
	case verificationEmail:
		err = d.sender.SendVerificationCode(ctx, job.to, job.name, job.value)
	case resetEmail:
		err = d.sender.SendPasswordReset(ctx, job.to, job.value)
	}
	if err != nil {
		d.logger.WithError(err).WithField("kind", job.kind.String()).Error("failed to send email")
		return
	}
	d.logger.WithField("kind", job.kind.String()).Debug("email sent")
}
