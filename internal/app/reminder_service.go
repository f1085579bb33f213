package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"discount_reminder/internal/domain/discount"
	"discount_reminder/internal/domain/mail"
	idb "discount_reminder/internal/infra/database" // For ErrMetaNotFound

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ReminderWindow is how far ahead of expiration a reminder is sent.
const ReminderWindow = 24 * time.Hour

// Claimer guards a discount while a reminder for it is in flight, so that
// overlapping runs in different processes do not e-mail the same customer.
type Claimer interface {
	// Claim returns false if another run already holds the discount.
	Claim(ctx context.Context, discountID int64) (bool, error)
	Release(ctx context.Context, discountID int64) error
}

// NopClaimer grants every claim. Used when no shared lock store is configured.
type NopClaimer struct{}

func (NopClaimer) Claim(context.Context, int64) (bool, error) { return true, nil }
func (NopClaimer) Release(context.Context, int64) error       { return nil }

// Candidate is a discount selected for a reminder in the current run.
type Candidate struct {
	DiscountID   int64
	Code         string
	NotifyTarget string
}

// RunSummary describes the outcome of a single Execute call.
type RunSummary struct {
	RunID          string
	StartedAt      time.Time
	ConfigValid    bool
	ConfigError    error
	Scanned        int
	Candidates     int
	Sent           int
	Failed         int
	SkippedClaimed int
	MarkFailed     int
}

// ReminderRun sends expiry reminders for discounts about to lapse.
// Constructing it has no side effects; call Execute to perform a run.
type ReminderRun struct {
	discountRepo   discount.Repository
	mailer         mail.Sender
	claimer        Claimer
	configProvider ConfigProvider
	logger         *logrus.Entry
	now            func() time.Time
}

// Option configures optional ReminderRun collaborators.
type Option func(*ReminderRun)

// WithClaimer sets the claimer used before each send.
func WithClaimer(c Claimer) Option {
	return func(r *ReminderRun) {
		if c != nil {
			r.claimer = c
		}
	}
}

// WithConfigProvider sets the hook applied to the configuration at the
// start of every run.
func WithConfigProvider(p ConfigProvider) Option {
	return func(r *ReminderRun) { r.configProvider = p }
}

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *ReminderRun) { r.now = now }
}

func NewReminderRun(
	dr discount.Repository,
	sender mail.Sender,
	logger *logrus.Entry,
	opts ...Option,
) *ReminderRun {
	r := &ReminderRun{
		discountRepo: dr,
		mailer:       sender,
		claimer:      NopClaimer{},
		logger:       logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute resolves the configuration, selects due discounts and sends one
// reminder per discount. An invalid configuration makes the run a no-op and
// is reported through the summary, not as an error.
func (r *ReminderRun) Execute(ctx context.Context, configInput RawConfig) (*RunSummary, error) {
	summary := &RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: r.now(),
	}
	log := r.logger.WithField("run_id", summary.RunID)

	raw := configInput
	if r.configProvider != nil {
		raw = r.configProvider(raw)
	}
	cfg, err := ParseConfig(raw)
	if err != nil {
		summary.ConfigError = err
		log.WithError(err).Warn("Reminder configuration is invalid. No reminders will be sent.")
		return summary, nil
	}
	summary.ConfigValid = true

	candidates, scanned, err := r.selectCandidates(ctx, summary.StartedAt, log)
	summary.Scanned = scanned
	if err != nil {
		return summary, err
	}
	summary.Candidates = len(candidates)
	if len(candidates) == 0 {
		log.WithField("scanned", scanned).Info("No discounts due for a reminder")
		return summary, nil
	}
	log.WithFields(logrus.Fields{"scanned": scanned, "candidates": len(candidates)}).Info("Sending discount reminders")

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			log.WithError(err).Warn("Reminder run interrupted")
			return summary, fmt.Errorf("reminder run interrupted: %w", err)
		}
		r.notify(ctx, cfg, c, summary, log)
	}

	log.WithFields(logrus.Fields{
		"sent":            summary.Sent,
		"failed":          summary.Failed,
		"skipped_claimed": summary.SkippedClaimed,
		"mark_failed":     summary.MarkFailed,
	}).Info("Reminder run finished")
	return summary, nil
}

// SelectCandidates returns the discounts that need a reminder at now.
func (r *ReminderRun) SelectCandidates(ctx context.Context, now time.Time) ([]Candidate, error) {
	candidates, _, err := r.selectCandidates(ctx, now, r.logger)
	return candidates, err
}

func (r *ReminderRun) selectCandidates(ctx context.Context, now time.Time, log *logrus.Entry) ([]Candidate, int, error) {
	discounts, err := r.discountRepo.ListActive(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to list active discounts")
		return nil, 0, fmt.Errorf("failed to list active discounts: %w", err)
	}

	deadline := now.Add(ReminderWindow)
	candidates := make([]Candidate, 0)
	for _, d := range discounts {
		if d.Expired(now) || d.MaxedOut() {
			continue
		}
		if !d.ExpiresAt.Valid || !d.ExpiresAt.Time.Before(deadline) {
			continue
		}
		if !isValidEmail(d.NotifyTarget) {
			log.WithFields(logrus.Fields{"discount_id": d.ID, "notify_target": d.NotifyTarget}).Debug("Discount title is not an e-mail address")
			continue
		}
		// Store round-trip; only for otherwise due discounts.
		sent, err := r.alreadySent(ctx, d.ID)
		if err != nil {
			log.WithError(err).WithField("discount_id", d.ID).Error("Failed to read reminder status. Skipping discount this run.")
			continue
		}
		if sent {
			continue
		}
		candidates = append(candidates, Candidate{
			DiscountID:   d.ID,
			Code:         d.Code,
			NotifyTarget: d.NotifyTarget,
		})
	}
	return candidates, len(discounts), nil
}

func (r *ReminderRun) alreadySent(ctx context.Context, discountID int64) (bool, error) {
	v, err := r.discountRepo.GetMeta(ctx, discountID, discount.MetaKeyReminderSent)
	if err != nil {
		if errors.Is(err, idb.ErrMetaNotFound) {
			return false, nil
		}
		return false, err
	}
	return v == discount.MetaValueSent, nil
}

func (r *ReminderRun) notify(ctx context.Context, cfg *Config, c Candidate, summary *RunSummary, log *logrus.Entry) {
	log = log.WithFields(logrus.Fields{"discount_id": c.DiscountID, "to": c.NotifyTarget})

	claimed, err := r.claimer.Claim(ctx, c.DiscountID)
	if err != nil {
		log.WithError(err).Warn("Could not claim discount. Leaving it for the next run.")
		summary.SkippedClaimed++
		return
	}
	if !claimed {
		log.Info("Discount is claimed by another run. Skipping.")
		summary.SkippedClaimed++
		return
	}

	msg := &mail.Message{
		FromName:  cfg.FromName,
		FromEmail: cfg.FromEmail,
		To:        c.NotifyTarget,
		Subject:   cfg.Subject,
		Body:      cfg.RenderMessage(c.Code),
		Headers:   map[string]string{"X-Discount-ID": strconv.FormatInt(c.DiscountID, 10)},
	}
	if err := r.mailer.Send(ctx, msg); err != nil {
		summary.Failed++
		log.WithError(err).Error("Failed to send discount reminder")
		if errRelease := r.claimer.Release(ctx, c.DiscountID); errRelease != nil {
			log.WithError(errRelease).Warn("Failed to release discount claim")
		}
		return
	}
	summary.Sent++

	if err := r.discountRepo.SetMeta(ctx, c.DiscountID, discount.MetaKeyReminderSent, discount.MetaValueSent); err != nil {
		summary.MarkFailed++
		log.WithError(err).Error("Reminder sent but could not be marked. It may be sent again.")
		return
	}
	log.Info("Discount reminder sent")
}

var emailValidator = validator.New()

// isValidEmail accepts a bare ASCII address (no display name) whose domain is
// a dotted hostname with a TLD starting with a letter.
func isValidEmail(s string) bool {
	if s == "" || !isASCII(s) {
		return false
	}
	if err := emailValidator.Var(s, "required,email"); err != nil {
		return false
	}
	return isHostname(s[strings.LastIndex(s, "@")+1:])
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7e || s[i] < 0x21 {
			return false
		}
	}
	return true
}

// isHostname checks LDH labels: letters, digits and inner hyphens, at most
// 63 characters each.
func isHostname(domain string) bool {
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}
	for _, l := range labels {
		if l == "" || len(l) > 63 || l[0] == '-' || l[len(l)-1] == '-' {
			return false
		}
		for i := 0; i < len(l); i++ {
			if c := l[i]; !isLetter(c) && !(c >= '0' && c <= '9') && c != '-' {
				return false
			}
		}
	}
	return isLetter(labels[len(labels)-1][0])
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
