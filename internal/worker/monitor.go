package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/Nayana519/PulseGuard/internal/model"
	"github.com/Nayana519/PulseGuard/internal/repository"
	"github.com/Nayana519/PulseGuard/internal/service/notification"
	"github.com/Nayana519/PulseGuard/pkg/logger"
	"github.com/Nayana519/PulseGuard/pkg/metrics"
)

const (
	jobMissedDose = "missed_dose"
	jobLowStock   = "low_stock"
)

type Config struct {
	MissedDoseSpec  string
	LowStockSpec    string
	GracePeriod     time.Duration
	MissedTolerance time.Duration
}

func DefaultConfig() Config {
	return Config{
		MissedDoseSpec:  "@every 1m",
		LowStockSpec:    "@every 5m",
		GracePeriod:     15 * time.Minute,
		MissedTolerance: time.Minute,
	}
}

// SweepResult counts what one sweep did.
type SweepResult struct {
	Examined int
	Flagged  int
	Skipped  int
	Alerts   int
}

// Monitor runs the missed-dose and low-stock sweeps on a cron schedule.
// Each sweep commits in a single transaction and notifies only after commit.
type Monitor struct {
	store    repository.Store
	notifier notification.Service
	config   Config
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	cron   *cron.Cron
	cancel context.CancelFunc

	lifecycleMu sync.Mutex
	missedMu    sync.Mutex
	lowStockMu  sync.Mutex
}

// ErrAlreadyStarted is returned by Start on a running monitor.
var ErrAlreadyStarted = errors.New("monitor already started")

func NewMonitor(store repository.Store, notifier notification.Service, config Config, log *logger.Logger, m *metrics.Metrics) *Monitor {
	defaults := DefaultConfig()
	if config.MissedDoseSpec == "" {
		config.MissedDoseSpec = defaults.MissedDoseSpec
	}
	if config.LowStockSpec == "" {
		config.LowStockSpec = defaults.LowStockSpec
	}
	if config.GracePeriod <= 0 {
		config.GracePeriod = defaults.GracePeriod
	}
	if config.MissedTolerance <= 0 {
		config.MissedTolerance = defaults.MissedTolerance
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Monitor{
		store:    store,
		notifier: notifier,
		config:   config,
		logger:   log,
		metrics:  m,
		now:      time.Now,
	}
}

// WithClock overrides the time source used by scheduled runs.
func (m *Monitor) WithClock(now func() time.Time) *Monitor {
	m.now = now
	return m
}

// Start registers both sweeps and starts the scheduler. It returns immediately.
func (m *Monitor) Start(ctx context.Context) error {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()
	if m.cron != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	c := cron.New(
		cron.WithLogger(m.logger),
		cron.WithChain(cron.Recover(m.logger), cron.SkipIfStillRunning(m.logger)),
	)

	if _, err := c.AddFunc(m.config.MissedDoseSpec, func() {
		if _, err := m.RunMissedDoseSweep(ctx, m.now()); err != nil {
			m.logger.Error(err, "Missed dose sweep failed")
		}
	}); err != nil {
		cancel()
		return fmt.Errorf("invalid missed dose schedule %q: %w", m.config.MissedDoseSpec, err)
	}
	if _, err := c.AddFunc(m.config.LowStockSpec, func() {
		if _, err := m.RunLowStockSweep(ctx, m.now()); err != nil {
			m.logger.Error(err, "Low stock sweep failed")
		}
	}); err != nil {
		cancel()
		return fmt.Errorf("invalid low stock schedule %q: %w", m.config.LowStockSpec, err)
	}

	m.cron = c
	m.cancel = cancel
	c.Start()
	m.logger.Info("Monitor started",
		"missed_dose_spec", m.config.MissedDoseSpec,
		"low_stock_spec", m.config.LowStockSpec)
	return nil
}

// Stop halts the timers and waits for a running sweep to finish, or for ctx to expire.
func (m *Monitor) Stop(ctx context.Context) error {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()
	if m.cron == nil {
		return nil
	}
	done := m.cron.Stop()
	cancel := m.cancel
	m.cron, m.cancel = nil, nil
	defer cancel()

	select {
	case <-done.Done():
		m.logger.Info("Monitor stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("monitor did not drain: %w", ctx.Err())
	}
}

// RunMissedDoseSweep flags every active medication whose next dose is more
// than the grace period overdue at now. Flagging writes a missed log, alerts
// the patient and each linked caregiver, and moves the schedule forward.
// A medication that already has a missed log for its slot gets no new log
// or alerts, but its schedule still moves forward so it stops being overdue.
func (m *Monitor) RunMissedDoseSweep(ctx context.Context, now time.Time) (SweepResult, error) {
	m.missedMu.Lock()
	defer m.missedMu.Unlock()

	now = now.UTC()
	var (
		res    SweepResult
		alerts []*model.Alert
	)
	err := m.sweep(ctx, jobMissedDose, func(tx repository.Tx) error {
		res, alerts = SweepResult{}, nil

		meds, err := tx.LockOverdueMedications(ctx, now.Add(-m.config.GracePeriod))
		if err != nil {
			return fmt.Errorf("failed to load overdue medications: %w", err)
		}
		for _, med := range meds {
			res.Examined++
			scheduled := *med.NextDoseTime
			next := now.Add(med.Frequency())

			exists, err := tx.MissedDoseExists(ctx, med.ID, scheduled, m.config.MissedTolerance)
			if err != nil {
				return fmt.Errorf("failed to check missed log for %s: %w", med.ID, err)
			}
			if exists {
				res.Skipped++
				if _, err := tx.AdvanceNextDoseTime(ctx, med.ID, next, now); err != nil {
					return fmt.Errorf("failed to advance schedule for %s: %w", med.ID, err)
				}
				continue
			}

			created, err := m.flagMissedDose(ctx, tx, med, scheduled, now)
			if err != nil {
				return err
			}
			if _, err := tx.AdvanceNextDoseTime(ctx, med.ID, next, now); err != nil {
				return fmt.Errorf("failed to advance schedule for %s: %w", med.ID, err)
			}
			res.Flagged++
			alerts = append(alerts, created...)
		}
		res.Alerts = len(alerts)
		return nil
	})
	if err != nil {
		return SweepResult{}, err
	}

	m.recordItems(jobMissedDose, res)
	m.dispatch(ctx, alerts)
	return res, nil
}

func (m *Monitor) flagMissedDose(ctx context.Context, tx repository.Tx, med *model.Medication, scheduled, now time.Time) ([]*model.Alert, error) {
	if err := tx.CreateDoseLog(ctx, &model.DoseLog{
		ID:            uuid.New(),
		MedicationID:  med.ID,
		ScheduledTime: scheduled,
		Status:        model.DoseStatusMissed,
		CreatedAt:     now,
	}); err != nil {
		return nil, fmt.Errorf("failed to record missed dose for %s: %w", med.ID, err)
	}

	patientName := "Patient"
	if patient, err := tx.GetUser(ctx, med.PatientID); err == nil {
		patientName = patient.Name
	}

	alerts := []*model.Alert{model.NewAlert(
		med.PatientID, &med.ID, model.AlertTypeMissedDose, model.AlertSeverityWarning,
		fmt.Sprintf("Missed Dose: %s", med.Name),
		fmt.Sprintf("You missed your scheduled dose of %s at %s UTC.", med.Name, scheduled.UTC().Format("15:04")),
		now,
	)}

	caregivers, err := tx.CaregiversOf(ctx, med.PatientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load caregivers of %s: %w", med.PatientID, err)
	}
	for _, cg := range caregivers {
		alerts = append(alerts, model.NewAlert(
			cg.ID, &med.ID, model.AlertTypeMissedDose, model.AlertSeverityWarning,
			fmt.Sprintf("Missed Dose: %s - %s", patientName, med.Name),
			fmt.Sprintf("%s missed their %s dose.", patientName, med.Name),
			now,
		))
	}

	for _, a := range alerts {
		if err := tx.CreateAlert(ctx, a); err != nil {
			return nil, fmt.Errorf("failed to create missed dose alert: %w", err)
		}
	}
	return alerts, nil
}

// RunLowStockSweep alerts the patient once per low medication. A new alert is
// only raised after the previous one has been read.
func (m *Monitor) RunLowStockSweep(ctx context.Context, now time.Time) (SweepResult, error) {
	m.lowStockMu.Lock()
	defer m.lowStockMu.Unlock()

	now = now.UTC()
	var (
		res    SweepResult
		alerts []*model.Alert
	)
	err := m.sweep(ctx, jobLowStock, func(tx repository.Tx) error {
		res, alerts = SweepResult{}, nil

		meds, err := tx.LowStockMedications(ctx)
		if err != nil {
			return fmt.Errorf("failed to load low stock medications: %w", err)
		}
		for _, med := range meds {
			res.Examined++
			exists, err := tx.UnreadAlertExists(ctx, med.PatientID, med.ID, model.AlertTypeLowStock)
			if err != nil {
				return fmt.Errorf("failed to check low stock alert for %s: %w", med.ID, err)
			}
			if exists {
				res.Skipped++
				continue
			}

			a := model.NewAlert(
				med.PatientID, &med.ID, model.AlertTypeLowStock, model.AlertSeverityWarning,
				fmt.Sprintf("Low Stock: %s", med.Name),
				fmt.Sprintf("Only %.1f %s remaining.", med.CurrentStock, med.DoseUnit),
				now,
			)
			if err := tx.CreateAlert(ctx, a); err != nil {
				return fmt.Errorf("failed to create low stock alert: %w", err)
			}
			res.Flagged++
			alerts = append(alerts, a)
		}
		res.Alerts = len(alerts)
		return nil
	})
	if err != nil {
		return SweepResult{}, err
	}

	m.recordItems(jobLowStock, res)
	m.dispatch(ctx, alerts)
	return res, nil
}

func (m *Monitor) sweep(ctx context.Context, job string, fn func(tx repository.Tx) error) error {
	var timer *prometheus.Timer
	if m.metrics != nil {
		timer = prometheus.NewTimer(m.metrics.SweepDuration.WithLabelValues(job))
	}

	err := m.store.WithTx(ctx, fn)

	if timer != nil {
		timer.ObserveDuration()
	}
	status := "success"
	if err != nil {
		status = "error"
		m.jobLogger(job).Error(err, "Sweep rolled back")
	}
	if m.metrics != nil {
		m.metrics.SweepRuns.WithLabelValues(job, status).Inc()
	}
	return err
}

func (m *Monitor) recordItems(job string, res SweepResult) {
	if res.Flagged > 0 || res.Skipped > 0 {
		m.jobLogger(job).Info("Sweep completed",
			"examined", res.Examined,
			"flagged", res.Flagged,
			"skipped", res.Skipped)
	}
	if m.metrics == nil {
		return
	}
	m.metrics.SweepItems.WithLabelValues(job, "flagged").Add(float64(res.Flagged))
	m.metrics.SweepItems.WithLabelValues(job, "skipped").Add(float64(res.Skipped))
}

func (m *Monitor) dispatch(ctx context.Context, alerts []*model.Alert) {
	if len(alerts) > 0 && m.notifier != nil {
		m.notifier.Send(ctx, alerts...)
	}
}

func (m *Monitor) jobLogger(job string) *logger.Logger {
	return m.logger.WithFields(map[string]interface{}{"job": job})
}
