package workers

import (
	"time"

	"cvanalyzer_backend/internal/config"
	"cvanalyzer_backend/internal/logger"
	"cvanalyzer_backend/internal/models"
	"cvanalyzer_backend/internal/repositories"
	"cvanalyzer_backend/internal/services"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// MaintenanceWorker runs the periodic background jobs: failing resumes stuck
// in processing, reconciling credit balances against the ledger, and cleaning
// expired refresh tokens.
type MaintenanceWorker struct {
	db         *gorm.DB
	resumeRepo repositories.ResumeRepository
	userRepo   repositories.UserRepository
	creditSvc  services.CreditService

	cron *cron.Cron
}

func NewMaintenanceWorker(
	db *gorm.DB,
	resumeRepo repositories.ResumeRepository,
	userRepo repositories.UserRepository,
	creditSvc services.CreditService,
) *MaintenanceWorker {
	return &MaintenanceWorker{
		db:         db,
		resumeRepo: resumeRepo,
		userRepo:   userRepo,
		creditSvc:  creditSvc,
		cron:       cron.New(),
	}
}

// Start schedules the jobs and launches the cron loop.
func (w *MaintenanceWorker) Start() error {
	cfg := config.GetConfig()

	if _, err := w.cron.AddFunc(cfg.Workers.SweepSchedule, w.SweepStuckResumes); err != nil {
		return err
	}
	if _, err := w.cron.AddFunc(cfg.Workers.ReconcileSchedule, w.ReconcileBalances); err != nil {
		return err
	}

	w.cron.Start()
	logger.Info("maintenance worker started",
		"sweep_schedule", cfg.Workers.SweepSchedule,
		"reconcile_schedule", cfg.Workers.ReconcileSchedule,
	)
	return nil
}

// Stop halts the cron loop and waits for running jobs.
func (w *MaintenanceWorker) Stop() {
	ctx := w.cron.Stop()
	<-ctx.Done()
	logger.Info("maintenance worker stopped")
}

// SweepStuckResumes fails processing rows older than the configured deadline.
// A crashed pipeline otherwise leaves resumes processing forever, with the
// user unable to tell whether to retry.
func (w *MaintenanceWorker) SweepStuckResumes() {
	deadline := time.Duration(config.GetConfig().Workers.ProcessingDeadline) * time.Minute
	cutoff := time.Now().Add(-deadline)

	stuck, err := w.resumeRepo.FindStuckProcessing(w.db, cutoff)
	if err != nil {
		logger.WithError(err).Error("stuck-resume sweep query failed")
		return
	}

	for i := range stuck {
		resume := &stuck[i]
		if err := w.resumeRepo.UpdateStatus(w.db, resume.ID, models.ResumeStatusFailed,
			"Processing timed out"); err != nil {
			logger.WithError(err).Error("failed to fail stuck resume", "resume_id", resume.ID)
			continue
		}
		logger.Info("stuck resume failed by sweep",
			"resume_id", resume.ID,
			"user_id", resume.UserID,
			"stuck_since", resume.UpdatedAt,
		)
	}

	logger.WorkerLog("maintenance", "stuck-resume sweep", nil)

	if err := w.userRepo.CleanExpiredRefreshTokens(w.db); err != nil {
		logger.WithError(err).Error("refresh token cleanup failed")
	}
}

// ReconcileBalances repairs cached balances that drifted from the ledger.
func (w *MaintenanceWorker) ReconcileBalances() {
	report, err := w.creditSvc.Reconcile(w.db)
	if err != nil {
		logger.WorkerLog("maintenance", "ledger reconciliation", err)
		return
	}
	logger.Info("ledger reconciliation finished",
		"checked", report.Checked,
		"repaired", report.Repaired,
	)
	logger.WorkerLog("maintenance", "ledger reconciliation", nil)
}
