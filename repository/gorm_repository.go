package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/hirecraft/interview-engine/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GORMRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) *GORMRepository {
	return &GORMRepository{db: db}
}

// AutoMigrate runs database migrations
func (r *GORMRepository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&models.User{},
		&models.UsageLedger{},
		&models.InterviewSession{},
		&models.InterviewMessage{},
		&models.InterviewFeedback{},
		&models.RetakePayment{},
	)
}

// WithTx runs fn inside a single database transaction. The repository passed
// to fn is bound to that transaction, so every invariant-preserving sequence
// (quota consume + session create, payment confirm + session reset) commits
// or rolls back as one unit.
func (r *GORMRepository) WithTx(ctx context.Context, fn func(*GORMRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GORMRepository{db: tx})
	})
}

// forUpdate adds a row-level lock on postgres. SQLite (used by the test
// suite) serializes writers on its own and rejects FOR UPDATE syntax.
func (r *GORMRepository) forUpdate(q *gorm.DB) *gorm.DB {
	if r.db.Dialector.Name() == "postgres" {
		return q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

// User operations

func (r *GORMRepository) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		slog.Error("Failed to create user", "error", err)
		return err
	}
	slog.Info("User created", "user_id", user.ID, "email", user.Email)
	return nil
}

func (r *GORMRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get user by email", "error", err, "email", email)
		return nil, err
	}
	return &user, nil
}

func (r *GORMRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get user by ID", "error", err, "user_id", id)
		return nil, err
	}
	return &user, nil
}

// Usage ledger operations

// GetOrCreateLedgerForUpdate loads a user's ledger under a row lock,
// creating it on first use. Callers must be inside WithTx.
func (r *GORMRepository) GetOrCreateLedgerForUpdate(ctx context.Context, userID string) (*models.UsageLedger, error) {
	var ledger models.UsageLedger
	err := r.forUpdate(r.db.WithContext(ctx)).Where("user_id = ?", userID).First(&ledger).Error
	if err == nil {
		return &ledger, nil
	}
	if err != gorm.ErrRecordNotFound {
		slog.Error("Failed to get usage ledger", "error", err, "user_id", userID)
		return nil, err
	}

	ledger = models.UsageLedger{UserID: userID, LastMonthlyReset: time.Now()}
	if err := r.db.WithContext(ctx).Create(&ledger).Error; err != nil {
		slog.Error("Failed to create usage ledger", "error", err, "user_id", userID)
		return nil, err
	}
	slog.Info("Usage ledger created", "user_id", userID)
	return &ledger, nil
}

func (r *GORMRepository) GetLedger(ctx context.Context, userID string) (*models.UsageLedger, error) {
	var ledger models.UsageLedger
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&ledger).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get usage ledger", "error", err, "user_id", userID)
		return nil, err
	}
	return &ledger, nil
}

func (r *GORMRepository) SaveLedger(ctx context.Context, ledger *models.UsageLedger) error {
	if err := r.db.WithContext(ctx).Save(ledger).Error; err != nil {
		slog.Error("Failed to save usage ledger", "error", err, "user_id", ledger.UserID)
		return err
	}
	return nil
}
