package repository

import (
	"context"
	"fmt"

	"giftrank/database"
	"giftrank/events"
	"giftrank/service"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	giftOfferRepo    service.GiftOfferRepository
	paymentRepo      service.SettledPaymentRepository
	monthlyTotalRepo service.MonthlyTotalRepository
	storeRepo        service.StoreRepository
	talentRepo       service.TalentRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	u.giftOfferRepo = newGiftOfferRepositoryWithTx(tx)
	u.paymentRepo = newSettledPaymentRepositoryWithTx(tx)
	u.monthlyTotalRepo = newMonthlyTotalRepositoryWithTx(tx)
	u.storeRepo = newStoreRepositoryWithTx(tx)
	u.talentRepo = newTalentRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Flush pending events after successful commit
	u.transactionalBus.Flush(u.ctx)

	return nil
}

// Rollback rolls back the transaction. Safe to call after Commit.
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil
	u.transactionalBus.Discard()

	return nil
}

// GiftOfferRepository returns the gift offer repository for this unit of work
func (u *unitOfWork) GiftOfferRepository() service.GiftOfferRepository {
	if u.giftOfferRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.giftOfferRepo
}

// SettledPaymentRepository returns the payment ledger for this unit of work
func (u *unitOfWork) SettledPaymentRepository() service.SettledPaymentRepository {
	if u.paymentRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.paymentRepo
}

// MonthlyTotalRepository returns the ranking cache for this unit of work
func (u *unitOfWork) MonthlyTotalRepository() service.MonthlyTotalRepository {
	if u.monthlyTotalRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.monthlyTotalRepo
}

// StoreRepository returns the store repository for this unit of work
func (u *unitOfWork) StoreRepository() service.StoreRepository {
	if u.storeRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.storeRepo
}

// TalentRepository returns the talent repository for this unit of work
func (u *unitOfWork) TalentRepository() service.TalentRepository {
	if u.talentRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.talentRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
