package services

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
)

// Publisher announces ledger changes to the mirror worker.
type Publisher interface {
	PublishTransactionSync(ctx context.Context, id string, version int64) error
	PublishTransactionDelete(ctx context.Context, id string, version int64) error
	Close() error
}

type TransactionStore interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) (int64, error)
}

// TransactionService orchestrates ledger writes across SQLite and AMQP.
// The database write is authoritative; publishing is best effort and the
// worker's pending sweep picks up anything that was not announced.
type TransactionService struct {
	store     TransactionStore
	publisher Publisher
}

// NewTransactionService accepts a nil publisher, in which case changes are
// only picked up by the sweep.
func NewTransactionService(store TransactionStore, publisher Publisher) *TransactionService {
	return &TransactionService{store: store, publisher: publisher}
}

// CreateTransaction saves the transaction and publishes a sync message.
func (s *TransactionService) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	saved, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	// new rows start at version 1
	if err := s.publishSync(ctx, saved.ID, 1); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", saved.ID, "error", err)
	}
	return saved, nil
}

// DeleteTransaction soft deletes the transaction and publishes a delete message.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id string) error {
	version, err := s.store.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	if err := s.publishDelete(ctx, id, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message",
			"id", id, "version", version, "error", err)
	}
	return nil
}

func (s *TransactionService) publishSync(ctx context.Context, id string, version int64) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message", "id", id)
		return nil
	}
	return s.publisher.PublishTransactionSync(ctx, id, version)
}

func (s *TransactionService) publishDelete(ctx context.Context, id string, version int64) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping delete message", "id", id)
		return nil
	}
	return s.publisher.PublishTransactionDelete(ctx, id, version)
}

// Close closes the publisher. Storage is owned by the caller.
func (s *TransactionService) Close() error {
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.Close(); err != nil {
		return fmt.Errorf("close amqp: %w", err)
	}
	return nil
}
