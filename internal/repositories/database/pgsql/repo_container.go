package pgsql

import (
	portsrepo "github.com/SscSPs/ledgerbook/internal/core/ports/repositories"
)

// NewRepositoryProvider wires every Postgres repository over one pool.
func NewRepositoryProvider(dbPool DBPool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		TxManager:   NewBaseRepository(dbPool),
		AccountRepo: newPgxAccountRepository(dbPool),
		JournalRepo: newPgxJournalRepository(dbPool),
		OutboxRepo:  newPgxOutboxRepository(dbPool),
	}
}
