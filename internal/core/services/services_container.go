package services

import (
	portsrepo "github.com/SscSPs/ledgerbook/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/ledgerbook/internal/core/ports/services"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(repos portsrepo.RepositoryProvider) *portssvc.ServiceContainer {
	return &portssvc.ServiceContainer{
		Account: NewAccountService(repos),
		Journal: NewJournalService(repos),
	}
}
