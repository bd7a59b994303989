package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tintcrm/billing-service/internal/domain"
	"github.com/tintcrm/billing-service/internal/repository"
)

func TestOrganizationCreate_StartsInactive(t *testing.T) {
	log := testLogger()
	orgs := repository.NewInMemoryOrganizationRepository(log)
	svc := NewOrganizationService(orgs, log)

	created, err := svc.Create(context.Background(), domain.OrganizationRequest{
		Name:      "Tint Masters",
		Subdomain: "tintmasters",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusNone, created.SubscriptionStatus)
	assert.False(t, created.IsActive)
	assert.Nil(t, created.StripeCustomerID)
	assert.Nil(t, created.StripeSubscriptionID)
}

func TestOrganizationCreate_DuplicateSubdomain(t *testing.T) {
	log := testLogger()
	orgs := repository.NewInMemoryOrganizationRepository(log)
	svc := NewOrganizationService(orgs, log)

	_, err := svc.Create(context.Background(), domain.OrganizationRequest{Name: "First", Subdomain: "tintmasters"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), domain.OrganizationRequest{Name: "Second", Subdomain: "tintmasters"})

	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestOrganizationGet_NotFound(t *testing.T) {
	log := testLogger()
	orgs := repository.NewInMemoryOrganizationRepository(log)
	svc := NewOrganizationService(orgs, log)

	_, err := svc.Get(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
