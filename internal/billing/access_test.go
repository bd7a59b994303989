package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tintcrm/billing-service/internal/domain"
)

func TestHasAccess_ReadsOnlyIsActive(t *testing.T) {
	// Никакое другое поле не должно влиять на решение
	org := &domain.Organization{
		SubscriptionStatus: domain.SubscriptionStatusCanceled,
		IsActive:           true,
	}
	assert.True(t, HasAccess(org))

	org = &domain.Organization{
		SubscriptionStatus: domain.SubscriptionStatusActive,
		IsActive:           false,
	}
	assert.False(t, HasAccess(org))

	assert.False(t, HasAccess(nil))
}

func TestResolveRedirect_Matrix(t *testing.T) {
	tests := []struct {
		name            string
		authenticated   bool
		hasOrganization bool
		hasAccess       bool
		path            string
		wantTarget      string
		wantRedirect    bool
	}{
		{
			name: "unauthenticated on dashboard goes to login with return target",
			path: "/dashboard", wantTarget: "/auth/login?redirect=%2Fdashboard", wantRedirect: true,
		},
		{
			name: "unauthenticated on public path passes",
			path: "/auth/login",
		},
		{
			name: "unauthenticated on webhook path passes",
			path: "/webhooks/stripe",
		},
		{
			name:          "authenticated without organization goes to onboarding",
			authenticated: true, path: "/dashboard",
			wantTarget: "/onboarding", wantRedirect: true,
		},
		{
			name:          "authenticated inactive org on billing goes to subscription setup",
			authenticated: true, hasOrganization: true, path: "/billing",
			wantTarget: "/subscription-setup", wantRedirect: true,
		},
		{
			name:          "authenticated on auth page goes to dashboard",
			authenticated: true, hasOrganization: true, hasAccess: true, path: "/auth/login",
			wantTarget: "/dashboard", wantRedirect: true,
		},
		{
			name:          "active org on dashboard passes",
			authenticated: true, hasOrganization: true, hasAccess: true, path: "/dashboard",
		},
		{
			name:          "inactive org on subscription setup passes",
			authenticated: true, hasOrganization: true, path: "/subscription-setup",
		},
		{
			name:          "authenticated without organization on onboarding passes",
			authenticated: true, path: "/onboarding",
		},
		{
			name:          "nested dashboard path is gated too",
			authenticated: true, hasOrganization: true, path: "/dashboard/settings",
			wantTarget: "/subscription-setup", wantRedirect: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			target, redirect := ResolveRedirect(tc.authenticated, tc.hasOrganization, tc.hasAccess, tc.path)
			assert.Equal(t, tc.wantRedirect, redirect)
			assert.Equal(t, tc.wantTarget, target)
		})
	}
}

func TestRouteClassification(t *testing.T) {
	assert.True(t, IsPublicPath("/"))
	assert.True(t, IsPublicPath("/auth/callback"))
	assert.False(t, IsPublicPath("/dashboard"))

	assert.True(t, IsAuthOnlyPath("/onboarding"))
	assert.True(t, IsAuthOnlyPath("/subscription-setup"))
	assert.True(t, IsAuthOnlyPath("/api/v1/billing/checkout"))
	assert.False(t, IsAuthOnlyPath("/billing"))

	assert.True(t, IsPublicPath("/api/v1/products"))

	assert.True(t, RequiresBilling("/billing"))
	assert.True(t, RequiresBilling("/dashboard/jobs"))
	assert.False(t, RequiresBilling("/onboarding"))
}
