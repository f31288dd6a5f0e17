package module

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/live-request-queue/internal/model"
	"github.com/iliyamo/live-request-queue/internal/repository"
)

func requireRateLimited(t *testing.T, err error) *repository.DomainError {
	t.Helper()
	de, ok := repository.AsDomain(err)
	require.True(t, ok, "expected a domain error, got %v", err)
	require.Equal(t, repository.KindRateLimited, de.Kind)
	return de
}

func TestCooldownPolicy(t *testing.T) {
	now := time.Date(2026, 8, 1, 21, 0, 0, 0, time.UTC)
	cfg := &model.ModuleConfig{CooldownSeconds: 60}

	t.Run("first request is admitted", func(t *testing.T) {
		assert.NoError(t, CooldownPolicy{}.Admit(AdmissionProbe{Config: cfg, Now: now}))
	})

	t.Run("request inside the window is rejected with the remaining wait", func(t *testing.T) {
		last := now.Add(-15 * time.Second)
		err := CooldownPolicy{}.Admit(AdmissionProbe{Config: cfg, LastCreatedAt: &last, Now: now})
		de := requireRateLimited(t, err)
		assert.True(t, strings.Contains(de.Message, "45"), "message should carry the wait, got %q", de.Message)
	})

	t.Run("request exactly at the window edge is admitted", func(t *testing.T) {
		last := now.Add(-60 * time.Second)
		assert.NoError(t, CooldownPolicy{}.Admit(AdmissionProbe{Config: cfg, LastCreatedAt: &last, Now: now}))
	})

	t.Run("zero cooldown disables the policy", func(t *testing.T) {
		last := now
		probe := AdmissionProbe{Config: &model.ModuleConfig{CooldownSeconds: 0}, LastCreatedAt: &last, Now: now}
		assert.NoError(t, CooldownPolicy{}.Admit(probe))
	})
}

func TestConcurrentCapPolicy(t *testing.T) {
	cfg := &model.ModuleConfig{MaxPerPerson: 2}

	assert.NoError(t, ConcurrentCapPolicy{}.Admit(AdmissionProbe{Config: cfg, ActiveCount: 0}))
	assert.NoError(t, ConcurrentCapPolicy{}.Admit(AdmissionProbe{Config: cfg, ActiveCount: 1}))

	requireRateLimited(t, ConcurrentCapPolicy{}.Admit(AdmissionProbe{Config: cfg, ActiveCount: 2}))
	requireRateLimited(t, ConcurrentCapPolicy{}.Admit(AdmissionProbe{Config: cfg, ActiveCount: 5}))

	// A cap of zero disables the policy entirely.
	open := &model.ModuleConfig{MaxPerPerson: 0}
	assert.NoError(t, ConcurrentCapPolicy{}.Admit(AdmissionProbe{Config: open, ActiveCount: 40}))
}
