package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chalk-edu/chalk/internal/events"
)

func TestServiceManagerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  ServiceManagerConfig
		wantErr bool
	}{
		{name: "default", config: DefaultServiceManagerConfig(time.Hour)},
		{name: "zero ttl", config: DefaultServiceManagerConfig(0), wantErr: true},
		{name: "zero interval", config: ServiceManagerConfig{DraftTTL: time.Hour}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestServiceManager_Lifecycle(t *testing.T) {
	manager := &fakeManager{repo: newFakeRepo()}
	sm := NewServiceManager(Dependencies{
		RepoManager: manager,
		Publisher:   events.NewMockEventPublisher(testLogger()),
		Logger:      testLogger(),
	}, DefaultServiceManagerConfig(time.Hour))
	ctx := context.Background()

	assert.Panics(t, func() { sm.Exercise() })
	assert.Error(t, sm.HealthCheck(ctx))

	require.NoError(t, sm.Initialize(ctx))
	require.NoError(t, sm.Initialize(ctx))
	assert.NotNil(t, sm.Exercise())
	assert.NotNil(t, sm.Test())
	assert.NotNil(t, sm.Draft())
	assert.NotNil(t, sm.Course())
	assert.NotNil(t, sm.Resolution())
	assert.NotNil(t, sm.ImportExport())
	assert.NotNil(t, sm.Session())
	assert.NoError(t, sm.HealthCheck(ctx))

	require.NoError(t, sm.Shutdown(ctx))
	assert.True(t, manager.shutdown)
	assert.Error(t, sm.HealthCheck(ctx))
	assert.NoError(t, sm.Shutdown(ctx))
}
