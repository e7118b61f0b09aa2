package warehouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegistry_NewResolvesRegisteredType(t *testing.T) {
	mock := &Mock{}
	Register(AdapterRegistration{
		Info: AdapterInfo{Type: "fake", DisplayName: "Fake"},
		Factory: func(ctx context.Context, cfg Config, logger *zap.Logger) (Warehouse, error) {
			return mock, nil
		},
	})

	assert.True(t, IsRegistered("fake"))

	wh, err := New(context.Background(), Config{Type: "fake"}, zap.NewNop())
	require.NoError(t, err)
	assert.Same(t, mock, wh)
}

func TestRegistry_NewRejectsUnknownType(t *testing.T) {
	_, err := New(context.Background(), Config{Type: "oracle"}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported warehouse type")
}

func TestAuditTables_QualifiedNames(t *testing.T) {
	tests := []struct {
		name   string
		tables AuditTables
		want   string
	}{
		{
			name:   "database and schema",
			tables: AuditTables{Database: "ANALYTICS", Schema: "AUDIT", ChatHistory: "CHAT_HISTORY"},
			want:   "ANALYTICS.AUDIT.CHAT_HISTORY",
		},
		{
			name:   "schema only",
			tables: AuditTables{Schema: "audit", ChatHistory: "chat_history"},
			want:   "audit.chat_history",
		},
		{
			name:   "bare table",
			tables: AuditTables{ChatHistory: "chat_history"},
			want:   "chat_history",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tables.ChatHistoryName())
		})
	}
}
