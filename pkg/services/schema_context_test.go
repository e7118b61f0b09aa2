package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/datatalk-ai/datatalk-engine/pkg/adapters/warehouse"
	"github.com/datatalk-ai/datatalk-engine/pkg/models"
)

func testUseCase() *models.UseCase {
	return &models.UseCase{
		Name:           "sales",
		MainDatasource: "ANALYTICS.SALES.ORDERS",
		DateColumn:     "ORDER_DATE",
		Tables: []models.TableSpec{
			{Database: "ANALYTICS", Schema: "SALES", Table: "ORDERS"},
		},
		Descriptions: map[string]string{
			"ORDERS": "One row per customer order.",
		},
		Relationships: map[string]map[string][]models.JoinRef{
			"ORDERS": {
				"CUSTOMER_ID": {
					{Reference: "CUSTOMERS.CUSTOMER_ID", Description: "Many orders per customer."},
				},
			},
		},
		Examples: []models.Example{
			{UserInput: "orders yesterday?", SQLQuery: "SELECT COUNT(*) FROM ANALYTICS.SALES.ORDERS"},
		},
	}
}

func introspectionMock(calls *int) *warehouse.Mock {
	return &warehouse.Mock{
		IntrospectColumnsFunc: func(ctx context.Context, tables []models.TableSpec) ([]warehouse.IntrospectedColumn, error) {
			*calls++
			return []warehouse.IntrospectedColumn{
				{Database: "ANALYTICS", Schema: "SALES", TableName: "ORDERS", ColumnName: "ORDER_ID", DataType: "NUMBER", Comment: "Surrogate key of the order."},
				{Database: "ANALYTICS", Schema: "SALES", TableName: "ORDERS", ColumnName: "CUSTOMER_ID", DataType: "NUMBER"},
				{Database: "ANALYTICS", Schema: "SALES", TableName: "ORDERS", ColumnName: "ORDER_DATE", DataType: "DATE"},
			}, nil
		},
	}
}

func TestSchemaContext_BuildsDocument(t *testing.T) {
	calls := 0
	svc := NewSchemaContextService(introspectionMock(&calls), time.Hour, zap.NewNop())

	doc, err := svc.Document(context.Background(), testUseCase())
	require.NoError(t, err)

	require.Len(t, doc.Tables, 1)
	table := doc.Tables[0]
	assert.Equal(t, "ORDERS", table.Name)
	assert.Equal(t, "SALES", table.Schema)
	assert.Equal(t, "ANALYTICS", table.Database)
	assert.Equal(t, "One row per customer order.", table.Description)

	require.Len(t, table.Columns, 3)
	assert.Equal(t, "ORDER_ID", table.Columns[0].ColumnName)
	// Warehouse-side column comments flow into the document; columns
	// without one fall back to the placeholder description.
	assert.Equal(t, "Surrogate key of the order.", table.Columns[0].ColumnDescription)
	assert.Equal(t, models.DefaultColumnDescription, table.Columns[1].ColumnDescription)
	assert.Empty(t, table.Columns[0].ColumnJoins)
	assert.Len(t, table.Columns[1].ColumnJoins, 1)

	require.Len(t, doc.Examples, 1)
}

func TestSchemaContext_SameTableNameAcrossSchemas(t *testing.T) {
	mock := &warehouse.Mock{
		IntrospectColumnsFunc: func(ctx context.Context, tables []models.TableSpec) ([]warehouse.IntrospectedColumn, error) {
			return []warehouse.IntrospectedColumn{
				{Database: "ANALYTICS", Schema: "SALES", TableName: "ORDERS", ColumnName: "ORDER_ID", DataType: "NUMBER"},
				{Database: "ANALYTICS", Schema: "RETURNS", TableName: "ORDERS", ColumnName: "RETURN_REASON", DataType: "VARCHAR"},
			}, nil
		},
	}
	svc := NewSchemaContextService(mock, time.Hour, zap.NewNop())

	uc := testUseCase()
	uc.Tables = []models.TableSpec{
		{Database: "ANALYTICS", Schema: "SALES", Table: "ORDERS"},
		{Database: "ANALYTICS", Schema: "RETURNS", Table: "ORDERS"},
	}

	doc, err := svc.Document(context.Background(), uc)
	require.NoError(t, err)

	require.Len(t, doc.Tables, 2)
	require.Len(t, doc.Tables[0].Columns, 1)
	assert.Equal(t, "ORDER_ID", doc.Tables[0].Columns[0].ColumnName)
	require.Len(t, doc.Tables[1].Columns, 1)
	assert.Equal(t, "RETURN_REASON", doc.Tables[1].Columns[0].ColumnName)
}

func TestSchemaContext_ColumnAllowList(t *testing.T) {
	calls := 0
	svc := NewSchemaContextService(introspectionMock(&calls), time.Hour, zap.NewNop())

	uc := testUseCase()
	uc.Tables[0].Columns = []string{"order_id", "ORDER_DATE"}

	doc, err := svc.Document(context.Background(), uc)
	require.NoError(t, err)

	require.Len(t, doc.Tables[0].Columns, 2)
	assert.Equal(t, "ORDER_ID", doc.Tables[0].Columns[0].ColumnName)
	assert.Equal(t, "ORDER_DATE", doc.Tables[0].Columns[1].ColumnName)
}

func TestSchemaContext_ErrorsOnMissingTable(t *testing.T) {
	mock := &warehouse.Mock{
		IntrospectColumnsFunc: func(ctx context.Context, tables []models.TableSpec) ([]warehouse.IntrospectedColumn, error) {
			return nil, nil
		},
	}
	svc := NewSchemaContextService(mock, time.Hour, zap.NewNop())

	_, err := svc.Document(context.Background(), testUseCase())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns found")
}

func TestSchemaContext_CachesUntilInvalidated(t *testing.T) {
	calls := 0
	svc := NewSchemaContextService(introspectionMock(&calls), time.Hour, zap.NewNop())
	uc := testUseCase()

	_, err := svc.Document(context.Background(), uc)
	require.NoError(t, err)
	_, err = svc.Document(context.Background(), uc)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	svc.Invalidate(uc.Name)
	_, err = svc.Document(context.Background(), uc)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestSchemaContext_DateRange(t *testing.T) {
	rangeCalls := 0
	mock := &warehouse.Mock{
		DateRangeFunc: func(ctx context.Context, table, dateColumn string) (*models.DateRange, error) {
			rangeCalls++
			assert.Equal(t, "ANALYTICS.SALES.ORDERS", table)
			assert.Equal(t, "ORDER_DATE", dateColumn)
			return &models.DateRange{
				Min: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
				Max: time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC),
			}, nil
		},
	}
	svc := NewSchemaContextService(mock, time.Hour, zap.NewNop())
	uc := testUseCase()

	dr, err := svc.DateRange(context.Background(), uc)
	require.NoError(t, err)
	require.NotNil(t, dr)
	assert.Equal(t, 2023, dr.Min.Year())

	_, err = svc.DateRange(context.Background(), uc)
	require.NoError(t, err)
	assert.Equal(t, 1, rangeCalls)
}
