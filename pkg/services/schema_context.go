// Package services contains the application services: schema-context
// building, turn orchestration, query execution, auditing, feedback and
// bug reporting.
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/datatalk-ai/datatalk-engine/pkg/adapters/warehouse"
	"github.com/datatalk-ai/datatalk-engine/pkg/models"
)

// SchemaContextService builds the grounding payload for a use case from
// live warehouse introspection merged with the curated configuration.
// Documents and date ranges are cached per use case with a TTL.
type SchemaContextService interface {
	// Document returns the schema-context document for the use case.
	Document(ctx context.Context, uc *models.UseCase) (*models.SchemaContextDocument, error)

	// DateRange returns the available data window of the use case's main
	// datasource, nil when the datasource is empty.
	DateRange(ctx context.Context, uc *models.UseCase) (*models.DateRange, error)

	// Invalidate drops the cached document and date range for a use case.
	Invalidate(useCaseName string)
}

type cachedDocument struct {
	doc     *models.SchemaContextDocument
	expires time.Time
}

type cachedRange struct {
	dateRange *models.DateRange
	expires   time.Time
}

type schemaContextService struct {
	wh     warehouse.Warehouse
	ttl    time.Duration
	logger *zap.Logger

	mu     sync.Mutex
	docs   map[string]cachedDocument
	ranges map[string]cachedRange
}

// NewSchemaContextService creates a schema context service with the given
// cache TTL.
func NewSchemaContextService(wh warehouse.Warehouse, ttl time.Duration, logger *zap.Logger) SchemaContextService {
	return &schemaContextService{
		wh:     wh,
		ttl:    ttl,
		logger: logger,
		docs:   make(map[string]cachedDocument),
		ranges: make(map[string]cachedRange),
	}
}

func (s *schemaContextService) Document(ctx context.Context, uc *models.UseCase) (*models.SchemaContextDocument, error) {
	s.mu.Lock()
	if cached, ok := s.docs[uc.Name]; ok && time.Now().Before(cached.expires) {
		s.mu.Unlock()
		return cached.doc, nil
	}
	s.mu.Unlock()

	doc, err := s.build(ctx, uc)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.docs[uc.Name] = cachedDocument{doc: doc, expires: time.Now().Add(s.ttl)}
	s.mu.Unlock()

	s.logger.Info("schema context built",
		zap.String("use_case", uc.Name),
		zap.Int("tables", len(doc.Tables)))
	return doc, nil
}

// build introspects the configured tables and merges in the curated
// descriptions, relationships and examples. The document contains exactly
// the configured tables in configuration order.
func (s *schemaContextService) build(ctx context.Context, uc *models.UseCase) (*models.SchemaContextDocument, error) {
	introspected, err := s.wh.IntrospectColumns(ctx, uc.Tables)
	if err != nil {
		return nil, fmt.Errorf("failed to introspect use case %s: %w", uc.Name, err)
	}

	// Group by the fully qualified name: same-named tables in different
	// schemas or databases must not merge.
	byTable := make(map[string][]warehouse.IntrospectedColumn)
	for _, col := range introspected {
		byTable[col.QualifiedTableName()] = append(byTable[col.QualifiedTableName()], col)
	}

	doc := &models.SchemaContextDocument{
		Tables:   make([]models.TableContext, 0, len(uc.Tables)),
		Examples: uc.Examples,
	}

	for _, table := range uc.Tables {
		cols := byTable[table.QualifiedName()]
		if len(cols) == 0 {
			return nil, fmt.Errorf("use case %s: no columns found for table %s", uc.Name, table.QualifiedName())
		}

		description := uc.Descriptions[table.Table]
		if description == "" {
			description = models.DefaultColumnDescription
		}

		tableCtx := models.TableContext{
			Name:        table.Table,
			Schema:      table.Schema,
			Database:    table.Database,
			Description: description,
			Columns:     make([]models.ColumnMetadata, 0, len(cols)),
		}

		joins := uc.Relationships[table.Table]
		for _, col := range cols {
			// Adapters filter the allow-list in the warehouse already;
			// this guards the document against drivers that do not.
			if !columnAllowed(table.Columns, col.ColumnName) {
				continue
			}
			columnDescription := col.Comment
			if columnDescription == "" {
				columnDescription = models.DefaultColumnDescription
			}
			tableCtx.Columns = append(tableCtx.Columns, models.ColumnMetadata{
				ColumnName:        col.ColumnName,
				ColumnType:        col.DataType,
				ColumnDescription: columnDescription,
				ColumnJoins:       joins[col.ColumnName],
			})
		}

		if len(tableCtx.Columns) == 0 {
			return nil, fmt.Errorf("use case %s: column allow-list of table %s matched nothing", uc.Name, table.QualifiedName())
		}

		doc.Tables = append(doc.Tables, tableCtx)
	}

	return doc, nil
}

func (s *schemaContextService) DateRange(ctx context.Context, uc *models.UseCase) (*models.DateRange, error) {
	s.mu.Lock()
	if cached, ok := s.ranges[uc.Name]; ok && time.Now().Before(cached.expires) {
		s.mu.Unlock()
		return cached.dateRange, nil
	}
	s.mu.Unlock()

	dateRange, err := s.wh.DateRange(ctx, uc.MainDatasource, uc.DateColumn)
	if err != nil {
		return nil, fmt.Errorf("failed to read date range of use case %s: %w", uc.Name, err)
	}

	s.mu.Lock()
	s.ranges[uc.Name] = cachedRange{dateRange: dateRange, expires: time.Now().Add(s.ttl)}
	s.mu.Unlock()

	return dateRange, nil
}

func (s *schemaContextService) Invalidate(useCaseName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, useCaseName)
	delete(s.ranges, useCaseName)
}

// columnAllowed applies the optional column allow-list. Warehouse catalogs
// differ in identifier case, so matching is case-insensitive.
func columnAllowed(allowList []string, column string) bool {
	if len(allowList) == 0 {
		return true
	}
	for _, allowed := range allowList {
		if strings.EqualFold(allowed, column) {
			return true
		}
	}
	return false
}
