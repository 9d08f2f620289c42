package formatter

import (
	"context"
	"fmt"
	"strings"

	"census/internal/models"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/daos"
	pbModels "github.com/pocketbase/pocketbase/models"
	"github.com/pocketbase/pocketbase/models/schema"
	"go.uber.org/zap"
)

// CollectionPrefix marks every collection written by the exporter
const CollectionPrefix = "census_"

// PocketBase system fields a table column may not shadow
var reservedFields = map[string]bool{
	"id":             true,
	"created":        true,
	"updated":        true,
	"collectionid":   true,
	"collectionname": true,
	"expand":         true,
}

// TableFormatter writes pipeline tables into PocketBase collections
type TableFormatter struct {
	pb     *pocketbase.PocketBase
	logger *zap.Logger
}

// New creates a new TableFormatter
func New(pb *pocketbase.PocketBase, logger *zap.Logger) *TableFormatter {
	return &TableFormatter{pb: pb, logger: logger}
}

// CollectionName returns the export collection for a decennial request,
// e.g. census_pl_block_group_2020.
func CollectionName(req models.DecennialRequest) string {
	return FieldName(fmt.Sprintf("%s%s_%s_%d", CollectionPrefix, req.Dataset, req.Geography.Slug(), req.Year))
}

// FieldName lower-cases a column name and replaces anything outside
// [a-z0-9_] so it is a valid PocketBase field name.
func FieldName(column string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(column) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	name := b.String()
	if reservedFields[name] {
		name = "v_" + name
	}
	return name
}

// collectionSchema maps table columns to PocketBase fields: numbers for int
// and float columns, text for strings.
func collectionSchema(table *models.Table) (schema.Schema, error) {
	seen := make(map[string]string)
	fields := make([]*schema.SchemaField, 0, table.NumColumns())
	for _, c := range table.Columns() {
		name := FieldName(c.Name)
		if prev, ok := seen[name]; ok {
			return schema.Schema{}, fmt.Errorf("columns %q and %q both map to field %q", prev, c.Name, name)
		}
		seen[name] = c.Name

		fieldType := schema.FieldTypeText
		if c.Type == models.ColumnFloat || c.Type == models.ColumnInt {
			fieldType = schema.FieldTypeNumber
		}
		fields = append(fields, &schema.SchemaField{
			Name:     name,
			Type:     fieldType,
			Required: false,
		})
	}
	return schema.NewSchema(fields...), nil
}

// recordValues returns row i keyed by field name
func recordValues(table *models.Table, i int) map[string]any {
	values := make(map[string]any, table.NumColumns())
	for _, c := range table.Columns() {
		v := c.Value(i)
		if n, ok := v.(int64); ok {
			v = float64(n)
		}
		values[FieldName(c.Name)] = v
	}
	return values
}

// ensureCollection (re)creates the collection so its schema matches table.
// An existing collection of the same name is replaced.
func (f *TableFormatter) ensureCollection(name string, table *models.Table) (*pbModels.Collection, error) {
	f.logger.Info("Ensuring export collection", zap.String("collection", name))

	s, err := collectionSchema(table)
	if err != nil {
		return nil, err
	}

	if existing, err := f.pb.Dao().FindCollectionByNameOrId(name); err == nil {
		f.logger.Info("Replacing existing collection", zap.String("collection", name))
		if err := f.pb.Dao().DeleteCollection(existing); err != nil {
			return nil, fmt.Errorf("failed to delete collection: %w", err)
		}
	}

	collection := &pbModels.Collection{
		Name:   name,
		Type:   pbModels.CollectionTypeBase,
		Schema: s,
	}
	if err := f.pb.Dao().SaveCollection(collection); err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	return collection, nil
}

// WriteTable stores every row of table in collection name inside one
// transaction and returns the number of rows written.
func (f *TableFormatter) WriteTable(ctx context.Context, name string, table *models.Table) (int, error) {
	if !strings.HasPrefix(name, CollectionPrefix) {
		return 0, fmt.Errorf("collection %q must start with %q", name, CollectionPrefix)
	}

	collection, err := f.ensureCollection(name, table)
	if err != nil {
		return 0, fmt.Errorf("failed to ensure collection: %w", err)
	}

	err = f.pb.Dao().RunInTransaction(func(txDao *daos.Dao) error {
		for i := 0; i < table.NumRows(); i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			record := pbModels.NewRecord(collection)
			for field, v := range recordValues(table, i) {
				record.Set(field, v)
			}
			if err := txDao.SaveRecord(record); err != nil {
				return fmt.Errorf("failed to save row %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	f.logger.Info("Exported table",
		zap.String("collection", name),
		zap.Int("rows", table.NumRows()))
	return table.NumRows(), nil
}
