package db

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
	"github.com/vetclinic/aiadmin/internal/core/ports"
	"github.com/vetclinic/aiadmin/internal/domain"
	"github.com/vetclinic/aiadmin/internal/infrastructure/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

type kindEntry struct {
	name   string
	model  reflect.Type
	schema *schema.Schema
}

type objectStore struct {
	db      *gorm.DB
	log     *logger.Logger
	order   []string
	kinds   map[string]*kindEntry
	byTable map[string]string
}

// NewObjectStore builds CRUD access for every registered kind. Model schemas
// are parsed once up front.
func NewObjectStore(db *gorm.DB, log *logger.Logger, kinds []domain.ContentKind) (ports.ObjectStore, error) {
	s := &objectStore{
		db:      db,
		log:     log,
		kinds:   make(map[string]*kindEntry, len(kinds)),
		byTable: make(map[string]string, len(kinds)),
	}

	cache := &sync.Map{}
	for _, k := range kinds {
		sch, err := schema.Parse(k.Model, cache, db.NamingStrategy)
		if err != nil {
			return nil, fmt.Errorf("parse kind %s: %w", k.Name, err)
		}
		if _, dup := s.kinds[k.Name]; dup {
			return nil, fmt.Errorf("kind %s registered twice", k.Name)
		}
		s.kinds[k.Name] = &kindEntry{name: k.Name, model: sch.ModelType, schema: sch}
		s.byTable[sch.Table] = k.Name
		s.order = append(s.order, k.Name)
	}
	sort.Strings(s.order)
	return s, nil
}

func (s *objectStore) Kinds() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *objectStore) Describe(kind string) (*domain.KindSchema, error) {
	entry, err := s.entry(kind)
	if err != nil {
		return nil, err
	}

	refs := make(map[string]string)
	for _, rel := range entry.schema.Relationships.BelongsTo {
		for _, ref := range rel.References {
			if ref.ForeignKey == nil || rel.FieldSchema == nil {
				continue
			}
			if target, ok := s.byTable[rel.FieldSchema.Table]; ok {
				refs[ref.ForeignKey.DBName] = target
			} else {
				refs[ref.ForeignKey.DBName] = rel.FieldSchema.Table
			}
		}
	}

	out := &domain.KindSchema{Kind: kind}
	for _, f := range entry.schema.Fields {
		if !settable(f) {
			continue
		}
		out.Fields = append(out.Fields, domain.FieldSchema{
			Name:       f.DBName,
			Type:       fieldType(f),
			Required:   required(f),
			References: refs[f.DBName],
		})
	}
	return out, nil
}

func (s *objectStore) List(ctx context.Context, kind string, filters map[string]interface{}, limit int) ([]domain.Record, error) {
	entry, err := s.entry(kind)
	if err != nil {
		return nil, err
	}

	conds := make(map[string]interface{}, len(filters))
	for key, raw := range filters {
		f := lookup(entry.schema, key)
		if f == nil {
			return nil, fmt.Errorf("%w: %s has no field %q", domain.ErrInvalidField, kind, key)
		}
		v, err := coerce(f, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: filter %q: %v", domain.ErrInvalidField, key, err)
		}
		conds[f.DBName] = v
	}

	rows := reflect.New(reflect.SliceOf(entry.model))
	q := s.db.WithContext(ctx).Model(reflect.New(entry.model).Interface())
	if len(conds) > 0 {
		q = q.Where(conds)
	}
	if pk := entry.schema.PrioritizedPrimaryField; pk != nil {
		q = q.Order(pk.DBName + " asc")
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(rows.Interface()).Error; err != nil {
		s.log.Errorw("object_store_list_failed", "kind", kind, "error", err)
		return nil, err
	}

	slice := rows.Elem()
	out := make([]domain.Record, 0, slice.Len())
	for i := 0; i < slice.Len(); i++ {
		out = append(out, render(ctx, entry.schema, slice.Index(i)))
	}
	return out, nil
}

func (s *objectStore) Get(ctx context.Context, kind, id string) (domain.Record, error) {
	entry, err := s.entry(kind)
	if err != nil {
		return nil, err
	}
	ptr, err := s.load(ctx, entry, id)
	if err != nil {
		return nil, err
	}
	return render(ctx, entry.schema, ptr.Elem()), nil
}

func (s *objectStore) Create(ctx context.Context, kind string, values map[string]interface{}) (domain.Record, error) {
	entry, err := s.entry(kind)
	if err != nil {
		return nil, err
	}

	input, cols, err := normalize(entry, values)
	if err != nil {
		return nil, err
	}
	for _, f := range entry.schema.Fields {
		if settable(f) && required(f) && !contains(cols, f.DBName) {
			return nil, fmt.Errorf("%w: missing required field %q", domain.ErrInvalidField, f.DBName)
		}
	}

	ptr := reflect.New(entry.model)
	if err := decode(input, ptr.Interface()); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidField, err)
	}
	if err := s.checkReferences(ctx, entry, ptr.Elem(), cols); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(ptr.Interface()).Error; err != nil {
		s.log.Errorw("object_store_create_failed", "kind", kind, "error", err)
		return nil, translate(err)
	}

	record := render(ctx, entry.schema, ptr.Elem())
	s.log.Infow("object_store_create_ok", "kind", kind, "id", record[pkName(entry.schema)])
	return record, nil
}

func (s *objectStore) Update(ctx context.Context, kind, id string, values map[string]interface{}) (domain.Record, error) {
	entry, err := s.entry(kind)
	if err != nil {
		return nil, err
	}

	input, cols, err := normalize(entry, values)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", domain.ErrInvalidField)
	}

	ptr, err := s.load(ctx, entry, id)
	if err != nil {
		return nil, err
	}
	if err := decode(input, ptr.Interface()); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidField, err)
	}
	if err := s.checkReferences(ctx, entry, ptr.Elem(), cols); err != nil {
		return nil, err
	}

	selected := append([]string{}, cols...)
	for _, f := range entry.schema.Fields {
		if f.DBName != "" && f.AutoUpdateTime > 0 {
			selected = append(selected, f.DBName)
		}
	}
	if err := s.db.WithContext(ctx).Model(ptr.Interface()).Select(selected).Updates(ptr.Interface()).Error; err != nil {
		s.log.Errorw("object_store_update_failed", "kind", kind, "id", id, "error", err)
		return nil, translate(err)
	}

	// Re-read so store-managed columns such as updated_at come back current.
	fresh, err := s.load(ctx, entry, id)
	if err != nil {
		return nil, err
	}
	s.log.Infow("object_store_update_ok", "kind", kind, "id", id, "fields", cols)
	return render(ctx, entry.schema, fresh.Elem()), nil
}

func (s *objectStore) Delete(ctx context.Context, kind, id string) error {
	entry, err := s.entry(kind)
	if err != nil {
		return err
	}
	pk, err := parseID(id)
	if err != nil {
		return err
	}

	res := s.db.WithContext(ctx).Delete(reflect.New(entry.model).Interface(), pk)
	if res.Error != nil {
		s.log.Errorw("object_store_delete_failed", "kind", kind, "id", id, "error", res.Error)
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s with id %s", domain.ErrRecordNotFound, kind, id)
	}
	s.log.Infow("object_store_delete_ok", "kind", kind, "id", id)
	return nil
}

func (s *objectStore) entry(kind string) (*kindEntry, error) {
	entry, ok := s.kinds[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrKindNotFound, kind)
	}
	return entry, nil
}

func (s *objectStore) load(ctx context.Context, entry *kindEntry, id string) (reflect.Value, error) {
	pk, err := parseID(id)
	if err != nil {
		return reflect.Value{}, err
	}
	ptr := reflect.New(entry.model)
	if err := s.db.WithContext(ctx).First(ptr.Interface(), pk).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return reflect.Value{}, fmt.Errorf("%w: %s with id %s", domain.ErrRecordNotFound, entry.name, id)
		}
		s.log.Errorw("object_store_get_failed", "kind", entry.name, "id", id, "error", err)
		return reflect.Value{}, err
	}
	return ptr, nil
}

// checkReferences verifies that every foreign key being written points at an
// existing row. Not every driver enforces foreign keys on its own.
func (s *objectStore) checkReferences(ctx context.Context, entry *kindEntry, row reflect.Value, cols []string) error {
	for _, rel := range entry.schema.Relationships.BelongsTo {
		if rel.FieldSchema == nil {
			continue
		}
		for _, ref := range rel.References {
			if ref.ForeignKey == nil || ref.PrimaryKey == nil || !contains(cols, ref.ForeignKey.DBName) {
				continue
			}
			value, zero := ref.ForeignKey.ValueOf(ctx, row)
			if zero {
				continue
			}
			var count int64
			err := s.db.WithContext(ctx).
				Table(rel.FieldSchema.Table).
				Where(ref.PrimaryKey.DBName+" = ?", value).
				Count(&count).Error
			if err != nil {
				return err
			}
			if count == 0 {
				return fmt.Errorf("%w: %s %v does not exist", domain.ErrConstraint, ref.ForeignKey.DBName, value)
			}
		}
	}
	return nil
}

func parseID(id string) (uint64, error) {
	pk, err := cast.ToUint64E(strings.TrimSpace(id))
	if err != nil || pk == 0 {
		return 0, fmt.Errorf("%w: invalid identifier %q", domain.ErrInvalidField, id)
	}
	return pk, nil
}

// normalize maps caller keys onto column names and rejects anything the
// caller may not set. It returns the decoder input and the touched columns.
func normalize(entry *kindEntry, values map[string]interface{}) (map[string]interface{}, []string, error) {
	input := make(map[string]interface{}, len(values))
	cols := make([]string, 0, len(values))
	for key, v := range values {
		f := lookup(entry.schema, key)
		if f == nil {
			return nil, nil, fmt.Errorf("%w: %s has no field %q", domain.ErrInvalidField, entry.name, key)
		}
		if !settable(f) {
			return nil, nil, fmt.Errorf("%w: field %q is managed by the store", domain.ErrInvalidField, f.DBName)
		}
		if v == nil {
			return nil, nil, fmt.Errorf("%w: field %q cannot be null", domain.ErrInvalidField, f.DBName)
		}
		input[f.Name] = v
		cols = append(cols, f.DBName)
	}
	sort.Strings(cols)
	return input, cols, nil
}

func decode(input map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

func lookup(sch *schema.Schema, key string) *schema.Field {
	f := sch.LookUpField(key)
	if f == nil || f.DBName == "" {
		return nil
	}
	return f
}

func settable(f *schema.Field) bool {
	if f.DBName == "" || f.PrimaryKey || f.AutoIncrement {
		return false
	}
	return f.AutoCreateTime == 0 && f.AutoUpdateTime == 0
}

func required(f *schema.Field) bool {
	return f.NotNull && !f.HasDefaultValue
}

func fieldType(f *schema.Field) string {
	switch f.GORMDataType {
	case schema.Bool:
		return "boolean"
	case schema.Int, schema.Uint:
		return "integer"
	case schema.Float:
		return "number"
	case schema.Time:
		return "datetime"
	case schema.String:
		if strings.EqualFold(string(f.DataType), "text") {
			return "text"
		}
		return "string"
	}
	return string(f.GORMDataType)
}

func coerce(f *schema.Field, raw interface{}) (interface{}, error) {
	switch f.GORMDataType {
	case schema.Bool:
		return cast.ToBoolE(raw)
	case schema.Int:
		return cast.ToInt64E(raw)
	case schema.Uint:
		return cast.ToUint64E(raw)
	case schema.Float:
		return cast.ToFloat64E(raw)
	case schema.Time:
		if s, ok := raw.(string); ok {
			return time.Parse(time.RFC3339, s)
		}
		return cast.ToTimeE(raw)
	}
	return cast.ToStringE(raw)
}

func render(ctx context.Context, sch *schema.Schema, row reflect.Value) domain.Record {
	record := make(domain.Record, len(sch.DBNames))
	for _, f := range sch.Fields {
		if f.DBName == "" {
			continue
		}
		v := f.ReflectValueOf(ctx, row)
		if v.Kind() == reflect.Ptr {
			if v.IsNil() {
				record[f.DBName] = ""
				continue
			}
			v = v.Elem()
		}
		switch val := v.Interface().(type) {
		case time.Time:
			if val.IsZero() {
				record[f.DBName] = ""
			} else {
				record[f.DBName] = val.UTC().Format(time.RFC3339)
			}
		default:
			record[f.DBName] = cast.ToString(val)
		}
	}
	return record
}

func pkName(sch *schema.Schema) string {
	if sch.PrioritizedPrimaryField != nil {
		return sch.PrioritizedPrimaryField.DBName
	}
	return "id"
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) {
		return fmt.Errorf("%w: %v", domain.ErrConstraint, err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unique constraint") || strings.Contains(msg, "foreign key constraint") {
		return fmt.Errorf("%w: %v", domain.ErrConstraint, err)
	}
	return err
}
