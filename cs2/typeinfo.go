package cs2

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Tag names the record a struct type maps to. Declare it as a field named CS2Tag:
//
//	type Lokomotive struct {
//		CS2Tag cs2.Tag `cs2:"lokomotive"`
//		Name   string  `cs2:"name"`
//	}
//
// The option ",root" marks a bracketed root container. Without a Tag field the
// record tag is the key the type is nested under, or the lower-cased type name
// at the top level.
type Tag struct{}

var (
	tagType       = reflect.TypeOf(Tag{})
	byteSliceType = reflect.TypeOf([]byte(nil))
)

type mapping uint8

const (
	mapScalar mapping = iota
	mapHex
	mapTuple
	mapRecord
	mapSequence
)

type fieldInfo struct {
	name      string
	index     []int
	key       string
	mapping   mapping
	scalar    ScalarType
	hexBits   int
	hexFull   bool
	ptr       bool
	elemPtr   bool
	omitEmpty bool
	record    *typeInfo
}

type typeInfo struct {
	typ    reflect.Type
	schema *RecordSchema
	fields []fieldInfo

	hexOnce sync.Once
	hex     map[*FieldSpec]*fieldInfo
}

// hexFields indexes every hex field reachable from info by its schema descriptor.
func (info *typeInfo) hexFields() map[*FieldSpec]*fieldInfo {
	info.hexOnce.Do(func() {
		info.hex = make(map[*FieldSpec]*fieldInfo)
		seen := make(map[*typeInfo]bool)
		var walk func(*typeInfo)
		walk = func(ti *typeInfo) {
			if seen[ti] {
				return
			}
			seen[ti] = true
			for i := range ti.fields {
				fi := &ti.fields[i]
				switch fi.mapping {
				case mapHex:
					info.hex[&ti.schema.Fields[i]] = fi
				case mapRecord, mapSequence:
					walk(fi.record)
				}
			}
		}
		walk(info)
	})
	return info.hex
}

type cacheKey struct {
	typ reflect.Type
	tag string
}

var typeCache = struct {
	sync.RWMutex
	m map[cacheKey]*typeInfo
}{m: make(map[cacheKey]*typeInfo)}

// SchemaOf returns the schema derived from the struct type of v (or *v).
func SchemaOf(v any) (*RecordSchema, error) {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %v is not a struct", ErrUnsupportedKind, t)
	}
	info, err := typeInfoFor(t)
	if err != nil {
		return nil, err
	}
	return info.schema, nil
}

func typeInfoFor(t reflect.Type) (*typeInfo, error) {
	tag, _ := recordTag(t, "")
	key := cacheKey{typ: t, tag: tag}
	typeCache.RLock()
	info, ok := typeCache.m[key]
	typeCache.RUnlock()
	if ok {
		return info, nil
	}

	typeCache.Lock()
	defer typeCache.Unlock()
	building := make(map[cacheKey]*typeInfo)
	info, err := buildTypeInfo(t, "", building)
	if err != nil {
		return nil, err
	}
	if err := info.schema.Validate(); err != nil {
		return nil, err
	}
	for k, v := range building {
		typeCache.m[k] = v
	}
	return info, nil
}

func explicitTag(t reflect.Type) (string, bool) {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Type == tagType {
			name, opts := parseStructTag(sf.Tag.Get("cs2"))
			return name, opts.has("root")
		}
	}
	return "", false
}

// recordTag resolves the tag of struct type t nested under nestedKey ("" at the
// top level).
func recordTag(t reflect.Type, nestedKey string) (string, bool) {
	tag, root := explicitTag(t)
	if tag == "" {
		tag = nestedKey
	}
	if tag == "" {
		tag = strings.ToLower(t.Name())
	}
	return tag, root
}

func buildTypeInfo(t reflect.Type, nestedKey string, building map[cacheKey]*typeInfo) (*typeInfo, error) {
	tag, root := recordTag(t, nestedKey)
	key := cacheKey{typ: t, tag: tag}
	if info, ok := typeCache.m[key]; ok {
		return info, nil
	}
	if info, ok := building[key]; ok {
		return info, nil
	}

	info := &typeInfo{typ: t, schema: &RecordSchema{Tag: tag, Root: root}}
	building[key] = info
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Type == tagType || !sf.IsExported() {
			continue
		}
		name, opts := parseStructTag(sf.Tag.Get("cs2"))
		if name == "-" {
			continue
		}
		if name == "" {
			name = strings.ToLower(sf.Name)
		}
		fi, spec, err := buildField(t, sf, name, opts, building)
		if err != nil {
			return nil, err
		}
		info.fields = append(info.fields, fi)
		info.schema.Fields = append(info.schema.Fields, spec)
	}
	return info, nil
}

func buildField(owner reflect.Type, sf reflect.StructField, key string, opts tagOptions, building map[cacheKey]*typeInfo) (fieldInfo, FieldSpec, error) {
	fi := fieldInfo{name: sf.Name, index: sf.Index, key: key, omitEmpty: opts.has("omitempty")}
	spec := FieldSpec{Key: key, Optional: fi.omitEmpty || opts.has("default")}
	unsupported := func() (fieldInfo, FieldSpec, error) {
		return fieldInfo{}, FieldSpec{}, fmt.Errorf("%w: %s.%s has type %s", ErrUnsupportedKind, owner.Name(), sf.Name, sf.Type)
	}

	ft := sf.Type
	if ft.Kind() == reflect.Pointer {
		fi.ptr = true
		spec.Optional = true
		ft = ft.Elem()
	}

	switch {
	case ft == byteSliceType:
		fi.mapping = mapScalar
		fi.scalar = ScalarType{Kind: KindBytes}
		spec.Kind = FieldScalar
		spec.Scalar = fi.scalar
	case ft.Kind() == reflect.Struct:
		sub, err := buildTypeInfo(ft, key, building)
		if err != nil {
			return fieldInfo{}, FieldSpec{}, err
		}
		fi.mapping = mapRecord
		fi.record = sub
		spec.Kind = FieldRecord
		spec.Record = sub.schema
	case ft.Kind() == reflect.Slice:
		if fi.ptr {
			return unsupported()
		}
		elem := ft.Elem()
		if elem.Kind() == reflect.Pointer {
			fi.elemPtr = true
			elem = elem.Elem()
		}
		if elem.Kind() != reflect.Struct {
			return unsupported()
		}
		sub, err := buildTypeInfo(elem, key, building)
		if err != nil {
			return fieldInfo{}, FieldSpec{}, err
		}
		fi.mapping = mapSequence
		fi.record = sub
		spec.Kind = FieldSequence
		spec.Record = sub.schema
		spec.Optional = true
	case ft.Kind() == reflect.Array:
		st, ok := scalarTypeOf(ft.Elem())
		if !ok || opts.has("hex") || opts.has("hexfull") {
			return unsupported()
		}
		fi.mapping = mapTuple
		fi.scalar = st
		spec.Kind = FieldTuple
		spec.Scalar = st
		spec.TupleLen = ft.Len()
	default:
		st, ok := scalarTypeOf(ft)
		if !ok {
			return unsupported()
		}
		spec.Kind = FieldScalar
		if opts.has("hex") || opts.has("hexfull") {
			if st.Kind != KindUint {
				return unsupported()
			}
			fi.mapping = mapHex
			fi.hexBits = st.Bits
			fi.hexFull = opts.has("hexfull")
			st = ScalarType{Kind: KindString}
		} else {
			fi.mapping = mapScalar
		}
		fi.scalar = st
		spec.Scalar = st
	}
	return fi, spec, nil
}

func scalarTypeOf(t reflect.Type) (ScalarType, bool) {
	switch t.Kind() {
	case reflect.Bool:
		return ScalarType{Kind: KindBool}, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return ScalarType{Kind: KindInt, Bits: t.Bits()}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return ScalarType{Kind: KindUint, Bits: t.Bits()}, true
	case reflect.String:
		return ScalarType{Kind: KindString}, true
	default:
		return ScalarType{}, false
	}
}

type tagOptions []string

func (o tagOptions) has(name string) bool {
	for _, opt := range o {
		if opt == name {
			return true
		}
	}
	return false
}

func parseStructTag(tag string) (string, tagOptions) {
	parts := strings.Split(tag, ",")
	name := strings.TrimSpace(parts[0])
	opts := make(tagOptions, 0, len(parts)-1)
	for _, p := range parts[1:] {
		if p = strings.TrimSpace(p); p != "" {
			opts = append(opts, p)
		}
	}
	return name, opts
}
