package parser

import (
	"strings"

	"github.com/shadowDragonCloud/rosario/internal/types"
)

type fieldSetter func(rec *types.BookRecord, values []string)

func first(field func(*types.BookRecord) *string) fieldSetter {
	return func(rec *types.BookRecord, values []string) {
		*field(rec) = values[0]
	}
}

func people(field func(*types.BookRecord) *[]string) fieldSetter {
	return func(rec *types.BookRecord, values []string) {
		dst := field(rec)
		for _, v := range values {
			*dst = append(*dst, strings.ReplaceAll(v, " ", ""))
		}
	}
}

// basicInfoFields maps cleaned label keys onto record fields. Setters are
// only called with a non-empty value list.
var basicInfoFields = map[string]fieldSetter{
	"原作名":  first(func(r *types.BookRecord) *string { return &r.OriginTitle }),
	"副标题":  first(func(r *types.BookRecord) *string { return &r.Subtitle }),
	"作者":   people(func(r *types.BookRecord) *[]string { return &r.Authors }),
	"译者":   people(func(r *types.BookRecord) *[]string { return &r.Translators }),
	"出版社":  first(func(r *types.BookRecord) *string { return &r.Press }),
	"出品方":  first(func(r *types.BookRecord) *string { return &r.Producer }),
	"出版年":  first(func(r *types.BookRecord) *string { return &r.PublicationYear }),
	"页数":   first(func(r *types.BookRecord) *string { return &r.PageCount }),
	"定价":   first(func(r *types.BookRecord) *string { return &r.Price }),
	"装帧":   first(func(r *types.BookRecord) *string { return &r.Binding }),
	"丛书":   first(func(r *types.BookRecord) *string { return &r.Series }),
	"isbn": first(func(r *types.BookRecord) *string { return &r.ISBN }),
	"ISBN": first(func(r *types.BookRecord) *string { return &r.ISBN }),
	"统一书号": first(func(r *types.BookRecord) *string { return &r.UnifiedBookNumber }),
}
