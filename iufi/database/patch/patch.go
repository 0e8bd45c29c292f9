// Package patch describes partial updates of database records as typed
// operations. The same operations can be applied to an in-memory record and
// rendered into a bun update query, so a caller never spells a column name or
// an update document by hand.
package patch

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
)

var ErrNoOps = errors.New("patch has no operations")

// Field binds a column of record type R to the struct field holding it.
// JSON marks columns stored as jsonb.
type Field[R any, V any] struct {
	Column string
	JSON   bool
	Get    func(*R) V
	Set    func(*R, V)
}

// Op is one typed update of a record.
type Op[R any] interface {
	Column() string
	// Apply performs the update on an in-memory record.
	Apply(rec *R) error
	// Expr renders the update as a SET expression with its arguments.
	Expr() (string, []any)
	String() string
}

type Number interface {
	~int | ~int32 | ~int64 | ~float64
}

type setOp[R, V any] struct {
	f Field[R, V]
	v V
}

// Set replaces the column value.
func Set[R, V any](f Field[R, V], v V) Op[R] {
	return setOp[R, V]{f: f, v: v}
}

func (o setOp[R, V]) Column() string { return o.f.Column }

func (o setOp[R, V]) Apply(rec *R) error {
	o.f.Set(rec, o.v)
	return nil
}

func (o setOp[R, V]) Expr() (string, []any) {
	if o.f.JSON {
		return "? = ?::jsonb", []any{bun.Ident(o.f.Column), mustJSON(o.v)}
	}
	return "? = ?", []any{bun.Ident(o.f.Column), o.v}
}

func (o setOp[R, V]) String() string { return fmt.Sprintf("set %s=%v", o.f.Column, o.v) }

type unsetOp[R, V any] struct {
	f Field[R, V]
}

// Unset clears the column to NULL and the field to its zero value.
func Unset[R, V any](f Field[R, V]) Op[R] {
	return unsetOp[R, V]{f: f}
}

func (o unsetOp[R, V]) Column() string { return o.f.Column }

func (o unsetOp[R, V]) Apply(rec *R) error {
	var zero V
	o.f.Set(rec, zero)
	return nil
}

func (o unsetOp[R, V]) Expr() (string, []any) {
	return "? = NULL", []any{bun.Ident(o.f.Column)}
}

func (o unsetOp[R, V]) String() string { return "unset " + o.f.Column }

type incOp[R any, V Number] struct {
	f     Field[R, V]
	delta V
}

// Inc adds delta to a numeric column. Negative deltas decrement.
func Inc[R any, V Number](f Field[R, V], delta V) Op[R] {
	return incOp[R, V]{f: f, delta: delta}
}

func (o incOp[R, V]) Column() string { return o.f.Column }

func (o incOp[R, V]) Apply(rec *R) error {
	o.f.Set(rec, o.f.Get(rec)+o.delta)
	return nil
}

func (o incOp[R, V]) Expr() (string, []any) {
	return "? = ? + ?", []any{bun.Ident(o.f.Column), bun.Ident(o.f.Column), o.delta}
}

func (o incOp[R, V]) String() string { return fmt.Sprintf("inc %s+=%v", o.f.Column, o.delta) }

type pushOp[R any, E any] struct {
	f      Field[R, []E]
	values []E
}

// Push appends values to a jsonb array column.
func Push[R any, E any](f Field[R, []E], values ...E) Op[R] {
	if values == nil {
		values = []E{}
	}
	return pushOp[R, E]{f: f, values: values}
}

func (o pushOp[R, E]) Column() string { return o.f.Column }

func (o pushOp[R, E]) Apply(rec *R) error {
	if !o.f.JSON {
		return fmt.Errorf("push on non-array column %s", o.f.Column)
	}
	o.f.Set(rec, append(o.f.Get(rec), o.values...))
	return nil
}

func (o pushOp[R, E]) Expr() (string, []any) {
	col := bun.Ident(o.f.Column)
	return "? = COALESCE(?, '[]'::jsonb) || ?::jsonb", []any{col, col, mustJSON(o.values)}
}

func (o pushOp[R, E]) String() string { return fmt.Sprintf("push %s+%v", o.f.Column, o.values) }

type pullOp[R any, E comparable] struct {
	f      Field[R, []E]
	values []E
}

// Pull removes every occurrence of values from a jsonb array column.
func Pull[R any, E comparable](f Field[R, []E], values ...E) Op[R] {
	if values == nil {
		values = []E{}
	}
	return pullOp[R, E]{f: f, values: values}
}

func (o pullOp[R, E]) Column() string { return o.f.Column }

func (o pullOp[R, E]) Apply(rec *R) error {
	if !o.f.JSON {
		return fmt.Errorf("pull on non-array column %s", o.f.Column)
	}
	drop := make(map[E]struct{}, len(o.values))
	for _, v := range o.values {
		drop[v] = struct{}{}
	}
	cur := o.f.Get(rec)
	kept := make([]E, 0, len(cur))
	for _, v := range cur {
		if _, ok := drop[v]; !ok {
			kept = append(kept, v)
		}
	}
	o.f.Set(rec, kept)
	return nil
}

func (o pullOp[R, E]) Expr() (string, []any) {
	col := bun.Ident(o.f.Column)
	return `? = COALESCE((SELECT jsonb_agg(e) FROM jsonb_array_elements(?) AS e WHERE NOT (?::jsonb @> jsonb_build_array(e))), '[]'::jsonb)`,
		[]any{col, col, mustJSON(o.values)}
}

func (o pullOp[R, E]) String() string { return fmt.Sprintf("pull %s-%v", o.f.Column, o.values) }

// Apply runs ops against rec in order.
func Apply[R any](rec *R, ops ...Op[R]) error {
	for _, op := range ops {
		if err := op.Apply(rec); err != nil {
			return err
		}
	}
	return nil
}

// Update adds one SET clause per op to q.
func Update[R any](q *bun.UpdateQuery, ops ...Op[R]) (*bun.UpdateQuery, error) {
	if len(ops) == 0 {
		return q, ErrNoOps
	}
	for _, op := range ops {
		expr, args := op.Expr()
		q = q.Set(expr, args...)
	}
	return q, nil
}

// Describe joins the ops for log lines.
func Describe[R any](ops ...Op[R]) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = op.String()
	}
	return strings.Join(parts, ", ")
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		// Only plain values are ever patched.
		panic(fmt.Sprintf("patch: value not encodable: %v", err))
	}
	return string(b)
}
