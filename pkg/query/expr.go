// Package query provides the composable list-fetch predicate shared by the
// storage backends and the security filter. An Expr compiles to SQL for the
// postgres store and evaluates in memory for the test store, so both paths
// enforce the same constraint.
package query

import (
	"fmt"
	"strings"
)

// Op is a comparison operator.
type Op string

const (
	OpEq     Op = "="
	OpGt     Op = ">"
	OpLt     Op = "<"
	OpIsNull Op = "IS NULL"
)

// Expr is a node in a predicate tree.
type Expr interface {
	// SQL renders the node as a parenthesized SQL fragment. Placeholders are
	// numbered starting at argOffset+1; the returned args line up with them.
	SQL(argOffset int) (clause string, args []interface{})

	// Match evaluates the node against a row represented as field values.
	Match(row map[string]interface{}) bool
}

// Cond is a single field comparison.
type Cond struct {
	Field string
	Op    Op
	Value interface{}
}

// SQL renders the comparison.
func (c Cond) SQL(argOffset int) (string, []interface{}) {
	if c.Op == OpIsNull {
		return fmt.Sprintf("(%s IS NULL)", c.Field), nil
	}
	return fmt.Sprintf("(%s %s $%d)", c.Field, c.Op, argOffset+1), []interface{}{c.Value}
}

// Match evaluates the comparison against a row.
func (c Cond) Match(row map[string]interface{}) bool {
	v, ok := row[c.Field]
	if c.Op == OpIsNull {
		return !ok || v == nil
	}
	if !ok || v == nil {
		return false
	}
	switch c.Op {
	case OpEq:
		return fmt.Sprint(v) == fmt.Sprint(c.Value)
	case OpGt:
		return Compare(v, c.Value) > 0
	case OpLt:
		return Compare(v, c.Value) < 0
	}
	return false
}

// Compare orders two scalar values. Numbers compare numerically, everything
// else compares as strings. Exposed so in-memory stores can sort rows the
// same way predicates compare them.
func Compare(a, b interface{}) int {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Eq builds an equality condition.
func Eq(field string, value interface{}) Expr { return Cond{Field: field, Op: OpEq, Value: value} }

// Gt builds a greater-than condition.
func Gt(field string, value interface{}) Expr { return Cond{Field: field, Op: OpGt, Value: value} }

// Lt builds a less-than condition.
func Lt(field string, value interface{}) Expr { return Cond{Field: field, Op: OpLt, Value: value} }

// IsNull builds a null check.
func IsNull(field string) Expr { return Cond{Field: field, Op: OpIsNull} }

type conj struct {
	op    string // "AND" or "OR"
	exprs []Expr
}

// SQL renders the conjunction with every child parenthesized, so an AND-ed
// security constraint can never be loosened by a caller's top-level OR.
func (c conj) SQL(argOffset int) (string, []interface{}) {
	if len(c.exprs) == 0 {
		return "(TRUE)", nil
	}
	parts := make([]string, 0, len(c.exprs))
	var args []interface{}
	for _, e := range c.exprs {
		clause, a := e.SQL(argOffset + len(args))
		parts = append(parts, clause)
		args = append(args, a...)
	}
	return "(" + strings.Join(parts, " "+c.op+" ") + ")", args
}

// Match evaluates the conjunction against a row.
func (c conj) Match(row map[string]interface{}) bool {
	if len(c.exprs) == 0 {
		return true
	}
	for _, e := range c.exprs {
		m := e.Match(row)
		if c.op == "AND" && !m {
			return false
		}
		if c.op == "OR" && m {
			return true
		}
	}
	return c.op == "AND"
}

// And combines expressions conjunctively. Nil children are skipped so callers
// can pass an absent base filter.
func And(exprs ...Expr) Expr { return combine("AND", exprs) }

// Or combines expressions disjunctively.
func Or(exprs ...Expr) Expr { return combine("OR", exprs) }

func combine(op string, exprs []Expr) Expr {
	kept := make([]Expr, 0, len(exprs))
	for _, e := range exprs {
		if e != nil {
			kept = append(kept, e)
		}
	}
	if len(kept) == 1 {
		return kept[0]
	}
	return conj{op: op, exprs: kept}
}
