// Package datamap 加载 (source, target) 映射表：键为去除全部空白后的源序列。
package datamap

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode"

	_ "modernc.org/sqlite"

	"theory/pkg/contract"
)

// 支持的存储类型。
const (
	KindCSV    = "csv"
	KindSQLite = "sqlite"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Table: 只读映射表（加载后不再修改，可跨作业共享）。
type Table struct {
	m map[string]string
}

// New 返回空表。
func New() *Table { return &Table{m: make(map[string]string)} }

// Key 去除全部空白。
func Key(src string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, src)
}

// Add 登记一条映射；后加入的同键条目覆盖先前条目。
func (t *Table) Add(src, tar string) { t.m[Key(src)] = tar }

// Lookup 以空白不敏感方式查找译文。nil 表视为空表。
func (t *Table) Lookup(src string) (string, bool) {
	if t == nil {
		return "", false
	}
	v, ok := t.m[Key(src)]
	return v, ok
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.m)
}

// Options: 映射表来源。
type Options struct {
	Kind  string `json:"kind"`
	Path  string `json:"path"`
	Table string `json:"table"`
}

// Load 按 Options 加载；Path 为空返回空表。
func Load(ctx context.Context, o Options) (*Table, error) {
	if strings.TrimSpace(o.Path) == "" {
		return New(), nil
	}
	switch strings.ToLower(o.Kind) {
	case "", KindCSV:
		return LoadCSVFile(o.Path)
	case KindSQLite:
		return LoadSQLite(ctx, o.Path, o.Table)
	}
	return nil, fmt.Errorf("data map kind %q: %w", o.Kind, contract.ErrInvalidInput)
}

// LoadCSVFile 读取带表头（source,target）的 CSV 文件。
func LoadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := LoadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// LoadCSV 读取带表头的 CSV；列顺序任意，必须包含 source 与 target。
func LoadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return New(), nil
		}
		return nil, err
	}
	si, ti := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "source":
			si = i
		case "target":
			ti = i
		}
	}
	if si < 0 || ti < 0 {
		return nil, fmt.Errorf("csv header must contain source and target: %w", contract.ErrInvalidInput)
	}
	t := New()
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return t, nil
		}
		if err != nil {
			return nil, err
		}
		if si >= len(rec) || ti >= len(rec) {
			continue
		}
		t.Add(rec[si], rec[ti])
	}
}

// LoadSQLite 读取 SQLite 表的 source/target 两列。
func LoadSQLite(ctx context.Context, path, table string) (*Table, error) {
	if table == "" {
		table = "data_map"
	}
	if !tableNameRe.MatchString(table) {
		return nil, fmt.Errorf("table name %q: %w", table, contract.ErrInvalidInput)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	rows, err := db.QueryContext(ctx, "SELECT source, target FROM "+table)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer rows.Close()
	t := New()
	for rows.Next() {
		var src, tar sql.NullString
		if err := rows.Scan(&src, &tar); err != nil {
			return nil, err
		}
		if src.Valid {
			t.Add(src.String, tar.String)
		}
	}
	return t, rows.Err()
}
