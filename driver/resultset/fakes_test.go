package resultset

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/zhukovaskychina/xmysql-connector/driver/conf"
	"github.com/zhukovaskychina/xmysql-connector/driver/mysql"
	"github.com/zhukovaskychina/xmysql-connector/driver/protocol"
	"github.com/zhukovaskychina/xmysql-connector/driver/rowstore"
	"github.com/zhukovaskychina/xmysql-connector/driver/session"
)

var (
	reSelect = regexp.MustCompile(`^SELECT (.+) FROM (\S+) WHERE (.+)$`)
	reUpdate = regexp.MustCompile(`^UPDATE (\S+) SET (.+) WHERE (.+)$`)
	reInsert = regexp.MustCompile(`^INSERT INTO (\S+) \((.+)\) VALUES \((.+)\)$`)
	reDelete = regexp.MustCompile(`^DELETE FROM (\S+) WHERE (.+)$`)
)

// fakeTable 单表内存库，理解写回生成的 SQL 形态
type fakeTable struct {
	db      string
	name    string
	names   []string
	types   []byte
	rows    [][][]byte
	catalog []session.CatalogColumn

	autoInc  int
	nextID   int64
	binary   bool
	executed []string
	// afterUpdate 在 UPDATE 生效后调用，模拟其他会话的并发修改
	afterUpdate func()
}

func newItemsTable() *fakeTable {
	return &fakeTable{
		db:    "shop",
		name:  "items",
		names: []string{"id", "name", "qty"},
		types: []byte{mysql.TypeLonglong, mysql.TypeVarString, mysql.TypeLong},
		rows: [][][]byte{
			{[]byte("1"), []byte("apple"), []byte("10")},
			{[]byte("2"), []byte("pear"), []byte("20")},
			{[]byte("3"), []byte("plum"), []byte("30")},
		},
		catalog: []session.CatalogColumn{
			{Name: "id", IsPrimary: true, AutoIncrement: true},
			{Name: "name", Nullable: true},
			{Name: "qty", HasDefault: true},
		},
		autoInc: 0,
		nextID:  100,
	}
}

func (f *fakeTable) columns() []*mysql.ColumnDescriptor {
	cols := make([]*mysql.ColumnDescriptor, len(f.names))
	for i, n := range f.names {
		cols[i] = &mysql.ColumnDescriptor{
			Database: f.db, Table: f.name, OrgTable: f.name,
			Name: n, OrgName: n, Type: f.types[i], Charset: 33,
		}
	}
	return cols
}

func (f *fakeTable) encode(values [][]byte) []byte {
	row, err := rowstore.CodecFor(f.binary).Encode(f.columns(), values)
	if err != nil {
		panic(err)
	}
	return row
}

// source 当前表内容的帧序列
func (f *fakeTable) source() *protocol.MemorySource {
	src := protocol.NewMemorySource()
	for _, r := range f.rows {
		src.Append(f.encode(r))
	}
	src.Append(protocol.EncodeEOF(0, mysql.ServerStatusAutocommit))
	return src
}

func (f *fakeTable) col(ident string) int {
	name := strings.Trim(strings.TrimSpace(ident), "`")
	for i, n := range f.names {
		if strings.EqualFold(n, name) {
			return i
		}
	}
	panic("unknown column " + ident)
}

type cond struct {
	col    int
	isNull bool
	val    []byte
}

func (f *fakeTable) parseWhere(where string, args [][]byte) [][]cond {
	var groups [][]cond
	for _, g := range strings.Split(where, " OR ") {
		var conds []cond
		for _, c := range strings.Split(g, " AND ") {
			if strings.HasSuffix(c, " IS NULL") {
				conds = append(conds, cond{col: f.col(strings.TrimSuffix(c, " IS NULL")), isNull: true})
				continue
			}
			conds = append(conds, cond{col: f.col(strings.TrimSuffix(c, " = ?")), val: args[0]})
			args = args[1:]
		}
		groups = append(groups, conds)
	}
	return groups
}

func matches(row [][]byte, groups [][]cond) bool {
	for _, g := range groups {
		ok := true
		for _, c := range g {
			if c.isNull {
				ok = ok && row[c.col] == nil
			} else {
				ok = ok && row[c.col] != nil && bytes.Equal(row[c.col], c.val)
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func (f *fakeTable) Execute(_ context.Context, stmt *session.Statement) (*session.Response, error) {
	f.executed = append(f.executed, stmt.SQL)
	if m := reSelect.FindStringSubmatch(stmt.SQL); m != nil {
		groups := f.parseWhere(m[3], stmt.Args)
		src := protocol.NewMemorySource()
		for _, r := range f.rows {
			if matches(r, groups) {
				src.Append(f.encode(r))
			}
		}
		src.Append(protocol.EncodeEOF(0, 0))
		return &session.Response{Columns: f.columns(), Source: src, Binary: f.binary}, nil
	}
	if m := reUpdate.FindStringSubmatch(stmt.SQL); m != nil {
		sets := strings.Split(m[2], ", ")
		groups := f.parseWhere(m[3], stmt.Args[len(sets):])
		var affected uint64
		for _, r := range f.rows {
			if !matches(r, groups) {
				continue
			}
			changed := false
			for i, s := range sets {
				idx := f.col(strings.TrimSuffix(s, " = ?"))
				if !bytes.Equal(r[idx], stmt.Args[i]) || (r[idx] == nil) != (stmt.Args[i] == nil) {
					changed = true
				}
				r[idx] = stmt.Args[i]
			}
			if changed || stmt.FoundRows {
				affected++
			}
		}
		if f.afterUpdate != nil {
			f.afterUpdate()
		}
		return &session.Response{AffectedRows: affected}, nil
	}
	if m := reInsert.FindStringSubmatch(stmt.SQL); m != nil {
		names := strings.Split(m[2], ", ")
		values := strings.Split(m[3], ", ")
		row := make([][]byte, len(f.names))
		args := stmt.Args
		var lastID uint64
		for i, n := range names {
			idx := f.col(n)
			if values[i] == "?" {
				row[idx] = args[0]
				args = args[1:]
				continue
			}
			if idx == f.autoInc {
				f.nextID++
				lastID = uint64(f.nextID)
				row[idx] = []byte(strconv.FormatInt(f.nextID, 10))
			} else if f.types[idx] == mysql.TypeLong {
				row[idx] = []byte("0")
			}
		}
		f.rows = append(f.rows, row)
		return &session.Response{AffectedRows: 1, LastInsertID: lastID}, nil
	}
	if m := reDelete.FindStringSubmatch(stmt.SQL); m != nil {
		groups := f.parseWhere(m[2], stmt.Args)
		kept := f.rows[:0]
		var affected uint64
		for _, r := range f.rows {
			if matches(r, groups) {
				affected++
				continue
			}
			kept = append(kept, r)
		}
		f.rows = kept
		return &session.Response{AffectedRows: affected}, nil
	}
	return nil, fmt.Errorf("unsupported statement %q", stmt.SQL)
}

func (f *fakeTable) ColumnsOf(_ context.Context, db, table string) ([]session.CatalogColumn, error) {
	if db != f.db || table != f.name {
		return nil, mysql.NewServerError(1146, "42S02", fmt.Sprintf("Table '%s.%s' doesn't exist", db, table))
	}
	return f.catalog, nil
}

// pagedFetcher 服务端游标，每次返回一页
type pagedFetcher struct {
	pages [][][][]byte
	calls int
	sizes []int
	err   error
}

func (p *pagedFetcher) FetchMore(_ context.Context, _ uint32, rows int) (protocol.PacketSource, error) {
	p.calls++
	p.sizes = append(p.sizes, rows)
	if p.err != nil {
		return nil, p.err
	}
	src := protocol.NewMemorySource()
	i := p.calls - 1
	if i >= len(p.pages) {
		src.Append(protocol.EncodeEOF(0, mysql.ServerStatusLastRowSent))
		return src, nil
	}
	for _, r := range p.pages[i] {
		src.Append(protocol.EncodeTextRow(r))
	}
	status := mysql.ServerStatusCursorExists
	if i == len(p.pages)-1 {
		status |= mysql.ServerStatusLastRowSent
	}
	src.Append(protocol.EncodeEOF(0, status))
	return src, nil
}

type updateCountExecutor struct {
	calls int
}

func (e *updateCountExecutor) Execute(context.Context, *session.Statement) (*session.Response, error) {
	e.calls++
	return &session.Response{AffectedRows: 1}, nil
}

func textRows(n int) [][]byte {
	rows := make([][]byte, n)
	for i := range rows {
		rows[i] = protocol.EncodeTextRow([][]byte{[]byte(strconv.Itoa(i + 1)), []byte("row" + strconv.Itoa(i+1))})
	}
	return rows
}

func simpleColumns() []*mysql.ColumnDescriptor {
	return []*mysql.ColumnDescriptor{
		{Name: "id", Type: mysql.TypeLong},
		{Name: "label", Type: mysql.TypeVarString, Charset: 33},
	}
}

func sourceOf(rows [][]byte, terminator []byte) *protocol.MemorySource {
	src := protocol.NewMemorySource(rows...)
	if terminator != nil {
		src.Append(terminator)
	}
	return src
}

func newTestSession(exec session.Executor, mutate func(cfg *conf.Cfg), opts ...session.Option) *session.Session {
	cfg := conf.NewCfg()
	if mutate != nil {
		mutate(cfg)
	}
	return session.NewSession(exec, append(opts, session.WithConfig(cfg))...)
}
