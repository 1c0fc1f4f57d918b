package resultset

import (
	"strings"
)

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (u *updater) tableRef() string {
	return quoteIdent(u.database) + "." + quoteIdent(u.table)
}

// selectList 按结果集列顺序的原始列名
func (u *updater) selectList() string {
	cols := u.rs.store.Columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = quoteIdent(c.SourceName())
	}
	return strings.Join(names, ", ")
}

// keyPredicate 主键或行标识条件，NULL 值使用 IS NULL
func (u *updater) keyPredicate(keys [][]byte) (string, [][]byte) {
	cols := u.rs.store.Columns()
	parts := make([]string, 0, len(u.keyCols))
	args := make([][]byte, 0, len(u.keyCols))
	for i, idx := range u.keyCols {
		name := quoteIdent(cols[idx].SourceName())
		if keys[i] == nil {
			parts = append(parts, name+" IS NULL")
			continue
		}
		parts = append(parts, name+" = ?")
		args = append(args, keys[i])
	}
	return strings.Join(parts, " AND "), args
}

func (u *updater) buildSelect(keys [][]byte) (string, [][]byte) {
	where, args := u.keyPredicate(keys)
	return "SELECT " + u.selectList() + " FROM " + u.tableRef() + " WHERE " + where, args
}

// buildBatchSelect 按多个行标识一次取回
func (u *updater) buildBatchSelect(rowIDs [][]byte) (string, [][]byte) {
	name := quoteIdent(u.rs.store.Columns()[u.keyCols[0]].SourceName())
	parts := make([]string, len(rowIDs))
	for i := range rowIDs {
		parts[i] = name + " = ?"
	}
	return "SELECT " + u.selectList() + " FROM " + u.tableRef() + " WHERE " + strings.Join(parts, " OR "), rowIDs
}

func (u *updater) buildUpdate(keys [][]byte) (string, [][]byte) {
	cols := u.rs.store.Columns()
	sets := make([]string, 0, len(cols))
	args := make([][]byte, 0, len(cols)+len(keys))
	for i, c := range cols {
		if !u.staged[i] {
			continue
		}
		sets = append(sets, quoteIdent(c.SourceName())+" = ?")
		args = append(args, u.edits[i])
	}
	where, keyArgs := u.keyPredicate(keys)
	return "UPDATE " + u.tableRef() + " SET " + strings.Join(sets, ", ") + " WHERE " + where, append(args, keyArgs...)
}

// buildInsert 未暂存的列使用 DEFAULT
func (u *updater) buildInsert() (string, [][]byte) {
	cols := u.rs.store.Columns()
	names := make([]string, 0, len(cols))
	values := make([]string, 0, len(cols))
	var args [][]byte
	for i, c := range cols {
		if i == u.rowID {
			continue
		}
		names = append(names, quoteIdent(c.SourceName()))
		if u.staged[i] {
			values = append(values, "?")
			args = append(args, u.edits[i])
		} else {
			values = append(values, "DEFAULT")
		}
	}
	return "INSERT INTO " + u.tableRef() + " (" + strings.Join(names, ", ") + ") VALUES (" + strings.Join(values, ", ") + ")", args
}

func (u *updater) buildDelete(keys [][]byte) (string, [][]byte) {
	where, args := u.keyPredicate(keys)
	return "DELETE FROM " + u.tableRef() + " WHERE " + where, args
}
