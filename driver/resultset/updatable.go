package resultset

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"github.com/shopspring/decimal"

	"github.com/zhukovaskychina/xmysql-connector/driver/mysql"
	"github.com/zhukovaskychina/xmysql-connector/driver/session"
	"github.com/zhukovaskychina/xmysql-connector/logger"
	"github.com/zhukovaskychina/xmysql-connector/util"
)

// EditState 可更新结果集的编辑状态
type EditState int

const (
	EditStandard EditState = iota
	EditEditing
	EditApplied
	EditInserting
)

func (s EditState) String() string {
	switch s {
	case EditStandard:
		return "STANDARD"
	case EditEditing:
		return "EDITING"
	case EditApplied:
		return "APPLIED"
	case EditInserting:
		return "INSERTING"
	}
	return "UNKNOWN"
}

// Verdict 可更新性判定，构造时计算一次
type Verdict struct {
	CanUpdate  bool
	CanInsert  bool
	CanRefresh bool
	Reason     string
}

type rowMark uint8

const (
	markUpdated rowMark = 1 << iota
	markInserted
)

type updater struct {
	rs       *ResultSet
	verdict  Verdict
	database string
	table    string
	keyCols  []int
	useRowID bool
	rowID    int
	autoInc  int

	state  EditState
	edits  [][]byte
	staged []bool
	marks  map[int]rowMark
}

func newUpdater(ctx context.Context, rs *ResultSet) *updater {
	cols := rs.store.Columns()
	u := &updater{
		rs:      rs,
		rowID:   -1,
		autoInc: -1,
		edits:   make([][]byte, len(cols)),
		staged:  make([]bool, len(cols)),
		marks:   make(map[int]rowMark),
	}
	u.verdict = u.computeVerdict(ctx)
	if !u.verdict.CanUpdate {
		logger.Debugf("session %s: result set is not updatable: %s", rs.sess.ID(), u.verdict.Reason)
	}
	return u
}

func notUpdatable(reason string) Verdict {
	return Verdict{Reason: "ResultSet cannot be updated: " + reason}
}

func (u *updater) findSource(name string) int {
	for i, c := range u.rs.store.Columns() {
		if strings.EqualFold(c.SourceName(), name) {
			return i
		}
	}
	return -1
}

func (u *updater) computeVerdict(ctx context.Context) Verdict {
	cols := u.rs.store.Columns()
	cfg := u.rs.sess.Config()
	for i, c := range cols {
		if cfg.RowIDAddressable && strings.EqualFold(c.Name, cfg.RowIDColumn) {
			u.rowID = i
			continue
		}
		if c.SourceTable() == "" {
			return notUpdatable(fmt.Sprintf("column `%s` is not a table column", c.Name))
		}
		if u.table == "" {
			u.database, u.table = c.Database, c.SourceTable()
			continue
		}
		if !strings.EqualFold(u.table, c.SourceTable()) || u.database != c.Database {
			return notUpdatable("the query involves more than one table")
		}
	}
	if u.table == "" {
		return notUpdatable("no table information")
	}
	if u.database == "" {
		return notUpdatable("no database information")
	}

	catalog := u.rs.sess.Catalog()
	if catalog == nil {
		return notUpdatable("no catalog available to check primary keys")
	}
	catalogCols, err := catalog.ColumnsOf(ctx, u.database, u.table)
	if err != nil {
		logger.Warnf("probe columns of %s.%s failed: %v", u.database, u.table, err)
		return notUpdatable(fmt.Sprintf("cannot read definition of `%s`.`%s`: %v", u.database, u.table, err))
	}

	verdict := Verdict{CanUpdate: true, CanInsert: true, CanRefresh: true}
	missingKey := ""
	for _, cc := range catalogCols {
		idx := u.findSource(cc.Name)
		if idx < 0 {
			if cc.IsPrimary && missingKey == "" {
				missingKey = cc.Name
			}
			if !(cc.Nullable || cc.HasDefault || cc.Generated || cc.AutoIncrement) {
				verdict.CanInsert = false
				verdict.Reason = fmt.Sprintf("column `%s` has no default value and is not in the result set", cc.Name)
			}
			continue
		}
		cols[idx].Augment(cc.IsPrimary, cc.Nullable, cc.AutoIncrement)
		if cc.AutoIncrement {
			u.autoInc = idx
		}
	}

	var keys []int
	for i, c := range cols {
		if i != u.rowID && c.IsPrimaryKey() {
			keys = append(keys, i)
		}
	}
	switch {
	case len(keys) > 0 && missingKey == "":
		u.keyCols = keys
	case u.rowID >= 0:
		u.keyCols = []int{u.rowID}
		u.useRowID = true
	case missingKey != "":
		return notUpdatable(fmt.Sprintf("primary key field `%s` is not in the result set", missingKey))
	default:
		return notUpdatable(fmt.Sprintf("table `%s` has no primary key", u.table))
	}
	return verdict
}

func (u *updater) hasEdits() bool {
	for _, s := range u.staged {
		if s {
			return true
		}
	}
	return false
}

func (u *updater) clearEdits() {
	for i := range u.edits {
		u.edits[i] = nil
		u.staged[i] = false
	}
}

// reset 清空待提交修改并回到 STANDARD
func (u *updater) reset() {
	u.clearEdits()
	u.state = EditStandard
}

func (u *updater) absolute() int {
	return u.rs.store.Discarded() + u.rs.store.Pointer()
}

func (u *updater) mark(m rowMark) {
	u.marks[u.absolute()] |= m
}

// dropMark 删除一行后，其后行的标记前移
func (u *updater) dropMark(abs int) {
	marks := make(map[int]rowMark, len(u.marks))
	for k, v := range u.marks {
		switch {
		case k < abs:
			marks[k] = v
		case k > abs:
			marks[k-1] = v
		}
	}
	u.marks = marks
}

// currentKeys 当前行的主键(或行标识)值
func (u *updater) currentKeys() ([][]byte, error) {
	keys := make([][]byte, len(u.keyCols))
	for i, idx := range u.keyCols {
		v, err := u.rs.store.GetBytes(idx + 1)
		if err != nil {
			return nil, err
		}
		keys[i] = v
	}
	return keys, nil
}

// leaveRow 移动游标时丢弃未提交的修改
func (rs *ResultSet) leaveRow() {
	if rs.upd != nil && rs.upd.state != EditStandard {
		rs.upd.reset()
	}
}

func (rs *ResultSet) updatable() (*updater, error) {
	if err := rs.checkClosed(); err != nil {
		return nil, err
	}
	if rs.upd == nil {
		return nil, mysql.NewNotUpdatable("result set concurrency is CONCUR_READ_ONLY")
	}
	return rs.upd, nil
}

// Verdict 可更新性判定
func (rs *ResultSet) Verdict() Verdict {
	if rs.upd == nil {
		return Verdict{Reason: "result set concurrency is CONCUR_READ_ONLY"}
	}
	return rs.upd.verdict
}

// EditState 当前编辑状态
func (rs *ResultSet) EditState() EditState {
	if rs.upd == nil {
		return EditStandard
	}
	return rs.upd.state
}

func (rs *ResultSet) column(column int) (*mysql.ColumnDescriptor, error) {
	cols := rs.store.Columns()
	if column < 1 || column > len(cols) {
		return nil, mysql.NewOutOfRange("wrong column index %d, must be in [1, %d]", column, len(cols))
	}
	return cols[column-1], nil
}

// stage 暂存一列修改，nil 表示 NULL
func (rs *ResultSet) stage(column int, value []byte) error {
	u, err := rs.updatable()
	if err != nil {
		return err
	}
	if _, err := rs.column(column); err != nil {
		return err
	}
	if column-1 == u.rowID {
		return mysql.NewInvalidOperation("row identifier column cannot be updated")
	}
	if u.state == EditInserting {
		if !u.verdict.CanInsert {
			return mysql.NewNotUpdatable(u.verdict.Reason)
		}
	} else {
		if !u.verdict.CanUpdate {
			return mysql.NewNotUpdatable(u.verdict.Reason)
		}
		if err := rs.store.CheckPosition(column); err != nil {
			return err
		}
		u.state = EditEditing
	}
	u.edits[column-1] = value
	u.staged[column-1] = true
	return nil
}

func (rs *ResultSet) UpdateNull(column int) error {
	return rs.stage(column, nil)
}

func (rs *ResultSet) UpdateBytes(column int, value []byte) error {
	if value == nil {
		return rs.stage(column, nil)
	}
	return rs.stage(column, append([]byte{}, value...))
}

func (rs *ResultSet) UpdateString(column int, value string) error {
	col, err := rs.column(column)
	if err != nil {
		return err
	}
	return rs.stage(column, util.EncodeCharset(value, col.Charset))
}

func (rs *ResultSet) UpdateInt64(column int, value int64) error {
	return rs.stage(column, strconv.AppendInt(nil, value, 10))
}

func (rs *ResultSet) UpdateUint64(column int, value uint64) error {
	return rs.stage(column, strconv.AppendUint(nil, value, 10))
}

func (rs *ResultSet) UpdateFloat64(column int, value float64) error {
	return rs.stage(column, strconv.AppendFloat(nil, value, 'g', -1, 64))
}

func (rs *ResultSet) UpdateBool(column int, value bool) error {
	if value {
		return rs.stage(column, []byte("1"))
	}
	return rs.stage(column, []byte("0"))
}

func (rs *ResultSet) UpdateDecimal(column int, value decimal.Decimal) error {
	return rs.stage(column, []byte(value.String()))
}

// UpdateRow 提交当前行的修改并刷新该行
func (rs *ResultSet) UpdateRow(ctx context.Context) error {
	u, err := rs.updatable()
	if err != nil {
		return err
	}
	if u.state == EditInserting {
		return mysql.NewInvalidOperation("cannot call UpdateRow() when inserting a new row")
	}
	if u.state != EditEditing || !u.hasEdits() {
		return mysql.NewInvalidOperation("no pending column updates to apply")
	}
	if err := rs.store.CheckPosition(1); err != nil {
		return err
	}
	keys, err := u.currentKeys()
	if err != nil {
		return err
	}
	sql, args := u.buildUpdate(keys)
	// 写回的值与原值相同时也必须计为命中
	resp, err := rs.sess.Execute(ctx, &session.Statement{SQL: sql, Args: args, FoundRows: true})
	if err != nil {
		return errors.Annotate(err, "apply row update")
	}
	if resp.AffectedRows == 0 {
		return mysql.NewConcurrentModification("row was changed or deleted by another session, %s matched no rows", sql)
	}
	u.state = EditApplied
	// 服务端已生效，无论刷新是否成功都回到 STANDARD
	defer u.reset()
	u.mark(markUpdated)

	for i, idx := range u.keyCols {
		if u.staged[idx] {
			keys[i] = u.edits[idx]
		}
	}
	row, err := u.fetchRow(ctx, keys)
	if err != nil {
		return errors.Annotate(err, "row updated but could not be re-read")
	}
	return rs.store.Replace(rs.store.Pointer(), row)
}

// MoveToInsertRow 进入插入行
func (rs *ResultSet) MoveToInsertRow() error {
	u, err := rs.updatable()
	if err != nil {
		return err
	}
	if !u.verdict.CanInsert {
		return mysql.NewNotUpdatable(u.verdict.Reason)
	}
	u.clearEdits()
	u.state = EditInserting
	return nil
}

// MoveToCurrentRow 离开插入行，回到 STANDARD，指针不变
func (rs *ResultSet) MoveToCurrentRow() error {
	u, err := rs.updatable()
	if err != nil {
		return err
	}
	u.reset()
	return nil
}

// InsertRow 插入暂存的行，插入后的行追加到缓存末尾并成为当前行
func (rs *ResultSet) InsertRow(ctx context.Context) error {
	u, err := rs.updatable()
	if err != nil {
		return err
	}
	if u.state != EditInserting {
		return mysql.NewInvalidOperation("InsertRow() can only be called on the insert row")
	}
	if !u.verdict.CanInsert {
		return mysql.NewNotUpdatable(u.verdict.Reason)
	}
	sql, args := u.buildInsert()
	resp, err := rs.sess.Execute(ctx, &session.Statement{SQL: sql, Args: args})
	if err != nil {
		return errors.Annotate(err, "insert row")
	}

	row, err := u.insertedRow(ctx, resp.LastInsertID)
	if err != nil {
		return err
	}
	idx, err := rs.store.Append(row)
	if err != nil {
		return err
	}
	rs.store.SetPointer(idx)
	u.mark(markInserted)
	u.clearEdits()
	return nil
}

// insertedRow 按主键(含自增值)回读新行；主键未知时用暂存值构造
func (u *updater) insertedRow(ctx context.Context, lastInsertID uint64) ([]byte, error) {
	cols := u.rs.store.Columns()
	if !u.useRowID {
		keys := make([][]byte, len(u.keyCols))
		known := true
		for i, idx := range u.keyCols {
			switch {
			case u.staged[idx]:
				keys[i] = u.edits[idx]
			case idx == u.autoInc && lastInsertID > 0:
				keys[i] = strconv.AppendUint(nil, lastInsertID, 10)
			default:
				known = false
			}
		}
		if known {
			return u.fetchRow(ctx, keys)
		}
	}
	values := make([][]byte, len(cols))
	for i := range cols {
		if u.staged[i] {
			values[i] = u.edits[i]
		}
	}
	return u.rs.store.Codec().Encode(cols, values)
}

// DeleteRow 删除当前行，指针移到上一行
func (rs *ResultSet) DeleteRow(ctx context.Context) error {
	u, err := rs.updatable()
	if err != nil {
		return err
	}
	if u.state == EditInserting {
		return mysql.NewInvalidOperation("cannot call DeleteRow() when inserting a new row")
	}
	if !u.verdict.CanUpdate {
		return mysql.NewNotUpdatable(u.verdict.Reason)
	}
	if err := rs.store.CheckPosition(1); err != nil {
		return err
	}
	keys, err := u.currentKeys()
	if err != nil {
		return err
	}
	sql, args := u.buildDelete(keys)
	resp, err := rs.sess.Execute(ctx, &session.Statement{SQL: sql, Args: args, FoundRows: true})
	if err != nil {
		return errors.Annotate(err, "delete row")
	}
	if resp.AffectedRows == 0 {
		return mysql.NewConcurrentModification("row was already deleted by another session")
	}
	pointer := rs.store.Pointer()
	abs := u.absolute()
	if err := rs.store.RemoveAt(pointer); err != nil {
		return err
	}
	u.dropMark(abs)
	rs.store.SetPointer(pointer - 1)
	u.reset()
	return nil
}

// CancelRowUpdates 丢弃当前行的暂存修改
func (rs *ResultSet) CancelRowUpdates() error {
	u, err := rs.updatable()
	if err != nil {
		return err
	}
	if u.state == EditInserting {
		return mysql.NewInvalidOperation("cannot call CancelRowUpdates() when inserting a new row")
	}
	u.reset()
	return nil
}

func (rs *ResultSet) rowMark(m rowMark) (bool, error) {
	if err := rs.checkClosed(); err != nil {
		return false, err
	}
	if rs.upd == nil || !rs.onRow() {
		return false, nil
	}
	return rs.upd.marks[rs.upd.absolute()]&m != 0, nil
}

// RowUpdated 当前行是否被修改或刷新为新值
func (rs *ResultSet) RowUpdated() (bool, error) {
	return rs.rowMark(markUpdated)
}

// RowInserted 当前行是否由 InsertRow 插入
func (rs *ResultSet) RowInserted() (bool, error) {
	return rs.rowMark(markInserted)
}

// RowDeleted 删除的行直接从缓存移除，因此总是 false
func (rs *ResultSet) RowDeleted() (bool, error) {
	if err := rs.checkClosed(); err != nil {
		return false, err
	}
	return false, nil
}
