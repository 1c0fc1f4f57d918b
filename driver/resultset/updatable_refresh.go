package resultset

import (
	"bytes"
	"context"

	"github.com/juju/errors"

	"github.com/zhukovaskychina/xmysql-connector/driver/mysql"
	"github.com/zhukovaskychina/xmysql-connector/driver/rowstore"
	"github.com/zhukovaskychina/xmysql-connector/driver/session"
	"github.com/zhukovaskychina/xmysql-connector/logger"
	"github.com/zhukovaskychina/xmysql-connector/util"
)

// normalize 回读行的编码与结果集不一致时转换
func (u *updater) normalize(resp *session.Response, row []byte) ([]byte, error) {
	codec := u.rs.store.Codec()
	if resp.Binary == codec.Binary() {
		return row, nil
	}
	return rowstore.Transcode(row, rowstore.CodecFor(resp.Binary), codec, u.rs.store.Columns())
}

// fetchRow 按键回读一行，没有匹配行时视为并发修改
func (u *updater) fetchRow(ctx context.Context, keys [][]byte) ([]byte, error) {
	sql, args := u.buildSelect(keys)
	resp, err := u.rs.sess.Execute(ctx, &session.Statement{SQL: sql, Args: args, Binary: u.rs.store.Codec().Binary()})
	if err != nil {
		return nil, errors.Annotate(err, "refresh row")
	}
	if len(resp.Rows) == 0 {
		return nil, mysql.NewConcurrentModification("row was deleted or its key changed by another session")
	}
	return u.normalize(resp, resp.Rows[0])
}

// rowIDOf 取一行中的行标识值
func (u *updater) rowIDOf(row []byte) ([]byte, error) {
	codec := u.rs.store.Codec()
	cols := u.rs.store.Columns()
	rb := rowstore.NewRowBuffer(row)
	idx := u.keyCols[0]
	if err := codec.Position(rb, cols, idx); err != nil {
		return nil, err
	}
	if rb.IsNull() {
		return nil, nil
	}
	return codec.TextBytes(rb, cols[idx])
}

// RefreshRow 从服务端重新读取当前行；使用行标识时相邻的若干行一并刷新
func (rs *ResultSet) RefreshRow(ctx context.Context) error {
	u, err := rs.updatable()
	if err != nil {
		return err
	}
	if u.state == EditInserting {
		return mysql.NewInvalidOperation("cannot call RefreshRow() when inserting a new row")
	}
	if !u.verdict.CanRefresh {
		return mysql.NewNotUpdatable(u.verdict.Reason)
	}
	if err := rs.store.CheckPosition(1); err != nil {
		return err
	}
	u.reset()

	if u.useRowID && rs.sess.Config().RefreshBatchSize > 1 {
		return u.refreshBatch(ctx)
	}
	keys, err := u.currentKeys()
	if err != nil {
		return err
	}
	row, err := u.fetchRow(ctx, keys)
	if err != nil {
		return err
	}
	pointer := rs.store.Pointer()
	if !bytes.Equal(row, rs.store.Row(pointer)) {
		if err := rs.store.Replace(pointer, row); err != nil {
			return err
		}
		u.mark(markUpdated)
	}
	return nil
}

// refreshBatch 以 rowid=? OR rowid=? 一次取回从当前行起的相邻行，只替换有变化的行
func (u *updater) refreshBatch(ctx context.Context) error {
	store := u.rs.store
	start := store.Pointer()
	end := start + u.rs.sess.Config().RefreshBatchSize
	if end > store.Len() {
		end = store.Len()
	}

	slots := make([]int, 0, end-start)
	rowIDs := make([][]byte, 0, end-start)
	for i := start; i < end; i++ {
		id, err := u.rowIDOf(store.Row(i))
		if err != nil {
			return errors.Trace(err)
		}
		if id == nil {
			continue
		}
		slots = append(slots, i)
		rowIDs = append(rowIDs, id)
	}
	if len(rowIDs) == 0 {
		return mysql.NewConcurrentModification("current row has no row identifier")
	}

	sql, args := u.buildBatchSelect(rowIDs)
	resp, err := u.rs.sess.Execute(ctx, &session.Statement{SQL: sql, Args: args, Binary: store.Codec().Binary()})
	if err != nil {
		return errors.Annotate(err, "batch refresh rows")
	}

	type fetched struct {
		id  []byte
		row []byte
	}
	index := make(map[uint64][]fetched, len(resp.Rows))
	for _, raw := range resp.Rows {
		row, err := u.normalize(resp, raw)
		if err != nil {
			return err
		}
		id, err := u.rowIDOf(row)
		if err != nil {
			return errors.Trace(err)
		}
		h := util.HashCode(id)
		index[h] = append(index[h], fetched{id: id, row: row})
	}

	replaced := 0
	for i, slot := range slots {
		var match []byte
		for _, f := range index[util.HashCode(rowIDs[i])] {
			if bytes.Equal(f.id, rowIDs[i]) {
				match = f.row
				break
			}
		}
		if match == nil {
			if slot == start {
				return mysql.NewConcurrentModification("row was deleted by another session")
			}
			logger.Warnf("batch refresh: row %d not found on server, keeping cached values", store.Discarded()+slot+1)
			continue
		}
		if bytes.Equal(match, store.Row(slot)) {
			continue
		}
		if err := store.Replace(slot, match); err != nil {
			return err
		}
		u.marks[store.Discarded()+slot] |= markUpdated
		replaced++
	}
	logger.Debugf("batch refresh of %d rows replaced %d", len(slots), replaced)
	return nil
}
