package resultset

import (
	"github.com/zhukovaskychina/xmysql-connector/driver/mysql"
)

func (rs *ResultSet) checkScrollable() error {
	if err := rs.checkClosed(); err != nil {
		return err
	}
	if rs.opts.Scroll == ScrollForwardOnly || rs.state == StateStreaming {
		return mysql.NewInvalidOperation("invalid operation for result set type TYPE_FORWARD_ONLY")
	}
	return nil
}

// onRow 指针是否在某一行上
func (rs *ResultSet) onRow() bool {
	p := rs.store.Pointer()
	return p >= 0 && p < rs.store.Len()
}

// fetchMore 流式取一行或分页取一页
func (rs *ResultSet) fetchMore() (bool, error) {
	switch rs.state {
	case StateStreaming:
		if rs.eof {
			return false, nil
		}
		return rs.fetchStreamingRow()
	case StatePaged:
		return rs.fetchPage()
	}
	return false, nil
}

func (rs *ResultSet) fetchAll() error {
	for !rs.eof && rs.state != StateEager {
		if _, err := rs.fetchMore(); err != nil {
			return err
		}
	}
	return nil
}

// Next 移动到下一行
func (rs *ResultSet) Next() (bool, error) {
	if err := rs.checkClosed(); err != nil {
		return false, err
	}
	rs.leaveRow()
	s := rs.store
	if p := s.Pointer(); p < s.Len() {
		s.SetPointer(p + 1)
	}
	if rs.state == StateStreaming || (rs.state == StatePaged && rs.opts.Scroll == ScrollForwardOnly) {
		s.DiscardConsumed()
	}
	if s.Pointer() < s.Len() {
		return true, nil
	}
	if rs.eof || rs.state == StateEager {
		return false, nil
	}
	ok, err := rs.fetchMore()
	if err != nil {
		return false, err
	}
	if !ok {
		s.SetPointer(s.Len())
		return false, nil
	}
	return true, nil
}

// Previous 移动到上一行
func (rs *ResultSet) Previous() (bool, error) {
	if err := rs.checkScrollable(); err != nil {
		return false, err
	}
	rs.leaveRow()
	s := rs.store
	if p := s.Pointer(); p >= 0 {
		s.SetPointer(p - 1)
	}
	return s.Pointer() >= 0, nil
}

// First 移动到第一行
func (rs *ResultSet) First() (bool, error) {
	return rs.Absolute(1)
}

// Last 移动到最后一行
func (rs *ResultSet) Last() (bool, error) {
	return rs.Absolute(-1)
}

// Absolute 移动到第 row 行，负数从末尾倒数，0 为第一行之前
func (rs *ResultSet) Absolute(row int) (bool, error) {
	if err := rs.checkScrollable(); err != nil {
		return false, err
	}
	rs.leaveRow()
	s := rs.store
	switch {
	case row == 0:
		s.SetPointer(-1)
		return false, nil
	case row > 0:
		for s.Len() < row && !rs.eof && rs.state != StateEager {
			if _, err := rs.fetchMore(); err != nil {
				return false, err
			}
		}
		if row <= s.Len() {
			s.SetPointer(row - 1)
			return true, nil
		}
		s.SetPointer(s.Len())
		return false, nil
	default:
		if err := rs.fetchAll(); err != nil {
			return false, err
		}
		if s.Len()+row >= 0 {
			s.SetPointer(s.Len() + row)
			return true, nil
		}
		s.SetPointer(-1)
		return false, nil
	}
}

// Relative 相对当前行移动 rows 行
func (rs *ResultSet) Relative(rows int) (bool, error) {
	if err := rs.checkScrollable(); err != nil {
		return false, err
	}
	rs.leaveRow()
	s := rs.store
	target := s.Pointer() + rows
	if target < 0 {
		s.SetPointer(-1)
		return false, nil
	}
	for target >= s.Len() && !rs.eof && rs.state != StateEager {
		if _, err := rs.fetchMore(); err != nil {
			return false, err
		}
	}
	if target >= s.Len() {
		s.SetPointer(s.Len())
		return false, nil
	}
	s.SetPointer(target)
	return true, nil
}

// BeforeFirst 移动到第一行之前
func (rs *ResultSet) BeforeFirst() error {
	if err := rs.checkScrollable(); err != nil {
		return err
	}
	rs.leaveRow()
	rs.store.SetPointer(-1)
	return nil
}

// AfterLast 移动到最后一行之后
func (rs *ResultSet) AfterLast() error {
	if err := rs.checkScrollable(); err != nil {
		return err
	}
	rs.leaveRow()
	if err := rs.fetchAll(); err != nil {
		return err
	}
	rs.store.SetPointer(rs.store.Len())
	return nil
}

// IsBeforeFirst 在第一行之前且结果非空
func (rs *ResultSet) IsBeforeFirst() (bool, error) {
	if err := rs.checkClosed(); err != nil {
		return false, err
	}
	s := rs.store
	if s.Pointer() != -1 || s.Discarded() > 0 {
		return false, nil
	}
	if s.Len() == 0 && !rs.eof {
		if _, err := rs.fetchMore(); err != nil {
			return false, err
		}
	}
	return s.Len() > 0, nil
}

// IsAfterLast 在最后一行之后且结果非空；流式未到结尾时主动再取一帧
func (rs *ResultSet) IsAfterLast() (bool, error) {
	if err := rs.checkClosed(); err != nil {
		return false, err
	}
	s := rs.store
	if s.Pointer() < s.Len() {
		return false, nil
	}
	if !rs.eof && rs.state != StateEager {
		ok, err := rs.fetchMore()
		if err != nil {
			return false, err
		}
		if ok {
			return false, nil
		}
	}
	return s.Discarded()+s.Len() > 0, nil
}

// IsFirst 是否在第一行
func (rs *ResultSet) IsFirst() (bool, error) {
	if err := rs.checkClosed(); err != nil {
		return false, err
	}
	return rs.onRow() && rs.store.Discarded()+rs.store.Pointer() == 0, nil
}

// IsLast 是否在最后一行，未读完时预取
func (rs *ResultSet) IsLast() (bool, error) {
	if err := rs.checkClosed(); err != nil {
		return false, err
	}
	if !rs.onRow() {
		return false, nil
	}
	s := rs.store
	if s.Pointer() < s.Len()-1 {
		return false, nil
	}
	if !rs.eof && rs.state != StateEager {
		ok, err := rs.fetchMore()
		if err != nil {
			return false, err
		}
		if ok {
			return false, nil
		}
	}
	return s.Pointer() == s.Len()-1, nil
}

// GetRow 当前行号(从1开始)，不在行上时为0
func (rs *ResultSet) GetRow() (int, error) {
	if err := rs.checkClosed(); err != nil {
		return 0, err
	}
	if !rs.onRow() {
		return 0, nil
	}
	return rs.store.Discarded() + rs.store.Pointer() + 1, nil
}
