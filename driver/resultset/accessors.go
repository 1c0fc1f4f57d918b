package resultset

import (
	"github.com/shopspring/decimal"

	"github.com/zhukovaskychina/xmysql-connector/driver/lob"
	"github.com/zhukovaskychina/xmysql-connector/driver/mysql"
)

func (rs *ResultSet) GetString(column int) (string, error) {
	if err := rs.checkClosed(); err != nil {
		return "", err
	}
	return rs.store.GetString(column)
}

func (rs *ResultSet) GetBytes(column int) ([]byte, error) {
	if err := rs.checkClosed(); err != nil {
		return nil, err
	}
	return rs.store.GetBytes(column)
}

func (rs *ResultSet) GetInt64(column int) (int64, error) {
	if err := rs.checkClosed(); err != nil {
		return 0, err
	}
	return rs.store.GetInt64(column)
}

func (rs *ResultSet) GetUint64(column int) (uint64, error) {
	if err := rs.checkClosed(); err != nil {
		return 0, err
	}
	return rs.store.GetUint64(column)
}

func (rs *ResultSet) GetFloat64(column int) (float64, error) {
	if err := rs.checkClosed(); err != nil {
		return 0, err
	}
	return rs.store.GetFloat64(column)
}

func (rs *ResultSet) GetBool(column int) (bool, error) {
	if err := rs.checkClosed(); err != nil {
		return false, err
	}
	return rs.store.GetBool(column)
}

func (rs *ResultSet) GetDecimal(column int) (decimal.Decimal, error) {
	if err := rs.checkClosed(); err != nil {
		return decimal.Zero, err
	}
	return rs.store.GetDecimal(column)
}

func (rs *ResultSet) IsNull(column int) (bool, error) {
	if err := rs.checkClosed(); err != nil {
		return false, err
	}
	return rs.store.IsNull(column)
}

// WasNull 最近一次读取的列是否为 NULL
func (rs *ResultSet) WasNull() bool {
	return rs.store.WasNull()
}

// FindColumn 按列名查找列号
func (rs *ResultSet) FindColumn(name string) (int, error) {
	if err := rs.checkClosed(); err != nil {
		return 0, err
	}
	return rs.store.FindColumn(name)
}

func (rs *ResultSet) locator(column int) (*lob.Locator, *lob.Channel, error) {
	if err := rs.checkClosed(); err != nil {
		return nil, nil, err
	}
	if err := rs.store.CheckPosition(column); err != nil {
		return nil, nil, err
	}
	if !rs.store.Columns()[column-1].IsLocator() {
		return nil, nil, mysql.NewInvalidOperation("column %d is not a LOB locator column", column)
	}
	raw, err := rs.store.GetRaw(column)
	if err != nil || raw == nil {
		return nil, nil, err
	}
	if rs.lobChannel == nil {
		if rs.opts.LobRPC == nil {
			return nil, nil, mysql.NewInvalidOperation("no LOB channel configured for this result set")
		}
		rs.lobChannel = lob.NewChannel(rs.sess, rs.opts.LobRPC)
	}
	loc, err := lob.ParseLocator(raw)
	if err != nil {
		return nil, nil, err
	}
	return loc, rs.lobChannel, nil
}

// GetBlob 定位符列，NULL 时返回 nil
func (rs *ResultSet) GetBlob(column int) (*lob.Blob, error) {
	loc, ch, err := rs.locator(column)
	if err != nil || loc == nil {
		return nil, err
	}
	b := lob.NewBlob(ch, rs, loc)
	rs.lobs = append(rs.lobs, b)
	return b, nil
}

// GetClob 定位符列，按列字符集编解码
func (rs *ResultSet) GetClob(column int) (*lob.Clob, error) {
	loc, ch, err := rs.locator(column)
	if err != nil || loc == nil {
		return nil, err
	}
	c := lob.NewClob(ch, rs, loc, rs.store.Columns()[column-1].Charset)
	rs.lobs = append(rs.lobs, c.Blob)
	return c, nil
}
