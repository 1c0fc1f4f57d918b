package mysql

import "fmt"

// ColumnDescriptor 结果集列元数据
type ColumnDescriptor struct {
	Catalog   string
	Database  string
	Table     string
	OrgTable  string
	Name      string
	OrgName   string
	Charset   uint16
	Length    uint32
	Type      byte
	Flags     uint16
	Decimals  byte
	augmented bool
}

func (c *ColumnDescriptor) IsUnsigned() bool {
	return c.Flags&UnsignedFlag > 0
}

func (c *ColumnDescriptor) IsNullable() bool {
	return c.Flags&NotNullFlag == 0
}

func (c *ColumnDescriptor) IsPrimaryKey() bool {
	return c.Flags&PriKeyFlag > 0
}

func (c *ColumnDescriptor) IsAutoIncrement() bool {
	return c.Flags&AutoIncrementFlag > 0
}

func (c *ColumnDescriptor) IsBinary() bool {
	return c.Flags&BinaryFlag > 0
}

func (c *ColumnDescriptor) IsLocator() bool {
	return IsLocatorType(c.Type)
}

// SourceName 用于生成SQL的原始列名
func (c *ColumnDescriptor) SourceName() string {
	if c.OrgName != "" {
		return c.OrgName
	}
	return c.Name
}

// SourceTable 用于生成SQL的原始表名
func (c *ColumnDescriptor) SourceTable() string {
	if c.OrgTable != "" {
		return c.OrgTable
	}
	return c.Table
}

// Augment 根据目录探测结果补充主键/可空/自增标记，只生效一次
func (c *ColumnDescriptor) Augment(primary, nullable, autoIncrement bool) {
	if c.augmented {
		return
	}
	c.augmented = true
	if primary {
		c.Flags |= PriKeyFlag
	}
	if nullable {
		c.Flags &^= NotNullFlag
	} else {
		c.Flags |= NotNullFlag
	}
	if autoIncrement {
		c.Flags |= AutoIncrementFlag
	}
}

// Clone 复制列定义
func (c *ColumnDescriptor) Clone() *ColumnDescriptor {
	cp := *c
	return &cp
}

func (c *ColumnDescriptor) String() string {
	return fmt.Sprintf("%s.%s.%s(%s)", c.Database, c.SourceTable(), c.SourceName(), RefTypeName[c.Type])
}
