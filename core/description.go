package core

// FieldNames 描述逻辑角色到事件日志列名的绑定。
type FieldNames struct {
	User      string `yaml:"user" json:"user" koanf:"user"`
	Item      string `yaml:"item" json:"item" koanf:"item"`
	Feedback  string `yaml:"feedback" json:"feedback" koanf:"feedback"`
	Timestamp string `yaml:"timestamp" json:"timestamp" koanf:"timestamp"`
}

// DefaultFieldNames 是 MovieLens ratings.csv 的列名。
func DefaultFieldNames() FieldNames {
	return FieldNames{
		User:      "userId",
		Item:      "movieId",
		Feedback:  "rating",
		Timestamp: "timestamp",
	}
}

// DataDescription 是切分与重编码之后构造一次、在所有下游阶段只读透传的数据描述。
//
// 字段全部不可导出，构造后不可修改；TestUsers 返回副本。
type DataDescription struct {
	fields    FieldNames
	nUsers    int
	nItems    int
	testUsers []int
	warmStart bool
}

// NewDataDescription 校验并创建 DataDescription。
// testUsers 是测试用户在用户编码空间中的下标，顺序即评分矩阵的行顺序。
func NewDataDescription(fields FieldNames, nUsers, nItems int, testUsers []int, warmStart bool) (*DataDescription, error) {
	if nUsers < 0 || nItems < 0 {
		return nil, Errorf(ModuleDataset, ErrorCodeInvalidInput, "negative entity count: users=%d items=%d", nUsers, nItems)
	}
	// warm-start 时测试用户属于训练用户空间，否则属于独立的测试用户空间
	limit := len(testUsers)
	if warmStart {
		limit = nUsers
	}
	for _, u := range testUsers {
		if u < 0 || u >= limit {
			return nil, Errorf(ModuleDataset, ErrorCodeOutOfRange, "test user index %d outside [0, %d)", u, limit)
		}
	}
	users := make([]int, len(testUsers))
	copy(users, testUsers)
	return &DataDescription{
		fields:    fields,
		nUsers:    nUsers,
		nItems:    nItems,
		testUsers: users,
		warmStart: warmStart,
	}, nil
}

func (d *DataDescription) Fields() FieldNames { return d.fields }
func (d *DataDescription) NUsers() int        { return d.nUsers }
func (d *DataDescription) NItems() int        { return d.nItems }
func (d *DataDescription) NTestUsers() int    { return len(d.testUsers) }

// WarmStart 为 true 表示测试用户的历史（去掉 holdout 后）保留在训练集中。
func (d *DataDescription) WarmStart() bool { return d.warmStart }

// TestUsers 返回测试用户下标的副本。
func (d *DataDescription) TestUsers() []int {
	out := make([]int, len(d.testUsers))
	copy(out, d.testUsers)
	return out
}
