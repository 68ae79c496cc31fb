package core

// ModelDefaults 是模型相关的配置接口，用于在配置缺省时提供默认值。
type ModelDefaults interface {
	// DefaultNeighbors 返回默认的近邻截断数 K
	DefaultNeighbors() int

	// DefaultTopN 返回默认的推荐列表长度
	DefaultTopN() int

	// DefaultSeed 返回随机类模型的默认种子
	DefaultSeed() int64
}

// DefaultModelDefaults 是默认的模型配置实现。
type DefaultModelDefaults struct{}

func (c *DefaultModelDefaults) DefaultNeighbors() int {
	return 20
}

func (c *DefaultModelDefaults) DefaultTopN() int {
	return 10
}

func (c *DefaultModelDefaults) DefaultSeed() int64 {
	return 42
}
